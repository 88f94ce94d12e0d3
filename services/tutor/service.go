package tutor

import (
	"context"
	"errors"
	"fmt"

	"lessonchat/models"

	log "github.com/sirupsen/logrus"
)

var (
	ErrRefusal       = errors.New("model refused to respond")
	ErrInvalidOutput = errors.New("model output failed schema validation")
	ErrUnexpected    = errors.New("unexpected model failure")
)

const (
	refusalMessage       = "I'm sorry, but I can't respond to that request. Please try a different question or topic."
	invalidOutputMessage = "An error occurred while processing the response. Please try again."
	unexpectedMessage    = "An unexpected error occurred. Please try again later or contact support if the problem persists."
)

// UserMessage maps a Respond error to the text shown in place of an assistant
// reply.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrRefusal):
		return refusalMessage
	case errors.Is(err, ErrInvalidOutput):
		return invalidOutputMessage
	default:
		return unexpectedMessage
	}
}

// Completion is the raw outcome of one model call. Exactly one of Arguments
// and Refusal is set.
type Completion struct {
	Arguments string
	Refusal   string
}

// Completer sends an ordered role/content list to a chat model and returns the
// arguments of the forced respond tool call.
type Completer interface {
	Complete(ctx context.Context, messages []models.Message) (*Completion, error)
	Model() string
}

type Reply struct {
	ChatResponse
	Model string
}

type Service struct {
	completer Completer
}

func NewService(completer Completer) *Service {
	return &Service{completer: completer}
}

func (s *Service) Model() string {
	return s.completer.Model()
}

// Respond renders the prompt, calls the model and decodes its reply. It never
// touches session or transcript state.
func (s *Service) Respond(ctx context.Context, lesson *models.Lesson, history []models.Message, userMessage string) (*Reply, error) {
	log.Infof("Starting tutor response for lesson %q with %d history messages", lesson.Slug, len(history))

	prompt := RenderPrompt(lesson, history)
	messages := BuildMessages(prompt, history, userMessage)

	completion, err := s.completer.Complete(ctx, messages)
	if err != nil {
		if errors.Is(err, ErrInvalidOutput) {
			log.Errorf("Validation error in tutor response: %v", err)
			return nil, err
		}
		log.Errorf("Unexpected error in tutor response: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUnexpected, err)
	}

	if completion.Refusal != "" {
		log.Warnf("Model refusal: %s", completion.Refusal)
		return nil, ErrRefusal
	}

	resp, err := decodeChatResponse(completion.Arguments)
	if err != nil {
		log.Errorf("Validation error in tutor response: %v", err)
		return nil, err
	}

	log.Infof("Tutor response completed, addressed key concept: %s", resp.AddressedKeyConcept)
	return &Reply{ChatResponse: *resp, Model: s.completer.Model()}, nil
}

// BuildMessages orders the request as system prompt, history, then the new
// user turn.
func BuildMessages(prompt string, history []models.Message, userMessage string) []models.Message {
	messages := make([]models.Message, 0, len(history)+2)
	messages = append(messages, models.Message{Role: models.RoleSystem, Content: prompt})
	messages = append(messages, history...)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: userMessage})
	return messages
}
