package services

import (
	"context"
	"errors"
	"fmt"

	"lessonchat/db"
	"lessonchat/models"
	"lessonchat/services/progress"
	"lessonchat/services/tutor"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const resetMessage = "The lesson has been reset. You can start a new dialogue now."

// ErrLessonIncomplete is returned by Summary while key concepts are still
// outstanding.
var ErrLessonIncomplete = errors.New("lesson is not complete")

// ValidationError rejects a turn before any state is touched. Message is shown
// to the student as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Tutor is the LLM gateway as seen by the controller.
type Tutor interface {
	Respond(ctx context.Context, lesson *models.Lesson, history []models.Message, userMessage string) (*tutor.Reply, error)
	Model() string
}

// Visitor identifies the browser session and the authenticated user behind a
// request.
type Visitor struct {
	SessionID string
	UserID    string
}

type TurnRequest struct {
	UserMessage        string `validate:"required,max=100"`
	ResponseKeyConcept string
}

// ChatView is everything the chat fragment renders. Error replaces
// AssistantMessage when the tutor failed.
type ChatView struct {
	AssistantMessage     string
	Suggestions          []string
	AddressedKeyConcept  string
	AddressedKeyConcepts []string
	RespondedKeyConcepts []string
	ValidKeyConcepts     []string
	NoKeyConcept         string
	Error                string
}

// TurnResult is either a chat fragment or, once the lesson is complete, a
// redirect to the summary.
type TurnResult struct {
	Complete    bool
	RedirectURL string
	Chat        *ChatView
}

type PageView struct {
	Lesson               *models.Lesson
	State                progress.State
	History              []models.Message
	AddressedKeyConcepts []string
	RespondedKeyConcepts []string
	MaxMessageLength     int
	Prompt               string
	NoKeyConcept         string
}

type SummaryView struct {
	Lesson     *models.Lesson
	Transcript *models.Transcript
	Messages   []*models.TranscriptMessage
}

// ChatService drives one lesson attempt per visitor. Progress is read once per
// request, transitioned with the progress package and written back before the
// response is built.
type ChatService struct {
	lessons     *LessonService
	transcripts *TranscriptService
	sessions    db.SessionStore
	tutor       Tutor
	validate    *validator.Validate
}

func NewChatService(lessons *LessonService, transcripts *TranscriptService, sessions db.SessionStore, tutor Tutor) *ChatService {
	return &ChatService{
		lessons:     lessons,
		transcripts: transcripts,
		sessions:    sessions,
		tutor:       tutor,
		validate:    validator.New(),
	}
}

func (s *ChatService) Page(ctx context.Context, visitor Visitor, slug string) (*PageView, error) {
	lesson, err := s.lessons.GetLesson(ctx, slug)
	if err != nil {
		return nil, err
	}

	p, err := s.sessions.GetProgress(ctx, visitor.SessionID, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	return &PageView{
		Lesson:               lesson,
		State:                progress.StateOf(lesson.ConceptLabels(), p),
		History:              lo.Ternary(p.ConversationHistory == nil, []models.Message{}, p.ConversationHistory),
		AddressedKeyConcepts: nonNil(p.AddressedKeyConcepts),
		RespondedKeyConcepts: nonNil(p.RespondedKeyConcepts),
		MaxMessageLength:     models.MaxUserMessageLength,
		Prompt:               tutor.RenderPrompt(lesson, p.ConversationHistory),
		NoKeyConcept:         models.NoKeyConcept,
	}, nil
}

// Turn handles one student message. Once the tagged concept completes the
// lesson the tutor is not called and the result redirects to the summary.
func (s *ChatService) Turn(ctx context.Context, visitor Visitor, slug string, req TurnRequest) (*TurnResult, error) {
	if err := s.validateTurn(req); err != nil {
		return nil, err
	}

	lesson, err := s.lessons.GetLesson(ctx, slug)
	if err != nil {
		return nil, err
	}
	concepts := lesson.ConceptLabels()

	p, err := s.sessions.GetProgress(ctx, visitor.SessionID, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	p.RespondedKeyConcepts = progress.NoteResponded(p.RespondedKeyConcepts, req.ResponseKeyConcept)

	transcript, err := s.transcripts.Acquire(ctx, visitor.UserID, lesson.ID, p.TranscriptID)
	if err != nil {
		return nil, err
	}
	p.TranscriptID = transcript.ID

	if err := s.sessions.SaveProgress(ctx, visitor.SessionID, lesson.ID, p); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	if _, err := s.transcripts.Append(ctx, transcript.ID, models.RoleUser, req.UserMessage, req.ResponseKeyConcept, ""); err != nil {
		return nil, err
	}

	if progress.StateOf(concepts, p) == progress.Complete {
		log.Infof("Lesson %q complete for session %s", lesson.Slug, visitor.SessionID)
		return &TurnResult{Complete: true, RedirectURL: lesson.URL() + "?chat_summary=true"}, nil
	}

	reply, err := s.tutor.Respond(ctx, lesson, p.ConversationHistory, req.UserMessage)
	if err != nil {
		return &TurnResult{Chat: &ChatView{Error: tutor.UserMessage(err)}}, nil
	}

	addressed := reply.AddressedKeyConcept
	if !lo.Contains(concepts, addressed) {
		if addressed != models.NoKeyConcept {
			log.Warnf("Invalid key concept: %s", addressed)
		}
		addressed = models.NoKeyConcept
	}

	p.AddressedKeyConcepts = progress.NoteAddressed(p.AddressedKeyConcepts, addressed)
	p.ConversationHistory = progress.RecordTurn(p.ConversationHistory, req.UserMessage, reply.AssistantMessage)

	if err := s.sessions.SaveProgress(ctx, visitor.SessionID, lesson.ID, p); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	if _, err := s.transcripts.Append(ctx, transcript.ID, models.RoleAssistant, reply.AssistantMessage, addressed, reply.Model); err != nil {
		return nil, err
	}

	return &TurnResult{Chat: &ChatView{
		AssistantMessage:     reply.AssistantMessage,
		Suggestions:          lo.Map(reply.Suggestions, func(sug models.Suggestion, _ int) string { return sug.Text }),
		AddressedKeyConcept:  addressed,
		AddressedKeyConcepts: p.AddressedKeyConcepts,
		RespondedKeyConcepts: p.RespondedKeyConcepts,
		ValidKeyConcepts:     concepts,
		NoKeyConcept:         models.NoKeyConcept,
	}}, nil
}

func (s *ChatService) validateTurn(req TurnRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "max":
				return &ValidationError{Message: fmt.Sprintf("Message exceeds maximum length of %d characters.", models.MaxUserMessageLength)}
			case "required":
				return &ValidationError{Message: "Message cannot be empty."}
			}
		}
	}
	return &ValidationError{Message: err.Error()}
}

// StartOver clears the working state and binds a brand new transcript. Old
// transcripts are kept.
func (s *ChatService) StartOver(ctx context.Context, visitor Visitor, slug string) (*ChatView, error) {
	lesson, err := s.lessons.GetLesson(ctx, slug)
	if err != nil {
		return nil, err
	}

	p, err := s.sessions.GetProgress(ctx, visitor.SessionID, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	transcript, err := s.transcripts.Create(ctx, visitor.UserID, lesson.ID)
	if err != nil {
		return nil, err
	}

	p = progress.Reset(p)
	p.TranscriptID = transcript.ID
	if err := s.sessions.SaveProgress(ctx, visitor.SessionID, lesson.ID, p); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	log.Infof("Lesson %q reset for session %s, transcript %d", lesson.Slug, visitor.SessionID, transcript.ID)
	return &ChatView{
		AssistantMessage:     resetMessage,
		Suggestions:          []string{},
		AddressedKeyConcepts: []string{},
		RespondedKeyConcepts: []string{},
		ValidKeyConcepts:     lesson.ConceptLabels(),
		NoKeyConcept:         models.NoKeyConcept,
	}, nil
}

// Summary renders the finished attempt and then detaches it from the session
// so the next visit starts over. It returns ErrLessonIncomplete otherwise.
func (s *ChatService) Summary(ctx context.Context, visitor Visitor, slug string) (*SummaryView, error) {
	lesson, err := s.lessons.GetLesson(ctx, slug)
	if err != nil {
		return nil, err
	}

	p, err := s.sessions.GetProgress(ctx, visitor.SessionID, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	if progress.StateOf(lesson.ConceptLabels(), p) != progress.Complete {
		return nil, ErrLessonIncomplete
	}

	transcript, err := s.transcripts.Acquire(ctx, visitor.UserID, lesson.ID, p.TranscriptID)
	if err != nil {
		return nil, err
	}
	messages, err := s.transcripts.GetMessages(ctx, transcript.ID)
	if err != nil {
		return nil, err
	}

	p = progress.Reset(p)
	p.TranscriptID = 0
	if err := s.sessions.SaveProgress(ctx, visitor.SessionID, lesson.ID, p); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	return &SummaryView{Lesson: lesson, Transcript: transcript, Messages: messages}, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
