package tutor

import (
	"context"
	"encoding/json"
	"fmt"

	"lessonchat/models"

	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const DefaultOpenAIModel = "gpt-4o-2024-08-06"

var tutorTools = []llms.Tool{
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        respondToolName,
			Description: "Reply to the student, suggest next replies and report the key concept addressed",
			Parameters:  chatResponseSchema,
		},
	},
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        declineToolName,
			Description: "Decline a request that must not be answered",
			Parameters:  declineSchema,
		},
	},
}

type OpenAICompleter struct {
	llm   llms.Model
	model string
}

func NewOpenAICompleter(apiKey, model string) (*OpenAICompleter, error) {
	if model == "" {
		model = DefaultOpenAIModel
	}
	llm, err := openai.New(
		openai.WithModel(model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return NewLangChainCompleter(llm, model), nil
}

// NewLangChainCompleter wraps any langchaingo model that supports tool calls.
func NewLangChainCompleter(llm llms.Model, model string) *OpenAICompleter {
	return &OpenAICompleter{llm: llm, model: model}
}

func (c *OpenAICompleter) Model() string {
	return c.model
}

func (c *OpenAICompleter) Complete(ctx context.Context, messages []models.Message) (*Completion, error) {
	messageHistory := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		var msgType llms.ChatMessageType
		switch msg.Role {
		case models.RoleSystem:
			msgType = llms.ChatMessageTypeSystem
		case models.RoleUser:
			msgType = llms.ChatMessageTypeHuman
		default:
			msgType = llms.ChatMessageTypeAI
		}
		messageHistory = append(messageHistory, llms.TextParts(msgType, msg.Content))
	}

	log.Debugf("Calling %s with %d messages", c.model, len(messageHistory))
	resp, err := c.llm.GenerateContent(ctx, messageHistory,
		llms.WithTools(tutorTools),
		llms.WithTemperature(0.7),
		llms.WithToolChoice("required"))
	if err != nil {
		return nil, fmt.Errorf("failed to generate tutor response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in model response", ErrInvalidOutput)
	}
	choice := resp.Choices[0]

	if choice.StopReason == "content_filter" {
		return &Completion{Refusal: "response blocked by content filter"}, nil
	}

	if len(choice.ToolCalls) == 0 || choice.ToolCalls[0].FunctionCall == nil {
		return nil, fmt.Errorf("%w: no tool calls in model response", ErrInvalidOutput)
	}

	call := choice.ToolCalls[0].FunctionCall
	switch call.Name {
	case respondToolName:
		return &Completion{Arguments: call.Arguments}, nil
	case declineToolName:
		var params DeclineParams
		if err := json.Unmarshal([]byte(call.Arguments), &params); err != nil || params.Reason == "" {
			params.Reason = "declined without reason"
		}
		return &Completion{Refusal: params.Reason}, nil
	default:
		return nil, fmt.Errorf("%w: unknown function call: %s", ErrInvalidOutput, call.Name)
	}
}
