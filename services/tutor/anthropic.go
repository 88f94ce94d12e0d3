package tutor

import (
	"context"
	"encoding/json"
	"fmt"

	"lessonchat/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	log "github.com/sirupsen/logrus"
)

const DefaultAnthropicModel = "claude-sonnet-4-20250514"

type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicCompleter(apiKey, model string, opts ...option.RequestOption) *AnthropicCompleter {
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(opts...)
	return &AnthropicCompleter{client: &client, model: model}
}

func (c *AnthropicCompleter) Model() string {
	return c.model
}

func (c *AnthropicCompleter) Complete(ctx context.Context, messages []models.Message) (*Completion, error) {
	system, anthropicMessages := convertToAnthropicMessages(messages)

	response, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		System:    system,
		Messages:  anthropicMessages,
		Tools:     anthropicToolSpecs(),
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfAny: &anthropic.ToolChoiceAnyParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call Anthropic API: %w", err)
	}

	log.Debugf("Anthropic response model=%s stop_reason=%s blocks=%d", response.Model, response.StopReason, len(response.Content))

	if string(response.StopReason) == "refusal" {
		return &Completion{Refusal: "stop reason refusal"}, nil
	}

	for _, block := range response.Content {
		switch block := block.AsAny().(type) {
		case anthropic.ToolUseBlock:
			inputJSON, err := json.Marshal(block.Input)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to read tool input: %v", ErrInvalidOutput, err)
			}
			switch block.Name {
			case respondToolName:
				return &Completion{Arguments: string(inputJSON)}, nil
			case declineToolName:
				var params DeclineParams
				if err := json.Unmarshal(inputJSON, &params); err != nil || params.Reason == "" {
					params.Reason = "declined without reason"
				}
				return &Completion{Refusal: params.Reason}, nil
			default:
				return nil, fmt.Errorf("%w: unknown tool call: %s", ErrInvalidOutput, block.Name)
			}
		}
	}

	return nil, fmt.Errorf("%w: no tool calls in model response", ErrInvalidOutput)
}

func convertToAnthropicMessages(messages []models.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	var anthropicMessages []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case models.RoleUser:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case models.RoleAssistant:
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return system, anthropicMessages
}

func anthropicToolSpecs() []anthropic.ToolUnionParam {
	return []anthropic.ToolUnionParam{
		{
			OfTool: &anthropic.ToolParam{
				Name:        respondToolName,
				Description: anthropic.String("Reply to the student, suggest next replies and report the key concept addressed"),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: chatResponseSchema["properties"],
					Required:   requiredFields(chatResponseSchema),
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        declineToolName,
				Description: anthropic.String("Decline a request that must not be answered"),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: declineSchema["properties"],
					Required:   requiredFields(declineSchema),
				},
			},
		},
	}
}
