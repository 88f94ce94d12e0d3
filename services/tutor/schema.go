package tutor

import (
	"encoding/json"
	"fmt"
	"strings"

	"lessonchat/models"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

const (
	respondToolName = "respond_to_student"
	declineToolName = "decline_request"
)

// ChatResponse is the only shape accepted from the model. An empty reply
// counts as invalid output.
type ChatResponse struct {
	AssistantMessage    string              `json:"assistant_message" jsonschema:"required,description=Your reply to the student in the target language" validate:"required"`
	Suggestions         []models.Suggestion `json:"suggestions" jsonschema:"required,description=Two or three replies the student could send next" validate:"required,dive"`
	AddressedKeyConcept string              `json:"addressed_key_concept" jsonschema:"required,description=The single key concept addressed in this response or NO_KEY_CONCEPT if none was used" validate:"required"`
}

type DeclineParams struct {
	Reason string `json:"reason" jsonschema:"required,description=Why the request cannot be answered"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func generateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	raw, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal schema: %v", err))
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		panic(fmt.Sprintf("failed to unmarshal schema: %v", err))
	}
	delete(params, "$schema")
	delete(params, "$id")
	return params
}

var (
	chatResponseSchema = generateSchema[ChatResponse]()
	declineSchema      = generateSchema[DeclineParams]()
)

// requiredFields lists the top-level required properties of a reflected
// schema.
func requiredFields(schema map[string]any) []string {
	raw, _ := schema["required"].([]any)
	fields := make([]string, 0, len(raw))
	for _, field := range raw {
		if name, ok := field.(string); ok {
			fields = append(fields, name)
		}
	}
	return fields
}

// decodeChatResponse rejects unknown fields, missing fields and empty
// required values. Every failure wraps ErrInvalidOutput.
func decodeChatResponse(arguments string) (*ChatResponse, error) {
	dec := json.NewDecoder(strings.NewReader(arguments))
	dec.DisallowUnknownFields()

	var resp ChatResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode chat response: %v", ErrInvalidOutput, err)
	}
	if err := validate.Struct(resp); err != nil {
		return nil, fmt.Errorf("%w: chat response failed validation: %v", ErrInvalidOutput, err)
	}
	return &resp, nil
}
