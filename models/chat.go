package models

const NoKeyConcept = "NO_KEY_CONCEPT"

const MaxHistoryMessages = 10

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Progress is the per-session working state of one lesson attempt. It is
// separate from the Transcript, which survives a reset.
type Progress struct {
	ConversationHistory  []Message `json:"conversation_history"`
	AddressedKeyConcepts []string  `json:"addressed_key_concepts"`
	RespondedKeyConcepts []string  `json:"responded_key_concepts"`
	TranscriptID         int64     `json:"transcript_id,omitempty"`
}

type Suggestion struct {
	Text string `json:"text" jsonschema:"description=A short reply the student could send next" validate:"required"`
}
