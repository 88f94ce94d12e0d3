package models

import (
	"errors"
	"time"
)

var ErrTranscriptNotFound = errors.New("transcript not found")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem only appears in outbound LLM requests, never in transcripts.
	RoleSystem Role = "system"
)

type Transcript struct {
	ID           int64     `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	LessonID     int       `json:"lesson_id" db:"lesson_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	MessageCount int       `json:"message_count"`
}

type TranscriptMessage struct {
	ID           int64     `json:"id" db:"id"`
	TranscriptID int64     `json:"transcript_id" db:"transcript_id"`
	Role         Role      `json:"role" db:"role"`
	Content      string    `json:"content" db:"content"`
	KeyConcept   *string   `json:"key_concept,omitempty" db:"key_concept"`
	LLMModel     *string   `json:"llm_model,omitempty" db:"llm_model"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type TranscriptWithMessages struct {
	Transcript
	Messages []*TranscriptMessage `json:"messages"`
}
