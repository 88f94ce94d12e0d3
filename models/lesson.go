package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrLessonNotFound = errors.New("lesson not found")

const (
	MaxUserMessageLength = 100
	MaxKeyConcepts       = 5
	DefaultEstimatedTime = 30
)

type KeyConcept struct {
	ID       int    `json:"id" db:"id" yaml:"-"`
	LessonID int    `json:"lesson_id" db:"lesson_id" yaml:"-"`
	Concept  string `json:"concept" db:"concept" yaml:"concept"`
	Image    string `json:"image,omitempty" db:"image" yaml:"image,omitempty"`
	Position int    `json:"position" db:"position" yaml:"-"`
}

type Lesson struct {
	ID              int               `json:"id" db:"id" yaml:"id,omitempty"`
	Slug            string            `json:"slug" db:"slug" yaml:"slug"`
	Title           string            `json:"title" db:"title" yaml:"title"`
	Intro           string            `json:"intro" db:"intro" yaml:"intro,omitempty"`
	CoverPhoto      string            `json:"cover_photo,omitempty" db:"cover_photo" yaml:"cover_photo,omitempty"`
	Location        string            `json:"location" db:"location" yaml:"location"`
	Language        string            `json:"language" db:"language" yaml:"language"`
	Voice           Voice             `json:"voice" db:"voice" yaml:"voice"`
	DifficultyLevel CEFRLevel         `json:"difficulty_level" db:"difficulty_level" yaml:"difficulty_level"`
	EstimatedTime   int               `json:"estimated_time" db:"estimated_time" yaml:"estimated_time"`
	LLMSystemPrompt string            `json:"llm_system_prompt" db:"llm_system_prompt" yaml:"llm_system_prompt"`
	KeyConcepts     []KeyConcept      `json:"key_concepts" yaml:"key_concepts"`
	Minigames       []json.RawMessage `json:"minigames,omitempty" db:"minigames" yaml:"-"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at" yaml:"-"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at" yaml:"-"`
}

// ConceptLabels returns the display strings of the lesson's key concepts in
// authored order.
func (l *Lesson) ConceptLabels() []string {
	labels := make([]string, 0, len(l.KeyConcepts))
	for _, kc := range l.KeyConcepts {
		labels = append(labels, kc.Concept)
	}
	return labels
}

func (l *Lesson) URL() string {
	return "/lessons/" + l.Slug
}

// Validate checks the authoring rules every lesson source must satisfy and
// trims the concept labels in place.
func (l *Lesson) Validate() error {
	l.Slug = strings.TrimSpace(l.Slug)
	if l.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("lesson %q: title is required", l.Slug)
	}
	if strings.TrimSpace(l.Location) == "" {
		return fmt.Errorf("lesson %q: location is required", l.Slug)
	}
	if strings.TrimSpace(l.Language) == "" {
		return fmt.Errorf("lesson %q: language is required", l.Slug)
	}
	if !l.DifficultyLevel.Valid() {
		return fmt.Errorf("lesson %q: unknown difficulty level %q", l.Slug, l.DifficultyLevel)
	}
	if !l.Voice.Valid() {
		return fmt.Errorf("lesson %q: unknown voice %q", l.Slug, l.Voice)
	}
	if l.EstimatedTime < 0 {
		return fmt.Errorf("lesson %q: estimated time cannot be negative", l.Slug)
	}
	if len(l.KeyConcepts) > MaxKeyConcepts {
		return fmt.Errorf("lesson %q: at most %d key concepts are allowed", l.Slug, MaxKeyConcepts)
	}

	seen := make(map[string]bool, len(l.KeyConcepts))
	for i := range l.KeyConcepts {
		concept := strings.TrimSpace(l.KeyConcepts[i].Concept)
		if concept == "" {
			return fmt.Errorf("lesson %q: key concept %d cannot be empty", l.Slug, i+1)
		}
		if concept == NoKeyConcept {
			return fmt.Errorf("lesson %q: %s is reserved", l.Slug, NoKeyConcept)
		}
		if seen[concept] {
			return fmt.Errorf("lesson %q: duplicate key concept %q", l.Slug, concept)
		}
		seen[concept] = true
		l.KeyConcepts[i].Concept = concept
	}

	return nil
}
