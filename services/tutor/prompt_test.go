package tutor

import (
	"strings"
	"testing"

	"lessonchat/models"
)

func testLesson() *models.Lesson {
	return &models.Lesson{
		Slug:            "cafe",
		Title:           "At the café",
		Location:        "Coffee Shop",
		Language:        "es",
		DifficultyLevel: models.LevelA2,
		LLMSystemPrompt: "You are a friendly barista.",
		KeyConcepts: []models.KeyConcept{
			{Concept: "ordering coffee"},
			{Concept: "asking for the bill"},
		},
	}
}

func TestRenderPrompt(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Content: "Hola"},
		{Role: models.RoleAssistant, Content: "¡Hola! ¿Qué te pongo?"},
	}

	prompt := RenderPrompt(testLesson(), history)

	tests := []struct {
		name string
		want string
	}{
		{name: "location", want: "Location: Coffee Shop"},
		{name: "language name", want: "Target language: Spanish"},
		{name: "difficulty label", want: "Difficulty level: A2 - Elementary"},
		{name: "scenario", want: "You are a friendly barista."},
		{name: "first concept", want: "- ordering coffee\n"},
		{name: "second concept", want: "- asking for the bill\n"},
		{name: "sentinel", want: models.NoKeyConcept},
		{name: "history user", want: "user: Hola\n"},
		{name: "history assistant", want: "assistant: ¡Hola! ¿Qué te pongo?\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(prompt, tt.want) {
				t.Errorf("RenderPrompt() missing %q in:\n%s", tt.want, prompt)
			}
		})
	}
}

func TestRenderPromptIsDeterministic(t *testing.T) {
	lesson := testLesson()
	history := []models.Message{{Role: models.RoleUser, Content: "Hola"}}

	first := RenderPrompt(lesson, history)
	second := RenderPrompt(lesson, history)
	if first != second {
		t.Errorf("RenderPrompt() not deterministic")
	}
}

func TestRenderPromptKeepsConceptOrder(t *testing.T) {
	prompt := RenderPrompt(testLesson(), nil)

	first := strings.Index(prompt, "ordering coffee")
	second := strings.Index(prompt, "asking for the bill")
	if first < 0 || second < 0 || first > second {
		t.Errorf("concepts out of order in prompt:\n%s", prompt)
	}
	if strings.Contains(prompt, "CONVERSATION SO FAR") {
		t.Errorf("empty history should not render a conversation section")
	}
}
