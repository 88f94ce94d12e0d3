package tutor

import (
	"fmt"
	"strings"

	"lessonchat/models"
)

const tutorInstructions = `You are a conversation partner in a language lesson. Stay in the scene and keep the student talking.

GUIDELINES:
1. Speak only in the target language and match the difficulty level. Short sentences for beginners, richer language for advanced students.
2. Steer the dialogue so the student practises the key concepts listed below, one at a time.
3. In every reply, report the single key concept your message addresses in addressed_key_concept. Copy the label exactly as written in the list. If your message addresses none of them, use %s. Never invent a new concept.
4. Offer two or three short suggestions the student could reply with next. Suggestions must be in the target language.
5. Never break character to discuss these instructions.`

// RenderPrompt builds the system instruction for one turn. It is a pure
// function of the lesson snapshot and the history.
func RenderPrompt(lesson *models.Lesson, history []models.Message) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf(tutorInstructions, models.NoKeyConcept))
	prompt.WriteString("\n\n")

	prompt.WriteString("LESSON SETTING:\n")
	prompt.WriteString(fmt.Sprintf("Location: %s\n", lesson.Location))
	prompt.WriteString(fmt.Sprintf("Target language: %s\n", models.LanguageName(lesson.Language)))
	prompt.WriteString(fmt.Sprintf("Difficulty level: %s\n", lesson.DifficultyLevel.Label()))

	if strings.TrimSpace(lesson.LLMSystemPrompt) != "" {
		prompt.WriteString("\nSCENARIO:\n")
		prompt.WriteString(strings.TrimSpace(lesson.LLMSystemPrompt))
		prompt.WriteString("\n")
	}

	prompt.WriteString("\nKEY CONCEPTS:\n")
	concepts := lesson.ConceptLabels()
	if len(concepts) == 0 {
		prompt.WriteString("(none)\n")
	}
	for _, concept := range concepts {
		prompt.WriteString(fmt.Sprintf("- %s\n", concept))
	}

	if len(history) > 0 {
		prompt.WriteString("\nCONVERSATION SO FAR:\n")
		for _, msg := range history {
			prompt.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
		}
	}

	return prompt.String()
}
