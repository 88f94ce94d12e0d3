package progress

import (
	"lessonchat/models"

	"github.com/samber/lo"
)

// State is derived from a Progress record and the lesson's concepts once per
// request.
type State int

const (
	Fresh State = iota
	InProgress
	Complete
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case InProgress:
		return "in_progress"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

func StateOf(lessonConcepts []string, p models.Progress) State {
	if IsComplete(lessonConcepts, p.RespondedKeyConcepts) {
		return Complete
	}
	if p.TranscriptID == 0 {
		return Fresh
	}
	return InProgress
}

// RecordTurn appends the user turn and then the assistant turn and keeps the
// most recent MaxHistoryMessages entries.
func RecordTurn(history []models.Message, userText, assistantText string) []models.Message {
	next := make([]models.Message, 0, len(history)+2)
	next = append(next, history...)
	next = append(next,
		models.Message{Role: models.RoleUser, Content: userText},
		models.Message{Role: models.RoleAssistant, Content: assistantText},
	)
	if len(next) > models.MaxHistoryMessages {
		next = next[len(next)-models.MaxHistoryMessages:]
	}
	return next
}

func NoteAddressed(addressed []string, concept string) []string {
	return noteConcept(addressed, concept)
}

func NoteResponded(responded []string, concept string) []string {
	return noteConcept(responded, concept)
}

func noteConcept(set []string, concept string) []string {
	next := append([]string{}, set...)
	if concept == "" || concept == models.NoKeyConcept || lo.Contains(next, concept) {
		return next
	}
	return append(next, concept)
}

// IsComplete reports whether the responded labels equal the lesson's labels as
// sets. A responded label unknown to the lesson makes it false.
func IsComplete(lessonConcepts, responded []string) bool {
	want := lo.Uniq(lessonConcepts)
	got := lo.Uniq(responded)
	if len(want) != len(got) {
		return false
	}
	return lo.Every(want, got)
}

// Reset clears history and both concept sets. The transcript binding is left
// to the caller.
func Reset(p models.Progress) models.Progress {
	return models.Progress{
		ConversationHistory:  []models.Message{},
		AddressedKeyConcepts: []string{},
		RespondedKeyConcepts: []string{},
		TranscriptID:         p.TranscriptID,
	}
}
