package progress

import (
	"fmt"
	"reflect"
	"testing"

	"lessonchat/models"
)

func TestRecordTurn(t *testing.T) {
	var history []models.Message
	for i := 1; i <= 8; i++ {
		history = RecordTurn(history, fmt.Sprintf("u%d", i), fmt.Sprintf("a%d", i))

		if len(history) > models.MaxHistoryMessages {
			t.Fatalf("turn %d: history length %d exceeds %d", i, len(history), models.MaxHistoryMessages)
		}
		if len(history)%2 != 0 {
			t.Fatalf("turn %d: history length %d is odd", i, len(history))
		}
		for j, msg := range history {
			want := models.RoleUser
			if j%2 == 1 {
				want = models.RoleAssistant
			}
			if msg.Role != want {
				t.Fatalf("turn %d: message %d role = %s, expected %s", i, j, msg.Role, want)
			}
		}
	}

	if history[0].Content != "u4" || history[len(history)-1].Content != "a8" {
		t.Errorf("expected window u4..a8, got %s..%s", history[0].Content, history[len(history)-1].Content)
	}
}

func TestRecordTurnDoesNotMutateInput(t *testing.T) {
	history := []models.Message{{Role: models.RoleUser, Content: "u1"}, {Role: models.RoleAssistant, Content: "a1"}}
	before := append([]models.Message{}, history...)

	_ = RecordTurn(history, "u2", "a2")

	if !reflect.DeepEqual(history, before) {
		t.Errorf("RecordTurn() mutated its input")
	}
}

func TestRecordTurnKeepsDuplicates(t *testing.T) {
	history := RecordTurn(nil, "hola", "hola")
	history = RecordTurn(history, "hola", "hola")
	if len(history) != 4 {
		t.Errorf("expected 4 entries, got %d", len(history))
	}
}

func TestNoteConcepts(t *testing.T) {
	tests := []struct {
		name     string
		set      []string
		concept  string
		expected []string
	}{
		{name: "append to empty", set: nil, concept: "greeting", expected: []string{"greeting"}},
		{name: "preserve insertion order", set: []string{"b"}, concept: "a", expected: []string{"b", "a"}},
		{name: "already present", set: []string{"greeting"}, concept: "greeting", expected: []string{"greeting"}},
		{name: "sentinel", set: []string{"greeting"}, concept: models.NoKeyConcept, expected: []string{"greeting"}},
		{name: "empty tag", set: []string{"greeting"}, concept: "", expected: []string{"greeting"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for fnName, fn := range map[string]func([]string, string) []string{
				"NoteAddressed": NoteAddressed,
				"NoteResponded": NoteResponded,
			} {
				once := fn(tt.set, tt.concept)
				twice := fn(once, tt.concept)
				if !reflect.DeepEqual(once, tt.expected) {
					t.Errorf("%s() = %v, expected %v", fnName, once, tt.expected)
				}
				if !reflect.DeepEqual(once, twice) {
					t.Errorf("%s() not idempotent: %v then %v", fnName, once, twice)
				}
			}
		})
	}
}

func TestIsComplete(t *testing.T) {
	lesson := []string{"ordering coffee", "asking for the bill"}

	tests := []struct {
		name      string
		responded []string
		expected  bool
	}{
		{name: "all responded", responded: []string{"ordering coffee", "asking for the bill"}, expected: true},
		{name: "order independent", responded: []string{"asking for the bill", "ordering coffee"}, expected: true},
		{name: "missing one", responded: []string{"ordering coffee"}, expected: false},
		{name: "none", responded: nil, expected: false},
		{name: "extra unknown label", responded: []string{"ordering coffee", "asking for the bill", "small talk"}, expected: false},
		{name: "unknown replaces known", responded: []string{"ordering coffee", "small talk"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsComplete(lesson, tt.responded); got != tt.expected {
				t.Errorf("IsComplete(%v, %v) = %v, expected %v", lesson, tt.responded, got, tt.expected)
			}
		})
	}
}

func TestReset(t *testing.T) {
	p := models.Progress{
		ConversationHistory:  []models.Message{{Role: models.RoleUser, Content: "hola"}},
		AddressedKeyConcepts: []string{"a"},
		RespondedKeyConcepts: []string{"a"},
		TranscriptID:         7,
	}

	reset := Reset(p)

	if len(reset.ConversationHistory) != 0 || len(reset.AddressedKeyConcepts) != 0 || len(reset.RespondedKeyConcepts) != 0 {
		t.Errorf("Reset() left state behind: %+v", reset)
	}
	if reset.TranscriptID != 7 {
		t.Errorf("Reset() changed transcript id to %d", reset.TranscriptID)
	}
}

func TestStateOf(t *testing.T) {
	lesson := []string{"a", "b"}

	tests := []struct {
		name     string
		progress models.Progress
		expected State
	}{
		{name: "fresh", progress: models.Progress{}, expected: Fresh},
		{name: "in progress", progress: models.Progress{TranscriptID: 3, RespondedKeyConcepts: []string{"a"}}, expected: InProgress},
		{name: "complete", progress: models.Progress{TranscriptID: 3, RespondedKeyConcepts: []string{"b", "a"}}, expected: Complete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateOf(lesson, tt.progress); got != tt.expected {
				t.Errorf("StateOf() = %s, expected %s", got, tt.expected)
			}
		})
	}
}
