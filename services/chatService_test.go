package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lessonchat/db"
	"lessonchat/models"
	"lessonchat/services/progress"
	"lessonchat/services/tutor"
)

type fakeTutor struct {
	reply *tutor.Reply
	err   error
	calls int
	seen  [][]models.Message
}

func (f *fakeTutor) Respond(ctx context.Context, lesson *models.Lesson, history []models.Message, userMessage string) (*tutor.Reply, error) {
	f.calls++
	f.seen = append(f.seen, append([]models.Message{}, history...))
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeTutor) Model() string {
	return "fake-model"
}

func tutorReply(message, concept string) *tutor.Reply {
	return &tutor.Reply{
		ChatResponse: tutor.ChatResponse{
			AssistantMessage:    message,
			Suggestions:         []models.Suggestion{{Text: "Un café, por favor."}, {Text: "¿Cuánto cuesta?"}},
			AddressedKeyConcept: concept,
		},
		Model: "fake-model",
	}
}

type chatFixture struct {
	service     *ChatService
	tutor       *fakeTutor
	sessions    *db.MemorySessionStore
	transcripts *db.MemoryTranscriptRepository
	lesson      *models.Lesson
	visitor     Visitor
}

func newChatFixture(t *testing.T, concepts ...string) *chatFixture {
	t.Helper()

	lesson := &models.Lesson{
		Slug: "cafe", Title: "At the café", Location: "Coffee Shop", Language: "es",
		DifficultyLevel: models.LevelA2, Voice: models.VoiceFemale,
	}
	for _, concept := range concepts {
		lesson.KeyConcepts = append(lesson.KeyConcepts, models.KeyConcept{Concept: concept})
	}

	lessons := db.NewMemoryLessonRepository(lesson)
	transcripts := db.NewMemoryTranscriptRepository()
	sessions := db.NewMemorySessionStore()
	fake := &fakeTutor{reply: tutorReply("¡Hola! ¿Qué desea tomar?", "ordering coffee")}

	return &chatFixture{
		service:     NewChatService(NewLessonService(lessons), NewTranscriptService(transcripts), sessions, fake),
		tutor:       fake,
		sessions:    sessions,
		transcripts: transcripts,
		lesson:      lesson,
		visitor:     Visitor{SessionID: "session-1", UserID: "user-1"},
	}
}

func (f *chatFixture) progress(t *testing.T) models.Progress {
	t.Helper()
	p, err := f.sessions.GetProgress(context.Background(), f.visitor.SessionID, f.lesson.ID)
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	return p
}

func TestTurnRecordsHistoryAndTranscript(t *testing.T) {
	f := newChatFixture(t, "ordering coffee", "asking for the bill")
	ctx := context.Background()

	result, err := f.service.Turn(ctx, f.visitor, "cafe", TurnRequest{UserMessage: "Hola"})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if result.Complete || result.Chat == nil {
		t.Fatalf("expected a chat fragment, got %+v", result)
	}
	if result.Chat.AddressedKeyConcept != "ordering coffee" {
		t.Errorf("AddressedKeyConcept = %q", result.Chat.AddressedKeyConcept)
	}
	if len(result.Chat.Suggestions) != 2 {
		t.Errorf("expected 2 suggestions, got %v", result.Chat.Suggestions)
	}

	p := f.progress(t)
	if len(p.ConversationHistory) != 2 ||
		p.ConversationHistory[0].Role != models.RoleUser ||
		p.ConversationHistory[1].Role != models.RoleAssistant {
		t.Errorf("unexpected history: %+v", p.ConversationHistory)
	}
	if len(p.AddressedKeyConcepts) != 1 || p.AddressedKeyConcepts[0] != "ordering coffee" {
		t.Errorf("unexpected addressed concepts: %v", p.AddressedKeyConcepts)
	}
	if p.TranscriptID == 0 {
		t.Fatal("expected a bound transcript")
	}
	if got := progress.StateOf(f.lesson.ConceptLabels(), p); got != progress.InProgress {
		t.Errorf("state = %v, want in_progress", got)
	}

	messages, _ := f.transcripts.GetMessages(ctx, p.TranscriptID)
	if len(messages) != 2 {
		t.Fatalf("expected 2 transcript messages, got %d", len(messages))
	}
	if messages[0].Role != models.RoleUser || messages[0].LLMModel != nil || messages[0].KeyConcept != nil {
		t.Errorf("unexpected user message: %+v", messages[0])
	}
	if messages[1].LLMModel == nil || *messages[1].LLMModel != "fake-model" {
		t.Errorf("expected assistant message to carry the model, got %+v", messages[1])
	}
	if messages[1].KeyConcept == nil || *messages[1].KeyConcept != "ordering coffee" {
		t.Errorf("expected assistant message to carry the concept, got %+v", messages[1])
	}
}

func TestTurnSkipsTutorOnceComplete(t *testing.T) {
	f := newChatFixture(t, "ordering coffee", "asking for the bill")
	ctx := context.Background()

	first, err := f.service.Turn(ctx, f.visitor, "cafe", TurnRequest{UserMessage: "Un café", ResponseKeyConcept: "ordering coffee"})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if first.Complete {
		t.Fatal("lesson should not be complete after one concept")
	}

	second, err := f.service.Turn(ctx, f.visitor, "cafe", TurnRequest{UserMessage: "La cuenta", ResponseKeyConcept: "asking for the bill"})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if !second.Complete || second.Chat != nil {
		t.Fatalf("expected a redirect, got %+v", second)
	}
	if second.RedirectURL != "/lessons/cafe?chat_summary=true" {
		t.Errorf("RedirectURL = %q", second.RedirectURL)
	}
	if f.tutor.calls != 1 {
		t.Errorf("expected the tutor to be called once, got %d", f.tutor.calls)
	}

	p := f.progress(t)
	messages, _ := f.transcripts.GetMessages(ctx, p.TranscriptID)
	if len(messages) != 3 {
		t.Errorf("expected the final user turn to be logged, got %d messages", len(messages))
	}
	if last := messages[len(messages)-1]; last.KeyConcept == nil || *last.KeyConcept != "asking for the bill" {
		t.Errorf("expected the tagged concept on the last message, got %+v", last)
	}
}

func TestTurnRejectsLongMessage(t *testing.T) {
	f := newChatFixture(t, "ordering coffee")
	ctx := context.Background()

	if _, err := f.service.Turn(ctx, f.visitor, "cafe", TurnRequest{UserMessage: "Hola"}); err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	before := f.progress(t)

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{name: "too long", message: strings.Repeat("a", 101), want: "Message exceeds maximum length of 100 characters."},
		{name: "empty", message: "", want: "Message cannot be empty."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Turn(ctx, f.visitor, "cafe", TurnRequest{UserMessage: tt.message, ResponseKeyConcept: "ordering coffee"})

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Message != tt.want {
				t.Errorf("Message = %q, want %q", verr.Message, tt.want)
			}

			after := f.progress(t)
			if len(after.ConversationHistory) != len(before.ConversationHistory) {
				t.Errorf("history changed from %d to %d entries", len(before.ConversationHistory), len(after.ConversationHistory))
			}
			if len(after.RespondedKeyConcepts) != 0 {
				t.Errorf("responded concepts changed: %v", after.RespondedKeyConcepts)
			}
		})
	}
}

func TestTurnAcceptsMaxLengthInRunes(t *testing.T) {
	f := newChatFixture(t, "ordering coffee")

	_, err := f.service.Turn(context.Background(), f.visitor, "cafe", TurnRequest{UserMessage: strings.Repeat("ñ", 100)})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
}

func TestTurnReplacesUnknownConcept(t *testing.T) {
	f := newChatFixture(t, "ordering coffee", "asking for the bill")
	f.tutor.reply = tutorReply("Muy bien.", "nonexistent concept")
	ctx := context.Background()

	result, err := f.service.Turn(ctx, f.visitor, "cafe", TurnRequest{UserMessage: "Hola"})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if result.Chat.AddressedKeyConcept != models.NoKeyConcept {
		t.Errorf("AddressedKeyConcept = %q, want %q", result.Chat.AddressedKeyConcept, models.NoKeyConcept)
	}

	p := f.progress(t)
	if len(p.AddressedKeyConcepts) != 0 {
		t.Errorf("unknown concept leaked into addressed set: %v", p.AddressedKeyConcepts)
	}

	messages, _ := f.transcripts.GetMessages(ctx, p.TranscriptID)
	if messages[1].KeyConcept != nil {
		t.Errorf("expected no concept on the assistant message, got %q", *messages[1].KeyConcept)
	}
}

func TestTurnTutorFailureLeavesHistory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "refusal", err: tutor.ErrRefusal, want: tutor.UserMessage(tutor.ErrRefusal)},
		{name: "invalid output", err: tutor.ErrInvalidOutput, want: tutor.UserMessage(tutor.ErrInvalidOutput)},
		{name: "transport", err: errors.New("connection reset"), want: tutor.UserMessage(tutor.ErrUnexpected)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(t, "ordering coffee", "asking for the bill")
			f.tutor.err = tt.err
			ctx := context.Background()

			result, err := f.service.Turn(ctx, f.visitor, "cafe", TurnRequest{UserMessage: "Hola"})
			if err != nil {
				t.Fatalf("Turn() error = %v", err)
			}
			if result.Chat.Error != tt.want {
				t.Errorf("Error = %q, want %q", result.Chat.Error, tt.want)
			}
			if result.Chat.AssistantMessage != "" {
				t.Errorf("expected no assistant message, got %q", result.Chat.AssistantMessage)
			}

			p := f.progress(t)
			if len(p.ConversationHistory) != 0 || len(p.AddressedKeyConcepts) != 0 {
				t.Errorf("failure changed progress: %+v", p)
			}
			messages, _ := f.transcripts.GetMessages(ctx, p.TranscriptID)
			for _, msg := range messages {
				if msg.Role == models.RoleAssistant {
					t.Errorf("unexpected assistant message in transcript: %+v", msg)
				}
			}
		})
	}
}

func TestTurnPassesBoundedHistory(t *testing.T) {
	f := newChatFixture(t, "ordering coffee", "asking for the bill")
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, err := f.service.Turn(ctx, f.visitor, "cafe", TurnRequest{UserMessage: "Hola"}); err != nil {
			t.Fatalf("Turn() error = %v", err)
		}
	}

	p := f.progress(t)
	if len(p.ConversationHistory) != models.MaxHistoryMessages {
		t.Errorf("expected %d history entries, got %d", models.MaxHistoryMessages, len(p.ConversationHistory))
	}
	if last := f.tutor.seen[len(f.tutor.seen)-1]; len(last) != models.MaxHistoryMessages {
		t.Errorf("tutor saw %d history entries", len(last))
	}
}

func TestTurnRecoversStaleTranscript(t *testing.T) {
	f := newChatFixture(t, "ordering coffee")
	ctx := context.Background()

	if err := f.sessions.SaveProgress(ctx, f.visitor.SessionID, f.lesson.ID, models.Progress{TranscriptID: 999}); err != nil {
		t.Fatalf("SaveProgress() error = %v", err)
	}

	if _, err := f.service.Turn(ctx, f.visitor, "cafe", TurnRequest{UserMessage: "Hola"}); err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	p := f.progress(t)
	if p.TranscriptID == 0 || p.TranscriptID == 999 {
		t.Fatalf("expected a new transcript, got %d", p.TranscriptID)
	}
	transcript, err := f.transcripts.GetTranscriptByID(ctx, p.TranscriptID)
	if err != nil {
		t.Fatalf("GetTranscriptByID() error = %v", err)
	}
	if transcript.UserID != "user-1" || transcript.MessageCount != 2 {
		t.Errorf("unexpected transcript: %+v", transcript)
	}
}

func TestStartOverResetsAndBindsNewTranscript(t *testing.T) {
	f := newChatFixture(t, "ordering coffee", "asking for the bill")
	ctx := context.Background()

	if _, err := f.service.Turn(ctx, f.visitor, "cafe", TurnRequest{UserMessage: "Un café", ResponseKeyConcept: "ordering coffee"}); err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	before := f.progress(t)

	view, err := f.service.StartOver(ctx, f.visitor, "cafe")
	if err != nil {
		t.Fatalf("StartOver() error = %v", err)
	}
	if view.AssistantMessage != "The lesson has been reset. You can start a new dialogue now." {
		t.Errorf("AssistantMessage = %q", view.AssistantMessage)
	}

	after := f.progress(t)
	if len(after.ConversationHistory) != 0 || len(after.AddressedKeyConcepts) != 0 || len(after.RespondedKeyConcepts) != 0 {
		t.Errorf("expected empty progress, got %+v", after)
	}
	if after.TranscriptID == 0 || after.TranscriptID == before.TranscriptID {
		t.Errorf("expected a new transcript id, before %d after %d", before.TranscriptID, after.TranscriptID)
	}

	old, err := f.transcripts.GetTranscriptByID(ctx, before.TranscriptID)
	if err != nil || old.MessageCount != 2 {
		t.Errorf("old transcript should be kept intact, got %+v, %v", old, err)
	}
}

func TestSummary(t *testing.T) {
	f := newChatFixture(t, "ordering coffee")
	ctx := context.Background()

	if _, err := f.service.Summary(ctx, f.visitor, "cafe"); !errors.Is(err, ErrLessonIncomplete) {
		t.Fatalf("expected ErrLessonIncomplete, got %v", err)
	}

	result, err := f.service.Turn(ctx, f.visitor, "cafe", TurnRequest{UserMessage: "Un café", ResponseKeyConcept: "ordering coffee"})
	if err != nil || !result.Complete {
		t.Fatalf("expected completion, got %+v, %v", result, err)
	}
	bound := f.progress(t).TranscriptID

	summary, err := f.service.Summary(ctx, f.visitor, "cafe")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Transcript.ID != bound || len(summary.Messages) != 1 {
		t.Errorf("unexpected summary: transcript %d, %d messages", summary.Transcript.ID, len(summary.Messages))
	}

	p := f.progress(t)
	if p.TranscriptID != 0 || len(p.RespondedKeyConcepts) != 0 {
		t.Errorf("expected a detached, reset session, got %+v", p)
	}
	if got := progress.StateOf(f.lesson.ConceptLabels(), p); got != progress.Fresh {
		t.Errorf("state = %v, want fresh", got)
	}
}

func TestPage(t *testing.T) {
	f := newChatFixture(t, "ordering coffee", "asking for the bill")
	ctx := context.Background()

	page, err := f.service.Page(ctx, f.visitor, "cafe")
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	if page.State != progress.Fresh || page.MaxMessageLength != 100 {
		t.Errorf("unexpected page: %+v", page)
	}
	if !strings.Contains(page.Prompt, "asking for the bill") {
		t.Errorf("prompt preview is missing the key concepts: %s", page.Prompt)
	}

	if _, err := f.service.Page(ctx, f.visitor, "missing"); !errors.Is(err, models.ErrLessonNotFound) {
		t.Errorf("expected ErrLessonNotFound, got %v", err)
	}
}
