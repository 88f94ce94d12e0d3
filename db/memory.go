package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"lessonchat/models"
)

// MemoryTranscriptRepository keeps transcripts in process. It backs local runs
// without DB_URL and the tests.
type MemoryTranscriptRepository struct {
	mu          sync.Mutex
	nextID      int64
	nextMsgID   int64
	transcripts map[int64]*models.Transcript
	messages    map[int64][]*models.TranscriptMessage
	now         func() time.Time
}

func NewMemoryTranscriptRepository() *MemoryTranscriptRepository {
	return &MemoryTranscriptRepository{
		transcripts: make(map[int64]*models.Transcript),
		messages:    make(map[int64][]*models.TranscriptMessage),
		now:         time.Now,
	}
}

func (r *MemoryTranscriptRepository) CreateTranscript(ctx context.Context, transcript *models.Transcript) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	transcript.ID = r.nextID
	transcript.CreatedAt = r.now()
	stored := *transcript
	r.transcripts[transcript.ID] = &stored
	return nil
}

func (r *MemoryTranscriptRepository) GetTranscriptByID(ctx context.Context, id int64) (*models.Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	transcript, ok := r.transcripts[id]
	if !ok {
		return nil, fmt.Errorf("transcript with id %d: %w", id, models.ErrTranscriptNotFound)
	}
	out := *transcript
	out.MessageCount = len(r.messages[id])
	return &out, nil
}

func (r *MemoryTranscriptRepository) GetTranscriptsByUser(ctx context.Context, userID string) ([]*models.Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	transcripts := make([]*models.Transcript, 0)
	for _, transcript := range r.transcripts {
		if transcript.UserID != userID {
			continue
		}
		out := *transcript
		out.MessageCount = len(r.messages[transcript.ID])
		transcripts = append(transcripts, &out)
	}

	sort.Slice(transcripts, func(i, j int) bool {
		if !transcripts[i].CreatedAt.Equal(transcripts[j].CreatedAt) {
			return transcripts[i].CreatedAt.After(transcripts[j].CreatedAt)
		}
		return transcripts[i].ID > transcripts[j].ID
	})
	return transcripts, nil
}

func (r *MemoryTranscriptRepository) AppendMessage(ctx context.Context, msg *models.TranscriptMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.transcripts[msg.TranscriptID]; !ok {
		return fmt.Errorf("transcript with id %d: %w", msg.TranscriptID, models.ErrTranscriptNotFound)
	}

	r.nextMsgID++
	msg.ID = r.nextMsgID
	msg.CreatedAt = r.now()
	stored := *msg
	r.messages[msg.TranscriptID] = append(r.messages[msg.TranscriptID], &stored)
	return nil
}

func (r *MemoryTranscriptRepository) GetMessages(ctx context.Context, transcriptID int64) ([]*models.TranscriptMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages := make([]*models.TranscriptMessage, 0, len(r.messages[transcriptID]))
	for _, msg := range r.messages[transcriptID] {
		out := *msg
		messages = append(messages, &out)
	}
	return messages, nil
}

type MemoryLessonRepository struct {
	mu      sync.RWMutex
	nextID  int
	lessons map[string]*models.Lesson
}

func NewMemoryLessonRepository(lessons ...*models.Lesson) *MemoryLessonRepository {
	r := &MemoryLessonRepository{lessons: make(map[string]*models.Lesson)}
	for _, lesson := range lessons {
		_ = r.SaveLesson(context.Background(), lesson)
	}
	return r
}

func (r *MemoryLessonRepository) GetLessonBySlug(ctx context.Context, slug string) (*models.Lesson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lesson, ok := r.lessons[slug]
	if !ok {
		return nil, fmt.Errorf("lesson %q: %w", slug, models.ErrLessonNotFound)
	}
	return copyLesson(lesson), nil
}

func (r *MemoryLessonRepository) GetLessonByID(ctx context.Context, id int) (*models.Lesson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, lesson := range r.lessons {
		if lesson.ID == id {
			return copyLesson(lesson), nil
		}
	}
	return nil, fmt.Errorf("lesson with id %d: %w", id, models.ErrLessonNotFound)
}

func (r *MemoryLessonRepository) GetAllLessons(ctx context.Context) ([]*models.Lesson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lessons := make([]*models.Lesson, 0, len(r.lessons))
	for _, lesson := range r.lessons {
		lessons = append(lessons, copyLesson(lesson))
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Title < lessons[j].Title })
	return lessons, nil
}

func (r *MemoryLessonRepository) SaveLesson(ctx context.Context, lesson *models.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.lessons[lesson.Slug]; ok {
		lesson.ID = existing.ID
		lesson.CreatedAt = existing.CreatedAt
	} else {
		if lesson.ID == 0 {
			r.nextID++
			lesson.ID = r.nextID
		} else if lesson.ID > r.nextID {
			r.nextID = lesson.ID
		}
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now
	for i := range lesson.KeyConcepts {
		lesson.KeyConcepts[i].LessonID = lesson.ID
		lesson.KeyConcepts[i].Position = i
		lesson.KeyConcepts[i].ID = lesson.ID*100 + i + 1
	}

	r.lessons[lesson.Slug] = copyLesson(lesson)
	return nil
}

func copyLesson(lesson *models.Lesson) *models.Lesson {
	out := *lesson
	out.KeyConcepts = append([]models.KeyConcept{}, lesson.KeyConcepts...)
	out.Minigames = append(out.Minigames[:0:0], lesson.Minigames...)
	return &out
}
