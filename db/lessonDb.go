package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"lessonchat/models"
)

type LessonRepository interface {
	GetLessonBySlug(ctx context.Context, slug string) (*models.Lesson, error)
	GetLessonByID(ctx context.Context, id int) (*models.Lesson, error)
	GetAllLessons(ctx context.Context) ([]*models.Lesson, error)
	SaveLesson(ctx context.Context, lesson *models.Lesson) error
}

type PostgresLessonRepository struct {
	db *sql.DB
}

func NewPostgresLessonRepository(db *sql.DB) *PostgresLessonRepository {
	return &PostgresLessonRepository{db: db}
}

const lessonColumns = `id, slug, title, intro, cover_photo, location, language, voice,
		difficulty_level, estimated_time, llm_system_prompt, minigames, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(row rowScanner) (*models.Lesson, error) {
	lesson := &models.Lesson{}
	var minigamesJSON []byte
	err := row.Scan(&lesson.ID, &lesson.Slug, &lesson.Title, &lesson.Intro, &lesson.CoverPhoto,
		&lesson.Location, &lesson.Language, &lesson.Voice, &lesson.DifficultyLevel,
		&lesson.EstimatedTime, &lesson.LLMSystemPrompt, &minigamesJSON, &lesson.CreatedAt, &lesson.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(minigamesJSON) > 0 {
		if err := json.Unmarshal(minigamesJSON, &lesson.Minigames); err != nil {
			return nil, fmt.Errorf("failed to unmarshal minigames: %w", err)
		}
	}
	return lesson, nil
}

func (r *PostgresLessonRepository) GetLessonBySlug(ctx context.Context, slug string) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE slug = $1`

	lesson, err := scanLesson(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lesson %q: %w", slug, models.ErrLessonNotFound)
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}

	if lesson.KeyConcepts, err = r.getKeyConcepts(ctx, lesson.ID); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (r *PostgresLessonRepository) GetLessonByID(ctx context.Context, id int) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`

	lesson, err := scanLesson(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lesson with id %d: %w", id, models.ErrLessonNotFound)
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}

	if lesson.KeyConcepts, err = r.getKeyConcepts(ctx, lesson.ID); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (r *PostgresLessonRepository) GetAllLessons(ctx context.Context) ([]*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons ORDER BY title ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	lessons := make([]*models.Lesson, 0)
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over lessons: %w", err)
	}

	for _, lesson := range lessons {
		if lesson.KeyConcepts, err = r.getKeyConcepts(ctx, lesson.ID); err != nil {
			return nil, err
		}
	}

	return lessons, nil
}

func (r *PostgresLessonRepository) getKeyConcepts(ctx context.Context, lessonID int) ([]models.KeyConcept, error) {
	query := `
		SELECT id, lesson_id, concept, image, position
		FROM key_concepts
		WHERE lesson_id = $1
		ORDER BY position ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query key concepts: %w", err)
	}
	defer rows.Close()

	concepts := make([]models.KeyConcept, 0)
	for rows.Next() {
		var kc models.KeyConcept
		if err := rows.Scan(&kc.ID, &kc.LessonID, &kc.Concept, &kc.Image, &kc.Position); err != nil {
			return nil, fmt.Errorf("failed to scan key concept: %w", err)
		}
		concepts = append(concepts, kc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over key concepts: %w", err)
	}

	return concepts, nil
}

// SaveLesson upserts by slug and replaces the key concepts in one
// transaction.
func (r *PostgresLessonRepository) SaveLesson(ctx context.Context, lesson *models.Lesson) error {
	minigames := lesson.Minigames
	if minigames == nil {
		minigames = []json.RawMessage{}
	}
	minigamesJSON, err := json.Marshal(minigames)
	if err != nil {
		return fmt.Errorf("failed to marshal minigames: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO lessons (slug, title, intro, cover_photo, location, language, voice,
			difficulty_level, estimated_time, llm_system_prompt, minigames)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (slug) DO UPDATE SET
			title = EXCLUDED.title,
			intro = EXCLUDED.intro,
			cover_photo = EXCLUDED.cover_photo,
			location = EXCLUDED.location,
			language = EXCLUDED.language,
			voice = EXCLUDED.voice,
			difficulty_level = EXCLUDED.difficulty_level,
			estimated_time = EXCLUDED.estimated_time,
			llm_system_prompt = EXCLUDED.llm_system_prompt,
			minigames = EXCLUDED.minigames,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	row := tx.QueryRowContext(ctx, query, lesson.Slug, lesson.Title, lesson.Intro, lesson.CoverPhoto,
		lesson.Location, lesson.Language, lesson.Voice, lesson.DifficultyLevel, lesson.EstimatedTime,
		lesson.LLMSystemPrompt, minigamesJSON)
	if err := row.Scan(&lesson.ID, &lesson.CreatedAt, &lesson.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save lesson: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM key_concepts WHERE lesson_id = $1`, lesson.ID); err != nil {
		return fmt.Errorf("failed to clear key concepts: %w", err)
	}

	for i := range lesson.KeyConcepts {
		kc := &lesson.KeyConcepts[i]
		kc.LessonID = lesson.ID
		kc.Position = i
		err := tx.QueryRowContext(ctx,
			`INSERT INTO key_concepts (lesson_id, concept, image, position) VALUES ($1, $2, $3, $4) RETURNING id`,
			kc.LessonID, kc.Concept, kc.Image, kc.Position,
		).Scan(&kc.ID)
		if err != nil {
			return fmt.Errorf("failed to save key concept %q: %w", kc.Concept, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lesson: %w", err)
	}
	return nil
}
