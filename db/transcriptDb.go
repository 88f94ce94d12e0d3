package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lessonchat/models"

	"github.com/lib/pq"
)

// foreign_key_violation
const pqForeignKeyViolation = "23503"

type TranscriptRepository interface {
	CreateTranscript(ctx context.Context, transcript *models.Transcript) error
	GetTranscriptByID(ctx context.Context, id int64) (*models.Transcript, error)
	GetTranscriptsByUser(ctx context.Context, userID string) ([]*models.Transcript, error)
	AppendMessage(ctx context.Context, msg *models.TranscriptMessage) error
	GetMessages(ctx context.Context, transcriptID int64) ([]*models.TranscriptMessage, error)
}

type PostgresTranscriptRepository struct {
	db *sql.DB
}

func NewPostgresTranscriptRepository(db *sql.DB) *PostgresTranscriptRepository {
	return &PostgresTranscriptRepository{db: db}
}

func (r *PostgresTranscriptRepository) CreateTranscript(ctx context.Context, transcript *models.Transcript) error {
	query := `
		INSERT INTO transcripts (user_id, lesson_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	row := r.db.QueryRowContext(ctx, query, transcript.UserID, transcript.LessonID)

	if err := row.Scan(&transcript.ID, &transcript.CreatedAt); err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}

	return nil
}

func (r *PostgresTranscriptRepository) GetTranscriptByID(ctx context.Context, id int64) (*models.Transcript, error) {
	query := `
		SELECT t.id, t.user_id, t.lesson_id, t.created_at,
		       (SELECT COUNT(*) FROM transcript_messages m WHERE m.transcript_id = t.id)
		FROM transcripts t
		WHERE t.id = $1`

	transcript := &models.Transcript{}
	row := r.db.QueryRowContext(ctx, query, id)

	err := row.Scan(&transcript.ID, &transcript.UserID, &transcript.LessonID, &transcript.CreatedAt, &transcript.MessageCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transcript with id %d: %w", id, models.ErrTranscriptNotFound)
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	return transcript, nil
}

func (r *PostgresTranscriptRepository) GetTranscriptsByUser(ctx context.Context, userID string) ([]*models.Transcript, error) {
	query := `
		SELECT t.id, t.user_id, t.lesson_id, t.created_at,
		       (SELECT COUNT(*) FROM transcript_messages m WHERE m.transcript_id = t.id)
		FROM transcripts t
		WHERE t.user_id = $1
		ORDER BY t.created_at DESC, t.id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := make([]*models.Transcript, 0)
	for rows.Next() {
		transcript := &models.Transcript{}
		if err := rows.Scan(&transcript.ID, &transcript.UserID, &transcript.LessonID, &transcript.CreatedAt, &transcript.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		transcripts = append(transcripts, transcript)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transcripts: %w", err)
	}

	return transcripts, nil
}

func (r *PostgresTranscriptRepository) AppendMessage(ctx context.Context, msg *models.TranscriptMessage) error {
	query := `
		INSERT INTO transcript_messages (transcript_id, role, content, key_concept, llm_model)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	row := r.db.QueryRowContext(ctx, query, msg.TranscriptID, msg.Role, msg.Content, msg.KeyConcept, msg.LLMModel)

	if err := row.Scan(&msg.ID, &msg.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return fmt.Errorf("transcript with id %d: %w", msg.TranscriptID, models.ErrTranscriptNotFound)
		}
		return fmt.Errorf("failed to append transcript message: %w", err)
	}

	return nil
}

func (r *PostgresTranscriptRepository) GetMessages(ctx context.Context, transcriptID int64) ([]*models.TranscriptMessage, error) {
	query := `
		SELECT id, transcript_id, role, content, key_concept, llm_model, created_at
		FROM transcript_messages
		WHERE transcript_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.TranscriptMessage, 0)
	for rows.Next() {
		msg := &models.TranscriptMessage{}
		var keyConcept, llmModel sql.NullString
		if err := rows.Scan(&msg.ID, &msg.TranscriptID, &msg.Role, &msg.Content, &keyConcept, &llmModel, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript message: %w", err)
		}
		if keyConcept.Valid {
			msg.KeyConcept = &keyConcept.String
		}
		if llmModel.Valid {
			msg.LLMModel = &llmModel.String
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transcript messages: %w", err)
	}

	return messages, nil
}
