package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lessonchat/db"
	"lessonchat/models"

	log "github.com/sirupsen/logrus"
)

type TranscriptService struct {
	repo db.TranscriptRepository
}

func NewTranscriptService(repo db.TranscriptRepository) *TranscriptService {
	return &TranscriptService{repo: repo}
}

// Create always starts a new attempt for (user, lesson).
func (s *TranscriptService) Create(ctx context.Context, userID string, lessonID int) (*models.Transcript, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	transcript := &models.Transcript{UserID: userID, LessonID: lessonID}
	if err := s.repo.CreateTranscript(ctx, transcript); err != nil {
		log.Errorf("Failed to create transcript for user %s, lesson %d: %v", userID, lessonID, err)
		return nil, fmt.Errorf("failed to create transcript: %w", err)
	}

	log.Infof("Created transcript %d for user %s, lesson %d", transcript.ID, userID, lessonID)
	return transcript, nil
}

// Acquire reuses the transcript bound to the session when it still resolves
// to an attempt of the same user and lesson, and creates a new one otherwise.
func (s *TranscriptService) Acquire(ctx context.Context, userID string, lessonID int, boundID int64) (*models.Transcript, error) {
	if boundID == 0 {
		return s.Create(ctx, userID, lessonID)
	}

	transcript, err := s.repo.GetTranscriptByID(ctx, boundID)
	switch {
	case err == nil && transcript.UserID == userID && transcript.LessonID == lessonID:
		return transcript, nil
	case err == nil:
		log.Infof("Transcript %d belongs to another attempt, starting a new one", boundID)
	case errors.Is(err, models.ErrTranscriptNotFound):
		log.Infof("Transcript %d no longer exists, starting a new one", boundID)
	default:
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	return s.Create(ctx, userID, lessonID)
}

// Append logs one message. An empty or sentinel concept and an empty model
// are stored as null.
func (s *TranscriptService) Append(ctx context.Context, transcriptID int64, role models.Role, content, keyConcept, model string) (*models.TranscriptMessage, error) {
	if role != models.RoleUser && role != models.RoleAssistant {
		return nil, fmt.Errorf("invalid transcript role: %q", role)
	}

	msg := &models.TranscriptMessage{
		TranscriptID: transcriptID,
		Role:         role,
		Content:      content,
	}
	if keyConcept != "" && keyConcept != models.NoKeyConcept {
		msg.KeyConcept = &keyConcept
	}
	if model != "" {
		msg.LLMModel = &model
	}

	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		log.Errorf("Failed to append %s message to transcript %d: %v", role, transcriptID, err)
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	return msg, nil
}

func (s *TranscriptService) GetMessages(ctx context.Context, transcriptID int64) ([]*models.TranscriptMessage, error) {
	messages, err := s.repo.GetMessages(ctx, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript messages: %w", err)
	}
	return messages, nil
}

func (s *TranscriptService) GetTranscriptsByUser(ctx context.Context, userID string) ([]*models.Transcript, error) {
	transcripts, err := s.repo.GetTranscriptsByUser(ctx, userID)
	if err != nil {
		log.Errorf("Failed to list transcripts for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}

	log.Debugf("Retrieved %d transcripts for user %s", len(transcripts), userID)
	return transcripts, nil
}

// GetTranscriptForUser returns the transcript with its messages. Transcripts
// of other users read as not found.
func (s *TranscriptService) GetTranscriptForUser(ctx context.Context, userID string, id int64) (*models.TranscriptWithMessages, error) {
	transcript, err := s.repo.GetTranscriptByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if transcript.UserID != userID {
		return nil, fmt.Errorf("transcript with id %d: %w", id, models.ErrTranscriptNotFound)
	}

	messages, err := s.GetMessages(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.TranscriptWithMessages{Transcript: *transcript, Messages: messages}, nil
}
