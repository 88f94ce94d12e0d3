package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"lessonchat/models"

	goredis "github.com/redis/go-redis/v9"
)

// SessionStore holds the per-visitor Progress of each lesson. Missing entries
// read as an empty Progress.
type SessionStore interface {
	GetProgress(ctx context.Context, sessionID string, lessonID int) (models.Progress, error)
	SaveProgress(ctx context.Context, sessionID string, lessonID int, progress models.Progress) error
}

func sessionKey(sessionID string, lessonID int) string {
	return fmt.Sprintf("lessonchat:session:%s:lesson:%d", sessionID, lessonID)
}

type RedisSessionStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedisSessionStore(addr string, ttl time.Duration) (*RedisSessionStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisSessionStore{rdb: rdb, ttl: ttl}, nil
}

func (s *RedisSessionStore) GetProgress(ctx context.Context, sessionID string, lessonID int) (models.Progress, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(sessionID, lessonID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return models.Progress{}, nil
		}
		return models.Progress{}, fmt.Errorf("failed to read session: %w", err)
	}

	var progress models.Progress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return models.Progress{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return progress, nil
}

func (s *RedisSessionStore) SaveProgress(ctx context.Context, sessionID string, lessonID int, progress models.Progress) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(sessionID, lessonID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Close() error {
	return s.rdb.Close()
}

// MemorySessionStore stores encoded progress so callers never share slices
// with the store.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string][]byte)}
}

func (s *MemorySessionStore) GetProgress(ctx context.Context, sessionID string, lessonID int) (models.Progress, error) {
	s.mu.Lock()
	raw, ok := s.sessions[sessionKey(sessionID, lessonID)]
	s.mu.Unlock()

	if !ok {
		return models.Progress{}, nil
	}
	var progress models.Progress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return models.Progress{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return progress, nil
}

func (s *MemorySessionStore) SaveProgress(ctx context.Context, sessionID string, lessonID int, progress models.Progress) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	s.mu.Lock()
	s.sessions[sessionKey(sessionID, lessonID)] = raw
	s.mu.Unlock()
	return nil
}
