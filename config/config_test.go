package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_URL", "LESSONS_FILE", "LLM_PROVIDER", "SESSION_TTL", "SESSION_COOKIE", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.LessonsFile != "lessons.yaml" {
		t.Errorf("LessonsFile = %q", cfg.LessonsFile)
	}
	if cfg.LLMProvider != ProviderOpenAI {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	if cfg.SessionTTL != 336*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.SessionCookie != "lesson_session" {
		t.Errorf("SessionCookie = %q", cfg.SessionCookie)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.LLMProvider != ProviderAnthropic {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
}

func TestLoadInvalidTTLFallsBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")

	if cfg := Load(); cfg.SessionTTL != 14*24*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
}
