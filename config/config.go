package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port            string
	DatabaseURL     string
	LessonsFile     string
	LLMProvider     string
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	RedisAddr       string
	SessionTTL      time.Duration
	SessionCookie   string
	DefaultUserID   string
	LogLevel        string
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Load reads .env when present and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to load .env: %v", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DB_URL"),
		LessonsFile:     getEnv("LESSONS_FILE", "lessons.yaml"),
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		LLMModel:        os.Getenv("LLM_MODEL"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		SessionCookie:   getEnv("SESSION_COOKIE", "lesson_session"),
		DefaultUserID:   os.Getenv("DEFAULT_USER_ID"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "336h"))
	if err != nil {
		log.Warnf("Invalid SESSION_TTL, using two weeks: %v", err)
		ttl = 14 * 24 * time.Hour
	}
	cfg.SessionTTL = ttl

	return cfg
}

// SetupLogging applies LOG_LEVEL to the standard logrus logger.
func (c *Config) SetupLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
