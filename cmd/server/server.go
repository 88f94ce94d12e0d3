package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lessonchat/config"
	"lessonchat/db"
	"lessonchat/handlers"
	"lessonchat/services"
	"lessonchat/services/tutor"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	cfg.SetupLogging()

	completer, err := newCompleter(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	var (
		lessonRepo     db.LessonRepository
		transcriptRepo db.TranscriptRepository
	)
	if cfg.DatabaseURL != "" {
		database, err := db.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.Close()

		if err := db.Migrate(context.Background(), database); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		lessonRepo = db.NewPostgresLessonRepository(database)
		transcriptRepo = db.NewPostgresTranscriptRepository(database)
	} else {
		log.Warnf("DB_URL not set, serving lessons from %s and keeping transcripts in memory", cfg.LessonsFile)
		fileRepo, err := db.NewFileLessonRepository(cfg.LessonsFile)
		if err != nil {
			log.Fatalf("Failed to load lessons: %v", err)
		}
		lessonRepo = fileRepo
		transcriptRepo = db.NewMemoryTranscriptRepository()
	}

	var sessions db.SessionStore
	if cfg.RedisAddr != "" {
		redisStore, err := db.NewRedisSessionStore(cfg.RedisAddr, cfg.SessionTTL)
		if err != nil {
			log.Fatalf("Failed to initialize session store: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		log.Warn("REDIS_ADDR not set, keeping sessions in memory")
		sessions = db.NewMemorySessionStore()
	}

	lessonService := services.NewLessonService(lessonRepo)
	transcriptService := services.NewTranscriptService(transcriptRepo)
	tutorService := tutor.NewService(completer)
	chatService := services.NewChatService(lessonService, transcriptService, sessions, tutorService)

	lessonHandler := handlers.NewLessonHandler(lessonService, chatService)
	transcriptHandler := handlers.NewTranscriptHandler(transcriptService)

	router := mux.NewRouter()

	router.Use(corsMiddleware)
	router.Use(loggingMiddleware)

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("OPTIONS")

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	app := router.NewRoute().Subrouter()
	app.Use(handlers.SessionMiddleware(cfg.SessionCookie, cfg.SessionTTL))
	app.Use(handlers.UserMiddleware(cfg.DefaultUserID))

	lessonHandler.RegisterRoutes(app)
	transcriptHandler.RegisterRoutes(app)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Server starting on port %s (LLM %s/%s)", cfg.Port, cfg.LLMProvider, completer.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
	}
	log.Info("Server stopped")
}

func newCompleter(cfg *config.Config) (tutor.Completer, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY environment variable is required")
		}
		return tutor.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.LLMModel)
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY environment variable is required")
		}
		return tutor.NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.LLMModel), nil
	default:
		return nil, errors.New("LLM_PROVIDER must be openai or anthropic")
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Expose-Headers", "HX-Redirect")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("Handled request")
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}
