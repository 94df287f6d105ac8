// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/quizgrid/quizgrid/internal/auth"
	"github.com/quizgrid/quizgrid/internal/cache"
	"github.com/quizgrid/quizgrid/internal/catalog"
	"github.com/quizgrid/quizgrid/internal/config"
	"github.com/quizgrid/quizgrid/internal/database"
	"github.com/quizgrid/quizgrid/internal/handlers"
	"github.com/quizgrid/quizgrid/internal/middleware"
	"github.com/quizgrid/quizgrid/internal/session"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	auth.Init()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	cat := catalog.NewPostgres(pool)

	mirror, err := cache.Connect(cfg.RedisAddr, cfg.RedisDB, cfg.SnapshotTTL)
	if err != nil {
		// Snapshots are a recovery aid, not a dependency; run without them.
		logger.Warnf("redis unavailable, session snapshots disabled: %v", err)
		mirror = nil
	}

	store := session.NewStore(session.NewRealClock(), time.Duration(cfg.RevealDurationSec)*time.Second)
	qs := handlers.NewQuizServer(store, cat, mirror, logger)

	if n, err := qs.RecoverSessions(ctx); err != nil {
		logger.Warnf("session recovery incomplete: %v", err)
	} else if n > 0 {
		logger.Infof("recovered %d session(s) from redis snapshots", n)
	}

	go evictIdleSessions(store, cfg.SessionIdleTimeout, logger)

	limits := handlers.RateLimit{
		PerSecond: cfg.CommandsPerSecond,
		Burst:     cfg.CommandBurst,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: func() []string {
			if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
				return strings.Split(origins, ",")
			}
			return []string{"https://*", "http://*"}
		}(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.LogMiddleware(logger))

	r.Get("/quiz/ws", handlers.QuizWSHandler(logger, qs, limits))

	logger.Infof("Running on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// evictIdleSessions periodically drops sessions with no activity inside the
// idle window.
func evictIdleSessions(store *session.Store, idle time.Duration, logger *logrus.Logger) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 4)
	defer ticker.Stop()
	for range ticker.C {
		if n := store.EvictIdle(idle); n > 0 {
			logger.Infof("evicted %d idle session(s)", n)
		}
	}
}
