// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the server reads at startup. Values come from
// the environment (godotenv autoload handles .env files in development).
type Config struct {
	ListenAddr  string
	DatabaseURL string
	RedisAddr   string
	RedisDB     int

	// RevealDurationSec is how long REVEAL lasts before the server
	// auto-advances to the next question.
	RevealDurationSec int

	// SessionIdleTimeout evicts sessions with no activity.
	SessionIdleTimeout time.Duration

	// SnapshotTTL bounds how long Redis keeps a session mirror after the
	// last write.
	SnapshotTTL time.Duration

	// CommandsPerSecond / CommandBurst tune the per-connection rate limiter.
	CommandsPerSecond float64
	CommandBurst      int
}

// Load reads the environment, applying defaults for anything unset.
func Load() Config {
	return Config{
		ListenAddr:         ":" + getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RevealDurationSec:  getEnvInt("REVEAL_DURATION_SEC", 5),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SnapshotTTL:        getEnvDuration("SNAPSHOT_TTL", 2*time.Hour),
		CommandsPerSecond:  getEnvFloat("COMMANDS_PER_SECOND", 10),
		CommandBurst:       getEnvInt("COMMAND_BURST", 20),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return v
}
