// internal/catalog/catalog.go

// Package catalog is the boundary to the relational store holding question
// sets and player wallets. The session engine only sees the Store interface;
// the Postgres implementation lives in postgres.go and an in-memory fake in
// memory.go for tests.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/quizgrid/quizgrid/internal/models"
)

// ErrNotFound reports an id that resolves to nothing. Callers translate it
// to their own not-found semantics; it never indicates infrastructure
// failure.
var ErrNotFound = errors.New("catalog: not found")

// Wallet is a player's persistent coin balance and wheel state.
type Wallet struct {
	PlayerID   string     `json:"playerId"`
	Coins      int        `json:"coins"`
	LastSpinAt *time.Time `json:"lastSpinAt,omitempty"`
	TotalSpins int        `json:"totalSpins"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Store is everything the engine needs from persistent storage.
type Store interface {
	// GetQuestionSetWithQuestions resolves a set and its ordered questions.
	// Returns ErrNotFound for unknown ids; any other error is transient
	// infrastructure failure and safe to retry.
	GetQuestionSetWithQuestions(ctx context.Context, id uuid.UUID) (*models.QuestionSet, error)

	// GetWallet fetches a player's wallet, creating a zeroed one on first
	// touch.
	GetWallet(ctx context.Context, playerID string) (*Wallet, error)

	// AddCoins atomically credits a player's balance.
	AddCoins(ctx context.Context, playerID string, coins int) error

	// RecordSpin persists a wheel spin: credits the prize and stamps the
	// spin time used by the daily gate.
	RecordSpin(ctx context.Context, playerID string, coins int, at time.Time) error
}
