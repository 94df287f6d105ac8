// internal/catalog/postgres.go
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizgrid/quizgrid/internal/models"
)

// Postgres implements Store against a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) GetQuestionSetWithQuestions(ctx context.Context, id uuid.UUID) (*models.QuestionSet, error) {
	set := &models.QuestionSet{ID: id}
	err := p.pool.QueryRow(ctx,
		`SELECT title FROM question_sets WHERE id = $1`, id,
	).Scan(&set.Title)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query question set %s: %w", id, err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, prompt, options, correct_index, time_limit_sec
		 FROM questions
		 WHERE question_set_id = $1
		 ORDER BY position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query questions for set %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Options, &q.CorrectIndex, &q.TimeLimitSec); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		set.Questions = append(set.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question rows: %w", err)
	}
	return set, nil
}

func (p *Postgres) GetWallet(ctx context.Context, playerID string) (*Wallet, error) {
	w := &Wallet{PlayerID: playerID}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO wallets (player_id, coins, total_spins, updated_at)
		 VALUES ($1, 0, 0, now())
		 ON CONFLICT (player_id) DO UPDATE SET player_id = EXCLUDED.player_id
		 RETURNING coins, last_spin_at, total_spins, updated_at`,
		playerID,
	).Scan(&w.Coins, &w.LastSpinAt, &w.TotalSpins, &w.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert wallet for %s: %w", playerID, err)
	}
	return w, nil
}

func (p *Postgres) AddCoins(ctx context.Context, playerID string, coins int) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO wallets (player_id, coins, total_spins, updated_at)
		 VALUES ($1, $2, 0, now())
		 ON CONFLICT (player_id)
		 DO UPDATE SET coins = wallets.coins + EXCLUDED.coins, updated_at = now()`,
		playerID, coins)
	if err != nil {
		return fmt.Errorf("credit %d coins to %s: %w", coins, playerID, err)
	}
	return nil
}

func (p *Postgres) RecordSpin(ctx context.Context, playerID string, coins int, at time.Time) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO wallets (player_id, coins, last_spin_at, total_spins, updated_at)
		 VALUES ($1, $2, $3, 1, now())
		 ON CONFLICT (player_id)
		 DO UPDATE SET coins = wallets.coins + EXCLUDED.coins,
		               last_spin_at = EXCLUDED.last_spin_at,
		               total_spins = wallets.total_spins + 1,
		               updated_at = now()`,
		playerID, coins, at)
	if err != nil {
		return fmt.Errorf("record spin for %s: %w", playerID, err)
	}
	return nil
}
