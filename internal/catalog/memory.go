// internal/catalog/memory.go
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quizgrid/quizgrid/internal/models"
)

// Memory is an in-memory Store used by tests and local development without a
// database.
type Memory struct {
	mu      sync.Mutex
	sets    map[uuid.UUID]*models.QuestionSet
	wallets map[string]*Wallet
	err     error
}

func NewMemory() *Memory {
	return &Memory{
		sets:    make(map[uuid.UUID]*models.QuestionSet),
		wallets: make(map[string]*Wallet),
	}
}

// PutQuestionSet seeds a set for later lookup.
func (m *Memory) PutQuestionSet(set *models.QuestionSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[set.ID] = set
}

// FailWith makes every subsequent call return err, simulating a transient
// infrastructure failure. Pass nil to clear.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Memory) GetQuestionSetWithQuestions(_ context.Context, id uuid.UUID) (*models.QuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	set, ok := m.sets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return set, nil
}

func (m *Memory) GetWallet(_ context.Context, playerID string) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.walletLocked(playerID), nil
}

func (m *Memory) AddCoins(_ context.Context, playerID string, coins int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	w := m.walletLocked(playerID)
	w.Coins += coins
	w.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) RecordSpin(_ context.Context, playerID string, coins int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	w := m.walletLocked(playerID)
	w.Coins += coins
	spinAt := at
	w.LastSpinAt = &spinAt
	w.TotalSpins++
	w.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) walletLocked(playerID string) *Wallet {
	w, ok := m.wallets[playerID]
	if !ok {
		w = &Wallet{PlayerID: playerID, UpdatedAt: time.Now()}
		m.wallets[playerID] = w
	}
	return w
}
