// internal/session/rooms.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quizgrid/quizgrid/internal/catalog"
	"github.com/quizgrid/quizgrid/internal/models"
)

// RoomManager creates rooms against the external catalog and resolves
// lookups. Validation happens before any registry mutation, so a failed
// creation leaves no orphaned session or claimed code.
type RoomManager struct {
	store   *Store
	catalog catalog.Store
}

// NewRoomManager wires a registry to the question-set catalog.
func NewRoomManager(store *Store, cat catalog.Store) *RoomManager {
	return &RoomManager{store: store, catalog: cat}
}

// CreateRoom validates the question set and registers a new session hosted
// by hostConnID. The catalog call is awaited without holding any lock.
func (rm *RoomManager) CreateRoom(ctx context.Context, hostConnID, questionSetID string, mode models.GameMode) (*Session, error) {
	trimmed := strings.TrimSpace(questionSetID)
	if trimmed == "" {
		return nil, ErrInvalidQuestionSet
	}
	setID, err := uuid.Parse(trimmed)
	if err != nil {
		return nil, ErrInvalidQuestionSet
	}

	set, err := rm.catalog.GetQuestionSetWithQuestions(ctx, setID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrQuestionSetNotFound
	}
	if err != nil {
		// Transient infra failure: nothing was mutated, retry is safe.
		return nil, fmt.Errorf("catalog lookup for %s: %w", setID, err)
	}
	if len(set.Questions) == 0 {
		return nil, ErrQuestionSetEmpty
	}

	if mode != models.ModeSoccer {
		mode = models.ModeClassic
	}
	return rm.store.CreateSession(hostConnID, set, mode)
}

// GetRoom is a pure lookup; nil means not found, never an error.
func (rm *RoomManager) GetRoom(id uuid.UUID) *Session {
	return rm.store.GetSession(id)
}

// GetRoomByCode is a pure lookup by room code, case-insensitive on input.
func (rm *RoomManager) GetRoomByCode(code string) *Session {
	return rm.store.GetSessionByCode(strings.ToUpper(strings.TrimSpace(code)))
}
