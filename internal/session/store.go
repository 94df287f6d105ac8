// internal/session/store.go
package session

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quizgrid/quizgrid/internal/models"
)

// roomCodeAlphabet is uppercase alphanumeric. Codes are 6 characters.
const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6
)

// Store is the authoritative in-memory registry of active sessions and the
// shared room-code namespace. Its mutex only guards the maps; per-session
// state is serialized by each Session's own lock, so unrelated games never
// contend.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	codes    map[string]uuid.UUID

	clock          Clock
	revealDuration time.Duration
}

// NewStore builds an empty registry on the given clock.
func NewStore(clock Clock, revealDuration time.Duration) *Store {
	return &Store{
		sessions:       make(map[uuid.UUID]*Session),
		codes:          make(map[string]uuid.UUID),
		clock:          clock,
		revealDuration: revealDuration,
	}
}

// CreateSession registers a new lobby-phase session against an already
// validated question set, claiming a fresh room code. No two live sessions
// ever share a code; codes free up when a session ends or is evicted.
func (st *Store) CreateSession(hostConnID string, set *models.QuestionSet, mode models.GameMode) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	code, err := st.newCodeLocked()
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:                   uuid.New(),
		RoomCode:             code,
		Mode:                 mode,
		QuestionSet:          set,
		HostConnID:           hostConnID,
		Phase:                models.PhaseLobby,
		CurrentQuestionIndex: 0,
		RevealDuration:       st.revealDuration,
		clock:                st.clock,
		lastActivity:         st.clock.Now(),
	}
	s.OnEnd = func(ended *Session) {
		// Runs with the session lock held. Safe: release only touches the
		// registry maps, and nothing locks a session while holding st.mu.
		st.release(ended.ID, ended.RoomCode)
	}

	st.sessions[s.ID] = s
	st.codes[code] = s.ID
	return s, nil
}

// Restore rebuilds a session from a mirrored snapshot after a process
// restart, reclaiming its original id and room code so outstanding session
// tokens keep working. Everyone comes back disconnected and no timers are
// armed: the room sits parked until the host reconnects and drives it
// forward, or the idle sweeper reaps it. A snapshot taken mid-question
// restores into REVEAL, since the in-flight answers died with the old
// process.
func (st *Store) Restore(info models.SessionInfo, set *models.QuestionSet) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.sessions[info.ID]; exists {
		return nil, fmt.Errorf("restore session %s: id already active", info.ID)
	}
	if _, taken := st.codes[info.RoomCode]; taken {
		return nil, fmt.Errorf("restore session %s: room code %s already active", info.ID, info.RoomCode)
	}
	if info.Phase == models.PhaseEnd {
		return nil, fmt.Errorf("restore session %s: session already ended", info.ID)
	}

	phase := info.Phase
	if phase == models.PhaseQuestion {
		phase = models.PhaseReveal
	}
	idx := info.CurrentQuestionIndex
	if idx < 0 || idx >= len(set.Questions) {
		idx = 0
		phase = models.PhaseLobby
	}

	s := &Session{
		ID:                   info.ID,
		RoomCode:             info.RoomCode,
		Mode:                 info.Mode,
		QuestionSet:          set,
		Phase:                phase,
		CurrentQuestionIndex: idx,
		RevealDuration:       st.revealDuration,
		clock:                st.clock,
		lastActivity:         st.clock.Now(),
	}
	for i := range info.Players {
		p := info.Players[i]
		p.ConnID = ""
		p.Connected = false
		p.LastAnswerIndex = nil
		p.AnswerTimeMs = 0
		p.PenaltyScored = false
		p.JoinOrder = i
		s.Players = append(s.Players, &p)
	}
	s.OnEnd = func(ended *Session) {
		st.release(ended.ID, ended.RoomCode)
	}

	st.sessions[s.ID] = s
	st.codes[s.RoomCode] = s.ID
	return s, nil
}

// newCodeLocked draws random codes until one misses the active namespace.
// Assumes st.mu is held.
func (st *Store) newCodeLocked() (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		buf := make([]byte, roomCodeLength)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		for i := range buf {
			buf[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
		}
		code := string(buf)
		if _, taken := st.codes[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("room code namespace exhausted after 100 attempts")
}

// release frees a session's code and drops it from the registry. Ended
// sessions stay resolvable by id briefly only if callers still hold a
// pointer; the registry forgets them.
func (st *Store) release(id uuid.UUID, code string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if owner, ok := st.codes[code]; ok && owner == id {
		delete(st.codes, code)
	}
	delete(st.sessions, id)
}

// GetSession resolves a session by id; nil if unknown.
func (st *Store) GetSession(id uuid.UUID) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[id]
}

// GetSessionByCode resolves a session by room code; nil if unknown.
func (st *Store) GetSessionByCode(code string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	id, ok := st.codes[code]
	if !ok {
		return nil
	}
	return st.sessions[id]
}

// Sessions returns a snapshot of the live sessions, for the idle sweeper.
func (st *Store) Sessions() []*Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

// EvictIdle ends every session whose last activity predates now-idle.
// Returns how many were evicted.
func (st *Store) EvictIdle(idle time.Duration) int {
	cutoff := st.clock.Now().Add(-idle)
	evicted := 0
	for _, s := range st.Sessions() {
		if s.LastActivity().Before(cutoff) {
			s.Mu.Lock()
			if s.Phase != models.PhaseEnd {
				s.endLocked()
				evicted++
			}
			s.Mu.Unlock()
		}
	}
	return evicted
}
