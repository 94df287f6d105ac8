// internal/session/reconnect.go
package session

import (
	"log"
	"time"

	"github.com/quizgrid/quizgrid/internal/models"
)

// CanPlayerReconnect is the cheap pre-check before attempting the full
// reconnect flow. It never mutates state; false comes back with the reason.
func (s *Session) CanPlayerReconnect(playerID string) (bool, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Phase == models.PhaseEnd {
		return false, ErrSessionEnded
	}
	p := s.playerLocked(playerID)
	if p == nil {
		return false, ErrPlayerNotFound
	}
	if p.Kicked {
		return false, ErrPlayerKicked
	}
	return true, nil
}

// HandlePlayerReconnect re-attaches a returning player's new connection.
// The player must already exist — reconnect never creates one, that is the
// join path. On success the caller receives the full state snapshot and the
// rest of the room sees an updated roster.
func (s *Session) HandlePlayerReconnect(playerID, connID string) (*StateSync, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Phase == models.PhaseEnd {
		return nil, ErrSessionEnded
	}
	p := s.playerLocked(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if p.Kicked {
		return nil, ErrPlayerKicked
	}

	p.ConnID = connID
	p.Connected = true
	s.touchLocked()

	sync := s.stateSyncLocked(p)

	s.fireRosterLocked()
	s.snapshotLocked()
	log.Printf("session %s: player %s reconnected", s.RoomCode, playerID)
	return sync, nil
}

// HandleHostReconnect restores the host's connection id and returns the
// current roster so the host UI can re-render.
func (s *Session) HandleHostReconnect(connID string) ([]models.Player, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Phase == models.PhaseEnd {
		return nil, ErrSessionEnded
	}
	s.HostConnID = connID
	s.touchLocked()
	s.snapshotLocked()
	log.Printf("session %s: host reconnected", s.RoomCode)
	return s.activeRosterLocked(), nil
}

// StateSyncFor builds the reconnect snapshot for a player without changing
// any state, used when a client asks for a refresh.
func (s *Session) StateSyncFor(playerID string) (*StateSync, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	p := s.playerLocked(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	return s.stateSyncLocked(p), nil
}

// stateSyncLocked assembles everything a rejoining client needs: phase,
// in-flight question, remaining time clamped to zero, own score, the
// leaderboard, and whether (and how) they already answered. Assumes lock is
// held.
func (s *Session) stateSyncLocked(p *models.Player) *StateSync {
	sync := &StateSync{
		SessionID:   s.ID.String(),
		RoomCode:    s.RoomCode,
		Phase:       s.Phase,
		Score:       p.Score,
		Coins:       p.Coins,
		Leaderboard: s.leaderboardLocked(),
		HasAnswered: p.LastAnswerIndex != nil,
	}
	if p.LastAnswerIndex != nil {
		idx := *p.LastAnswerIndex
		sync.SelectedAnswer = &idx
	}

	if s.Phase == models.PhaseQuestion || s.Phase == models.PhaseReveal {
		q := s.QuestionSet.Questions[s.CurrentQuestionIndex]
		view := q.View(s.CurrentQuestionIndex, len(s.QuestionSet.Questions))
		sync.CurrentQuestion = &view
	}
	if s.Phase == models.PhaseQuestion && !s.QuestionStartedAt.IsZero() {
		q := s.QuestionSet.Questions[s.CurrentQuestionIndex]
		limit := time.Duration(q.TimeLimitSec) * time.Second
		remaining := limit - s.clock.Now().Sub(s.QuestionStartedAt)
		if remaining < 0 {
			remaining = 0
		}
		sync.TimeRemainingMs = remaining.Milliseconds()
	}
	return sync
}
