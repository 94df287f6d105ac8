// internal/models/session.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the session's position in its fixed lifecycle.
type Phase string

const (
	PhaseLobby    Phase = "LOBBY"
	PhaseQuestion Phase = "QUESTION"
	PhaseReveal   Phase = "REVEAL"
	PhaseEnd      Phase = "END"
)

// GameMode selects the scoring rule applied at reveal.
type GameMode string

const (
	// ModeClassic awards points from correctness and speed alone.
	ModeClassic GameMode = "classic"
	// ModeSoccer additionally requires a scored penalty kick; both gates
	// must pass for any reward.
	ModeSoccer GameMode = "soccer"
)

// SessionInfo is the persistable view of a live session, used for Redis
// snapshots and state_sync payloads. The live Session type with its lock and
// timers lives in the session package; this struct carries no concurrency
// state.
type SessionInfo struct {
	ID                   uuid.UUID  `json:"id"`
	RoomCode             string     `json:"roomCode"`
	QuestionSetID        uuid.UUID  `json:"questionSetId"`
	Mode                 GameMode   `json:"mode"`
	Phase                Phase      `json:"phase"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	QuestionStartedAt    *time.Time `json:"questionStartedAt,omitempty"`
	Players              []Player   `json:"players"`
}

// LeaderboardEntry is one row of the score table broadcast at reveal.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
	Coins    int    `json:"coins"`
}
