// internal/session/event.go
package session

import (
	"github.com/quizgrid/quizgrid/internal/models"
)

// EventType tags every message broadcast toward clients.
type EventType string

const (
	EventRoomCreated     EventType = "room:created"
	EventRosterUpdate    EventType = "room:roster_update"
	EventPlayerJoined    EventType = "player:joined"
	EventStateSync       EventType = "player:state_sync"
	EventHostReconnected EventType = "host:reconnected"
	EventQuestionStart   EventType = "game:question_start"
	EventQuestionEnd     EventType = "game:question_end"
	EventGameEnd         EventType = "game:end"
	EventPlayerKicked    EventType = "player:kicked"
	EventChat            EventType = "room:chat"
	EventWheelResult     EventType = "wheel:result"
	EventPong            EventType = "pong"
	EventError           EventType = "error"
)

// Event is the tagged union carried over the transport. Typed fields cover
// the common payloads; Payload holds anything event-specific.
type Event struct {
	Type        EventType                 `json:"type"`
	Question    *models.QuestionView      `json:"question,omitempty"`
	Players     []models.Player           `json:"players,omitempty"`
	Leaderboard []models.LeaderboardEntry `json:"leaderboard,omitempty"`
	Payload     map[string]interface{}    `json:"payload,omitempty"`
}

// AnswerResult is one player's outcome for a finished question, included in
// the question_end payload.
type AnswerResult struct {
	PlayerID      string `json:"playerId"`
	Nickname      string `json:"nickname"`
	Answered      bool   `json:"answered"`
	AnswerIndex   *int   `json:"answerIndex,omitempty"`
	Correct       bool   `json:"correct"`
	PointsAwarded int    `json:"pointsAwarded"`
	CoinsAwarded  int    `json:"coinsAwarded"`
	Streak        int    `json:"streak"`
}

// StateSync is the full snapshot a reconnecting client needs to render the
// same UI as one that never disconnected.
type StateSync struct {
	SessionID       string                    `json:"sessionId"`
	RoomCode        string                    `json:"roomCode"`
	Phase           models.Phase              `json:"phase"`
	CurrentQuestion *models.QuestionView      `json:"currentQuestion,omitempty"`
	TimeRemainingMs int64                     `json:"timeRemainingMs"`
	Score           int                       `json:"score"`
	Coins           int                       `json:"coins"`
	Leaderboard     []models.LeaderboardEntry `json:"leaderboard"`
	HasAnswered     bool                      `json:"hasAnswered"`
	SelectedAnswer  *int                      `json:"selectedAnswer,omitempty"`
}
