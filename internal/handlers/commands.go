// internal/handlers/commands.go
package handlers

import (
	"errors"

	"github.com/quizgrid/quizgrid/internal/session"
)

// Command is the envelope for every client-to-server message. Type selects
// the operation; the remaining fields are populated per command.
type Command struct {
	Type string `json:"type"`

	// create_room
	QuestionSetID string `json:"questionSetId,omitempty"`
	Mode          string `json:"mode,omitempty"`

	// join
	RoomCode string `json:"roomCode,omitempty"`
	Nickname string `json:"nickname,omitempty"`

	// join / answer / reconnect / kick_player
	SessionID string `json:"sessionId,omitempty"`
	PlayerID  string `json:"playerId,omitempty"`

	// answer. Pointers distinguish "absent" from index 0.
	QuestionIndex *int `json:"questionIndex,omitempty"`
	AnswerIndex   *int `json:"answerIndex,omitempty"`
	PenaltyScored bool `json:"penaltyScored,omitempty"`

	// reconnect
	Token string `json:"token,omitempty"`

	// chat
	Message string `json:"message,omitempty"`
}

// Client command types.
const (
	CmdCreateRoom   = "create_room"
	CmdJoin         = "join"
	CmdStartGame    = "start_game"
	CmdAnswer       = "answer"
	CmdNextQuestion = "next_question"
	CmdEndGame      = "end_game"
	CmdKickPlayer   = "kick_player"
	CmdReconnect    = "reconnect"
	CmdChat         = "chat"
	CmdSpinWheel    = "spin_wheel"
	CmdPing         = "ping"
)

// Error codes surfaced to clients in error events.
const (
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeQuestionSetNotFound = "QUESTION_SET_NOT_FOUND"
	CodeInvalidQuestionSet  = "INVALID_QUESTION_SET"
	CodeQuestionSetEmpty    = "QUESTION_SET_EMPTY"
	CodeReconnectFailed     = "RECONNECT_FAILED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeNicknameTaken       = "NICKNAME_TAKEN"
	CodePlayerKicked        = "PLAYER_KICKED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeWrongPhase          = "WRONG_PHASE"
	CodeWrongQuestion       = "WRONG_QUESTION"
	CodeAlreadyAnswered     = "ALREADY_ANSWERED"
	CodeAnswerTooLate       = "ANSWER_TOO_LATE"
	CodeInvalidAnswer       = "INVALID_ANSWER"
	CodeSessionEnded        = "SESSION_ENDED"
	CodeAlreadyStarted      = "ALREADY_STARTED"
	CodeNoPlayers           = "NO_PLAYERS"
	CodeSpinNotAvailable    = "SPIN_NOT_AVAILABLE"
	CodeMessageRejected     = "MESSAGE_REJECTED"
	CodeInvalidCommand      = "INVALID_COMMAND"
	CodeInternal            = "INTERNAL"
)

// errorCode maps session-layer sentinels to the wire error codes. Anything
// unrecognized (wrapped catalog/database failures included) maps to INTERNAL
// so transient infra errors surface as a generic, retry-safe failure.
func errorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, session.ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, session.ErrPlayerNotFound):
		return CodePlayerNotFound
	case errors.Is(err, session.ErrQuestionSetNotFound):
		return CodeQuestionSetNotFound
	case errors.Is(err, session.ErrInvalidQuestionSet):
		return CodeInvalidQuestionSet
	case errors.Is(err, session.ErrQuestionSetEmpty):
		return CodeQuestionSetEmpty
	case errors.Is(err, session.ErrReconnectFailed):
		return CodeReconnectFailed
	case errors.Is(err, session.ErrNicknameTaken):
		return CodeNicknameTaken
	case errors.Is(err, session.ErrPlayerKicked):
		return CodePlayerKicked
	case errors.Is(err, session.ErrNotHost):
		return CodeUnauthorized
	case errors.Is(err, session.ErrWrongPhase):
		return CodeWrongPhase
	case errors.Is(err, session.ErrWrongQuestion):
		return CodeWrongQuestion
	case errors.Is(err, session.ErrAlreadyAnswered):
		return CodeAlreadyAnswered
	case errors.Is(err, session.ErrAnswerTooLate):
		return CodeAnswerTooLate
	case errors.Is(err, session.ErrInvalidAnswer):
		return CodeInvalidAnswer
	case errors.Is(err, session.ErrSessionEnded):
		return CodeSessionEnded
	case errors.Is(err, session.ErrAlreadyStarted):
		return CodeAlreadyStarted
	case errors.Is(err, session.ErrNoPlayers):
		return CodeNoPlayers
	case errors.Is(err, session.ErrSpinNotAvailable):
		return CodeSpinNotAvailable
	default:
		return CodeInternal
	}
}

// errorEvent builds the error event sent back to the offending client.
func errorEvent(code, message string) session.Event {
	return session.Event{
		Type: session.EventError,
		Payload: map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
}
