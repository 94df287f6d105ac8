// internal/session/errors.go
package session

import "errors"

// Not-found errors: reported to the caller, never retried, no state change.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrQuestionSetNotFound = errors.New("question set not found")
)

// Policy errors: carry a specific reason the client can render.
var (
	ErrInvalidQuestionSet = errors.New("invalid question set id")
	ErrQuestionSetEmpty   = errors.New("question set has no questions")
	ErrNicknameTaken      = errors.New("nickname already taken in this room")
	ErrPlayerKicked       = errors.New("player was removed from this room")
	ErrSpinNotAvailable   = errors.New("daily spin already used")
)

// Protocol errors: rejected without broadcast, acknowledged only to the
// offending client.
var (
	ErrNotHost         = errors.New("command not issued by the session host")
	ErrWrongPhase      = errors.New("command not valid in the current phase")
	ErrWrongQuestion   = errors.New("answer references a different question")
	ErrAlreadyAnswered = errors.New("answer already submitted for this question")
	ErrAnswerTooLate   = errors.New("answer arrived after the time limit")
	ErrInvalidAnswer   = errors.New("answer index out of range")
	ErrReconnectFailed = errors.New("reconnect not possible")
	ErrSessionEnded    = errors.New("session has ended")
	ErrAlreadyStarted  = errors.New("game already started")
	ErrNoPlayers       = errors.New("cannot start with no players")
)
