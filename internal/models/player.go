// internal/models/player.go
package models

// Player is one participant's state within a session. Disconnect flips
// Connected but never deletes the record, so rejoin-by-same-id stays
// detectable for the whole session.
type Player struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`

	// ConnID is the transport identifier of the current connection, empty
	// while disconnected.
	ConnID    string `json:"-"`
	Connected bool   `json:"connected"`

	Score  int `json:"score"`
	Coins  int `json:"coins"`
	Streak int `json:"streak"`

	// LastAnswerIndex holds the option chosen for the in-flight question;
	// nil means unanswered. Reset when a new question starts.
	LastAnswerIndex *int  `json:"lastAnswerIndex,omitempty"`
	AnswerTimeMs    int64 `json:"-"`

	// PenaltyScored records the penalty-kick gate for soccer mode, valid
	// only alongside LastAnswerIndex.
	PenaltyScored bool `json:"-"`

	// Kicked marks a player removed from the roster by the host. The record
	// stays so the same id cannot slip back in through join or reconnect.
	// Serialized so the block survives a snapshot restore; roster broadcasts
	// filter kicked players out entirely, so they never carry the flag.
	Kicked bool `json:"kicked,omitempty"`

	// JoinOrder breaks leaderboard ties stably.
	JoinOrder int `json:"-"`
}
