// internal/moderation/moderation.go

// Package moderation validates and sanitizes chat text. It is a pure
// function boundary: callers get an allow/deny verdict plus sanitized text
// and never need to know the rules.
package moderation

import (
	"html"
	"strings"
)

// MaxMessageLen bounds a single chat message after trimming.
const MaxMessageLen = 280

// Verdict is the outcome of moderating one message.
type Verdict struct {
	Allowed   bool
	Sanitized string
	Reason    string
}

var blockedWords = []string{
	"idiot",
	"stupid",
	"dumb",
	"loser",
	"shut up",
}

// Moderate checks a raw chat message. Rejections carry a human-readable
// reason; accepted messages come back HTML-escaped with collapsed
// whitespace.
func Moderate(text string) Verdict {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Verdict{Allowed: false, Reason: "empty message"}
	}
	if len(trimmed) > MaxMessageLen {
		return Verdict{Allowed: false, Reason: "message too long"}
	}

	collapsed := strings.Join(strings.Fields(trimmed), " ")
	lower := strings.ToLower(collapsed)
	for _, w := range blockedWords {
		if strings.Contains(lower, w) {
			return Verdict{Allowed: false, Reason: "message contains blocked language"}
		}
	}

	return Verdict{Allowed: true, Sanitized: html.EscapeString(collapsed)}
}
