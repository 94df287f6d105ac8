// internal/moderation/moderation_test.go
package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModerateAcceptsPlainText(t *testing.T) {
	v := Moderate("nice one team")
	assert.True(t, v.Allowed)
	assert.Equal(t, "nice one team", v.Sanitized)
}

func TestModerateRejectsEmptyAndWhitespace(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		v := Moderate(in)
		assert.False(t, v.Allowed, "input %q", in)
		assert.Equal(t, "empty message", v.Reason)
	}
}

func TestModerateRejectsOversized(t *testing.T) {
	v := Moderate(strings.Repeat("a", MaxMessageLen+1))
	assert.False(t, v.Allowed)
	assert.Equal(t, "message too long", v.Reason)
}

func TestModerateRejectsBlockedLanguage(t *testing.T) {
	v := Moderate("you are an IDIOT")
	assert.False(t, v.Allowed)
	assert.Equal(t, "message contains blocked language", v.Reason)
}

func TestModerateEscapesHTMLAndCollapsesWhitespace(t *testing.T) {
	v := Moderate("  <b>hello</b>   world  ")
	assert.True(t, v.Allowed)
	assert.Equal(t, "&lt;b&gt;hello&lt;/b&gt; world", v.Sanitized)
}
