// Package htmlsanitize strips markup from user-submitted text before storage.
// Comment bodies are stored as plain text; bluemonday's strict policy removes
// every element and attribute so nothing executable or styled survives.
package htmlsanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// MaxCommentLen caps stored comment bodies. Longer input is truncated, not
// rejected, so a verbose commenter still gets their first 2000 characters.
const MaxCommentLen = 2000

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, creating it on first use.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Comment sanitizes a comment body: all tags stripped, surrounding whitespace
// trimmed, length capped at MaxCommentLen runes.
func Comment(s string) string {
	if s == "" {
		return ""
	}
	out := strings.TrimSpace(getPolicy().Sanitize(s))
	if runes := []rune(out); len(runes) > MaxCommentLen {
		out = strings.TrimSpace(string(runes[:MaxCommentLen]))
	}
	return out
}

// Plain strips markup from a short free-text field (names, page URLs echoed
// back in activity views) without the comment length cap.
func Plain(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(getPolicy().Sanitize(s))
}
