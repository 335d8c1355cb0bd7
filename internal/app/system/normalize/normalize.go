// Package normalize provides helper functions for consistent string normalization
// across the application. Use these helpers instead of scattered strings.ToLower
// and strings.TrimSpace calls to ensure consistent behavior.
package normalize

import "strings"

// Email normalizes an email address by trimming whitespace and converting to lowercase.
// This is the canonical way to normalize emails before storage or comparison.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name normalizes a display name by trimming whitespace.
// Use text.Fold() for case-insensitive comparison keys.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// EventType normalizes an event type by trimming whitespace and converting to lowercase.
func EventType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Category normalizes a category name by collapsing interior whitespace and
// trimming. Category names double as folder names, so runs of whitespace
// would otherwise produce duplicate folders.
func Category(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// QueryParam normalizes a query parameter by trimming whitespace.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
