// Package taxonomy derives the two-level category model for library assets.
//
// A file's displayed category comes from its folder placement (category1 is
// the top-level folder, category2 the second level). For files that have not
// been filed yet, the filename convention "Cat1 Cat2 - Clean Name.ext" is
// parsed as a bootstrap heuristic. Anything unparseable lands in the fallback
// bucket so classification never fails.
package taxonomy

import (
	"path/filepath"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Separator splits the category prefix from the clean name in the filename
// convention. Only the first occurrence counts.
const Separator = " - "

// Fallback is the catch-all category used when a filename cannot be parsed.
// Unclassifiable files are filed under Fallback/Fallback so they remain
// reachable by category browsing.
const Fallback = "Other"

// Parsed is the result of parsing a filename against the naming convention.
type Parsed struct {
	Cat1      string
	Cat2      string
	CleanName string
	// Fallback is true when the name did not match the convention and the
	// catch-all pair was substituted.
	Fallback bool
}

// ParseFilename splits a filename on the first " - " and takes the first two
// whitespace-separated tokens of the left side as categories; the trimmed
// right side is the clean name. If the separator is absent, fewer than two
// tokens precede it, or the right side is empty, both categories fall back to
// the sentinel and the clean name is the original filename.
func ParseFilename(name string) Parsed {
	i := strings.Index(name, Separator)
	if i < 0 {
		return fallbackParse(name)
	}
	tokens := strings.Fields(name[:i])
	if len(tokens) < 2 {
		return fallbackParse(name)
	}
	clean := strings.TrimSpace(name[i+len(Separator):])
	if clean == "" {
		return fallbackParse(name)
	}
	return Parsed{Cat1: tokens[0], Cat2: tokens[1], CleanName: clean}
}

func fallbackParse(name string) Parsed {
	return Parsed{Cat1: Fallback, Cat2: Fallback, CleanName: name, Fallback: true}
}

// InferFromAncestors derives (cat1, cat2) from a file's folder chain below
// the library root, ordered outermost first. Zero ancestors means the file is
// unfiled; one gives cat1 only; deeper nesting takes the nearest two.
func InferFromAncestors(ancestors []string) (cat1, cat2 string) {
	switch len(ancestors) {
	case 0:
		return "", ""
	case 1:
		return ancestors[0], ""
	default:
		return ancestors[len(ancestors)-2], ancestors[len(ancestors)-1]
	}
}

// Slug converts a display name to a URL-safe slug: case/diacritic folded,
// with every run of non-alphanumeric characters collapsed to a single dash.
func Slug(s string) string {
	folded := strings.ToLower(text.Fold(s))
	var b strings.Builder
	b.Grow(len(folded))
	dash := true // suppress a leading dash
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// SlugFromFilename slugs a filename with its extension removed, so
// "Sunset View.png" becomes "sunset-view".
func SlugFromFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if s := Slug(base); s != "" {
		return s
	}
	return Slug(name)
}
