package core

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	unsafeNameRegex = regexp.MustCompile(`[^a-z0-9\-_]`)
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// SafeFileName turns `s` into a lowercase, hyphenated, filesystem-safe name of at most `maxLen` runes.
// Returns `fallback` if nothing is left.
func SafeFileName(s string, maxLen int, fallback string) string {
	s = CleanString(s, true /* lower */)
	s = whitespaceRegex.ReplaceAllString(s, "-")
	s = unsafeNameRegex.ReplaceAllString(s, "")
	if maxLen > 0 && len(s) > maxLen { // only ASCII left
		s = s[:maxLen]
	}
	if s == "" {
		return fallback
	}
	return s
}
