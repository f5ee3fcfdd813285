package export

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FormatFieldName turns a field name into a label: underscores become spaces and every
// whitespace-delimited word gets an upper-case first letter ("first_name" -> "First Name").
func FormatFieldName(field string) string {
	s := strings.ReplaceAll(field, "_", " ")

	var b strings.Builder
	b.Grow(len(s))
	wordStart := true
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			wordStart = true
		case wordStart:
			r = unicode.ToUpper(r)
			wordStart = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func formatNumber(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
