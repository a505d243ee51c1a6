package common

import (
	"strings"
	"unicode"
)

// NormalizeKey converts a display name into a canonical lookup key:
// lowercase, whitespace collapsed to single spaces, punctuation stripped.
// "  Heavy  Sand! " and "heavy sand" normalize to the same key.
func NormalizeKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
