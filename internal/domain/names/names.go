// Package names canonicalizes player name strings so that differently
// formatted spellings of the same player compare equal.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases name, strips diacritics and punctuation, and collapses
// whitespace. Normalize(Normalize(s)) == Normalize(s).
func Normalize(name string) string {
	lower := strings.ToLower(name)

	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))),
		lower,
	)
	if err != nil {
		stripped = lower
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSpace := false
	for _, r := range stripped {
		switch {
		case r == '"' || r == '\'' || r == '`':
			continue
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-':
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		default:
			// whitespace, periods and anything else separate tokens
			pendingSpace = true
		}
	}
	return b.String()
}

// Parts splits a name into its normalized tokens.
func Parts(name string) []string {
	n := Normalize(name)
	if n == "" {
		return nil
	}
	return strings.Split(n, " ")
}

// FirstInitial returns the first letter of the first token, or "".
func FirstInitial(parts []string) string {
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	return parts[0][:1]
}

// LastName returns the final token, or "".
func LastName(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
