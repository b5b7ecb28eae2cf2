package merge

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Equivalent reports whether two whole-page markups are materially the
// same, gating whether a write is issued at all.
//
// Both sides are NFC-normalized, then every run of ASCII whitespace
// collapses to a single space and the ends are trimmed. This tolerates the
// indentation and formatting drift Confluence introduces when it re-emits
// storage format, while any substantive change, including a checkbox
// flipped by a reader, still compares unequal. Non-breaking spaces are
// content, not formatting, and are left alone.
func Equivalent(a, b string) bool {
	return normalize(a) == normalize(b)
}

func normalize(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			space = true
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
