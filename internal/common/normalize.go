package common

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes free text for stable lookup keys: NFKC unicode
// normalization, lower-case, trimmed, with runs of whitespace collapsed to a
// single space. Empty or whitespace-only input normalizes to the empty
// string, which every lookup treats as "no key".
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFKC.String(text)
	text = strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(text))
	inSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

// IsUnknown reports whether the normalized value is empty or the generic
// "unknown" placeholder used by the receipt parser for missing fields.
func IsUnknown(text string) bool {
	n := Normalize(text)
	return n == "" || n == "unknown"
}
