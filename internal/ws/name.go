package ws

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	MaxNameRunes  = 24
	AnonymousName = "anonymous"
)

// NormalizeName returns the display name shown to opponents: NFC, trimmed,
// control characters removed, capped at MaxNameRunes.
func NormalizeName(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	if r := []rune(s); len(r) > MaxNameRunes {
		s = strings.TrimSpace(string(r[:MaxNameRunes]))
	}
	if s == "" {
		return AnonymousName
	}
	return s
}
