package util

import (
	"strings"
	"unicode"
)

// SanitizeString trims s and drops control characters. Method names and
// request IDs taken from the wire go through it before they are logged.
func SanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// SanitizeEnvValue trims an environment value and strips one pair of
// matching surrounding quotes, as left behind by some .env writers.
func SanitizeEnvValue(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}
