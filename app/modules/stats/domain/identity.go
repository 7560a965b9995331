package statsdomain

import "strings"

// NormalizeName lowercases and trims a display name for identity matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NamesMatch reports whether two display names refer to the same person.
func NamesMatch(a, b string) bool {
	na := NormalizeName(a)
	return na != "" && na == NormalizeName(b)
}
