package utils

import "strings"

func NormalizeDomain(d string) string {
	d = strings.TrimSpace(d)
	d = strings.ToLower(d)
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "www.")
	d = strings.TrimRight(d, "/")
	return d
}

// Fingerprint normalizes message text for duplicate detection: trimmed,
// case-folded, inner whitespace collapsed to single spaces.
func Fingerprint(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}
