package sanitizer

import (
	"strings"
	"unicode"
)

const MaxNameLength = 100

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else if unicode.IsControl(r) {
			continue
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// NormalizeName collapses whitespace and caps the name at MaxNameLength runes.
func NormalizeName(name string) string {
	normalized := TrimAndNormalize(name)
	runes := []rune(normalized)
	if len(runes) > MaxNameLength {
		normalized = strings.TrimSpace(string(runes[:MaxNameLength]))
	}
	return normalized
}

func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
