package sanitizer

import (
	"strings"
)

const maskedDigits = 4

// NormalizePhone keeps only ASCII digits and strips leading zeros. A number
// made only of zeros keeps its digits so that it does not collapse to empty.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if trimmed := strings.TrimLeft(digits, "0"); trimmed != "" {
		return trimmed
	}
	return digits
}

// MaskPhone hides everything but the last four digits, for logs and for
// replies that echo the caller's identity.
func MaskPhone(phone string) string {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return ""
	}
	if len(normalized) <= maskedDigits {
		return "***" + normalized
	}
	return "***" + normalized[len(normalized)-maskedDigits:]
}
