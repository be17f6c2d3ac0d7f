package sanitizer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trim spaces",
			input: "  Marco Rossi  ",
			want:  "Marco Rossi",
		},
		{
			name:  "multiple spaces between words",
			input: "Marco    Rossi",
			want:  "Marco Rossi",
		},
		{
			name:  "tabs and newlines",
			input: "Marco\t\nRossi",
			want:  "Marco Rossi",
		},
		{
			name:  "control characters dropped",
			input: "Marco\x00Rossi",
			want:  "MarcoRossi",
		},
		{
			name:  "only whitespace",
			input: "   \t\n  ",
			want:  "",
		},
		{
			name:  "accents preserved",
			input: " Niccolò D'Amico ",
			want:  "Niccolò D'Amico",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeName(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeName_Capped(t *testing.T) {
	got := NormalizeName(strings.Repeat("è", MaxNameLength+50))
	if n := utf8.RuneCountInString(got); n != MaxNameLength {
		t.Errorf("NormalizeName length = %d runes, want %d", n, MaxNameLength)
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{" Taglio_Donna ", "taglio_donna"},
		{"PIEGA", "piega"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCode(tt.input); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
