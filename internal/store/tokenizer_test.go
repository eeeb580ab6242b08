package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		minLen   int
		expected []string
	}{
		{
			name:     "simple words",
			text:     "Ubuntu installation guide",
			minLen:   2,
			expected: []string{"ubuntu", "installation", "guide"},
		},
		{
			name:     "punctuation splits",
			text:     "error: connection-refused (retry!)",
			minLen:   2,
			expected: []string{"error", "connection", "refused", "retry"},
		},
		{
			name:     "case folding",
			text:     "RaspBerry PI",
			minLen:   2,
			expected: []string{"raspberry", "pi"},
		},
		{
			name:     "short tokens dropped",
			text:     "a b cd",
			minLen:   2,
			expected: []string{"cd"},
		},
		{
			name:     "digits kept",
			text:     "ipv6 route 2024",
			minLen:   2,
			expected: []string{"ipv6", "route", "2024"},
		},
		{
			name:     "empty text",
			text:     "",
			minLen:   2,
			expected: []string{},
		},
		{
			name:     "only separators",
			text:     "--- ,,, !!!",
			minLen:   2,
			expected: []string{},
		},
		{
			name:     "min length below one is clamped",
			text:     "a bc",
			minLen:   0,
			expected: []string{"a", "bc"},
		},
		{
			name:     "unicode letters counted in runes",
			text:     "café über",
			minLen:   4,
			expected: []string{"café", "über"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text, tt.minLen)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUniqueTerms_PreservesFirstOccurrenceOrder(t *testing.T) {
	got := UniqueTerms([]string{"b", "a", "b", "c", "a"})
	assert.Equal(t, []string{"b", "a", "c"}, got)
}

func TestUniqueTerms_Empty(t *testing.T) {
	assert.Empty(t, UniqueTerms(nil))
}
