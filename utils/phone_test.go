package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Local number with leading zero",
			input:    "08123456789",
			expected: "628123456789",
		},
		{
			name:     "International format with plus",
			input:    "+628123456789",
			expected: "628123456789",
		},
		{
			name:     "Bare local number without prefix",
			input:    "8123456789",
			expected: "628123456789",
		},
		{
			name:     "Already normalized",
			input:    "628123456789",
			expected: "628123456789",
		},
		{
			name:     "Leading and trailing whitespace",
			input:    "  08123456789 ",
			expected: "628123456789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestNormalizePhone_Deterministic(t *testing.T) {
	// Normalizing twice must give the same result as normalizing once
	inputs := []string{"08123456789", "+628123456789", "8123456789"}
	for _, input := range inputs {
		once := NormalizePhone(input)
		assert.Equal(t, once, NormalizePhone(once))
	}
}
