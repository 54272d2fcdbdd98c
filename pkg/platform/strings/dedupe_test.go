package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "single element",
			input:    []string{"foo"},
			expected: []string{"foo"},
		},
		{
			name:     "trims whitespace",
			input:    []string{"  foo  ", "bar  ", "  baz"},
			expected: []string{"foo", "bar", "baz"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"foo", "bar", "foo", "baz", "bar"},
			expected: []string{"foo", "bar", "baz"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"foo", "", "  ", "bar"},
			expected: []string{"foo", "bar"},
		},
		{
			name:     "citations: trim, dedupe, remove empty",
			input:    []string{" 31 CFR 1020.320 ", "FinCEN SAR Instructions", "31 CFR 1020.320", "", "  "},
			expected: []string{"31 CFR 1020.320", "FinCEN SAR Instructions"},
		},
		{
			name:     "preserves case",
			input:    []string{"Foo", "foo", "FOO"},
			expected: []string{"Foo", "foo", "FOO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DedupeAndTrim(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "lowercases and dedupes",
			input:    []string{"Foo", "foo", "FOO"},
			expected: []string{"foo"},
		},
		{
			name:     "indicators: trims, lowercases, and dedupes",
			input:    []string{"  Cash Deposits ", "velocity", "cash deposits", "VELOCITY"},
			expected: []string{"cash deposits", "velocity"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DedupeAndTrimLower(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestContainedFold(t *testing.T) {
	needles := []string{"we believe", " we ", "recommend review"}

	t.Run("matches case-insensitively in needle order", func(t *testing.T) {
		found := ContainedFold("Recommend Review: We Believe this is structuring", needles)
		assert.Equal(t, []string{"we believe", "recommend review"}, found)
	})

	t.Run("padded needle requires standalone word", func(t *testing.T) {
		assert.Empty(t, ContainedFold("weekly deposits were made", []string{" we "}))
		assert.Equal(t, []string{" we "}, ContainedFold("deposits we observed", []string{" we "}))
	})

	t.Run("empty needles are ignored", func(t *testing.T) {
		assert.Empty(t, ContainedFold("anything", []string{""}))
	})
}

func TestIsBlankAndRuneLen(t *testing.T) {
	assert.True(t, IsBlank(" \t\n"))
	assert.False(t, IsBlank(" x "))
	assert.Equal(t, 4, RuneLen("café"))
}
