// Package strings provides string helpers for model-produced lists and text
// matching (key indicators, citations, phrase lists).
package strings

import (
	"strings"
	"unicode/utf8"
)

// DedupeAndTrim removes duplicates and blank entries from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{" 31 CFR 1020.320 ", "FinCEN SAR Instructions", "31 CFR 1020.320", ""})
//	// Returns: []string{"31 CFR 1020.320", "FinCEN SAR Instructions"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// DedupeAndTrimLower is like DedupeAndTrim but also lowercases each element.
// Useful for case-insensitive matching lists.
//
// Example:
//
//	DedupeAndTrimLower([]string{"  Cash Deposits ", "cash deposits", "Velocity"})
//	// Returns: []string{"cash deposits", "velocity"}
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.ToLower(strings.TrimSpace(v))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// ContainedFold returns the needles that occur in text as case-insensitive
// substrings, in needle order. Needles are matched as given, whitespace
// included, so " we " only matches a standalone word.
func ContainedFold(text string, needles []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(n)) {
			found = append(found, n)
		}
	}
	return found
}

// IsBlank reports whether s has no non-whitespace characters.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// RuneLen counts code points, which is how text length limits are expressed.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
