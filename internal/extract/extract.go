// Package extract pulls the JSON object out of free-form generated text.
package extract

import (
	"errors"
	"strings"
)

// ErrNoJSON reports that no JSON object could be located.
var ErrNoJSON = errors.New("no JSON content found")

// Error is an extraction failure labelled with the caller's prefix.
type Error struct {
	Prefix string
}

func (e *Error) Error() string {
	if e.Prefix == "" {
		return ErrNoJSON.Error()
	}
	return e.Prefix + ": " + ErrNoJSON.Error()
}

func (e *Error) Unwrap() error { return ErrNoJSON }

// JSON returns the substring of text from the first '{' to the last '}'
// inclusive. When text contains a code fence, every line whose trimmed form
// starts with ``` is dropped first. The result is not guaranteed to parse.
func JSON(prefix, text string) (string, error) {
	if text == "" {
		return "", &Error{Prefix: prefix}
	}
	if strings.Contains(text, "```") {
		lines := strings.Split(text, "\n")
		kept := lines[:0]
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		text = strings.Join(kept, "\n")
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || end < start {
		return "", &Error{Prefix: prefix}
	}
	return text[start : end+1], nil
}
