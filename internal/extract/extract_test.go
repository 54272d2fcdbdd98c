package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "fenced block with prose",
			text: "Here:\n```json\n{\"a\":1}\n```\nthanks",
			want: `{"a":1}`,
		},
		{
			name: "plain text around object",
			text: `Result: {"classification": "Fraud", "nested": {"x": 1}} end`,
			want: `{"classification": "Fraud", "nested": {"x": 1}}`,
		},
		{
			name: "indented fence",
			text: "  ```\n{\"b\":2}\n   ```",
			want: `{"b":2}`,
		},
		{
			name: "multiline object",
			text: "{\n  \"a\": [1, 2]\n}",
			want: "{\n  \"a\": [1, 2]\n}",
		},
		{
			name: "unbalanced content is returned as is",
			text: `{"a": } trailing }`,
			want: `{"a": } trailing }`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JSON("Failed to parse output", tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSON_Failures(t *testing.T) {
	for _, text := range []string{"", "no braces here", "} backwards {", "```json\n```"} {
		_, err := JSON("Failed to parse Compliance Officer JSON output", text)
		require.Error(t, err, text)
		assert.True(t, errors.Is(err, ErrNoJSON))
		assert.Equal(t, "Failed to parse Compliance Officer JSON output: no JSON content found", err.Error())

		var xe *Error
		require.True(t, errors.As(err, &xe))
		assert.Equal(t, "Failed to parse Compliance Officer JSON output", xe.Prefix)
	}
}
