// Package llm defines the text-generation capability the agents depend on.
//
// Generated text is untrusted: callers must extract, decode and validate it
// before use.
package llm

import "context"

// Generator produces free text for a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request is one generation call.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Response carries the generated text, which may be empty.
type Response struct {
	Text         string
	Model        string
	FinishReason string
	InputTokens  int
	OutputTokens int
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (*Response, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
