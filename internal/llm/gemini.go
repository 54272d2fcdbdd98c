package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"sarflow/pkg/platform/sentinel"
)

// contentGenerator is the subset of *genai.Models used by Gemini.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates text with the Gemini API.
type Gemini struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

type GeminiOption func(*Gemini)

// WithTimeout bounds each Generate call. A call that runs out of time
// fails like any other unavailable request; the caller's context is left
// untouched.
func WithTimeout(d time.Duration) GeminiOption {
	return func(g *Gemini) {
		g.timeout = d
	}
}

// NewGemini creates a Gemini generator for model using apiKey.
func NewGemini(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	g := &Gemini{models: client.Models, model: model}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Gemini) Name() string {
	return "gemini:" + g.model
}

// Generate sends one request. Transport and API failures wrap
// sentinel.ErrUnavailable; a reply without text is returned as an empty
// Response rather than an error.
func (g *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(req.User), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w: %w", sentinel.ErrUnavailable, err)
	}

	out := &Response{Model: g.model}
	if resp == nil {
		return out, nil
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return out, nil
	}
	cand := resp.Candidates[0]
	out.FinishReason = string(cand.FinishReason)
	if cand.Content == nil {
		return out, nil
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	out.Text = sb.String()
	return out, nil
}
