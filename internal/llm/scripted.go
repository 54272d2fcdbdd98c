package llm

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Reply is one canned outcome of a Scripted generator.
type Reply struct {
	Text string
	Err  error
}

// Scripted replays canned replies in order and records every request. Once
// the script is exhausted the last reply repeats. It serves offline runs and
// tests.
type Scripted struct {
	mu       sync.Mutex
	replies  []Reply
	next     int
	requests []Request
}

func NewScripted(replies ...Reply) *Scripted {
	return &Scripted{replies: replies}
}

func (s *Scripted) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return nil, fmt.Errorf("scripted generator has no replies")
	}
	i := s.next
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	} else {
		s.next++
	}
	r := s.replies[i]
	if r.Err != nil {
		return nil, r.Err
	}
	return &Response{Text: r.Text, Model: "scripted"}, nil
}

// Requests returns the requests seen so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

type script struct {
	Replies []string `yaml:"replies"`
}

// LoadScript reads a YAML document of the form
//
//	replies:
//	  - '{"classification": ...}'
//
// into a Scripted generator. Replies are served in order regardless of which
// agent asks.
func LoadScript(path string) (*Scripted, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	var doc script
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	replies := make([]Reply, 0, len(doc.Replies))
	for _, text := range doc.Replies {
		replies = append(replies, Reply{Text: text})
	}
	return NewScripted(replies...), nil
}
