package memory

import (
	"context"
	"sync"

	audit "sarflow/pkg/platform/audit"
)

// InMemoryStore keeps audit entries in append order, indexed by case.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
	byCase  map[string][]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byCase: make(map[string][]int)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.byCase = make(map[string][]int)
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCase[entry.CaseID] = append(s.byCase[entry.CaseID], len(s.entries))
	s.entries = append(s.entries, entry)
	return nil
}

// ListAll returns every entry in the order it was appended.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Entry{}, s.entries...), nil
}

func (s *InMemoryStore) ListByCase(_ context.Context, caseID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.byCase[caseID]
	out := make([]audit.Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// ListRecent returns the last limit entries, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.entries) - limit
	if start < 0 || limit <= 0 {
		start = 0
	}
	return append([]audit.Entry{}, s.entries[start:]...), nil
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
