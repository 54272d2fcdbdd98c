// Package sink provides durable, append-only destinations for audit entries.
//
// Every sink writes one self-contained JSON document per entry and never
// rewrites or trims what it has already written.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	audit "sarflow/pkg/platform/audit"
	"sarflow/pkg/platform/sentinel"
)

// File appends entries to a JSONL file opened with O_APPEND.
type File struct {
	mu   sync.Mutex
	path string
	f    *os.File
	sync bool
}

// FileOption configures a File sink.
type FileOption func(*File)

// WithFsync syncs the file after every entry.
func WithFsync() FileOption {
	return func(f *File) {
		f.sync = true
	}
}

// OpenFile opens (or creates) the audit log at path, creating parent
// directories as needed.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create audit log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	s := &File{path: path, f: f}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *File) Name() string { return "file" }

func (s *File) Path() string { return s.path }

func (s *File) Append(_ context.Context, _ audit.Entry, line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return sentinel.ErrClosed
	}
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	if _, err := s.f.Write(buf); err != nil {
		return fmt.Errorf("append audit line: %w", err)
	}
	if s.sync {
		if err := s.f.Sync(); err != nil {
			return fmt.Errorf("sync audit log: %w", err)
		}
	}
	return nil
}

func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
