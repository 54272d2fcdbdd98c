package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// AgentType names the pipeline stage that produced an entry.
type AgentType string

const (
	AgentDataLoader        AgentType = "DataLoader"
	AgentRiskAnalyst       AgentType = "RiskAnalyst"
	AgentComplianceOfficer AgentType = "ComplianceOfficer"
)

// Action names what the stage attempted.
type Action string

const (
	ActionCreateCase                Action = "create_case"
	ActionAnalyzeCase               Action = "analyze_case"
	ActionGenerateNarrative         Action = "generate_narrative"
	ActionGenerateNarrativeError    Action = "generate_narrative_error"
	ActionGenerateNarrativeFallback Action = "generate_narrative_fallback"
)

// Entry is one immutable audit record. Field names match the JSONL format
// consumed by downstream compliance tooling.
type Entry struct {
	LogID           string    `json:"log_id"`
	Timestamp       time.Time `json:"timestamp"`
	CaseID          string    `json:"case_id"`
	AgentType       AgentType `json:"agent_type"`
	Action          Action    `json:"action"`
	InputSummary    string    `json:"input_summary"`
	OutputSummary   string    `json:"output_summary"`
	Reasoning       string    `json:"reasoning"`
	ExecutionTimeMS float64   `json:"execution_time_ms"`
	Success         bool      `json:"success"`
	ErrorMessage    *string   `json:"error_message"`
}

// ErrorText returns the recorded error message, or "" on success.
func (e Entry) ErrorText() string {
	if e.ErrorMessage == nil {
		return ""
	}
	return *e.ErrorMessage
}

// Store keeps entries in append order.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListAll(ctx context.Context) ([]Entry, error)
	ListByCase(ctx context.Context, caseID string) ([]Entry, error)
}

// Sink is a durable, append-only destination for serialised entries. line is
// the entry's JSON encoding without the trailing record separator.
type Sink interface {
	Name() string
	Append(ctx context.Context, entry Entry, line []byte) error
	Close() error
}

// MarshalLine encodes an entry as a single JSON line (no trailing newline).
func MarshalLine(entry Entry) ([]byte, error) {
	b, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal audit entry %s: %w", entry.LogID, err)
	}
	return b, nil
}

// ReadJSONL streams entries from a line-oriented audit log, calling fn for
// each one in file order. Blank lines are skipped. Iteration stops at the
// first decode error or when fn returns an error.
func ReadJSONL(r io.Reader, fn func(Entry) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("decode audit line %d: %w", line, err)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}
	return nil
}
