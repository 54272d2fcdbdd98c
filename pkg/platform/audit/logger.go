package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecordInput describes one attempted pipeline step.
type RecordInput struct {
	AgentType AgentType
	Action    Action
	CaseID    string
	Input     any
	Output    any
	Reasoning string
	Duration  time.Duration
	Success   bool
	Err       error
}

// Logger is the append-only audit trail shared by every pipeline stage.
//
// Record never fails: the entry is always kept in the store, and a sink that
// cannot be written is reported on the diagnostic logger instead. Appends are
// serialised so concurrent callers interleave whole entries and timestamps
// never go backwards.
type Logger struct {
	mu      sync.Mutex
	store   Store
	sinks   []Sink
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
	newID   func() string
	timeout time.Duration
	last    time.Time
	closed  bool
}

// Option configures the Logger.
type Option func(*Logger)

// WithSink adds a durable sink. Sinks are written in the order they were added.
func WithSink(sink Sink) Option {
	return func(l *Logger) {
		if sink != nil {
			l.sinks = append(l.sinks, sink)
		}
	}
}

// WithLogger sets the diagnostic logger used for sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(l *Logger) {
		l.metrics = m
	}
}

// WithSinkTimeout bounds each sink write. Zero leaves writes unbounded.
func WithSinkTimeout(d time.Duration) Option {
	return func(l *Logger) {
		l.timeout = d
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// WithIDGenerator overrides log id generation.
func WithIDGenerator(fn func() string) Option {
	return func(l *Logger) {
		l.newID = fn
	}
}

// NewLogger creates an audit logger backed by store.
func NewLogger(store Store, opts ...Option) *Logger {
	l := &Logger{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends one entry and returns its log id.
func (l *Logger) Record(ctx context.Context, in RecordInput) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UTC()
	if ts.Before(l.last) {
		ts = l.last
	}
	l.last = ts

	entry := Entry{
		LogID:           l.newID(),
		Timestamp:       ts,
		CaseID:          in.CaseID,
		AgentType:       in.AgentType,
		Action:          in.Action,
		InputSummary:    Summarize(in.Input),
		OutputSummary:   Summarize(in.Output),
		Reasoning:       in.Reasoning,
		ExecutionTimeMS: float64(in.Duration) / float64(time.Millisecond),
		Success:         in.Success,
	}
	if in.Err != nil {
		msg := in.Err.Error()
		entry.ErrorMessage = &msg
	}

	if err := l.store.Append(ctx, entry); err != nil {
		l.metrics.IncStoreFailure()
		l.logger.ErrorContext(ctx, "audit store append failed",
			"log_id", entry.LogID,
			"case_id", entry.CaseID,
			"error", err,
		)
	}
	l.metrics.IncRecorded(entry.AgentType, entry.Success)

	if l.closed || len(l.sinks) == 0 {
		return entry.LogID
	}

	line, err := MarshalLine(entry)
	if err != nil {
		l.logger.ErrorContext(ctx, "audit entry not serialisable", "log_id", entry.LogID, "error", err)
		return entry.LogID
	}
	// Sinks never inherit the caller's cancellation.
	sinkCtx := context.WithoutCancel(ctx)
	for _, sink := range l.sinks {
		start := time.Now()
		if err := l.appendSink(sinkCtx, sink, entry, line); err != nil {
			l.metrics.IncSinkFailure(sink.Name())
			l.logger.WarnContext(ctx, "audit sink write failed",
				"sink", sink.Name(),
				"log_id", entry.LogID,
				"case_id", entry.CaseID,
				"error", err,
			)
			continue
		}
		l.metrics.ObserveSinkWrite(sink.Name(), time.Since(start).Seconds())
	}
	return entry.LogID
}

func (l *Logger) appendSink(ctx context.Context, sink Sink, entry Entry, line []byte) error {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return sink.Append(ctx, entry, line)
}

// Entries returns every recorded entry in call order.
func (l *Logger) Entries(ctx context.Context) ([]Entry, error) {
	return l.store.ListAll(ctx)
}

// EntriesForCase returns the entries recorded for one case in call order.
func (l *Logger) EntriesForCase(ctx context.Context, caseID string) ([]Entry, error) {
	return l.store.ListByCase(ctx, caseID)
}

// Close flushes and closes every sink. Entries recorded afterwards are kept
// in the store only.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	var errs []error
	for _, sink := range l.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s sink: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Summarize renders an audit input or output value as a compact string.
func Summarize(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
