package audit_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	audit "sarflow/pkg/platform/audit"
	"sarflow/pkg/platform/audit/store/memory"
)

type recordingSink struct {
	mu      sync.Mutex
	name    string
	lines   []string
	failErr error
	closed  bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Append(_ context.Context, _ audit.Entry, line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.lines = append(s.lines, string(line))
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ctxSink behaves like a network sink: it fails once its context is done.
type ctxSink struct {
	recordingSink
	deadline bool
}

func (s *ctxSink) Append(ctx context.Context, entry audit.Entry, line []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, s.deadline = ctx.Deadline()
	return s.recordingSink.Append(ctx, entry, line)
}

type LoggerSuite struct {
	suite.Suite
	ctx    context.Context
	store  *memory.InMemoryStore
	logger *slog.Logger
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerSuite))
}

func (s *LoggerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewInMemoryStore()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *LoggerSuite) TestRecordKeepsCallOrderWithUniqueIDs() {
	l := audit.NewLogger(s.store, audit.WithLogger(s.logger))

	const n = 25
	ids := make(map[string]struct{}, n)
	for i := range n {
		id := l.Record(s.ctx, audit.RecordInput{
			AgentType: audit.AgentDataLoader,
			Action:    audit.ActionCreateCase,
			CaseID:    fmt.Sprintf("case-%02d", i),
			Success:   true,
		})
		ids[id] = struct{}{}
	}

	entries, err := l.Entries(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, n)
	s.Len(ids, n)
	for i, e := range entries {
		s.Equal(fmt.Sprintf("case-%02d", i), e.CaseID)
		if i > 0 {
			s.False(e.Timestamp.Before(entries[i-1].Timestamp))
		}
	}
}

func (s *LoggerSuite) TestTimestampsNeverGoBackwards() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	clock := func() time.Time {
		t := ticks[i]
		i++
		return t
	}
	l := audit.NewLogger(s.store, audit.WithClock(clock), audit.WithLogger(s.logger))
	for range ticks {
		l.Record(s.ctx, audit.RecordInput{CaseID: "c", Success: true})
	}

	entries, err := l.Entries(s.ctx)
	s.Require().NoError(err)
	s.Equal(base, entries[0].Timestamp)
	s.Equal(base, entries[1].Timestamp)
	s.Equal(base.Add(time.Second), entries[2].Timestamp)
}

func (s *LoggerSuite) TestFailureEntryCarriesErrorMessage() {
	l := audit.NewLogger(s.store, audit.WithLogger(s.logger))
	l.Record(s.ctx, audit.RecordInput{
		AgentType: audit.AgentRiskAnalyst,
		Action:    audit.ActionAnalyzeCase,
		CaseID:    "case-1",
		Input:     map[string]int{"transactions": 2},
		Output:    "",
		Duration:  1500 * time.Microsecond,
		Success:   false,
		Err:       errors.New("generator unavailable"),
	})

	entries, err := l.EntriesForCase(s.ctx, "case-1")
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.False(entries[0].Success)
	s.Equal("generator unavailable", entries[0].ErrorText())
	s.Equal(`{"transactions":2}`, entries[0].InputSummary)
	s.InDelta(1.5, entries[0].ExecutionTimeMS, 1e-9)
}

func (s *LoggerSuite) TestSinkFailureKeepsEntry() {
	reg := prometheus.NewRegistry()
	metrics := audit.NewMetrics(reg)
	broken := &recordingSink{name: "broken", failErr: errors.New("disk full")}
	healthy := &recordingSink{name: "healthy"}
	l := audit.NewLogger(s.store,
		audit.WithSink(broken),
		audit.WithSink(healthy),
		audit.WithLogger(s.logger),
		audit.WithMetrics(metrics),
	)

	id := l.Record(s.ctx, audit.RecordInput{CaseID: "case-1", Success: true})

	s.NotEmpty(id)
	s.Equal(1, s.store.Len())
	s.Len(healthy.lines, 1)
	s.Contains(healthy.lines[0], id)
	s.Equal(1.0, testutil.ToFloat64(metrics.SinkFailures.WithLabelValues("broken")))
}

func (s *LoggerSuite) TestCancelledCallerStillReachesSinks() {
	reg := prometheus.NewRegistry()
	metrics := audit.NewMetrics(reg)
	sink := &ctxSink{recordingSink: recordingSink{name: "remote"}}
	l := audit.NewLogger(s.store,
		audit.WithSink(sink),
		audit.WithLogger(s.logger),
		audit.WithMetrics(metrics),
		audit.WithSinkTimeout(time.Second),
	)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	id := l.Record(ctx, audit.RecordInput{
		CaseID:  "case-1",
		Success: false,
		Err:     fmt.Errorf("request: %w", context.Canceled),
	})

	s.Equal(1, s.store.Len())
	s.Require().Len(sink.lines, 1)
	s.Contains(sink.lines[0], id)
	s.True(sink.deadline, "sink write is bounded by the sink timeout")
	s.Equal(0.0, testutil.ToFloat64(metrics.SinkFailures.WithLabelValues("remote")))
}

func (s *LoggerSuite) TestConcurrentRecordsLoseNothing() {
	sink := &recordingSink{name: "mem"}
	l := audit.NewLogger(s.store, audit.WithSink(sink), audit.WithLogger(s.logger))

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				l.Record(s.ctx, audit.RecordInput{CaseID: fmt.Sprintf("w%d-%d", w, i), Success: true})
			}
		}()
	}
	wg.Wait()

	entries, err := l.Entries(s.ctx)
	s.Require().NoError(err)
	s.Len(entries, 400)
	s.Len(sink.lines, 400)
}

func (s *LoggerSuite) TestCloseStopsSinkWrites() {
	sink := &recordingSink{name: "mem"}
	l := audit.NewLogger(s.store, audit.WithSink(sink), audit.WithLogger(s.logger))

	l.Record(s.ctx, audit.RecordInput{CaseID: "before", Success: true})
	s.Require().NoError(l.Close())
	s.Require().NoError(l.Close())
	l.Record(s.ctx, audit.RecordInput{CaseID: "after", Success: true})

	s.True(sink.closed)
	s.Len(sink.lines, 1)
	s.Equal(2, s.store.Len())
}

func (s *LoggerSuite) TestSummarize() {
	s.Equal("", audit.Summarize(nil))
	s.Equal("plain", audit.Summarize("plain"))
	s.Equal("1h0m0s", audit.Summarize(time.Hour))
	s.Equal(`{"a":1}`, audit.Summarize(map[string]int{"a": 1}))
	s.Equal("(1+2i)", audit.Summarize(complex(1, 2)))
}
