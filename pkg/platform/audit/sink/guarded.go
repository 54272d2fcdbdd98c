package sink

import (
	"context"
	"fmt"
	"log/slog"

	audit "sarflow/pkg/platform/audit"
	"sarflow/pkg/platform/circuit"
	"sarflow/pkg/platform/sentinel"
)

// Guarded wraps a remote sink with a circuit breaker. While the circuit is
// open, writes fail fast with sentinel.ErrCircuitOpen instead of waiting on
// an unreachable backend.
type Guarded struct {
	next    audit.Sink
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(next audit.Sink, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{next: next, breaker: breaker, logger: logger}
}

func (g *Guarded) Name() string { return g.next.Name() }

func (g *Guarded) Append(ctx context.Context, entry audit.Entry, line []byte) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("%s sink: %w", g.next.Name(), sentinel.ErrCircuitOpen)
	}
	if err := g.next.Append(ctx, entry, line); err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "audit sink circuit opened", "sink", g.next.Name(), "error", err)
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "audit sink circuit closed", "sink", g.next.Name())
	}
	return nil
}

func (g *Guarded) Close() error {
	return g.next.Close()
}
