package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Adapters return these (optionally
// wrapped) so pipelines can tell collaborator outages from bad data.
//
// These represent factual states about collaborators, not validation failures:
// - ErrUnavailable: text generation service or audit sink cannot be reached
// - ErrEmptyResponse: the collaborator answered without any usable content
// - ErrCircuitOpen: a guarded sink is skipped while its breaker is open
// - ErrClosed: the resource was already closed
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrUnavailable   = errors.New("unavailable")
	ErrEmptyResponse = errors.New("empty response")
	ErrCircuitOpen   = errors.New("circuit open")
	ErrClosed        = errors.New("closed")
)
