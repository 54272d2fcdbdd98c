// Package pipeline runs cases end to end: assembly, classification and
// narrative generation. Batches run cases concurrently with per-case error
// isolation.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"sarflow/internal/agents/complianceofficer"
	agentmodels "sarflow/internal/agents/models"
	"sarflow/internal/casefile/models"
	"sarflow/internal/platform/metrics"
)

// Outcomes label processed cases in metrics and reports.
const (
	OutcomeCompleted    = "completed"
	OutcomeManualReview = "manual_review"
	OutcomeRejected     = "rejected"
	OutcomeFailed       = "failed"
)

type Assembler interface {
	CreateCase(ctx context.Context, customer models.Row, accounts []models.Row, transactions []models.Row) (*models.Case, error)
}

type Classifier interface {
	Analyze(ctx context.Context, c *models.Case) (*agentmodels.ClassificationResult, error)
}

type Narrator interface {
	Generate(ctx context.Context, c *models.Case, risk *agentmodels.ClassificationResult) (*agentmodels.NarrativeResult, error)
}

// CaseInput is the raw material for one case.
type CaseInput struct {
	Customer     models.Row   `json:"customer"`
	Accounts     []models.Row `json:"accounts"`
	Transactions []models.Row `json:"transactions"`
}

// Report is the outcome of one case. Classification and Narrative are set
// as far as the case progressed.
type Report struct {
	CaseID         string                            `json:"case_id,omitempty"`
	CustomerID     string                            `json:"customer_id"`
	Outcome        string                            `json:"outcome"`
	Classification *agentmodels.ClassificationResult `json:"classification,omitempty"`
	Narrative      *agentmodels.NarrativeResult      `json:"narrative,omitempty"`
	Error          string                            `json:"error,omitempty"`
}

// BatchReport lists reports in input order.
type BatchReport struct {
	Reports []*Report      `json:"reports"`
	Counts  map[string]int `json:"counts"`
}

type Service struct {
	assembler  Assembler
	classifier Classifier
	narrator   Narrator
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(assembler Assembler, classifier Classifier, narrator Narrator, opts ...Option) *Service {
	s := &Service{
		assembler:  assembler,
		classifier: classifier,
		narrator:   narrator,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process assembles, classifies and narrates one case. The report is always
// returned; the error is the first failure that stopped the case.
func (s *Service) Process(ctx context.Context, in CaseInput) (*Report, error) {
	report := &Report{CustomerID: in.Customer.String("customer_id")}

	kase, err := s.assembler.CreateCase(ctx, in.Customer, in.Accounts, in.Transactions)
	if err != nil {
		return s.finish(report, OutcomeFailed, err)
	}
	report.CaseID = kase.ID()

	risk, err := s.classifier.Analyze(ctx, kase)
	if err != nil {
		return s.finish(report, OutcomeFailed, err)
	}
	report.Classification = risk

	narrative, err := s.narrator.Generate(ctx, kase, risk)
	if err != nil {
		if isViolation(err) {
			return s.finish(report, OutcomeRejected, err)
		}
		return s.finish(report, OutcomeFailed, err)
	}
	report.Narrative = narrative

	if risk.Fallback || narrative.Fallback {
		return s.finish(report, OutcomeManualReview, nil)
	}
	return s.finish(report, OutcomeCompleted, nil)
}

func (s *Service) finish(r *Report, outcome string, err error) (*Report, error) {
	r.Outcome = outcome
	s.metrics.IncrementCases(outcome)
	if err != nil {
		r.Error = err.Error()
	}
	return r, err
}

// ProcessBatch runs every input with at most workers cases in flight. A
// failing case never stops its siblings; its error is kept in its report.
// Inputs not yet started when ctx ends are reported as failed.
func (s *Service) ProcessBatch(ctx context.Context, inputs []CaseInput, workers int) *BatchReport {
	start := s.now()
	if workers < 1 {
		workers = 1
	}
	reports := make([]*Report, len(inputs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				reports[i], _ = s.finish(&Report{CustomerID: in.Customer.String("customer_id")}, OutcomeFailed, err)
				return nil
			}
			r, err := s.Process(ctx, in)
			if err != nil {
				s.logger.WarnContext(ctx, "case failed",
					"customer_id", r.CustomerID,
					"case_id", r.CaseID,
					"outcome", r.Outcome,
					"error", err,
				)
			}
			reports[i] = r
			return nil
		})
	}
	_ = g.Wait()

	counts := make(map[string]int)
	for _, r := range reports {
		counts[r.Outcome]++
	}
	elapsed := s.now().Sub(start)
	s.metrics.ObserveBatch(elapsed.Seconds())
	s.logger.InfoContext(ctx, "batch finished",
		"cases", len(inputs),
		"workers", workers,
		"completed", counts[OutcomeCompleted],
		"manual_review", counts[OutcomeManualReview],
		"rejected", counts[OutcomeRejected],
		"failed", counts[OutcomeFailed],
		"duration_ms", elapsed.Milliseconds(),
	)
	return &BatchReport{Reports: reports, Counts: counts}
}

func isViolation(err error) bool {
	var v *complianceofficer.ViolationError
	return errors.As(err, &v)
}
