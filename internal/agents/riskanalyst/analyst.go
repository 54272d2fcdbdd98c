// Package riskanalyst classifies assembled cases with a text generator.
//
// Each call walks request, extraction, decoding and validation. Any failure
// along the way is classified and, unless the caller cancelled, replaced by a
// manual-review classification. Every call writes exactly one audit entry.
package riskanalyst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sarflow/internal/agents/metrics"
	agentmodels "sarflow/internal/agents/models"
	"sarflow/internal/agents/prompt"
	"sarflow/internal/casefile/models"
	"sarflow/internal/extract"
	"sarflow/internal/llm"
	dErrors "sarflow/pkg/domain-errors"
	audit "sarflow/pkg/platform/audit"
	"sarflow/pkg/platform/sentinel"
)

// ErrorPrefix labels extraction and decoding failures.
const ErrorPrefix = "Failed to parse Risk Analyst JSON output"

const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1000
)

type AuditRecorder interface {
	Record(ctx context.Context, in audit.RecordInput) string
}

type Analyzer struct {
	gen         llm.Generator
	audit       AuditRecorder
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *metrics.Metrics
	now         func() time.Time
	temperature float32
	maxTokens   int
}

type Option func(*Analyzer)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(a *Analyzer) {
		a.tracer = tracer
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithSampling overrides temperature and the output token budget. Zero
// values keep the defaults.
func WithSampling(temperature float32, maxTokens int) Option {
	return func(a *Analyzer) {
		if temperature > 0 {
			a.temperature = temperature
		}
		if maxTokens > 0 {
			a.maxTokens = maxTokens
		}
	}
}

func New(gen llm.Generator, recorder AuditRecorder, opts ...Option) *Analyzer {
	a := &Analyzer{
		gen:         gen,
		audit:       recorder,
		logger:      slog.Default(),
		tracer:      otel.Tracer("sarflow/riskanalyst"),
		now:         time.Now,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze classifies c. Generator, extraction, decode and schema failures
// yield a fallback classification with a nil error. An error is returned
// only when the caller's context ended the request.
func (a *Analyzer) Analyze(ctx context.Context, c *models.Case) (*agentmodels.ClassificationResult, error) {
	if c == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "case is required")
	}
	start := a.now()
	customerID := c.Customer().CustomerID

	ctx, span := a.tracer.Start(ctx, "riskanalyst.Analyze", trace.WithAttributes(
		attribute.String("case.id", c.ID()),
		attribute.String("customer.id", customerID),
	))
	defer span.End()

	res, fail := a.attempt(ctx, c)
	elapsed := a.now().Sub(start)
	input := map[string]any{"customer_id": customerID}

	if fail == nil {
		span.SetAttributes(
			attribute.String("classification", string(res.Classification)),
			attribute.String("risk.level", string(res.RiskLevel)),
		)
		a.audit.Record(ctx, audit.RecordInput{
			AgentType: audit.AgentRiskAnalyst,
			Action:    audit.ActionAnalyzeCase,
			CaseID:    c.ID(),
			Input:     input,
			Output:    res,
			Reasoning: res.Reasoning,
			Duration:  elapsed,
			Success:   true,
		})
		a.metrics.ObserveAttempt(string(audit.AgentRiskAnalyst), metrics.OutcomeSuccess, elapsed.Seconds())
		a.logger.InfoContext(ctx, "case classified",
			"case_id", c.ID(),
			"classification", res.Classification,
			"risk_level", res.RiskLevel,
			"confidence", res.ConfidenceScore,
		)
		return res, nil
	}

	span.RecordError(fail)
	span.SetAttributes(attribute.String("failure.stage", string(fail.Stage)))
	a.metrics.IncFailure(string(audit.AgentRiskAnalyst), string(fail.Stage))

	switch fail.Kind {
	case agentmodels.KindFallback:
		fb := agentmodels.FallbackClassification(fail)
		span.SetStatus(codes.Error, "classification fell back to manual review")
		a.audit.Record(ctx, audit.RecordInput{
			AgentType: audit.AgentRiskAnalyst,
			Action:    audit.ActionAnalyzeCase,
			CaseID:    c.ID(),
			Input:     input,
			Output:    fb,
			Reasoning: "Fallback triggered due to: " + fail.Error(),
			Duration:  elapsed,
			Success:   false,
			Err:       fail,
		})
		a.metrics.ObserveAttempt(string(audit.AgentRiskAnalyst), metrics.OutcomeFallback, elapsed.Seconds())
		a.logger.WarnContext(ctx, "classification fell back to manual review",
			"case_id", c.ID(),
			"stage", fail.Stage,
			"error", fail.Err,
		)
		return fb, nil
	case agentmodels.KindHardFail:
		span.SetStatus(codes.Error, "classification aborted")
		a.audit.Record(ctx, audit.RecordInput{
			AgentType: audit.AgentRiskAnalyst,
			Action:    audit.ActionAnalyzeCase,
			CaseID:    c.ID(),
			Input:     input,
			Reasoning: "Analysis aborted: " + fail.Error(),
			Duration:  elapsed,
			Success:   false,
			Err:       fail,
		})
		a.metrics.ObserveAttempt(string(audit.AgentRiskAnalyst), metrics.OutcomeHardFail, elapsed.Seconds())
		a.logger.ErrorContext(ctx, "classification aborted",
			"case_id", c.ID(),
			"stage", fail.Stage,
			"error", fail.Err,
		)
		return nil, fmt.Errorf("risk analysis for case %s: %w", c.ID(), fail)
	default:
		panic(fmt.Sprintf("riskanalyst: unhandled failure kind %s", fail.Kind))
	}
}

func (a *Analyzer) attempt(ctx context.Context, c *models.Case) (*agentmodels.ClassificationResult, *agentmodels.Failure) {
	resp, err := a.gen.Generate(ctx, llm.Request{
		System:      prompt.RiskAnalystSystem,
		User:        prompt.AnalysisRequest(c, c.CreatedAt()),
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, agentmodels.HardFail(agentmodels.StageRequest, err)
		}
		return nil, agentmodels.Fallback(agentmodels.StageRequest, err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, agentmodels.Fallback(agentmodels.StageEmpty, sentinel.ErrEmptyResponse)
	}
	a.metrics.AddTokens(string(audit.AgentRiskAnalyst), resp.InputTokens, resp.OutputTokens)

	raw, err := extract.JSON(ErrorPrefix, resp.Text)
	if err != nil {
		return nil, agentmodels.Fallback(agentmodels.StageExtract, err)
	}
	payload, err := agentmodels.DecodeClassification(raw)
	if err != nil {
		return nil, agentmodels.Fallback(agentmodels.StageDecode, fmt.Errorf("%s: %w", ErrorPrefix, err))
	}
	res, err := agentmodels.NewClassificationResult(ctx, payload)
	if err != nil {
		return nil, agentmodels.Fallback(agentmodels.StageSchema, err)
	}
	return res, nil
}
