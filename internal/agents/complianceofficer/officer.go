// Package complianceofficer drafts SAR narratives from a case and its risk
// classification.
//
// Narratives that break a filing rule are rejected with a *ViolationError.
// Every other failure produces a manual-review placeholder narrative. Each
// call writes exactly one audit entry.
package complianceofficer

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
	"sarflow/internal/compliance"
	"sarflow/internal/extract"
	"sarflow/internal/llm"
	dErrors "sarflow/pkg/domain-errors"
	audit "sarflow/pkg/platform/audit"
	"sarflow/pkg/platform/sentinel"
)

// ErrorPrefix labels extraction and decoding failures.
const ErrorPrefix = "Failed to parse Compliance Officer JSON output"

const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 800
)

// ViolationError reports a narrative that broke one or more filing rules.
// It carries dErrors.CodeInvariantViolation.
type ViolationError struct {
	CaseID     string
	Violations []string
	Warnings   []string
}

func (e *ViolationError) Error() string {
	return "Strict Regulatory Validation Failed. Errors: " + strings.Join(e.Violations, "; ")
}

func (e *ViolationError) Unwrap() error {
	return dErrors.New(dErrors.CodeInvariantViolation, "narrative violates filing rules")
}

type AuditRecorder interface {
	Record(ctx context.Context, in audit.RecordInput) string
}

type Officer struct {
	gen         llm.Generator
	audit       AuditRecorder
	validator   *compliance.Validator
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *metrics.Metrics
	now         func() time.Time
	temperature float32
	maxTokens   int
}

type Option func(*Officer)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Officer) {
		o.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Officer) {
		o.tracer = tracer
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Officer) {
		o.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Officer) {
		o.now = now
	}
}

// WithValidator replaces the default narrative rules.
func WithValidator(v *compliance.Validator) Option {
	return func(o *Officer) {
		o.validator = v
	}
}

// WithSampling overrides temperature and the output token budget. Zero
// values keep the defaults.
func WithSampling(temperature float32, maxTokens int) Option {
	return func(o *Officer) {
		if temperature > 0 {
			o.temperature = temperature
		}
		if maxTokens > 0 {
			o.maxTokens = maxTokens
		}
	}
}

func New(gen llm.Generator, recorder AuditRecorder, opts ...Option) *Officer {
	o := &Officer{
		gen:         gen,
		audit:       recorder,
		validator:   compliance.New(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("sarflow/complianceofficer"),
		now:         time.Now,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate drafts the narrative for c given its classification. A narrative
// that breaks a filing rule returns a *ViolationError. A cancelled context
// returns the context error. Any other failure returns a fallback narrative
// with completeness_check false and a nil error.
func (o *Officer) Generate(ctx context.Context, c *models.Case, risk *agentmodels.ClassificationResult) (*agentmodels.NarrativeResult, error) {
	if c == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "case is required")
	}
	if risk == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "risk classification is required")
	}
	start := o.now()
	cust := c.Customer()

	ctx, span := o.tracer.Start(ctx, "complianceofficer.Generate", trace.WithAttributes(
		attribute.String("case.id", c.ID()),
		attribute.String("customer.id", cust.CustomerID),
		attribute.String("risk.level", string(risk.RiskLevel)),
	))
	defer span.End()

	res, fail := o.attempt(ctx, c, risk)
	elapsed := o.now().Sub(start)
	agent := string(audit.AgentComplianceOfficer)

	if fail == nil {
		span.SetAttributes(attribute.Int("compliance.warnings", len(res.Warnings)))
		o.audit.Record(ctx, audit.RecordInput{
			AgentType: audit.AgentComplianceOfficer,
			Action:    audit.ActionGenerateNarrative,
			CaseID:    c.ID(),
			Input:     map[string]any{"risk_level": risk.RiskLevel},
			Output:    res,
			Reasoning: res.NarrativeReasoning,
			Duration:  elapsed,
			Success:   true,
		})
		o.metrics.ObserveAttempt(agent, metrics.OutcomeSuccess, elapsed.Seconds())
		o.metrics.AddComplianceWarnings(len(res.Warnings))
		if len(res.Warnings) > 0 {
			o.logger.WarnContext(ctx, "narrative accepted with compliance warnings",
				"case_id", c.ID(),
				"warnings", res.Warnings,
			)
		}
		o.logger.InfoContext(ctx, "narrative generated",
			"case_id", c.ID(),
			"citations", len(res.RegulatoryCitations),
		)
		return res, nil
	}

	span.RecordError(fail)
	span.SetAttributes(attribute.String("failure.stage", string(fail.Stage)))
	o.metrics.IncFailure(agent, string(fail.Stage))
	input := map[string]any{"customer_id": cust.CustomerID}

	switch fail.Kind {
	case agentmodels.KindFallback:
		fb := agentmodels.FallbackNarrative(cust.Name, fail)
		span.SetStatus(codes.Error, "narrative fell back to manual review")
		o.audit.Record(ctx, audit.RecordInput{
			AgentType: audit.AgentComplianceOfficer,
			Action:    audit.ActionGenerateNarrativeFallback,
			CaseID:    c.ID(),
			Input:     input,
			Output:    fb,
			Reasoning: "Fallback triggered due to: " + fail.Error(),
			Duration:  elapsed,
			Success:   false,
			Err:       fail,
		})
		o.metrics.ObserveAttempt(agent, metrics.OutcomeFallback, elapsed.Seconds())
		o.logger.WarnContext(ctx, "narrative fell back to manual review",
			"case_id", c.ID(),
			"stage", fail.Stage,
			"error", fail.Err,
		)
		return fb, nil
	case agentmodels.KindHardFail:
		span.SetStatus(codes.Error, "narrative rejected")
		o.audit.Record(ctx, audit.RecordInput{
			AgentType: audit.AgentComplianceOfficer,
			Action:    audit.ActionGenerateNarrativeError,
			CaseID:    c.ID(),
			Input:     input,
			Reasoning: "Narrative generation failed: " + fail.Error(),
			Duration:  elapsed,
			Success:   false,
			Err:       fail,
		})
		o.metrics.ObserveAttempt(agent, metrics.OutcomeHardFail, elapsed.Seconds())
		o.logger.ErrorContext(ctx, "narrative rejected",
			"case_id", c.ID(),
			"stage", fail.Stage,
			"error", fail.Err,
		)
		var violation *ViolationError
		if errors.As(fail.Err, &violation) {
			return nil, violation
		}
		return nil, fmt.Errorf("narrative for case %s: %w", c.ID(), fail)
	default:
		panic(fmt.Sprintf("complianceofficer: unhandled failure kind %s", fail.Kind))
	}
}

func (o *Officer) attempt(ctx context.Context, c *models.Case, risk *agentmodels.ClassificationResult) (*agentmodels.NarrativeResult, *agentmodels.Failure) {
	resp, err := o.gen.Generate(ctx, llm.Request{
		System:      prompt.ComplianceOfficerSystem(o.validator.WordLimit()),
		User:        prompt.NarrativeRequest(c, risk),
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
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
	o.metrics.AddTokens(string(audit.AgentComplianceOfficer), resp.InputTokens, resp.OutputTokens)

	raw, err := extract.JSON(ErrorPrefix, resp.Text)
	if err != nil {
		return nil, agentmodels.Fallback(agentmodels.StageExtract, err)
	}
	payload, err := agentmodels.DecodeNarrative(raw)
	if err != nil {
		return nil, agentmodels.Fallback(agentmodels.StageDecode, fmt.Errorf("%s: %w", ErrorPrefix, err))
	}

	verdict := o.validator.Validate(compliance.Input{
		Narrative:      payload.Narrative,
		Citations:      payload.RegulatoryCitations,
		CustomerName:   c.Customer().Name,
		RiskIndicators: risk.KeyIndicators,
	})
	if !verdict.Valid {
		return nil, agentmodels.HardFail(agentmodels.StageCompliance, &ViolationError{
			CaseID:     c.ID(),
			Violations: verdict.Errors,
			Warnings:   verdict.Warnings,
		})
	}

	res, err := agentmodels.NewNarrativeResult(ctx, payload)
	if err != nil {
		return nil, agentmodels.Fallback(agentmodels.StageSchema, err)
	}
	res.Warnings = verdict.Warnings
	return res, nil
}
