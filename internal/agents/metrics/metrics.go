// Package metrics exposes Prometheus metrics for the agent pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels the terminal state of one attempt.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFallback Outcome = "fallback"
	OutcomeHardFail Outcome = "hard_fail"
)

// Metrics holds Prometheus metrics for classification and narrative attempts.
type Metrics struct {
	Attempts           *prometheus.CounterVec
	Failures           *prometheus.CounterVec
	Duration           *prometheus.HistogramVec
	GeneratorTokens    *prometheus.CounterVec
	ComplianceWarnings prometheus.Counter
}

// New registers agent metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sarflow_agent_attempts_total",
			Help: "Agent attempts by terminal outcome",
		}, []string{"agent", "outcome"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sarflow_agent_failures_total",
			Help: "Failed agent attempts by pipeline stage",
		}, []string{"agent", "stage"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sarflow_agent_attempt_duration_seconds",
			Help:    "Wall time of one agent attempt including the generator call",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"agent"}),
		GeneratorTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sarflow_generator_tokens_total",
			Help: "Tokens reported by the text generator",
		}, []string{"agent", "direction"}),
		ComplianceWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "sarflow_compliance_warnings_total",
			Help: "Non-blocking compliance warnings raised on accepted narratives",
		}),
	}
}

func (m *Metrics) ObserveAttempt(agent string, outcome Outcome, seconds float64) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(agent, string(outcome)).Inc()
	m.Duration.WithLabelValues(agent).Observe(seconds)
}

func (m *Metrics) IncFailure(agent, stage string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(agent, stage).Inc()
}

func (m *Metrics) AddTokens(agent string, in, out int) {
	if m == nil {
		return
	}
	if in > 0 {
		m.GeneratorTokens.WithLabelValues(agent, "input").Add(float64(in))
	}
	if out > 0 {
		m.GeneratorTokens.WithLabelValues(agent, "output").Add(float64(out))
	}
}

func (m *Metrics) AddComplianceWarnings(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ComplianceWarnings.Add(float64(n))
}
