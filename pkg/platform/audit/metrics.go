package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit trail.
type Metrics struct {
	Recorded      *prometheus.CounterVec
	SinkFailures  *prometheus.CounterVec
	StoreFailures prometheus.Counter
	SinkLatency   *prometheus.HistogramVec
}

// NewMetrics registers audit metrics on reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Recorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sarflow_audit_entries_total",
			Help: "Total number of audit entries recorded",
		}, []string{"agent_type", "success"}),
		SinkFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sarflow_audit_sink_failures_total",
			Help: "Total number of failed writes to a durable audit sink",
		}, []string{"sink"}),
		StoreFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "sarflow_audit_store_failures_total",
			Help: "Total number of failed appends to the in-process audit store",
		}),
		SinkLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sarflow_audit_sink_write_duration_seconds",
			Help:    "Time spent writing one entry to a durable sink",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"sink"}),
	}
}

func (m *Metrics) IncRecorded(agent AgentType, success bool) {
	if m == nil {
		return
	}
	label := "false"
	if success {
		label = "true"
	}
	m.Recorded.WithLabelValues(string(agent), label).Inc()
}

func (m *Metrics) IncSinkFailure(sink string) {
	if m == nil {
		return
	}
	m.SinkFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncStoreFailure() {
	if m == nil {
		return
	}
	m.StoreFailures.Inc()
}

func (m *Metrics) ObserveSinkWrite(sink string, seconds float64) {
	if m == nil {
		return
	}
	m.SinkLatency.WithLabelValues(sink).Observe(seconds)
}
