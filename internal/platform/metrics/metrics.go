package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-level Prometheus metrics: case throughput and
// HTTP latency.
type Metrics struct {
	CasesProcessed  *prometheus.CounterVec
	BatchDuration   prometheus.Histogram
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers the metrics on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		CasesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sarflow_cases_processed_total",
			Help: "Cases run through the pipeline by outcome",
		}, []string{"outcome"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sarflow_batch_duration_seconds",
			Help:    "Wall time of one batch run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sarflow_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// IncrementCases counts one processed case.
func (m *Metrics) IncrementCases(outcome string) {
	if m == nil {
		return
	}
	m.CasesProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBatch(seconds float64) {
	if m == nil {
		return
	}
	m.BatchDuration.Observe(seconds)
}

func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}
