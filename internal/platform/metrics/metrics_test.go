package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementCases("completed")
	m.IncrementCases("completed")
	m.IncrementCases("manual_review")
	m.ObserveRequest("POST", "/cases", 200, 0.25)
	m.ObserveBatch(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CasesProcessed.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CasesProcessed.WithLabelValues("manual_review")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.BatchDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementCases("failed")
		m.ObserveBatch(1)
		m.ObserveRequest("GET", "/health", 200, 0.01)
	})
}
