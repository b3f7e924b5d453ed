package facade

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts and times facade calls by entity, operation and outcome.
type Metrics struct {
	duration *prometheus.HistogramVec
	calls    *prometheus.CounterVec
}

// NewMetrics registers the facade metrics on reg. A nil registerer yields a no-op collector.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "facade_call_duration_seconds",
		Help:    "Duration of data access calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity", "op"})
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facade_calls_total",
		Help: "Data access calls by outcome.",
	}, []string{"entity", "op", "outcome"})
	reg.MustRegister(duration, calls)
	return &Metrics{duration: duration, calls: calls}
}

func (m *Metrics) observe(entity string, op Op, started time.Time, err error) {
	if m == nil || m.calls == nil {
		return
	}
	m.duration.WithLabelValues(entity, string(op)).Observe(time.Since(started).Seconds())
	m.calls.WithLabelValues(entity, string(op), outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return errorLabel(err)
}
