// internal/app/system/apiclient/metrics.go
package apiclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records backend call counts and latencies.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ratingboard",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Backend API requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ratingboard",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Backend API request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

func (m *Metrics) observe(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, outcomeLabel(err)).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
