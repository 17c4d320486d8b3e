package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks gateway request processing.
//
// Metrics:
//   - quaestor_requests_total: request count by tier and outcome
//   - quaestor_request_duration_seconds: full request duration histogram
//   - quaestor_first_byte_seconds: upstream time-to-first-byte histogram
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	firstByte       *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics with the
// provided registry.
func NewRequestMetrics(namespace string, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of proxied requests by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of proxied requests in seconds, streaming included",
				// Completions regularly run for tens of seconds.
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0},
			},
			[]string{"tier"},
		),

		firstByte: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "first_byte_seconds",
				Help:      "Upstream time to first response byte in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"tier"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.firstByte,
	)

	return rm
}

// RecordRequest records one completed request.
func (rm *RequestMetrics) RecordRequest(tier, outcome string, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(tier, outcome).Inc()
	rm.requestDuration.WithLabelValues(tier).Observe(duration.Seconds())
}

// RecordFirstByte records the upstream time to first byte.
func (rm *RequestMetrics) RecordFirstByte(tier string, latency time.Duration) {
	rm.firstByte.WithLabelValues(tier).Observe(latency.Seconds())
}
