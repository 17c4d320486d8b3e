package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// RoutingMetrics tracks tier routing decisions.
//
// Metrics:
//   - quaestor_routing_decisions_total: decisions by tier and source
//   - quaestor_routing_escalations_total: classifier escalation calls
//   - quaestor_routing_fallbacks_total: classifier failures resolved by fallback
//
// The source label is the reason class (heuristic, classifier, manual,
// enforced), never the full reason: keyword reasons embed the matched
// word and would blow up cardinality.
type RoutingMetrics struct {
	decisions   *prometheus.CounterVec
	escalations prometheus.Counter
	fallbacks   prometheus.Counter
}

// NewRoutingMetrics creates and registers routing metrics with the
// provided registry.
func NewRoutingMetrics(namespace string, registry *prometheus.Registry) *RoutingMetrics {
	rm := &RoutingMetrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routing_decisions_total",
				Help:      "Total routing decisions by tier and decision source",
			},
			[]string{"tier", "source"},
		),

		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_escalations_total",
			Help:      "Total classifier escalation calls for ambiguous queries",
		}),

		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_fallbacks_total",
			Help:      "Total classifier failures resolved by the mid-tier fallback",
		}),
	}

	registry.MustRegister(rm.decisions, rm.escalations, rm.fallbacks)

	return rm
}

// RecordDecision records one routing decision.
func (rm *RoutingMetrics) RecordDecision(tier, reason string) {
	rm.decisions.WithLabelValues(tier, reasonSource(reason)).Inc()

	if strings.HasPrefix(reason, "classifier:") {
		rm.escalations.Inc()
	}
	if strings.HasSuffix(reason, "_fallback") {
		rm.fallbacks.Inc()
	}
}

// reasonSource maps a routing reason to its class: the part before the
// first colon, or the reason itself for colon-free reasons like
// "manual".
func reasonSource(reason string) string {
	if idx := strings.IndexByte(reason, ':'); idx > 0 {
		return reason[:idx]
	}
	if reason == "" {
		return "unknown"
	}
	return reason
}
