package metrics

import (
	"mercator-hq/quaestor/pkg/pricing"

	"github.com/prometheus/client_golang/prometheus"
)

// CostMetrics tracks spending attributed by the usage ledger.
//
// Metrics:
//   - quaestor_cost_eur_total: total cost in EUR by tier
//   - quaestor_tokens_total: total billed tokens by tier, model and direction
type CostMetrics struct {
	costTotal   *prometheus.CounterVec
	tokensTotal *prometheus.CounterVec
}

// NewCostMetrics creates and registers cost metrics with the provided
// registry.
func NewCostMetrics(namespace string, registry *prometheus.Registry) *CostMetrics {
	cm := &CostMetrics{
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cost_eur_total",
				Help:      "Total cost in EUR by tier, from upstream-reported usage",
			},
			[]string{"tier"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Total billed tokens by tier, model and direction",
			},
			[]string{"tier", "model", "direction"},
		),
	}

	registry.MustRegister(cm.costTotal, cm.tokensTotal)

	return cm
}

// RecordUsage records the billed tokens and cost of one request. The
// model is the upstream-reported one, which differs from the tier's
// configured model when a request was rewritten.
func (cm *CostMetrics) RecordUsage(tier, model string, inputTokens, outputTokens int64, cost pricing.MicroEUR) {
	if cost > 0 {
		cm.costTotal.WithLabelValues(tier).Add(cost.EUR())
	}
	if inputTokens > 0 {
		cm.tokensTotal.WithLabelValues(tier, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		cm.tokensTotal.WithLabelValues(tier, model, "output").Add(float64(outputTokens))
	}
}
