package metrics

import (
	"time"

	"mercator-hq/quaestor/pkg/ledger"
	"mercator-hq/quaestor/pkg/pricing"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the orchestrator for all Prometheus metrics in Quaestor.
// It owns a private registry so metric registration never clashes with
// other libraries, and provides a unified recording interface for the
// gateway handlers.
//
// A nil *Collector is valid and records nothing, so callers never need
// to branch on whether metrics are enabled.
type Collector struct {
	registry *prometheus.Registry

	requests *RequestMetrics
	routing  *RoutingMetrics
	cost     *CostMetrics
	budget   *BudgetMetrics

	storageErrors   prometheus.Counter
	upstreamRetries prometheus.Counter
}

// NewCollector creates a metrics collector with a private registry.
// All metric names are prefixed with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requests: NewRequestMetrics(namespace, registry),
		routing:  NewRoutingMetrics(namespace, registry),
		cost:     NewCostMetrics(namespace, registry),
		budget:   NewBudgetMetrics(namespace, registry),

		storageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Total ledger storage failures; responses still complete when these occur",
		}),
		upstreamRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Total retries of rate-limited upstream requests",
		}),
	}

	registry.MustRegister(c.storageErrors, c.upstreamRetries)

	return c
}

// Registry returns the private Prometheus registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRequest records one completed gateway request.
func (c *Collector) RecordRequest(tier, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.requests.RecordRequest(tier, outcome, duration)
}

// RecordFirstByte records the upstream time to first byte.
func (c *Collector) RecordFirstByte(tier string, latency time.Duration) {
	if c == nil {
		return
	}
	c.requests.RecordFirstByte(tier, latency)
}

// RecordDecision records one routing decision.
func (c *Collector) RecordDecision(tier, reason string) {
	if c == nil {
		return
	}
	c.routing.RecordDecision(tier, reason)
}

// RecordUsage records billed tokens and cost for one request.
func (c *Collector) RecordUsage(tier, model string, inputTokens, outputTokens int64, cost pricing.MicroEUR) {
	if c == nil {
		return
	}
	c.cost.RecordUsage(tier, model, inputTokens, outputTokens, cost)
}

// RecordBudget updates the budget gauges from a status snapshot.
func (c *Collector) RecordBudget(status *ledger.BudgetStatus) {
	if c == nil || status == nil {
		return
	}
	c.budget.RecordStatus(status)
}

// RecordAlerts counts raised budget threshold alerts.
func (c *Collector) RecordAlerts(alerts []string) {
	if c == nil {
		return
	}
	c.budget.RecordAlerts(alerts)
}

// RecordStorageError counts one ledger storage failure.
func (c *Collector) RecordStorageError() {
	if c == nil {
		return
	}
	c.storageErrors.Inc()
}

// RecordUpstreamRetry counts one retry of a rate-limited upstream call.
func (c *Collector) RecordUpstreamRetry() {
	if c == nil {
		return
	}
	c.upstreamRetries.Inc()
}
