// Package metrics provides Prometheus metrics for Quaestor.
//
// The Collector owns a private registry and aggregates four metric
// groups: request processing (counts, duration, time to first byte),
// routing decisions, cost and token accounting, and the current budget
// position. Two standalone counters track ledger storage failures and
// upstream rate-limit retries.
//
// All recording methods are safe on a nil *Collector, so the gateway
// runs unchanged with metrics disabled.
//
// # Usage
//
//	collector := metrics.NewCollector("quaestor")
//	collector.RecordRequest("cheap", "complete", 1200*time.Millisecond)
//	http.Handle("/metrics", collector.Handler())
//
// # Cardinality
//
// Label values are drawn from small fixed sets: tiers (cheap, mid,
// premium), outcomes (complete, failed, blocked, canceled), reason
// classes (heuristic, classifier, manual, enforced), and the configured
// model IDs. Full routing reasons embed matched keywords and never
// become label values.
package metrics
