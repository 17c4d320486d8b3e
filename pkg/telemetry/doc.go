// Package telemetry groups the observability support for the budget
// gateway.
//
// # Components
//
//   - logging: slog setup with component loggers and credential redaction
//   - metrics: Prometheus collector behind a private registry
//
// # Usage
//
//	// Install the process-wide logger
//	logging.Setup(cfg.Logging, os.Stdout)
//	logger := logging.ForComponent("router")
//
//	// Collect and expose metrics
//	collector := metrics.NewCollector("quaestor")
//	collector.RecordRequest("cheap", "complete", elapsed)
//	mux.Handle("/metrics", collector.Handler())
//
// Credentials never reach the log stream: header dumps go through
// logging.RedactHeaders first. The collector accepts a nil receiver on
// every Record method, so callers fan out measurements unconditionally
// and metrics can be switched off by wiring no collector at all.
package telemetry
