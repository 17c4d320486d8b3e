// Quaestor is a local budget-enforcing proxy for the Anthropic API.
//
// It sits between a CLI client and the Anthropic Messages API, providing:
//   - Cost-based routing of each query to the cheapest capable model tier
//   - Daily and monthly budget tracking with month-to-month rollover
//   - Forced downgrades and rejections once limits are reached
//   - Transparent streaming passthrough with per-request cost accounting
//   - A SQLite usage ledger with scheduled retention
//
// Usage:
//
//	# Start the proxy with default configuration
//	quaestor run
//
//	# Start with a custom configuration file
//	quaestor run --config /path/to/quaestor.yaml
//
//	# Show the current budget status
//	quaestor status
//
//	# List recent usage
//	quaestor usage --limit 20
//
//	# Show version information
//	quaestor version
//
// For complete documentation, see: https://github.com/mercator-hq/quaestor
package main

func main() {
	Execute()
}
