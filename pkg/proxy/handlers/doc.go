// Package handlers implements the HTTP endpoints of the budget gateway.
//
//   - MessagesHandler: POST /v1/messages, the proxy endpoint. Routes the
//     request to a tier, enforces budget policy, forwards upstream with
//     the model field rewritten, relays the response, and commits a usage
//     record for every billable completion.
//   - BudgetHandler: GET /v1/budget, the current budget snapshot.
//   - UsageHandler: GET /v1/usage, recent usage records.
//   - HealthHandler: GET /health, liveness.
//
// Handlers depend on narrow interfaces (UsageLedger, Upstream, Metrics)
// so tests can substitute fakes without touching SQLite or the network.
package handlers
