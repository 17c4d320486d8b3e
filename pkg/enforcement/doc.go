// Package enforcement decides what happens to a request given current
// budget spending.
//
// # Overview
//
// The enforcement package defines what happens when budget limits are
// reached:
//
//   - Allow: Proceed as routed
//   - Downgrade: Monthly budget exhausted, force the cheap tier
//   - ForceCheap: Daily hard limit reached, force the cheap tier
//   - Reject: Monthly budget exhausted and configuration says decline
//   - Alert: Proceed as routed, but an alert threshold was crossed
//
// # Usage
//
//	enforcer := enforcement.NewEnforcer(enforcement.Config{
//	    OnMonthlyExhausted: enforcement.ActionDowngrade,
//	})
//
//	result := enforcer.Evaluate(status, estimate, manualOverride)
//	switch result.Action {
//	case enforcement.ActionReject:
//	    // decline with 402, no upstream call
//	case enforcement.ActionDowngrade, enforcement.ActionForceCheap:
//	    // forward on result.Tier with result.Reason
//	default:
//	    // forward as routed
//	}
//
// Alerts never block: they are logged once per period threshold and
// returned on the Result for metrics.
//
// # Thread Safety
//
// The Enforcer is thread-safe and can be used concurrently from multiple
// goroutines.
package enforcement
