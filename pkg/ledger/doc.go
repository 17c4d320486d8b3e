// Package ledger provides the durable spend ledger behind quaestor's budget
// enforcement: an append-only record of every billable API call and the
// budget periods spending is judged against.
//
// # Model
//
// Every completed upstream call appends one immutable UsageRecord (token
// counts, cost in micro-EUR, routing reason, 100-char query preview).
// Spending for a period is always derived by summing records inside the
// period's window; it is never incremented in place, so the ledger cannot
// drift from its own history.
//
// # Periods
//
// Budget periods are calendar-aligned, half-open UTC windows:
//
//   - daily:   [00:00 today, 00:00 tomorrow)
//   - monthly: [1st 00:00 this month, 1st 00:00 next month)
//
// Monthly periods carry a rollover credit from the previous month:
//
//	rollover = clamp(prevBudget − prevSpent, 0, prevBudget × maxRolloverFraction)
//
// The rollover is computed once, when the month's period row is first
// ensured, and persisted so restarts agree on the effective limit.
//
// # Concurrency
//
// Record commits are serialized by the store (single SQLite writer
// connection); Status reads take a consistent snapshot. All operations are
// safe for concurrent use.
//
// # Usage
//
//	store, err := storage.Open(storage.Config{Path: dbPath})
//	led := ledger.New(store, cfg, logger)
//
//	err = led.Record(ctx, &ledger.UsageRecord{
//	    Tier: pricing.TierCheap, Model: model,
//	    InputTokens: in, OutputTokens: out, Cost: cost,
//	    RoutedBy: "heuristic:short_message",
//	})
//
//	status, err := led.Status(ctx, time.Now())
package ledger
