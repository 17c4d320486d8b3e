package ledger

import (
	"context"
	"time"

	"mercator-hq/quaestor/pkg/pricing"
)

// Store is the persistence interface the ledger runs on. Implementations
// must be safe for concurrent use and must serialize usage commits; methods
// return *StorageError on failure.
type Store interface {
	// AppendUsage appends one usage record. Records are never updated.
	AppendUsage(ctx context.Context, rec *UsageRecord) error

	// SumCost returns the total cost of usage records inside w.
	SumCost(ctx context.Context, w Window) (pricing.MicroEUR, error)

	// SpentInWindows returns the usage sums for two windows from a single
	// consistent snapshot.
	SpentInWindows(ctx context.Context, daily, monthly Window) (pricing.MicroEUR, pricing.MicroEUR, error)

	// RecentUsage returns up to limit records, newest first.
	RecentUsage(ctx context.Context, limit int) ([]*UsageRecord, error)

	// GetPeriod returns the period row for (kind, start), or nil when none
	// has been persisted yet.
	GetPeriod(ctx context.Context, kind PeriodKind, start time.Time) (*BudgetPeriod, error)

	// PutPeriod inserts or replaces a period row.
	PutPeriod(ctx context.Context, p *BudgetPeriod) error

	// PruneUsageBefore deletes usage records older than cutoff and returns
	// how many were removed. Retention is the only sanctioned delete path.
	PruneUsageBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the store. The store must not be used afterwards.
	Close() error
}
