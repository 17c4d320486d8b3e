// Package retention provides retention policy enforcement for the usage
// ledger.
//
// # Retention Policy
//
// The retention package runs periodic ledger maintenance:
//
//   - Usage records older than the retention period are deleted
//   - Current budget period rows are materialized, so month rollover is
//     computed promptly after a period boundary even when no request
//     arrives for a while
//
// # Basic Usage
//
//	// Create retention pruner
//	pruner := retention.NewPruner(led, &retention.Config{
//	    RetentionDays: 365,
//	    Schedule:      "0 3 * * *", // Daily at 3 AM
//	})
//
//	// Start background maintenance
//	if err := pruner.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer pruner.Stop()
//
// # Manual Maintenance
//
// A maintenance cycle can also be triggered manually:
//
//	deleted, err := pruner.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Printf("Deleted %d old usage records", deleted)
//
// # Retention Period
//
// The retention period is specified in days:
//
//   - 0 days: Keep records forever (no pruning)
//   - 90 days: Delete records older than 90 days
//   - 365 days: Delete records older than 1 year (default)
//
// # Scheduling
//
// Maintenance runs on a cron schedule:
//
//   - "0 3 * * *": Daily at 3 AM (default)
//   - "0 0 * * 0": Weekly on Sunday at midnight
//   - "*/1 * * * *": Every minute (testing only)
//
// If no schedule is configured (empty Schedule), the scheduler does
// nothing and Start() returns immediately without error.
package retention
