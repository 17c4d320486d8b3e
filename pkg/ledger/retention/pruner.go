package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/quaestor/pkg/ledger"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain usage records.
	// 0 means keep records forever (no pruning).
	RetentionDays int

	// Schedule is a cron expression for scheduling maintenance runs.
	// Example: "0 3 * * *" (daily at 3 AM)
	Schedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 365,
		Schedule:      "0 3 * * *",
	}
}

// Pruner enforces the retention policy on the usage ledger. Each
// maintenance cycle also ensures the current budget period rows exist,
// which materializes the monthly rollover shortly after a period
// boundary instead of waiting for the next request.
type Pruner struct {
	ledger    *ledger.Ledger
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a new retention pruner.
func NewPruner(led *ledger.Ledger, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	pruner := &Pruner{
		ledger: led,
		config: config,
		logger: slog.Default().With("component", "ledger.retention"),
	}

	pruner.scheduler = NewScheduler(pruner)

	return pruner
}

// Run executes one maintenance cycle.
//
// Maintenance happens in two phases:
// 1. Period upkeep: ensure the current daily and monthly period rows exist
// 2. Age-based pruning: delete records older than retention_days
//
// Returns the number of records deleted.
func (p *Pruner) Run(ctx context.Context) (int64, error) {
	now := time.Now().UTC()

	if err := p.ledger.EnsurePeriods(ctx, now); err != nil {
		return 0, fmt.Errorf("ensure budget periods failed: %w", err)
	}

	if p.config.RetentionDays <= 0 {
		p.logger.Debug("retention disabled, keeping all records")
		return 0, nil
	}

	cutoff := now.AddDate(0, 0, -p.config.RetentionDays)

	p.logger.Debug("pruning by age",
		"cutoff_time", cutoff,
		"retention_days", p.config.RetentionDays,
	)

	deleted, err := p.ledger.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune by age failed: %w", err)
	}

	if deleted > 0 {
		p.logger.Info("pruned usage records by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	} else {
		p.logger.Debug("no records pruned",
			"retention_days", p.config.RetentionDays,
		)
	}

	return deleted, nil
}

// Start starts the automatic maintenance scheduler.
// Call this when starting the application.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic maintenance scheduler.
// Call this during graceful shutdown.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextRun returns the time of the next scheduled maintenance run.
func (p *Pruner) NextRun() *time.Time {
	return p.scheduler.NextRun()
}
