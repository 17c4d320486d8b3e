package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs ledger maintenance on a cron schedule ("0 3 * * *" is
// the default, daily at 03:00). An empty schedule disables it.
type Scheduler struct {
	pruner *Pruner
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	entry   cron.EntryID
	running bool
}

// NewScheduler creates a scheduler driving the given pruner.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		cron:   cron.New(),
		logger: slog.Default().With("component", "ledger.scheduler"),
	}
}

// Start schedules maintenance runs and begins ticking. The scheduler
// stops itself when ctx is canceled. With no schedule configured, Start
// is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := s.pruner.config.Schedule
	if schedule == "" {
		s.logger.Info("maintenance schedule not configured, skipping scheduler")
		return nil
	}

	id, err := s.cron.AddFunc(schedule, func() { s.runMaintenance(ctx) })
	if err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	s.entry = id

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", schedule,
		"retention_days", s.pruner.config.RetentionDays,
		"next_run", s.cron.Entry(id).Next,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) runMaintenance(ctx context.Context) {
	deleted, err := s.pruner.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled maintenance failed", "error", err)
		return
	}
	s.logger.Info("scheduled maintenance completed", "deleted_count", deleted)
}

// Stop halts the schedule and waits for a running maintenance job to
// finish. Safe to call repeatedly, or before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether the schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the time of the next scheduled maintenance run, nil
// when nothing is scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}
