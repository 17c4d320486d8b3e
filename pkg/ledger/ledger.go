package ledger

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/quaestor/pkg/pricing"
)

// Config contains the budget limits the ledger judges spending against.
// Amounts are micro-EUR.
type Config struct {
	// MonthlyBudget is the base monthly budget (before rollover).
	MonthlyBudget pricing.MicroEUR

	// DailySoftLimit is the daily spending target. Crossing it alerts but
	// never blocks.
	DailySoftLimit pricing.MicroEUR

	// DailyHardLimit is the daily cutoff: once reached, requests are forced
	// to the cheap tier unless manually overridden.
	DailyHardLimit pricing.MicroEUR

	// RolloverEnabled controls whether unused monthly budget carries over.
	RolloverEnabled bool

	// MaxRolloverFraction caps the carried amount as a fraction of the
	// previous month's budget (0..1). Default 0.5.
	MaxRolloverFraction float64
}

// withDefaults fills unset config fields.
func (c Config) withDefaults() Config {
	if c.MaxRolloverFraction <= 0 || c.MaxRolloverFraction > 1 {
		c.MaxRolloverFraction = 0.5
	}
	return c
}

// Ledger tracks API spending against daily and monthly budgets on top of a
// Store. It is safe for concurrent use; budget limits can be swapped at
// runtime via UpdateBudget (hot reload).
type Ledger struct {
	store  Store
	logger *slog.Logger

	mu  sync.RWMutex
	cfg Config
}

// New creates a ledger on store with the given budget config.
// A nil logger falls back to slog.Default.
func New(store Store, cfg Config, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:  store,
		logger: logger.With("component", "ledger"),
		cfg:    cfg.withDefaults(),
	}
}

// UpdateBudget replaces the budget limits (hot-reload support). Persisted
// rollover amounts are unaffected; new limits apply from the next Status.
func (l *Ledger) UpdateBudget(cfg Config) {
	l.mu.Lock()
	l.cfg = cfg.withDefaults()
	l.mu.Unlock()
}

// BudgetConfig returns the current budget limits.
func (l *Ledger) BudgetConfig() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Record commits one usage record. Missing ID and timestamp are filled in,
// the query preview is sanitized and truncated. Returns a validation error
// for malformed records and *StorageError when the store fails; in both
// cases nothing was written.
func (l *Ledger) Record(ctx context.Context, rec *UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	} else {
		rec.Timestamp = rec.Timestamp.UTC()
	}
	rec.QueryPreview = SanitizePreview(rec.QueryPreview)

	if err := rec.Validate(); err != nil {
		return err
	}

	if err := l.store.AppendUsage(ctx, rec); err != nil {
		return err
	}

	l.logger.Debug("usage recorded",
		"id", rec.ID,
		"tier", string(rec.Tier),
		"model", rec.Model,
		"input_tokens", rec.InputTokens,
		"output_tokens", rec.OutputTokens,
		"cost", rec.Cost.String(),
		"routed_by", rec.RoutedBy,
	)
	return nil
}

// Status returns a consistent snapshot of spending against current limits.
// The monthly period (and its rollover) is ensured as a side effect, so the
// first call after a month boundary materializes the new period.
func (l *Ledger) Status(ctx context.Context, now time.Time) (*BudgetStatus, error) {
	now = now.UTC()
	cfg := l.BudgetConfig()

	monthly, err := l.ensureMonthlyPeriod(ctx, now, cfg)
	if err != nil {
		return nil, err
	}
	if err := l.ensureDailyPeriod(ctx, now, cfg); err != nil {
		return nil, err
	}

	dailySpent, monthlySpent, err := l.store.SpentInWindows(ctx, DailyWindow(now), MonthlyWindow(now))
	if err != nil {
		return nil, err
	}

	return buildStatus(now, cfg, monthly.RolloverIn, dailySpent, monthlySpent), nil
}

// Snapshot derives a budget status without writing anything, for
// read-only consumers like the status CLI. A monthly period that was
// never materialized contributes zero rollover.
func (l *Ledger) Snapshot(ctx context.Context, now time.Time) (*BudgetStatus, error) {
	now = now.UTC()
	cfg := l.BudgetConfig()

	var rollover pricing.MicroEUR
	p, err := l.store.GetPeriod(ctx, PeriodMonthly, MonthlyWindow(now).Start)
	if err != nil {
		return nil, err
	}
	if p != nil {
		rollover = p.RolloverIn
	}

	dailySpent, monthlySpent, err := l.store.SpentInWindows(ctx, DailyWindow(now), MonthlyWindow(now))
	if err != nil {
		return nil, err
	}

	return buildStatus(now, cfg, rollover, dailySpent, monthlySpent), nil
}

// buildStatus assembles a snapshot from limits, persisted rollover, and
// spend sums. Live config wins for limits; the persisted row only
// contributes the rollover decided at month start.
func buildStatus(now time.Time, cfg Config, rollover, dailySpent, monthlySpent pricing.MicroEUR) *BudgetStatus {
	effective := cfg.MonthlyBudget + rollover

	return &BudgetStatus{
		Timestamp: now,

		DailySpent:     dailySpent,
		DailySoftLimit: cfg.DailySoftLimit,
		DailyHardLimit: cfg.DailyHardLimit,
		DailyRemaining: cfg.DailySoftLimit - dailySpent,
		DailyPercent:   percent(dailySpent, cfg.DailySoftLimit),

		MonthlySpent:     monthlySpent,
		MonthlyBudget:    cfg.MonthlyBudget,
		MonthlyRollover:  rollover,
		MonthlyLimit:     effective,
		MonthlyRemaining: effective - monthlySpent,
		MonthlyPercent:   percent(monthlySpent, effective),

		DaysUntilReset: DaysUntilMonthlyReset(now),
	}
}

// Recent returns up to limit usage records, newest first. A non-positive
// limit defaults to 20; limits above 1000 are clamped.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]*UsageRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 1000 {
		limit = 1000
	}
	return l.store.RecentUsage(ctx, limit)
}

// EnsurePeriods materializes the daily and monthly period rows for now.
// Called lazily by Status and eagerly by the maintenance job so rollover is
// decided promptly at month boundaries.
func (l *Ledger) EnsurePeriods(ctx context.Context, now time.Time) error {
	now = now.UTC()
	cfg := l.BudgetConfig()
	if _, err := l.ensureMonthlyPeriod(ctx, now, cfg); err != nil {
		return err
	}
	return l.ensureDailyPeriod(ctx, now, cfg)
}

// Prune removes usage records older than cutoff. Returns the number removed.
func (l *Ledger) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	return l.store.PruneUsageBefore(ctx, cutoff.UTC())
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}

// ensureMonthlyPeriod returns the persisted monthly period for now,
// creating it (and deciding its rollover) on first sight of the month.
func (l *Ledger) ensureMonthlyPeriod(ctx context.Context, now time.Time, cfg Config) (*BudgetPeriod, error) {
	w := MonthlyWindow(now)

	p, err := l.store.GetPeriod(ctx, PeriodMonthly, w.Start)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	var rollover pricing.MicroEUR
	if cfg.RolloverEnabled {
		prev := PreviousMonthlyWindow(now)

		// The previous month's base budget caps the carry. Prefer the
		// persisted row: limits may have changed since.
		prevLimit := cfg.MonthlyBudget
		if prevRow, err := l.store.GetPeriod(ctx, PeriodMonthly, prev.Start); err != nil {
			return nil, err
		} else if prevRow != nil {
			prevLimit = prevRow.Limit
		}

		prevSpent, err := l.store.SumCost(ctx, prev)
		if err != nil {
			return nil, err
		}
		rollover = computeRollover(prevLimit, prevSpent, cfg.MaxRolloverFraction)
	}

	p = &BudgetPeriod{
		Kind:       PeriodMonthly,
		Start:      w.Start,
		End:        w.End,
		Limit:      cfg.MonthlyBudget,
		RolloverIn: rollover,
	}
	if err := l.store.PutPeriod(ctx, p); err != nil {
		return nil, err
	}

	l.logger.Info("monthly budget period opened",
		"start", p.Start.Format("2006-01-02"),
		"budget", p.Limit.String(),
		"rollover", p.RolloverIn.String(),
	)
	return p, nil
}

// ensureDailyPeriod persists the daily period row for now if absent.
func (l *Ledger) ensureDailyPeriod(ctx context.Context, now time.Time, cfg Config) error {
	w := DailyWindow(now)

	p, err := l.store.GetPeriod(ctx, PeriodDaily, w.Start)
	if err != nil {
		return err
	}
	if p != nil {
		return nil
	}

	return l.store.PutPeriod(ctx, &BudgetPeriod{
		Kind:  PeriodDaily,
		Start: w.Start,
		End:   w.End,
		Limit: cfg.DailyHardLimit,
	})
}

// computeRollover applies the carry-over rule: unused budget from the
// previous month, floored at zero (overspend never debts the new month) and
// capped at a fraction of the previous month's base budget.
func computeRollover(prevLimit, prevSpent pricing.MicroEUR, fraction float64) pricing.MicroEUR {
	if prevLimit <= 0 {
		return 0
	}
	maxCarry := prevLimit.MulFrac(int64(math.Round(fraction*1000)), 1000)
	return (prevLimit - prevSpent).Clamp(0, maxCarry)
}
