package enforcement

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/quaestor/pkg/ledger"
	"mercator-hq/quaestor/pkg/pricing"
)

// Enforcer evaluates budget status against the enforcement policy.
//
// The Enforcer never performs I/O: callers fetch a BudgetStatus from the
// ledger and hand it in, so evaluation stays cheap and deterministic.
// It is safe for concurrent use; the policy can be swapped at runtime
// via Update (hot reload).
type Enforcer struct {
	logger *slog.Logger

	mu      sync.Mutex
	config  Config
	alerted map[string]time.Time // threshold -> period start already alerted
}

// NewEnforcer creates a new budget enforcer.
//
// Example:
//
//	enforcer := NewEnforcer(Config{
//	    OnMonthlyExhausted: ActionReject,
//	})
func NewEnforcer(config Config) *Enforcer {
	return &Enforcer{
		config:  config.withDefaults(),
		logger:  slog.Default().With("component", "enforcement"),
		alerted: make(map[string]time.Time),
	}
}

// Update replaces the enforcement policy (hot-reload support).
func (e *Enforcer) Update(config Config) {
	e.mu.Lock()
	e.config = config.withDefaults()
	e.mu.Unlock()
}

// Evaluate decides the fate of one request given current budget status.
//
// manualOverride marks an explicit caller tier choice; it wins over daily
// hard-limit forcing but not over monthly exhaustion. estimate, when
// present, is attached to decision logs only: thresholds are judged on
// actual spending, never on projections.
//
// A nil status allows the request: when the ledger cannot be read the
// gateway stays available rather than guessing at limits.
func (e *Enforcer) Evaluate(status *ledger.BudgetStatus, estimate *pricing.Estimate, manualOverride bool) *Result {
	if status == nil {
		e.logger.Warn("no budget status available, allowing request unchecked")
		return &Result{Action: ActionAllow}
	}

	cfg := e.Config()

	res := &Result{
		Action: ActionAllow,
		Alerts: e.raiseAlerts(cfg, status),
	}

	if status.MonthlyExhausted() {
		if cfg.OnMonthlyExhausted == ActionReject {
			res.Action = ActionReject
		} else {
			res.Action = ActionDowngrade
			res.Tier = pricing.TierCheap
		}
		res.Reason = ReasonMonthlyExhausted
		e.logDecision(res, status, estimate, manualOverride)
		return res
	}

	if status.DailyHardExceeded() && !manualOverride {
		res.Action = ActionForceCheap
		res.Tier = pricing.TierCheap
		res.Reason = ReasonDailyHardLimit
		e.logDecision(res, status, estimate, manualOverride)
		return res
	}

	if len(res.Alerts) > 0 {
		res.Action = ActionAlert
	}
	return res
}

// Config returns the effective enforcer configuration.
func (e *Enforcer) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// raiseAlerts returns threshold crossings not yet alerted for their
// period. Each threshold warns at most once per day or month; the current
// percentages stay visible on the BudgetStatus regardless.
func (e *Enforcer) raiseAlerts(cfg Config, status *ledger.BudgetStatus) []string {
	threshold := cfg.AlertFraction * 100

	var alerts []string

	day := ledger.DailyWindow(status.Timestamp).Start
	if !cfg.DisableDailyAlert && status.DailySoftLimit > 0 && status.DailyPercent >= threshold && e.firstCrossing("daily_soft", day) {
		alerts = append(alerts, fmt.Sprintf("daily spending at %.0f%% of soft limit (%s of %s)",
			status.DailyPercent, status.DailySpent, status.DailySoftLimit))
		e.logger.Warn("budget alert",
			"threshold", "daily_soft",
			"percent", status.DailyPercent,
			"spent", status.DailySpent.String(),
			"limit", status.DailySoftLimit.String(),
		)
	}

	month := ledger.MonthlyWindow(status.Timestamp).Start
	if !cfg.DisableMonthlyAlert && status.MonthlyLimit > 0 && status.MonthlyPercent >= threshold && e.firstCrossing("monthly", month) {
		alerts = append(alerts, fmt.Sprintf("monthly spending at %.0f%% of budget (%s of %s)",
			status.MonthlyPercent, status.MonthlySpent, status.MonthlyLimit))
		e.logger.Warn("budget alert",
			"threshold", "monthly",
			"percent", status.MonthlyPercent,
			"spent", status.MonthlySpent.String(),
			"limit", status.MonthlyLimit.String(),
		)
	}

	return alerts
}

// firstCrossing records that threshold alerted for the period starting at
// start and reports whether this was the first time for that period.
func (e *Enforcer) firstCrossing(threshold string, start time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prev, ok := e.alerted[threshold]; ok && prev.Equal(start) {
		return false
	}
	e.alerted[threshold] = start
	return true
}

func (e *Enforcer) logDecision(res *Result, status *ledger.BudgetStatus, estimate *pricing.Estimate, manualOverride bool) {
	attrs := []any{
		"action", string(res.Action),
		"reason", res.Reason,
		"daily_spent", status.DailySpent.String(),
		"daily_hard_limit", status.DailyHardLimit.String(),
		"monthly_spent", status.MonthlySpent.String(),
		"monthly_limit", status.MonthlyLimit.String(),
		"manual_override", manualOverride,
	}
	if estimate != nil {
		attrs = append(attrs,
			"estimated_cost_min", estimate.CostMin.String(),
			"estimated_cost_max", estimate.CostMax.String(),
		)
	}
	e.logger.Warn("budget enforcement applied", attrs...)
}
