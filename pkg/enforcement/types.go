package enforcement

import "mercator-hq/quaestor/pkg/pricing"

// Action defines what to do with a request given current spending.
type Action string

const (
	// ActionAllow permits the request to proceed as routed.
	ActionAllow Action = "allow"

	// ActionDowngrade forces the cheap tier because the monthly budget
	// is exhausted and the configured mode is downgrade.
	ActionDowngrade Action = "downgrade"

	// ActionForceCheap forces the cheap tier because the daily hard
	// limit is reached.
	ActionForceCheap Action = "force_cheap"

	// ActionReject declines the request because the monthly budget is
	// exhausted and the configured mode is reject.
	ActionReject Action = "reject"

	// ActionAlert permits the request but reports crossed alert
	// thresholds.
	ActionAlert Action = "alert"
)

// Routing reason tags applied when enforcement overrides the router.
const (
	// ReasonDailyHardLimit tags requests forced cheap by the daily hard
	// limit.
	ReasonDailyHardLimit = "enforced:daily_hard_limit"

	// ReasonMonthlyExhausted tags requests downgraded because the
	// monthly budget is exhausted.
	ReasonMonthlyExhausted = "enforced:monthly_budget_exhausted"
)

// Config contains configuration for the enforcer.
type Config struct {
	// OnMonthlyExhausted is the action when monthly spending reaches the
	// effective monthly limit: ActionDowngrade (default) forces the cheap
	// tier, ActionReject declines requests outright.
	OnMonthlyExhausted Action

	// AlertFraction is the fraction of a limit at which an alert is
	// raised (daily soft and effective monthly). Default 0.8.
	AlertFraction float64

	// DisableDailyAlert turns off the daily soft-limit threshold alert.
	DisableDailyAlert bool

	// DisableMonthlyAlert turns off the monthly threshold alert.
	DisableMonthlyAlert bool
}

// withDefaults fills unset config fields.
func (c Config) withDefaults() Config {
	if c.OnMonthlyExhausted == "" {
		c.OnMonthlyExhausted = ActionDowngrade
	}
	if c.AlertFraction <= 0 || c.AlertFraction > 1 {
		c.AlertFraction = 0.8
	}
	return c
}

// Result contains the outcome of a budget evaluation.
type Result struct {
	// Action is the enforcement decision.
	Action Action

	// Tier is the tier to use instead of the routed one. Only set for
	// ActionDowngrade and ActionForceCheap.
	Tier pricing.Tier

	// Reason is the routing reason tag recorded when the tier was
	// overridden (enforced:daily_hard_limit, ...).
	Reason string

	// Alerts are the threshold crossings newly raised by this
	// evaluation, at most once per period per threshold.
	Alerts []string
}

// Blocked reports whether the request must not be forwarded upstream.
func (r *Result) Blocked() bool {
	return r.Action == ActionReject
}

// Overridden reports whether the routed tier was replaced.
func (r *Result) Overridden() bool {
	return r.Action == ActionDowngrade || r.Action == ActionForceCheap
}
