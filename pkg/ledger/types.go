package ledger

import (
	"errors"
	"strings"
	"time"

	"mercator-hq/quaestor/pkg/pricing"
)

// Validation errors returned by UsageRecord.Validate.
var (
	ErrNoID         = errors.New("usage record has no id")
	ErrNoTimestamp  = errors.New("usage record has no timestamp")
	ErrInvalidTier  = errors.New("usage record has invalid tier")
	ErrNoModel      = errors.New("usage record has no model")
	ErrNegativeCost = errors.New("usage record has negative cost or tokens")
)

// PreviewLimit is the maximum length of a stored query preview, in runes.
const PreviewLimit = 100

// UsageRecord is one immutable ledger entry for a billable API call.
// Records are append-only: once written they are never updated, and only
// retention pruning may remove them.
type UsageRecord struct {
	// ID is a UUID assigned at commit time.
	ID string `json:"id"`

	// Timestamp is the commit time in UTC.
	Timestamp time.Time `json:"timestamp"`

	// Tier is the routing tier the call was billed under.
	Tier pricing.Tier `json:"tier"`

	// Model is the concrete model ID reported by the upstream response.
	Model string `json:"model"`

	// InputTokens and OutputTokens are upstream-reported counts.
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`

	// Cost is the call cost in micro-EUR.
	Cost pricing.MicroEUR `json:"cost_micro_eur"`

	// RoutedBy is the routing reason tag (heuristic:short_message,
	// classifier:escalate, manual, ...).
	RoutedBy string `json:"routed_by"`

	// QueryPreview is the first PreviewLimit runes of the user query,
	// collapsed to a single line. Never the full content.
	QueryPreview string `json:"query_preview,omitempty"`
}

// Validate checks the record is complete enough to commit.
func (r *UsageRecord) Validate() error {
	switch {
	case r.ID == "":
		return ErrNoID
	case r.Timestamp.IsZero():
		return ErrNoTimestamp
	case !r.Tier.Valid():
		return ErrInvalidTier
	case r.Model == "":
		return ErrNoModel
	case r.Cost < 0 || r.InputTokens < 0 || r.OutputTokens < 0:
		return ErrNegativeCost
	}
	return nil
}

// SanitizePreview collapses text to a single line and truncates it to
// PreviewLimit runes for storage as a query preview.
func SanitizePreview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > PreviewLimit {
		return string(runes[:PreviewLimit])
	}
	return text
}

// PeriodKind distinguishes daily from monthly budget periods.
type PeriodKind string

const (
	// PeriodDaily is a calendar-day period.
	PeriodDaily PeriodKind = "daily"

	// PeriodMonthly is a calendar-month period.
	PeriodMonthly PeriodKind = "monthly"
)

// Window is a half-open UTC time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && t.Before(w.End)
}

// DailyWindow returns the calendar-day window containing now, in UTC.
func DailyWindow(now time.Time) Window {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// MonthlyWindow returns the calendar-month window containing now, in UTC.
func MonthlyWindow(now time.Time) Window {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// PreviousMonthlyWindow returns the calendar-month window before the one
// containing now.
func PreviousMonthlyWindow(now time.Time) Window {
	cur := MonthlyWindow(now)
	return Window{Start: cur.Start.AddDate(0, -1, 0), End: cur.Start}
}

// DaysUntilMonthlyReset returns the number of whole days from now until the
// first of the next month, UTC.
func DaysUntilMonthlyReset(now time.Time) int {
	end := MonthlyWindow(now).End
	return int(end.Sub(now.UTC()).Hours() / 24)
}

// BudgetPeriod is a persisted budget window. Spending is never stored on the
// period; it is derived from usage records inside [Start, End).
type BudgetPeriod struct {
	// Kind is daily or monthly.
	Kind PeriodKind `json:"kind"`

	// Start and End bound the half-open UTC window.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Limit is the base budget for the period in micro-EUR. For daily
	// periods this is the hard limit.
	Limit pricing.MicroEUR `json:"limit_micro_eur"`

	// RolloverIn is unused budget carried in from the previous period.
	// Always zero for daily periods.
	RolloverIn pricing.MicroEUR `json:"rollover_in_micro_eur"`
}

// BudgetStatus is a derived snapshot of current spending against limits.
// Percentages are against effective limits (monthly base + rollover).
type BudgetStatus struct {
	// Timestamp is when the snapshot was taken (UTC).
	Timestamp time.Time `json:"timestamp"`

	DailySpent     pricing.MicroEUR `json:"daily_spent_micro_eur"`
	DailySoftLimit pricing.MicroEUR `json:"daily_soft_limit_micro_eur"`
	DailyHardLimit pricing.MicroEUR `json:"daily_hard_limit_micro_eur"`
	DailyRemaining pricing.MicroEUR `json:"daily_remaining_micro_eur"`
	DailyPercent   float64          `json:"daily_percent"`

	MonthlySpent     pricing.MicroEUR `json:"monthly_spent_micro_eur"`
	MonthlyBudget    pricing.MicroEUR `json:"monthly_budget_micro_eur"`
	MonthlyRollover  pricing.MicroEUR `json:"monthly_rollover_micro_eur"`
	MonthlyLimit     pricing.MicroEUR `json:"monthly_limit_micro_eur"`
	MonthlyRemaining pricing.MicroEUR `json:"monthly_remaining_micro_eur"`
	MonthlyPercent   float64          `json:"monthly_percent"`

	// DaysUntilReset is the number of whole days until the monthly window
	// rolls over.
	DaysUntilReset int `json:"days_until_reset"`
}

// DailyHardExceeded reports whether daily spending has reached the hard limit.
func (s *BudgetStatus) DailyHardExceeded() bool {
	return s.DailyHardLimit > 0 && s.DailySpent >= s.DailyHardLimit
}

// MonthlyExhausted reports whether monthly spending has reached the
// effective monthly limit.
func (s *BudgetStatus) MonthlyExhausted() bool {
	return s.MonthlyLimit > 0 && s.MonthlySpent >= s.MonthlyLimit
}

// percent returns spent/limit as a percentage, 0 when the limit is unset.
func percent(spent, limit pricing.MicroEUR) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(spent) / float64(limit) * 100
}
