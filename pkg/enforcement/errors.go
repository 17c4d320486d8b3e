package enforcement

import (
	"fmt"

	"mercator-hq/quaestor/pkg/ledger"
	"mercator-hq/quaestor/pkg/pricing"
)

// BudgetExceededError indicates a request declined because the monthly
// budget is exhausted and the configured mode is reject. No upstream call
// is made and nothing is recorded for the declined request.
type BudgetExceededError struct {
	// Spent is monthly spending at evaluation time, micro-EUR.
	Spent pricing.MicroEUR

	// Limit is the effective monthly limit (base budget + rollover).
	Limit pricing.MicroEUR

	// DaysUntilReset is the number of whole days until the monthly
	// window rolls over.
	DaysUntilReset int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("monthly budget exhausted: spent %s of %s, resets in %d days",
		e.Spent, e.Limit, e.DaysUntilReset)
}

// NewBudgetExceededError builds the error from a budget snapshot.
func NewBudgetExceededError(status *ledger.BudgetStatus) *BudgetExceededError {
	return &BudgetExceededError{
		Spent:          status.MonthlySpent,
		Limit:          status.MonthlyLimit,
		DaysUntilReset: status.DaysUntilReset,
	}
}
