package automation

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// BudgetResolver selects the budgets applicable to a given date's
// calendar month.
type BudgetResolver struct {
	budgets BudgetSource
}

func NewBudgetResolver(budgets BudgetSource) *BudgetResolver {
	return &BudgetResolver{budgets: budgets}
}

// ResolveBudgets returns every budget of the user whose period key
// matches date's year-month. Budgets with unparseable period keys are
// ignored. A month with no budgets yields an empty slice, not an error.
func (r *BudgetResolver) ResolveBudgets(ctx context.Context, user core.User, date time.Time) ([]core.Budget, error) {
	all, err := r.budgets.BudgetsForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load budgets for user %d: %w", user.ID, err)
	}

	want := core.MonthOf(date)
	var matched []core.Budget
	for _, b := range all {
		key, ok := core.ParseMonthKey(b.Month)
		if !ok {
			continue
		}
		if key == want {
			matched = append(matched, b)
		}
	}
	return matched, nil
}
