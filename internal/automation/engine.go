package automation

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

var oneHundred = decimal.NewFromInt(100)

// Allocation is one category's share of a distributed amount.
// Percentage is expressed in percent (75.0 means 75%); Cap is the
// consolidated budget cap the share was derived from.
type Allocation struct {
	Category   string
	Amount     decimal.Decimal
	Percentage decimal.Decimal
	Cap        int64
}

// Consolidate merges the per-category caps of every budget into a
// single map, summing caps across budgets that name the same category.
func Consolidate(budgets []core.Budget) map[string]int64 {
	caps := make(map[string]int64)
	for _, b := range budgets {
		for category, cap := range b.CategoryCaps {
			caps[category] += cap
		}
	}
	return caps
}

// Allocate splits total proportionally across the consolidated caps.
// Each share is rounded to 2 decimals, half up, independently of the
// others; the residual left by rounding is not redistributed, so the
// sum of shares may differ from total by up to len(caps)*0.005.
// Categories with a non-positive cap, and shares that round to zero or
// below, are dropped. Empty or all-zero input yields an empty result.
// The result is ordered by category name.
func Allocate(total decimal.Decimal, caps map[string]int64) []Allocation {
	var totalWeight int64
	for _, cap := range caps {
		if cap > 0 {
			totalWeight += cap
		}
	}
	if totalWeight <= 0 {
		return nil
	}

	categories := make([]string, 0, len(caps))
	for category, cap := range caps {
		if cap > 0 {
			categories = append(categories, category)
		}
	}
	sort.Strings(categories)

	weight := decimal.NewFromInt(totalWeight)
	allocations := make([]Allocation, 0, len(categories))
	for _, category := range categories {
		cap := caps[category]
		ratio := decimal.NewFromInt(cap).Div(weight)
		amount := total.Mul(ratio).Round(2)
		if amount.Sign() <= 0 {
			continue
		}
		allocations = append(allocations, Allocation{
			Category:   category,
			Amount:     amount,
			Percentage: ratio.Mul(oneHundred),
			Cap:        cap,
		})
	}
	return allocations
}
