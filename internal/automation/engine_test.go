package automation

import (
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestConsolidate(t *testing.T) {
	tests := []struct {
		name    string
		budgets []core.Budget
		want    map[string]int64
	}{
		{
			name:    "no budgets",
			budgets: nil,
			want:    map[string]int64{},
		},
		{
			name: "single budget",
			budgets: []core.Budget{
				{CategoryCaps: map[string]int64{"Food": 30000, "Transport": 10000}},
			},
			want: map[string]int64{"Food": 30000, "Transport": 10000},
		},
		{
			name: "shared categories are summed",
			budgets: []core.Budget{
				{CategoryCaps: map[string]int64{"A": 100}},
				{CategoryCaps: map[string]int64{"A": 50, "B": 20}},
			},
			want: map[string]int64{"A": 150, "B": 20},
		},
		{
			name: "nil cap map is ignored",
			budgets: []core.Budget{
				{CategoryCaps: nil},
				{CategoryCaps: map[string]int64{"A": 10}},
			},
			want: map[string]int64{"A": 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Consolidate(tt.budgets)
			if len(got) != len(tt.want) {
				t.Fatalf("Consolidate() = %v, want %v", got, tt.want)
			}
			for category, cap := range tt.want {
				if got[category] != cap {
					t.Errorf("Consolidate()[%q] = %d, want %d", category, got[category], cap)
				}
			}
		})
	}
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name  string
		total string
		caps  map[string]int64
		want  map[string]string // category -> amount
	}{
		{
			name:  "empty caps yields empty result",
			total: "1000",
			caps:  map[string]int64{},
			want:  map[string]string{},
		},
		{
			name:  "zero total yields empty result",
			total: "0",
			caps:  map[string]int64{"Food": 30000, "Transport": 10000},
			want:  map[string]string{},
		},
		{
			name:  "proportional split",
			total: "1000.0",
			caps:  map[string]int64{"Food": 30000, "Transport": 10000},
			want:  map[string]string{"Food": "750.00", "Transport": "250.00"},
		},
		{
			name:  "equal consolidated caps split evenly",
			total: "200.0",
			caps:  map[string]int64{"Food": 50000, "Other": 50000},
			want:  map[string]string{"Food": "100.00", "Other": "100.00"},
		},
		{
			name:  "non-positive caps are dropped",
			total: "300",
			caps:  map[string]int64{"A": 100, "B": 0, "C": -50},
			want:  map[string]string{"A": "300.00"},
		},
		{
			name:  "all caps non-positive yields empty result",
			total: "300",
			caps:  map[string]int64{"A": 0, "B": -1},
			want:  map[string]string{},
		},
		{
			name:  "half up rounding",
			total: "100",
			caps:  map[string]int64{"A": 1, "B": 1, "C": 1},
			// 100/3 = 33.333... -> 33.33 each, residual not redistributed
			want: map[string]string{"A": "33.33", "B": "33.33", "C": "33.33"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allocate(money(tt.total), tt.caps)
			if len(got) != len(tt.want) {
				t.Fatalf("Allocate() returned %d allocations, want %d: %v", len(got), len(tt.want), got)
			}
			for _, a := range got {
				want, ok := tt.want[a.Category]
				if !ok {
					t.Errorf("unexpected category %q", a.Category)
					continue
				}
				if a.Amount.StringFixed(2) != want {
					t.Errorf("Allocate()[%q] = %s, want %s", a.Category, a.Amount.StringFixed(2), want)
				}
			}
		})
	}
}

func TestAllocatePercentages(t *testing.T) {
	got := Allocate(money("1000.0"), map[string]int64{"Food": 30000, "Transport": 10000})
	if len(got) != 2 {
		t.Fatalf("Allocate() returned %d allocations, want 2", len(got))
	}
	// Sorted by category: Food first.
	if got[0].Percentage.StringFixed(1) != "75.0" {
		t.Errorf("Food percentage = %s, want 75.0", got[0].Percentage.StringFixed(1))
	}
	if got[1].Percentage.StringFixed(1) != "25.0" {
		t.Errorf("Transport percentage = %s, want 25.0", got[1].Percentage.StringFixed(1))
	}
	if got[0].Cap != 30000 || got[1].Cap != 10000 {
		t.Errorf("caps = %d/%d, want 30000/10000", got[0].Cap, got[1].Cap)
	}
}

func TestAllocateSumStaysWithinRoundingBound(t *testing.T) {
	totals := []string{"1000.0", "0.07", "123.45", "999.99", "1", "77777.77"}
	capSets := []map[string]int64{
		{"A": 1, "B": 1, "C": 1},
		{"A": 3, "B": 7},
		{"A": 123, "B": 456, "C": 789, "D": 1011},
		{"A": 1, "B": 99999},
	}

	for _, total := range totals {
		for _, caps := range capSets {
			got := Allocate(money(total), caps)
			sum := decimal.Zero
			for _, a := range got {
				if a.Amount.Sign() <= 0 {
					t.Errorf("total %s caps %v: non-positive amount %s for %q", total, caps, a.Amount, a.Category)
				}
				sum = sum.Add(a.Amount)
			}
			// Independent per-category rounding: off by at most 0.005
			// per category.
			bound := decimal.NewFromFloat(0.005).Mul(decimal.NewFromInt(int64(len(caps))))
			diff := sum.Sub(money(total)).Abs()
			if diff.GreaterThan(bound) {
				t.Errorf("total %s caps %v: sum %s differs by %s, bound %s", total, caps, sum, diff, bound)
			}
		}
	}
}

func TestAllocateOutputIsSorted(t *testing.T) {
	got := Allocate(money("100"), map[string]int64{"Zeta": 1, "Alpha": 1, "Mid": 1})
	want := []string{"Alpha", "Mid", "Zeta"}
	for i, a := range got {
		if a.Category != want[i] {
			t.Fatalf("Allocate() order = %v, want %v", got, want)
		}
	}
}
