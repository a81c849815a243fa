package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransactionIsIncome(t *testing.T) {
	income := Transaction{Category: CategoryIncome}
	if !income.IsIncome() {
		t.Error("IsIncome() = false for an Income transaction")
	}
	expense := Transaction{Category: "Food"}
	if expense.IsIncome() {
		t.Error("IsIncome() = true for a Food transaction")
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Amount:   decimal.RequireFromString("100.00"),
		Reason:   "Salary",
		Category: CategoryIncome,
		Date:     time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(*Transaction) {},
		},
		{
			name:    "zero amount",
			mutate:  func(tx *Transaction) { tx.Amount = decimal.Zero },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(tx *Transaction) { tx.Amount = decimal.RequireFromString("-5") },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "blank reason",
			mutate:  func(tx *Transaction) { tx.Reason = "   " },
			wantErr: ErrEmptyReason,
		},
		{
			name:    "blank category",
			mutate:  func(tx *Transaction) { tx.Category = "" },
			wantErr: ErrEmptyCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecurringTransactionValidate(t *testing.T) {
	valid := RecurringTransaction{
		Amount:    decimal.RequireFromString("30"),
		Reason:    "Gym",
		Category:  "Health",
		Frequency: Weekly,
		NextDue:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name    string
		mutate  func(*RecurringTransaction)
		wantErr bool
	}{
		{
			name:   "valid weekly",
			mutate: func(*RecurringTransaction) {},
		},
		{
			name:   "valid monthly",
			mutate: func(rt *RecurringTransaction) { rt.Frequency = Monthly },
		},
		{
			name:    "unknown frequency",
			mutate:  func(rt *RecurringTransaction) { rt.Frequency = Frequency("daily") },
			wantErr: true,
		},
		{
			name:    "zero amount",
			mutate:  func(rt *RecurringTransaction) { rt.Amount = decimal.Zero },
			wantErr: true,
		},
		{
			name:    "blank reason",
			mutate:  func(rt *RecurringTransaction) { rt.Reason = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := valid
			tt.mutate(&rt)
			if err := rt.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
