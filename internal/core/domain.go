package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

const (
	// CategoryIncome tags transactions that record incoming money.
	CategoryIncome = "Income"

	// ExpenseTypeAutoDistribution tags transactions created by the
	// automatic income distribution.
	ExpenseTypeAutoDistribution = "Automatic Distribution"
)

type (
	// Frequency is the repetition unit of a recurring transaction.
	Frequency string

	User struct {
		ID    int64
		Email string
		Name  string
	}

	// Transaction is a single money movement owned by a user.
	// Distributed is only meaningful for income transactions: it flips
	// to true once the amount has been split across budget categories,
	// and is never reset.
	Transaction struct {
		ID          int64
		UserID      int64
		Amount      decimal.Decimal
		Reason      string
		Category    string
		ExpenseType string
		Date        time.Time
		Distributed bool
	}

	// Budget is a monthly spending plan. CategoryCaps maps a category
	// name to its allotted cap; several budgets may exist for the same
	// user and month and are consolidated together.
	Budget struct {
		ID           int64
		UserID       int64
		Name         string
		Total        int64
		CategoryCaps map[string]int64
		Month        string // period key, "YYYY-MM" or a longer date string
	}

	// RecurringTransaction is a template that materializes a real
	// transaction each time its NextDue date arrives.
	RecurringTransaction struct {
		ID          int64
		UserID      int64
		Reason      string
		Amount      decimal.Decimal
		Category    string
		ExpenseType string
		Frequency   Frequency
		NextDue     time.Time
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrNotIncome          = errors.New("transaction is not an income transaction")
	ErrAlreadyDistributed = errors.New("transaction already distributed")
	ErrEmptyReason        = errors.New("empty reason")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidAmount      = errors.New("invalid amount")
)

// IsIncome reports whether the transaction records incoming money and
// is therefore a candidate for automatic distribution.
func (t Transaction) IsIncome() bool {
	return t.Category == CategoryIncome
}

func (t Transaction) Validate() error {
	if t.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if len(strings.TrimSpace(t.Reason)) == 0 {
		return ErrEmptyReason
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (rt RecurringTransaction) Validate() error {
	if rt.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if len(strings.TrimSpace(rt.Reason)) == 0 {
		return ErrEmptyReason
	}
	if strings.TrimSpace(rt.Category) == "" {
		return ErrEmptyCategory
	}
	switch rt.Frequency {
	case Weekly, Monthly:
	default:
		return errors.New("invalid frequency")
	}
	return nil
}
