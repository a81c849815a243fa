package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Distributor drives the automatic distribution of income amounts
// across the budget categories of the income's month.
type Distributor struct {
	users        UserDirectory
	resolver     *BudgetResolver
	transactions TransactionStore
	events       EventPublisher // optional
}

// Preview describes the distribution that DistributeNewIncome would
// perform, without side effects. CanDistribute is false when the
// user has no budget for the target month; Allocations is empty in
// that case and the two conditions must not be conflated.
type Preview struct {
	Amount        decimal.Decimal
	Date          time.Time
	CanDistribute bool
	BudgetCount   int
	Allocations   []Allocation
}

func NewDistributor(users UserDirectory, resolver *BudgetResolver, transactions TransactionStore, events EventPublisher) *Distributor {
	return &Distributor{
		users:        users,
		resolver:     resolver,
		transactions: transactions,
		events:       events,
	}
}

// DistributeNewIncome splits amount across the budget categories of
// date's month and persists one transaction per share. The income
// itself is not recorded as a transaction here, so no distributed flag
// is involved.
//
// This is a best-effort path: any collaborator failure degrades to an
// empty result instead of an error, so the caller's workflow (usually
// the creation of the income itself) is never blocked.
func (d *Distributor) DistributeNewIncome(ctx context.Context, amount decimal.Decimal, date time.Time, userEmail, reason string) []core.Transaction {
	user, err := d.users.FindUserByEmail(ctx, userEmail)
	if err != nil {
		slog.ErrorContext(ctx, "Income distribution skipped: user lookup failed",
			"email", userEmail, "error", err)
		return nil
	}

	created, err := d.distribute(ctx, user, amount, date, reason)
	if err != nil {
		slog.ErrorContext(ctx, "Income distribution failed",
			"email", userEmail, "amount", amount, "error", err)
		return nil
	}

	if len(created) > 0 {
		d.publishDistribution(ctx, userEmail, created)
	}
	return created
}

// DistributeExistingIncome distributes an already-recorded income
// transaction that has not been distributed yet, then marks it
// distributed. Unlike DistributeNewIncome this is an explicit
// user-triggered action, so every failure is surfaced:
// core.ErrNotFound when the transaction is missing or not owned by the
// user, core.ErrNotIncome when it is not tagged as income, and
// core.ErrAlreadyDistributed when the flag is already set.
//
// When no budget matches the income's month the call is a deliberate
// no-op: it returns an empty result, the flag stays false, and the
// call can be retried once a matching budget exists.
func (d *Distributor) DistributeExistingIncome(ctx context.Context, transactionID int64, userEmail string) ([]core.Transaction, error) {
	user, err := d.users.FindUserByEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", userEmail, err)
	}

	source, err := d.transactions.FindTransactionForUser(ctx, transactionID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("find transaction %d: %w", transactionID, err)
	}
	if !source.IsIncome() {
		return nil, fmt.Errorf("transaction %d: %w", transactionID, core.ErrNotIncome)
	}
	if source.Distributed {
		return nil, fmt.Errorf("transaction %d: %w", transactionID, core.ErrAlreadyDistributed)
	}

	allocations, _, err := d.plan(ctx, user, source.Amount, source.Date)
	if err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		slog.InfoContext(ctx, "No budget matches income month, distribution deferred",
			"transaction_id", transactionID, "date", source.Date.Format("2006-01-02"))
		return nil, nil
	}

	// Allocations and the false->true flag transition are one atomic
	// unit: a concurrent call for the same transaction cannot
	// double-persist, and a failed persist leaves the flag false so the
	// call stays retryable.
	created, ok, err := d.transactions.PersistDistribution(ctx, source.ID, user.ID,
		buildAllocations(allocations, source.Date, source.Reason))
	if err != nil {
		return nil, fmt.Errorf("persist distribution of transaction %d: %w", source.ID, err)
	}
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", source.ID, core.ErrAlreadyDistributed)
	}

	slog.InfoContext(ctx, "Existing income distributed",
		"transaction_id", source.ID,
		"created", len(created),
		"amount", source.Amount)
	d.publishDistribution(ctx, userEmail, created)
	return created, nil
}

// CanDistribute reports whether at least one budget exists for the
// user in date's month. It has no side effects and absorbs failures
// as false.
func (d *Distributor) CanDistribute(ctx context.Context, userEmail string, date time.Time) bool {
	user, err := d.users.FindUserByEmail(ctx, userEmail)
	if err != nil {
		return false
	}
	budgets, err := d.resolver.ResolveBudgets(ctx, user, date)
	if err != nil {
		return false
	}
	return len(budgets) > 0
}

// PreviewDistribution computes the shares DistributeNewIncome would
// create, without persisting anything.
func (d *Distributor) PreviewDistribution(ctx context.Context, amount decimal.Decimal, userEmail string, date time.Time) (Preview, error) {
	user, err := d.users.FindUserByEmail(ctx, userEmail)
	if err != nil {
		return Preview{}, fmt.Errorf("find user %q: %w", userEmail, err)
	}

	allocations, budgetCount, err := d.plan(ctx, user, amount, date)
	if err != nil {
		return Preview{}, err
	}

	preview := Preview{
		Amount:      amount,
		Date:        date,
		BudgetCount: budgetCount,
	}
	if budgetCount == 0 {
		return preview, nil
	}
	preview.CanDistribute = true
	preview.Allocations = allocations
	return preview, nil
}

// plan resolves the month's budgets and computes the allocation list.
func (d *Distributor) plan(ctx context.Context, user core.User, amount decimal.Decimal, date time.Time) ([]Allocation, int, error) {
	budgets, err := d.resolver.ResolveBudgets(ctx, user, date)
	if err != nil {
		return nil, 0, err
	}
	if len(budgets) == 0 {
		return nil, 0, nil
	}
	return Allocate(amount, Consolidate(budgets)), len(budgets), nil
}

func (d *Distributor) distribute(ctx context.Context, user core.User, amount decimal.Decimal, date time.Time, reason string) ([]core.Transaction, error) {
	allocations, _, err := d.plan(ctx, user, amount, date)
	if err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return nil, nil
	}
	return d.persist(ctx, user.Email, allocations, date, reason)
}

func (d *Distributor) persist(ctx context.Context, userEmail string, allocations []Allocation, date time.Time, reason string) ([]core.Transaction, error) {
	created := make([]core.Transaction, 0, len(allocations))
	for _, tx := range buildAllocations(allocations, date, reason) {
		saved, err := d.transactions.CreateTransaction(ctx, tx, userEmail)
		if err != nil {
			return created, fmt.Errorf("create allocation for %q: %w", tx.Category, err)
		}
		created = append(created, saved)
	}
	return created, nil
}

// buildAllocations turns allocation shares into the transactions that
// record them.
func buildAllocations(allocations []Allocation, date time.Time, reason string) []core.Transaction {
	txs := make([]core.Transaction, 0, len(allocations))
	for _, a := range allocations {
		txs = append(txs, core.Transaction{
			Amount:      a.Amount,
			Category:    a.Category,
			Date:        date,
			ExpenseType: core.ExpenseTypeAutoDistribution,
			Reason:      composeReason(reason, a.Percentage),
		})
	}
	return txs
}

func (d *Distributor) publishDistribution(ctx context.Context, userEmail string, created []core.Transaction) {
	if d.events == nil {
		return
	}
	if err := d.events.PublishDistributionCompleted(ctx, userEmail, created); err != nil {
		slog.WarnContext(ctx, "Failed to publish distribution event",
			"email", userEmail, "error", err)
	}
}

// composeReason builds the reason of an allocation transaction from
// the source income's reason and the category's percentage share,
// formatted with one decimal place.
func composeReason(sourceReason string, percentage decimal.Decimal) string {
	return fmt.Sprintf("Automatic distribution of: %s (%s%% of consolidated budget)",
		sourceReason, percentage.StringFixed(1))
}
