package automation

import (
	"context"

	"fintrack/internal/core"
)

// Ports for the storage and messaging collaborators. The automation
// core owns no state of its own; everything it reads or writes goes
// through these interfaces.
type (
	UserDirectory interface {
		// FindUserByEmail returns core.ErrNotFound when no such user exists.
		FindUserByEmail(ctx context.Context, email string) (core.User, error)
	}

	BudgetSource interface {
		// BudgetsForUser returns every budget of the user, unfiltered by
		// month; month filtering belongs to the resolver.
		BudgetsForUser(ctx context.Context, userID int64) ([]core.Budget, error)
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction, ownerEmail string) (core.Transaction, error)
		TransactionsForUser(ctx context.Context, userID int64) ([]core.Transaction, error)
		// FindTransactionForUser returns core.ErrNotFound when the
		// transaction is missing or owned by someone else.
		FindTransactionForUser(ctx context.Context, id, userID int64) (core.Transaction, error)
		// PersistDistribution inserts the allocation transactions and
		// flips the income's distributed flag false->true as one atomic
		// unit. It returns false when the flag was already set; in that
		// case, and on error, nothing is persisted, so of two concurrent
		// distribution calls only one writes allocations, and a failed
		// call leaves the income retryable.
		PersistDistribution(ctx context.Context, incomeID, userID int64, allocations []core.Transaction) ([]core.Transaction, bool, error)
	}

	TemplateStore interface {
		TemplatesForUser(ctx context.Context, userID int64) ([]core.RecurringTransaction, error)
		SaveTemplate(ctx context.Context, rt core.RecurringTransaction) error
	}

	// EventPublisher receives notifications about work the automation
	// core performed. Publishing is best-effort everywhere: a failed
	// publish never fails the surrounding operation.
	EventPublisher interface {
		PublishDistributionCompleted(ctx context.Context, userEmail string, created []core.Transaction) error
		PublishRecurringMaterialized(ctx context.Context, userEmail string, created []core.Transaction) error
	}
)
