package automation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// fakeStore is an in-memory implementation of every collaborator port,
// with per-operation error injection.
type fakeStore struct {
	users     map[string]core.User
	budgets   map[int64][]core.Budget
	txs       []core.Transaction
	templates []core.RecurringTransaction
	nextID    int64

	budgetsErr   error
	createErr    error
	listErr      error
	saveTmplErr  error
	markErr      error
	createdCount int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]core.User),
		budgets: make(map[int64][]core.Budget),
		nextID:  1,
	}
}

func (f *fakeStore) addUser(id int64, email string) core.User {
	u := core.User{ID: id, Email: email, Name: email}
	f.users[email] = u
	return u
}

func (f *fakeStore) addBudget(userID int64, month string, caps map[string]int64) {
	f.budgets[userID] = append(f.budgets[userID], core.Budget{
		ID:           f.nextID,
		UserID:       userID,
		Name:         "budget",
		CategoryCaps: caps,
		Month:        month,
	})
	f.nextID++
}

func (f *fakeStore) addTransaction(t core.Transaction) core.Transaction {
	t.ID = f.nextID
	f.nextID++
	f.txs = append(f.txs, t)
	return t
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (core.User, error) {
	u, ok := f.users[email]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) BudgetsForUser(_ context.Context, userID int64) ([]core.Budget, error) {
	if f.budgetsErr != nil {
		return nil, f.budgetsErr
	}
	return f.budgets[userID], nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction, ownerEmail string) (core.Transaction, error) {
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	u, ok := f.users[ownerEmail]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	t.UserID = u.ID
	f.createdCount++
	return f.addTransaction(t), nil
}

func (f *fakeStore) TransactionsForUser(_ context.Context, userID int64) ([]core.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.Transaction
	for _, t := range f.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) FindTransactionForUser(_ context.Context, id, userID int64) (core.Transaction, error) {
	for _, t := range f.txs {
		if t.ID == id && t.UserID == userID {
			return t, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

// PersistDistribution mirrors the repository's all-or-nothing
// semantics: on any error, or when the flag is already set, the store
// is left untouched.
func (f *fakeStore) PersistDistribution(_ context.Context, incomeID, userID int64, allocations []core.Transaction) ([]core.Transaction, bool, error) {
	if f.markErr != nil {
		return nil, false, f.markErr
	}
	if f.createErr != nil {
		return nil, false, f.createErr
	}

	incomeIdx := -1
	for i, t := range f.txs {
		if t.ID == incomeID && t.UserID == userID {
			incomeIdx = i
			break
		}
	}
	if incomeIdx < 0 {
		return nil, false, core.ErrNotFound
	}
	if f.txs[incomeIdx].Distributed {
		return nil, false, nil
	}

	created := make([]core.Transaction, 0, len(allocations))
	for _, t := range allocations {
		t.UserID = userID
		f.createdCount++
		created = append(created, f.addTransaction(t))
	}
	f.txs[incomeIdx].Distributed = true
	return created, true, nil
}

func (f *fakeStore) TemplatesForUser(_ context.Context, userID int64) ([]core.RecurringTransaction, error) {
	var out []core.RecurringTransaction
	for _, rt := range f.templates {
		if rt.UserID == userID {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveTemplate(_ context.Context, rt core.RecurringTransaction) error {
	if f.saveTmplErr != nil {
		return f.saveTmplErr
	}
	for i, existing := range f.templates {
		if existing.ID == rt.ID {
			f.templates[i] = rt
			return nil
		}
	}
	f.templates = append(f.templates, rt)
	return nil
}

// fakeEvents records published events.
type fakeEvents struct {
	distributions int
	recurring     int
	err           error
}

func (f *fakeEvents) PublishDistributionCompleted(context.Context, string, []core.Transaction) error {
	f.distributions++
	return f.err
}

func (f *fakeEvents) PublishRecurringMaterialized(context.Context, string, []core.Transaction) error {
	f.recurring++
	return f.err
}

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}
