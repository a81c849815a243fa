package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

const dateLayout = "2006-01-02"

// SQLiteRepository persists users, budgets, transactions and recurring
// templates. It is the storage collaborator behind every automation
// port.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FindUserByEmail implements automation.UserDirectory.
func (r *SQLiteRepository) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %q: %w", email, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("query user by email: %w", err)
	}
	return u, nil
}

// CreateUser inserts a new user and returns it with its ID assigned.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, name string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name) VALUES (?, ?)`, email, name)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	return core.User{ID: id, Email: email, Name: name}, nil
}

// ListUserEmails returns the email of every registered user. The
// automation worker fans out over this list.
func (r *SQLiteRepository) ListUserEmails(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT email FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("query user emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan user email: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// BudgetsForUser implements automation.BudgetSource. It returns every
// budget of the user with its category caps loaded; month filtering is
// the resolver's job.
func (r *SQLiteRepository) BudgetsForUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, total, month FROM budgets WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Total, &b.Month); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}

	for i := range budgets {
		caps, err := r.budgetCaps(ctx, budgets[i].ID)
		if err != nil {
			return nil, err
		}
		budgets[i].CategoryCaps = caps
	}
	return budgets, nil
}

func (r *SQLiteRepository) budgetCaps(ctx context.Context, budgetID int64) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, cap FROM budget_categories WHERE budget_id = ?`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("query budget categories: %w", err)
	}
	defer rows.Close()

	caps := make(map[string]int64)
	for rows.Next() {
		var category string
		var cap int64
		if err := rows.Scan(&category, &cap); err != nil {
			return nil, fmt.Errorf("scan budget category: %w", err)
		}
		caps[category] = cap
	}
	return caps, rows.Err()
}

// CreateBudget inserts a budget together with its category caps.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Budget{}, fmt.Errorf("begin budget insert: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO budgets (user_id, name, total, month) VALUES (?, ?, ?, ?)`,
		b.UserID, b.Name, b.Total, b.Month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget insert id: %w", err)
	}

	for category, cap := range b.CategoryCaps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO budget_categories (budget_id, category, cap) VALUES (?, ?, ?)`,
			b.ID, category, cap); err != nil {
			return core.Budget{}, fmt.Errorf("insert budget category %q: %w", category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Budget{}, fmt.Errorf("commit budget insert: %w", err)
	}
	return b, nil
}

// CreateTransaction implements automation.TransactionStore. The owner
// is addressed by email, matching the collaborator contract of the
// upstream CRUD layer.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction, ownerEmail string) (core.Transaction, error) {
	user, err := r.FindUserByEmail(ctx, ownerEmail)
	if err != nil {
		return core.Transaction{}, err
	}
	t.UserID = user.ID

	if t.Date.IsZero() {
		t.Date = time.Now()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, amount, reason, category, expense_type, date, distributed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Amount.String(), t.Reason, t.Category, t.ExpenseType,
		t.Date.Format(dateLayout), boolToInt(t.Distributed))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"category", t.Category,
		"amount", t.Amount)
	return t, nil
}

// TransactionsForUser implements automation.TransactionStore.
func (r *SQLiteRepository) TransactionsForUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount, reason, category, expense_type, date, distributed
		 FROM transactions WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// FindTransactionForUser implements automation.TransactionStore.
func (r *SQLiteRepository) FindTransactionForUser(ctx context.Context, id, userID int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount, reason, category, expense_type, date, distributed
		 FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, err
}

// SaveTransaction updates an existing transaction in place. The
// automation paths never edit a transaction after creating it; this is
// the edit operation of the CRUD surface that owns the records.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET amount = ?, reason = ?, category = ?, expense_type = ?, date = ?, distributed = ?
		 WHERE id = ? AND user_id = ?`,
		t.Amount.String(), t.Reason, t.Category, t.ExpenseType,
		t.Date.Format(dateLayout), boolToInt(t.Distributed), t.ID, t.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	return t, nil
}

// PersistDistribution implements automation.TransactionStore. The
// allocation inserts and the guarded flag UPDATE share one SQL
// transaction: either every allocation lands and the flag flips, or
// nothing changes. The guarded UPDATE is the atomic false->true
// transition, so of two concurrent calls only one commits.
func (r *SQLiteRepository) PersistDistribution(ctx context.Context, incomeID, userID int64, allocations []core.Transaction) ([]core.Transaction, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin distribution: %w", err)
	}
	defer tx.Rollback()

	created := make([]core.Transaction, 0, len(allocations))
	for _, t := range allocations {
		t.UserID = userID
		if t.Date.IsZero() {
			t.Date = time.Now()
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (user_id, amount, reason, category, expense_type, date, distributed)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.UserID, t.Amount.String(), t.Reason, t.Category, t.ExpenseType,
			t.Date.Format(dateLayout), boolToInt(t.Distributed))
		if err != nil {
			return nil, false, fmt.Errorf("insert allocation for %q: %w", t.Category, err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return nil, false, fmt.Errorf("allocation insert id: %w", err)
		}
		created = append(created, t)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE transactions SET distributed = 1
		 WHERE id = ? AND user_id = ? AND distributed = 0`, incomeID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("mark transaction %d distributed: %w", incomeID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("mark transaction %d distributed: %w", incomeID, err)
	}
	if affected != 1 {
		return nil, false, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit distribution: %w", err)
	}

	slog.InfoContext(ctx, "Distribution persisted",
		"income_id", incomeID,
		"user_id", userID,
		"allocations", len(created))
	return created, true, nil
}

// ListUndistributedIncome returns the user's income transactions whose
// distributed flag is still false, oldest first.
func (r *SQLiteRepository) ListUndistributedIncome(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount, reason, category, expense_type, date, distributed
		 FROM transactions
		 WHERE user_id = ? AND category = ? AND distributed = 0
		 ORDER BY date ASC, id ASC`, userID, core.CategoryIncome)
	if err != nil {
		return nil, fmt.Errorf("query undistributed income: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// TemplatesForUser implements automation.TemplateStore.
func (r *SQLiteRepository) TemplatesForUser(ctx context.Context, userID int64) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, reason, amount, category, expense_type, frequency, next_due
		 FROM recurring_transactions WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query recurring templates: %w", err)
	}
	defer rows.Close()

	var templates []core.RecurringTransaction
	for rows.Next() {
		var rt core.RecurringTransaction
		var amount, nextDue, frequency string
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.Reason, &amount, &rt.Category,
			&rt.ExpenseType, &frequency, &nextDue); err != nil {
			return nil, fmt.Errorf("scan recurring template: %w", err)
		}
		rt.Frequency = core.Frequency(frequency)
		if rt.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("template %d amount %q: %w", rt.ID, amount, err)
		}
		if rt.NextDue, err = time.ParseInLocation(dateLayout, nextDue, time.UTC); err != nil {
			return nil, fmt.Errorf("template %d next_due %q: %w", rt.ID, nextDue, err)
		}
		templates = append(templates, rt)
	}
	return templates, rows.Err()
}

// CreateTemplate inserts a recurring template. A template without a
// next-due date starts one month from now.
func (r *SQLiteRepository) CreateTemplate(ctx context.Context, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	if rt.NextDue.IsZero() {
		rt.NextDue = core.AddMonthsClamped(time.Now().UTC(), 1)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_transactions (user_id, reason, amount, category, expense_type, frequency, next_due)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rt.UserID, rt.Reason, rt.Amount.String(), rt.Category, rt.ExpenseType,
		string(rt.Frequency), rt.NextDue.Format(dateLayout))
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("insert recurring template: %w", err)
	}
	rt.ID, err = res.LastInsertId()
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("template insert id: %w", err)
	}
	return rt, nil
}

// SaveTemplate implements automation.TemplateStore.
func (r *SQLiteRepository) SaveTemplate(ctx context.Context, rt core.RecurringTransaction) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions
		 SET reason = ?, amount = ?, category = ?, expense_type = ?, frequency = ?, next_due = ?
		 WHERE id = ? AND user_id = ?`,
		rt.Reason, rt.Amount.String(), rt.Category, rt.ExpenseType,
		string(rt.Frequency), rt.NextDue.Format(dateLayout), rt.ID, rt.UserID)
	if err != nil {
		return fmt.Errorf("update recurring template %d: %w", rt.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var amount, date string
	var distributed int64
	err := row.Scan(&t.ID, &t.UserID, &amount, &t.Reason, &t.Category,
		&t.ExpenseType, &date, &distributed)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d amount %q: %w", t.ID, amount, err)
	}
	if t.Date, err = time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d date %q: %w", t.ID, date, err)
	}
	t.Distributed = distributed != 0
	return t, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
