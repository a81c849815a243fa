package automation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Scheduler materializes due recurring-transaction templates into real
// transactions and advances each template's next-due date.
type Scheduler struct {
	users        UserDirectory
	templates    TemplateStore
	transactions TransactionStore
	events       EventPublisher // optional
	now          func() time.Time
}

func NewScheduler(users UserDirectory, templates TemplateStore, transactions TransactionStore, events EventPublisher) *Scheduler {
	return &Scheduler{
		users:        users,
		templates:    templates,
		transactions: transactions,
		events:       events,
		now:          time.Now,
	}
}

// ProcessDue walks every recurring template of the user. A template is
// due when its next-due date has arrived (nextDue <= today). Due
// templates are skipped without advancing when an existing transaction
// of the current calendar month already matches the template's reason,
// category and amount; otherwise a transaction dated today is created
// and nextDue moves forward by one frequency unit. A template many
// periods overdue still advances only once per call.
//
// Per-template failures are logged and skipped; only the initial user
// and template lookups can fail the whole call.
func (s *Scheduler) ProcessDue(ctx context.Context, userEmail string) ([]core.Transaction, error) {
	user, err := s.users.FindUserByEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", userEmail, err)
	}

	templates, err := s.templates.TemplatesForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load recurring templates: %w", err)
	}

	today := truncateToDay(s.now())
	slog.InfoContext(ctx, "Processing recurring templates",
		"email", userEmail,
		"total", len(templates),
		"date", today.Format("2006-01-02"))

	var created []core.Transaction
	for _, rt := range templates {
		if rt.NextDue.IsZero() || rt.NextDue.After(today) {
			continue
		}

		duplicate, err := s.hasTransactionThisMonth(ctx, user, rt, today)
		if err != nil {
			slog.ErrorContext(ctx, "Duplicate check failed, skipping template",
				"template_id", rt.ID, "error", err)
			continue
		}
		if duplicate {
			// A matching transaction already exists this month; leave
			// nextDue alone so the template stays due.
			slog.InfoContext(ctx, "Skipping template, matching transaction exists this month",
				"template_id", rt.ID, "reason", rt.Reason)
			continue
		}

		tx := core.Transaction{
			Reason:      rt.Reason,
			Amount:      rt.Amount,
			Category:    rt.Category,
			ExpenseType: rt.ExpenseType,
			Date:        today,
		}
		saved, err := s.transactions.CreateTransaction(ctx, tx, userEmail)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from template",
				"template_id", rt.ID, "reason", rt.Reason, "error", err)
			continue
		}
		created = append(created, saved)

		rt.NextDue = advanceNextDue(rt.NextDue, rt.Frequency)
		if err := s.templates.SaveTemplate(ctx, rt); err != nil {
			// The transaction exists; reprocessing is suppressed this
			// month by the duplicate check.
			slog.ErrorContext(ctx, "Failed to advance template next-due date",
				"template_id", rt.ID, "error", err)
			continue
		}

		slog.InfoContext(ctx, "Created transaction from recurring template",
			"template_id", rt.ID,
			"reason", rt.Reason,
			"amount", rt.Amount,
			"next_due", rt.NextDue.Format("2006-01-02"))
	}

	if len(created) > 0 && s.events != nil {
		if err := s.events.PublishRecurringMaterialized(ctx, userEmail, created); err != nil {
			slog.WarnContext(ctx, "Failed to publish recurring event",
				"email", userEmail, "error", err)
		}
	}
	return created, nil
}

// hasTransactionThisMonth reports whether the user already has a
// transaction inside the current calendar month whose reason, category
// and amount all match the template. A coincidental manual transaction
// with the same three fields also suppresses the template; that false
// positive is accepted.
func (s *Scheduler) hasTransactionThisMonth(ctx context.Context, user core.User, rt core.RecurringTransaction, today time.Time) (bool, error) {
	existing, err := s.transactions.TransactionsForUser(ctx, user.ID)
	if err != nil {
		return false, err
	}

	first, last := core.MonthBounds(today)
	for _, t := range existing {
		if t.Reason != rt.Reason || t.Category != rt.Category || !t.Amount.Equal(rt.Amount) {
			continue
		}
		if t.Date.Before(first) || t.Date.After(last) {
			continue
		}
		return true, nil
	}
	return false, nil
}

// advanceNextDue moves a due date forward by one frequency unit.
// Weekly adds 7 days; monthly adds one calendar month with the day
// clamped to the target month's length. An unrecognized frequency
// returns the date unchanged, so the template will come up due again
// on the next call.
func advanceNextDue(nextDue time.Time, frequency core.Frequency) time.Time {
	switch {
	case strings.EqualFold(string(frequency), string(core.Weekly)):
		return nextDue.AddDate(0, 0, 7)
	case strings.EqualFold(string(frequency), string(core.Monthly)):
		return core.AddMonthsClamped(nextDue, 1)
	default:
		return nextDue
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
