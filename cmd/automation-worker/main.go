package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/automation"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting automation-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it the run is storage-only.
	var events automation.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sheets export is optional as well.
	var exporter sheets.TransactionAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Warn("Failed to initialize Sheets export, continuing without it", "error", err)
		} else {
			exporter = client
			logger.Info("Sheets export initialized", "sheet", cfg.GoogleSheetName)
		}
	}

	resolver := automation.NewBudgetResolver(repo)
	distributor := automation.NewDistributor(repo, resolver, repo, events)
	scheduler := automation.NewScheduler(repo, repo, repo, events)

	emails, err := targetUsers(ctx, repo, cfg.UserEmail)
	if err != nil {
		logger.Error("Failed to determine target users", "error", err)
		os.Exit(1)
	}
	if len(emails) == 0 {
		logger.Info("No users to process")
		return
	}

	var distributed, materialized atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.WorkerConcurrency)
	for _, email := range emails {
		g.Go(func() error {
			d, m := processUser(ctx, repo, distributor, scheduler, exporter, email)
			distributed.Add(d)
			materialized.Add(m)
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Automation run interrupted", "error", err)
		os.Exit(1)
	}

	logger.Info("Automation run complete",
		"users", len(emails),
		"allocations_created", distributed.Load(),
		"recurring_created", materialized.Load())
}

func targetUsers(ctx context.Context, repo *storage.SQLiteRepository, single string) ([]string, error) {
	if single != "" {
		return []string{single}, nil
	}
	return repo.ListUserEmails(ctx)
}

// processUser runs one user's automation pass: distribute income
// transactions still pending distribution, then materialize due
// recurring templates. Failures are logged per item; the pass never
// aborts the whole run.
func processUser(ctx context.Context, repo *storage.SQLiteRepository, distributor *automation.Distributor, scheduler *automation.Scheduler, exporter sheets.TransactionAppender, email string) (distributed, materialized int64) {
	user, err := repo.FindUserByEmail(ctx, email)
	if err != nil {
		slog.ErrorContext(ctx, "Skipping user, lookup failed", "email", email, "error", err)
		return 0, 0
	}

	var exportable []core.Transaction

	pending, err := repo.ListUndistributedIncome(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list pending income", "email", email, "error", err)
	}
	for _, income := range pending {
		created, err := distributor.DistributeExistingIncome(ctx, income.ID, email)
		if err != nil {
			// Raced distributions are fine; anything else is worth a log line.
			if !errors.Is(err, core.ErrAlreadyDistributed) {
				slog.ErrorContext(ctx, "Failed to distribute income",
					"email", email, "transaction_id", income.ID, "error", err)
			}
			continue
		}
		distributed += int64(len(created))
		exportable = append(exportable, created...)
	}

	created, err := scheduler.ProcessDue(ctx, email)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to process recurring templates", "email", email, "error", err)
	}
	materialized += int64(len(created))
	exportable = append(exportable, created...)

	if exporter != nil && len(exportable) > 0 {
		if err := exporter.AppendTransactions(ctx, email, exportable); err != nil {
			slog.WarnContext(ctx, "Failed to export transactions to sheet",
				"email", email, "count", len(exportable), "error", err)
		}
	}

	return distributed, materialized
}
