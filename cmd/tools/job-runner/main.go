// Package main is an operator tool for running a single reconciliation job
// from the command line, bypassing transport authentication the same way the
// cron scheduler does. The -at flag overrides the reference time for
// deterministic execution and backfills.
//
// Usage:
//
//	job-runner -job expire_recurrence_days
//	job-runner -job invoice_reminders -at 2026-02-06T03:00:00Z
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"shiftdesk/internal/clock"
	"shiftdesk/internal/config"
	"shiftdesk/internal/db"
	"shiftdesk/internal/external"
	"shiftdesk/internal/reconcile"
	"shiftdesk/internal/types"
)

func main() {
	jobFlag := flag.String("job", "", "job to run: expire_recurrence_days or invoice_reminders")
	atFlag := flag.String("at", "", "RFC3339 reference time override (default: now in the operating timezone)")
	flag.Parse()

	if err := run(*jobFlag, *atFlag); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(jobName, at string) error {
	if jobName == "" {
		return fmt.Errorf("-job is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	clk, err := clock.NewSystemClock(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("initializing clock: %w", err)
	}

	now := clk.Now()
	if at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("parsing -at: %w", err)
		}
		now = parsed.In(clk.Location())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.NewPool(ctx, cfg.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	dispatcher := buildDispatcher(cfg, pool, clk, logger)

	runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := dispatcher.RunAt(runCtx, types.JobName(jobName), now)
	if err != nil {
		return fmt.Errorf("job %s failed: %w", jobName, err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// buildDispatcher wires the repositories, mailer, and reconcilers behind a
// single dispatcher shared by every trigger source.
func buildDispatcher(cfg *config.Config, pool *pgxpool.Pool, clk clock.Clock, logger *slog.Logger) *reconcile.Dispatcher {
	recurrenceRepo := db.NewRecurrenceDayRepository(pool)
	invoiceRepo := db.NewInvoiceRepository(pool)
	mailer := external.NewMailerClient(cfg.Mail, logger.With("component", "mailer"))

	days := reconcile.NewRecurrenceDayReconciler(recurrenceRepo, logger.With("component", "recurrence_reconciler"))
	invoices := reconcile.NewInvoiceReminderReconciler(
		invoiceRepo,
		mailer,
		reconcile.ReminderConfig{
			TemplateID:         cfg.Mail.ReminderTemplateID,
			MaxConcurrentSends: cfg.Reminders.MaxConcurrentSends,
		},
		logger.With("component", "invoice_reconciler"),
	)

	return reconcile.NewDispatcher(days, invoices, clk, logger.With("component", "dispatcher"))
}
