// Package main is the in-process periodic invoker for the reconciliation
// jobs. It registers each job with a cron engine using schedules from
// configuration and calls the exact same dispatcher entry points as the
// signed HTTP path, so semantics are identical regardless of trigger source.
//
// The scheduler holds no job state of its own: every run reads the clock and
// the store fresh, and running it alongside the API (or several copies of
// itself) is safe because the jobs are idempotent and the store-level guards
// handle concurrent triggers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"shiftdesk/internal/clock"
	"shiftdesk/internal/config"
	"shiftdesk/internal/db"
	"shiftdesk/internal/external"
	"shiftdesk/internal/reconcile"
	"shiftdesk/internal/types"
)

// jobTimeout bounds a single cron-triggered job run.
const jobTimeout = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("shiftdesk scheduler starting",
		"environment", cfg.Environment,
		"timezone", cfg.Timezone,
	)

	clk, err := clock.NewSystemClock(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("initializing clock: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.NewPool(ctx, cfg.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	dispatcher := buildDispatcher(cfg, pool, clk, logger)

	// Cron schedules are interpreted in the operating timezone so "09:00"
	// means the same wall-clock moment the reconcilers reason about.
	engine := cron.New(cron.WithLocation(clk.Location()))

	jobs := map[types.JobName]string{
		types.JobExpireRecurrenceDays: cfg.Schedules.ExpireRecurrenceDays,
		types.JobInvoiceReminders:     cfg.Schedules.InvoiceReminders,
	}
	for job, schedule := range jobs {
		if _, err := engine.AddFunc(schedule, runJobFunc(dispatcher, job, logger)); err != nil {
			return fmt.Errorf("registering cron job %s (%q): %w", job, schedule, err)
		}
		logger.Info("cron job registered", "job", string(job), "schedule", schedule)
	}

	engine.Start()
	logger.Info("scheduler started")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info("shutdown signal received", "signal", sig.String())

	// Stop accepting new runs and wait for in-flight jobs to finish.
	<-engine.Stop().Done()
	logger.Info("scheduler stopped cleanly")
	return nil
}

// runJobFunc builds the cron callback for one job. Each run gets its own
// deadline and correlation ID; failures are logged, never fatal, because the
// next tick (or an external trigger) can safely retry.
func runJobFunc(dispatcher *reconcile.Dispatcher, job types.JobName, logger *slog.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = types.WithRequestID(ctx, "cron-"+uuid.NewString())

		result, err := dispatcher.Run(ctx, job)
		if err != nil {
			logger.Error("cron job failed",
				"job", string(job),
				"error", err,
			)
			return
		}
		logger.Info("cron job completed",
			"job", string(job),
			"count", result.Count,
			"item_errors", len(result.Errors),
		)
	}
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

// newLogger creates a structured slog.Logger for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
