// Package main is the entry point for the ShiftDesk reconciliation API.
//
// It loads configuration, connects the database pool, wires the reconcilers
// behind the trigger dispatcher, and serves the signed job trigger endpoints
// plus the health check. Graceful shutdown is handled via OS signal
// interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shiftdesk/internal/api/handlers"
	"shiftdesk/internal/clock"
	"shiftdesk/internal/config"
	"shiftdesk/internal/core"
	"shiftdesk/internal/db"
	"shiftdesk/internal/external"
	"shiftdesk/internal/reconcile"
	"shiftdesk/internal/trigger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("shiftdesk reconciliation API starting",
		"environment", cfg.Environment,
		"timezone", cfg.Timezone,
		"port", cfg.Server.Port,
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
	authenticator := trigger.NewAuthenticator(cfg.Trigger.Secret, cfg.Trigger.FreshnessWindow)
	jobsHandler := handlers.NewJobsHandler(dispatcher, authenticator, clk, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = append(srv.HealthProbes, db.Probe{Pool: pool})
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		jobsHandler.RegisterRoutes(r)
	})
	srv.MountRoutes()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("server stopped cleanly")
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
