package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"shiftdesk/internal/clock"
	"shiftdesk/internal/types"
)

// ReminderStore defines the database operations needed by the invoice
// reminder reconciler. Invoice rows are read-only; the only writes go to the
// invoice_reminders ledger.
type ReminderStore interface {
	// ListOverdueOpen returns open invoices with due_date < today.
	ListOverdueOpen(ctx context.Context, today time.Time) ([]types.Invoice, error)

	// HasReminder reports whether a reminder was already recorded for the
	// invoice on the given calendar day.
	HasReminder(ctx context.Context, invoiceID string, day time.Time) (bool, error)

	// InsertReminderIfAbsent records the reminder; inserted=false means a
	// concurrent run already recorded one for the same day.
	InsertReminderIfAbsent(ctx context.Context, invoiceID string, day time.Time) (bool, error)
}

// Mailer is the notification gateway contract: one templated message to one
// address, independently failable per call.
type Mailer interface {
	Send(ctx context.Context, input types.SendInput) (providerMessageID string, err error)
}

// ReminderConfig tunes the invoice reminder fan-out.
type ReminderConfig struct {
	// TemplateID selects the provider-side reminder template.
	TemplateID string
	// MaxConcurrentSends bounds the worker pool; values below 1 fall back to
	// serial processing.
	MaxConcurrentSends int64
}

// InvoiceReminderReconciler finds overdue open invoices and requests one
// reminder notification per invoice per calendar day. It never writes invoice
// status under any outcome.
type InvoiceReminderReconciler struct {
	store  ReminderStore
	mailer Mailer
	cfg    ReminderConfig
	logger *slog.Logger
}

// NewInvoiceReminderReconciler creates an InvoiceReminderReconciler with the
// given store, mailer, tuning, and logger.
func NewInvoiceReminderReconciler(store ReminderStore, mailer Mailer, cfg ReminderConfig, logger *slog.Logger) *InvoiceReminderReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrentSends < 1 {
		cfg.MaxConcurrentSends = 1
	}
	return &InvoiceReminderReconciler{
		store:  store,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
	}
}

// SendOverdueReminders processes every open invoice overdue as of now.
//
// Each invoice is handled independently inside a bounded worker pool:
//
//  1. Consult the reminder ledger for (invoice, today); if present, skip.
//  2. Send the reminder through the mailer. A failed send is recorded in that
//     invoice's outcome, does not create a ledger entry (the invoice stays
//     eligible on the next run), and never aborts the remaining batch.
//  3. After a successful send, insert the ledger entry. A conflicting insert
//     means a concurrent run already reminded this invoice today and is
//     treated as already-reminded, not an error.
//
// Count reports delivered reminders. Partial send failures leave Success
// true with Errors populated; only a failure to read candidates from the
// store fails the whole invocation (before any side effects).
func (r *InvoiceReminderReconciler) SendOverdueReminders(ctx context.Context, now time.Time) (types.JobResult, error) {
	today := clock.StartOfDay(now)

	invoices, err := r.store.ListOverdueOpen(ctx, today)
	if err != nil {
		r.logger.Error("listing overdue invoices failed",
			"job", string(types.JobInvoiceReminders),
			"error", err,
		)
		return failedResult(err), err
	}

	if len(invoices) == 0 {
		r.logger.Info("no overdue invoices",
			"job", string(types.JobInvoiceReminders),
			"reference_time", now,
		)
		return types.JobResult{Success: true, Count: 0}, nil
	}

	// Parallel fan-out with a bounded pool. Outcomes land at their invoice's
	// index so the details order is deterministic regardless of completion
	// order.
	var mu sync.Mutex
	outcomes := make([]types.ReminderOutcome, len(invoices))
	var itemErrors []types.ItemError
	sent := 0

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(int(r.cfg.MaxConcurrentSends))

	for i, inv := range invoices {
		g.Go(func() error {
			outcome, itemErr := r.remindOne(gCtx, inv, today)
			mu.Lock()
			outcomes[i] = outcome
			if outcome.Sent {
				sent++
			}
			if itemErr != nil {
				itemErrors = append(itemErrors, *itemErr)
			}
			mu.Unlock()
			// Per-item failures must not cancel the remaining sends.
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("overdue invoice reminders processed",
		"job", string(types.JobInvoiceReminders),
		"candidates", len(invoices),
		"sent", sent,
		"failed", len(itemErrors),
		"reference_time", now,
	)

	return types.JobResult{
		Success: true,
		Count:   sent,
		Details: outcomes,
		Errors:  itemErrors,
	}, nil
}

// remindOne handles a single invoice: ledger check, send, guarded insert.
// The returned ItemError is nil unless something about this invoice failed.
func (r *InvoiceReminderReconciler) remindOne(ctx context.Context, inv types.Invoice, today time.Time) (types.ReminderOutcome, *types.ItemError) {
	reminded, err := r.store.HasReminder(ctx, inv.ID, today)
	if err != nil {
		entry := itemError(inv.ID, err)
		return types.ReminderOutcome{InvoiceID: inv.ID, Reason: "reminder lookup failed"}, &entry
	}
	if reminded {
		return types.ReminderOutcome{InvoiceID: inv.ID, Skipped: true, Reason: "already reminded today"}, nil
	}

	input := types.SendInput{
		ToAddress:  inv.CustomerEmail,
		TemplateID: r.cfg.TemplateID,
		Payload: map[string]any{
			"invoice_id": inv.ID,
			"due_date":   inv.DueDate.Format("2006-01-02"),
		},
	}

	msgID, err := r.mailer.Send(ctx, input)
	if err != nil {
		// No ledger entry on failure so the invoice stays eligible next run.
		r.logger.Warn("reminder send failed",
			"job", string(types.JobInvoiceReminders),
			"invoice_id", inv.ID,
			"error", err,
		)
		entry := itemError(inv.ID, err)
		return types.ReminderOutcome{InvoiceID: inv.ID, Reason: "send failed"}, &entry
	}

	inserted, err := r.store.InsertReminderIfAbsent(ctx, inv.ID, today)
	if err != nil {
		// The reminder went out but the ledger write failed; surface it so
		// operators know a duplicate is possible on the next trigger.
		entry := itemError(inv.ID, fmt.Errorf("reminder sent but ledger write failed: %w", err))
		return types.ReminderOutcome{InvoiceID: inv.ID, Sent: true, Reason: "ledger write failed"}, &entry
	}
	if !inserted {
		// A concurrent run recorded the reminder between our check and insert.
		return types.ReminderOutcome{InvoiceID: inv.ID, Sent: true, Reason: "already reminded today"}, nil
	}

	r.logger.Info("reminder sent",
		"job", string(types.JobInvoiceReminders),
		"invoice_id", inv.ID,
		"provider_message_id", msgID,
	)
	return types.ReminderOutcome{InvoiceID: inv.ID, Sent: true}, nil
}
