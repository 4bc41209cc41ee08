package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shiftdesk/internal/clock"
	"shiftdesk/internal/types"
)

// Dispatcher routes a job name to its reconciler. Both trigger sources (the
// in-process cron timer and the signed HTTP endpoints) go through Run, which
// guarantees identical semantics regardless of how a job was invoked.
type Dispatcher struct {
	days     *RecurrenceDayReconciler
	invoices *InvoiceReminderReconciler
	clk      clock.Clock
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher over the two reconcilers. The clock
// supplies the reference time when the caller does not provide one.
func NewDispatcher(days *RecurrenceDayReconciler, invoices *InvoiceReminderReconciler, clk clock.Clock, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		days:     days,
		invoices: invoices,
		clk:      clk,
		logger:   logger,
	}
}

// Run executes the named job against the current clock reading. An unknown
// job name is a validation error rejected before any persistence access.
func (d *Dispatcher) Run(ctx context.Context, job types.JobName) (types.JobResult, error) {
	return d.RunAt(ctx, job, d.clk.Now())
}

// RunAt executes the named job against an explicit reference time. Used by
// the job-runner tool for deterministic execution and backfills.
func (d *Dispatcher) RunAt(ctx context.Context, job types.JobName, now time.Time) (types.JobResult, error) {
	switch job {
	case types.JobExpireRecurrenceDays:
		return d.days.ReconcileExpiredDays(ctx, now)
	case types.JobInvoiceReminders:
		return d.invoices.SendOverdueReminders(ctx, now)
	default:
		err := types.NewAppError(
			types.ErrCodeValidationUnknownJob,
			fmt.Sprintf("unknown job %q", string(job)),
			nil,
		)
		d.logger.Warn("unknown job requested", "job", string(job))
		return failedResult(err), err
	}
}
