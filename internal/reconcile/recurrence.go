// Package reconcile implements the scheduled state-reconciliation jobs for
// the ShiftDesk back office. Each job is a short-lived, stateless service:
// all durable state lives in the store, every invocation takes an explicit
// reference time, and entry points are safe to trigger concurrently from the
// in-process cron timer and from externally signed HTTP calls.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"shiftdesk/internal/clock"
	"shiftdesk/internal/types"
)

// ExpiryStore defines the database operations needed by the recurrence-day
// reconciler. Using a narrow interface allows clean testing without database
// dependencies.
type ExpiryStore interface {
	// ExpireOpenDays atomically transitions every OPEN day matching the expiry
	// predicate to UNFULFILLED and returns the affected (day, requisition)
	// pairs. Must be a single conditional statement so concurrent invocations
	// cannot double-transition a row.
	ExpireOpenDays(ctx context.Context, now time.Time, today time.Time, timeOfDay string) ([]types.ExpiredDay, error)
}

// RecurrenceDayReconciler transitions expired work-day records from OPEN to
// UNFULFILLED. It is the sole owner of that transition.
type RecurrenceDayReconciler struct {
	store  ExpiryStore
	logger *slog.Logger
}

// NewRecurrenceDayReconciler creates a RecurrenceDayReconciler with the given
// store and logger.
func NewRecurrenceDayReconciler(store ExpiryStore, logger *slog.Logger) *RecurrenceDayReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecurrenceDayReconciler{
		store:  store,
		logger: logger,
	}
}

// ReconcileExpiredDays finds every OPEN recurrence day that has expired
// relative to now and marks it UNFULFILLED.
//
// A day matches when its date has fully passed, or when it is today and its
// end time precedes now's wall-clock time. Both "today" and the time of day
// derive from the single now parameter so the predicate is evaluated against
// one reference clock.
//
// Zero matches is a success with count 0, not an error. Re-running after a
// successful run selects nothing new, so at-least-once re-execution is safe.
// The result's details list the transitioned (day, requisition) pairs for
// downstream consumers; this job does not notify on expiry itself.
//
// On a store failure the whole invocation fails atomically: no partial status
// changes persist, and the error is surfaced both in the result and as the
// returned error for the dispatcher to map to a transport status.
func (r *RecurrenceDayReconciler) ReconcileExpiredDays(ctx context.Context, now time.Time) (types.JobResult, error) {
	today := clock.StartOfDay(now)
	timeOfDay := clock.TimeOfDay(now)

	expired, err := r.store.ExpireOpenDays(ctx, now, today, timeOfDay)
	if err != nil {
		r.logger.Error("recurrence day reconciliation failed",
			"job", string(types.JobExpireRecurrenceDays),
			"error", err,
		)
		return failedResult(err), err
	}

	if len(expired) == 0 {
		r.logger.Info("no expired recurrence days",
			"job", string(types.JobExpireRecurrenceDays),
			"reference_time", now,
		)
		return types.JobResult{Success: true, Count: 0}, nil
	}

	r.logger.Info("expired recurrence days transitioned",
		"job", string(types.JobExpireRecurrenceDays),
		"count", len(expired),
		"reference_time", now,
	)

	return types.JobResult{
		Success: true,
		Count:   len(expired),
		Details: expired,
	}, nil
}
