package db

import (
	"context"
	"time"

	"shiftdesk/internal/types"
)

// RecurrenceDayRepository provides data access for the recurrence_days table.
// This subsystem is the sole writer of the OPEN -> UNFULFILLED transition;
// all other status changes originate from staffing actions elsewhere.
type RecurrenceDayRepository struct {
	db DBTX
}

// NewRecurrenceDayRepository creates a RecurrenceDayRepository backed by the
// given database connection (pool or transaction).
func NewRecurrenceDayRepository(db DBTX) *RecurrenceDayRepository {
	return &RecurrenceDayRepository{db: db}
}

// ExpireOpenDays transitions every expired OPEN day to UNFULFILLED in a single
// conditional UPDATE and returns the affected (day, requisition) pairs.
//
// A day is expired when its calendar date has fully passed, or when it is
// today and its end time has elapsed. The two granularities are deliberate:
// day_end_time only matters for today's rows.
//
// Because selection and transition happen in one statement, concurrent
// invocations converge on the same final state: a row already moved to
// UNFULFILLED no longer satisfies status = 'OPEN' and cannot transition twice.
// Re-running after success therefore returns an empty slice, not an error.
//
// SQL: UPDATE recurrence_days
//      SET status = 'UNFULFILLED', updated_at = $1
//      WHERE status = 'OPEN'
//        AND (date < $2 OR (date = $2 AND day_end_time < $3))
//      RETURNING id, requisition_id
func (r *RecurrenceDayRepository) ExpireOpenDays(ctx context.Context, now time.Time, today time.Time, timeOfDay string) ([]types.ExpiredDay, error) {
	rows, err := r.db.Query(ctx,
		`UPDATE recurrence_days
		 SET status = $1, updated_at = $2
		 WHERE status = $3
		   AND (date < $4 OR (date = $4 AND day_end_time < $5))
		 RETURNING id, requisition_id`,
		string(types.RecurrenceDayUnfulfilled),
		now,
		string(types.RecurrenceDayOpen),
		today,
		timeOfDay,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to expire open recurrence days", err)
	}
	defer rows.Close()

	var expired []types.ExpiredDay
	for rows.Next() {
		var day types.ExpiredDay
		if err := rows.Scan(&day.RecurrenceDayID, &day.RequisitionID); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan expired recurrence day", err)
		}
		expired = append(expired, day)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read expired recurrence days", err)
	}

	return expired, nil
}
