package db

import (
	"context"
	"time"

	"shiftdesk/internal/types"
)

// InvoiceRepository provides read access to the invoices table and write
// access to the invoice_reminders duplicate-suppression ledger. Invoice
// status is never written here; this subsystem only triggers notifications.
type InvoiceRepository struct {
	db DBTX
}

// NewInvoiceRepository creates an InvoiceRepository backed by the given
// database connection (pool or transaction).
func NewInvoiceRepository(db DBTX) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// ListOverdueOpen returns open invoices whose due date precedes today.
// The comparison is date-only; invoices carry no intraday deadline.
//
// SQL: SELECT id, status, due_date, customer_email FROM invoices
//      WHERE status = 'open' AND due_date < $1
//      ORDER BY due_date, id
func (r *InvoiceRepository) ListOverdueOpen(ctx context.Context, today time.Time) ([]types.Invoice, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, status, due_date, customer_email
		 FROM invoices
		 WHERE status = $1 AND due_date < $2
		 ORDER BY due_date, id`,
		string(types.InvoiceOpen),
		today,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list overdue invoices", err)
	}
	defer rows.Close()

	var invoices []types.Invoice
	for rows.Next() {
		var inv types.Invoice
		var status string
		if err := rows.Scan(&inv.ID, &status, &inv.DueDate, &inv.CustomerEmail); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan overdue invoice", err)
		}
		inv.Status = types.InvoiceStatus(status)
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read overdue invoices", err)
	}

	return invoices, nil
}

// HasReminder reports whether a reminder was already recorded for the invoice
// on the given calendar day. Used as the cheap pre-send check; the uniqueness
// constraint behind InsertReminderIfAbsent remains the authoritative guard.
//
// SQL: SELECT EXISTS(SELECT 1 FROM invoice_reminders
//      WHERE invoice_id = $1 AND reminded_on = $2)
func (r *InvoiceRepository) HasReminder(ctx context.Context, invoiceID string, day time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM invoice_reminders
			WHERE invoice_id = $1 AND reminded_on = $2
		 )`,
		invoiceID,
		day,
	).Scan(&exists)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check reminder record", err)
	}
	return exists, nil
}

// InsertReminderIfAbsent records that the invoice was reminded on the given
// calendar day. Returns inserted=false when a record for (invoice_id,
// reminded_on) already exists; the caller treats that as "already reminded",
// not an error. The unique constraint turns a racing duplicate into a no-op.
//
// SQL: INSERT INTO invoice_reminders (invoice_id, reminded_on)
//      VALUES ($1, $2) ON CONFLICT (invoice_id, reminded_on) DO NOTHING
func (r *InvoiceRepository) InsertReminderIfAbsent(ctx context.Context, invoiceID string, day time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO invoice_reminders (invoice_id, reminded_on)
		 VALUES ($1, $2)
		 ON CONFLICT (invoice_id, reminded_on) DO NOTHING`,
		invoiceID,
		day,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to insert reminder record", err)
	}
	return tag.RowsAffected() == 1, nil
}
