package types

// JobName identifies a reconciliation job. The name is part of the signed
// trigger content, so renaming a constant invalidates in-flight signatures.
type JobName string

const (
	JobExpireRecurrenceDays JobName = "expire_recurrence_days"
	JobInvoiceReminders     JobName = "invoice_reminders"
)

// ItemError records a per-item failure inside an otherwise successful batch.
// A populated Errors slice does not imply whole-job failure.
type ItemError struct {
	ItemID  string `json:"item_id"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// JobResult is the uniform envelope produced by every reconciler invocation.
// The trigger dispatcher consumes it to choose an HTTP status: a failed result
// maps to 500, a successful result maps to 200 even when Errors is non-empty
// (partial notification failures) or Count is zero (nothing to reconcile).
type JobResult struct {
	Success bool        `json:"success"`
	Count   int         `json:"count"`
	Details any         `json:"details,omitempty"`
	Errors  []ItemError `json:"errors,omitempty"`
}

// ReminderOutcome is the per-invoice detail entry of the invoice reminder job.
type ReminderOutcome struct {
	InvoiceID string `json:"invoice_id"`
	Sent      bool   `json:"sent"`
	Skipped   bool   `json:"skipped,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
