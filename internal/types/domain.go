package types

import "time"

// RecurrenceDayStatus enumerates the lifecycle states of a scheduled work day.
// Transitions other than OPEN -> UNFULFILLED originate from staffing actions
// outside this subsystem; the reconciler owns only that one transition.
type RecurrenceDayStatus string

const (
	RecurrenceDayPending     RecurrenceDayStatus = "PENDING"
	RecurrenceDayOpen        RecurrenceDayStatus = "OPEN"
	RecurrenceDayFilled      RecurrenceDayStatus = "FILLED"
	RecurrenceDayUnfulfilled RecurrenceDayStatus = "UNFULFILLED"
	RecurrenceDayCanceled    RecurrenceDayStatus = "CANCELED"
)

// RecurrenceDay represents one scheduled work occurrence belonging to a
// requisition. Date carries no time component; DayStartTime and DayEndTime are
// wall-clock times of day ("HH:MM:SS") interpreted in the operating timezone.
type RecurrenceDay struct {
	ID            string
	RequisitionID string
	Date          time.Time
	DayStartTime  string
	DayEndTime    string
	Status        RecurrenceDayStatus
	UpdatedAt     time.Time
}

// ExpiredDay identifies a recurrence day transitioned to UNFULFILLED, paired
// with its owning requisition for downstream consumers.
type ExpiredDay struct {
	RecurrenceDayID string `json:"recurrence_day_id"`
	RequisitionID   string `json:"requisition_id"`
}

// InvoiceStatus enumerates billing document states. Only "open" invoices are
// eligible for overdue reminders; this subsystem never writes Invoice.Status.
type InvoiceStatus string

const (
	InvoiceOpen          InvoiceStatus = "open"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceVoid          InvoiceStatus = "void"
	InvoiceUncollectible InvoiceStatus = "uncollectible"
)

// Invoice is the read-only projection of a billable document consumed for
// reminder eligibility. DueDate is a calendar date with no intraday deadline.
type Invoice struct {
	ID            string
	Status        InvoiceStatus
	DueDate       time.Time
	CustomerEmail string
}

// ReminderRecord tracks that an invoice was reminded on a calendar day.
// The (InvoiceID, RemindedOn) pair is unique; a conflicting insert means
// "already reminded" and is the concurrency control for duplicate suppression.
type ReminderRecord struct {
	InvoiceID  string
	RemindedOn time.Time
	CreatedAt  time.Time
}
