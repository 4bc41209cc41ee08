// Package config defines the configuration structure for the ShiftDesk
// reconciliation service. Configuration is loaded once at process
// initialization and is immutable thereafter, following 12-Factor principles.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup.
package config

import (
	"time"

	"shiftdesk/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the reconciliation service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"shiftdesk-reconciler"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Timezone is the single operating timezone in which all calendar-date and
	// time-of-day predicates are evaluated. Entities do not carry per-row
	// timezones; a mixed-timezone deployment is out of scope.
	Timezone string `envconfig:"OPERATING_TIMEZONE" default:"America/New_York" validate:"required"`

	// Domain Configurations
	Server    ServerConfig
	Database  DatabaseConfig
	Trigger   TriggerConfig
	Mail      MailConfig
	Reminders ReminderConfig
	Schedules ScheduleConfig
}

// ServerConfig holds HTTP server settings for the trigger endpoints.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// TriggerConfig holds the shared secret and freshness window for externally
// signed job triggers. The secret keys the HMAC that binds a signature to a
// specific timestamp and job name; signatures older than FreshnessWindow are
// rejected to defeat replay.
type TriggerConfig struct {
	Secret          SecretString  `envconfig:"TRIGGER_SECRET" validate:"required,min=32"`
	FreshnessWindow time.Duration `envconfig:"TRIGGER_FRESHNESS_WINDOW" default:"5m"`
}

// MailConfig holds notification gateway credentials and template selection.
type MailConfig struct {
	APIKey      SecretString `envconfig:"MAIL_API_KEY" validate:"required"`
	BaseURL     string       `envconfig:"MAIL_BASE_URL"` // Override for testing; empty uses the provider default.
	FromAddress string       `envconfig:"MAIL_FROM_ADDRESS" default:"billing@shiftdesk.io"`
	FromName    string       `envconfig:"MAIL_FROM_NAME" default:"ShiftDesk Billing"`
	// ReminderTemplateID is the provider-side dynamic template used for
	// overdue invoice reminders. Body rendering is the provider's concern.
	ReminderTemplateID string        `envconfig:"MAIL_REMINDER_TEMPLATE_ID" validate:"required"`
	Timeout            time.Duration `envconfig:"MAIL_TIMEOUT" default:"10s"`
}

// ReminderConfig tunes the invoice reminder fan-out.
type ReminderConfig struct {
	// MaxConcurrentSends bounds the notification fan-out worker pool so one
	// slow delivery cannot stall the remainder of the batch.
	MaxConcurrentSends int64 `envconfig:"REMINDER_MAX_CONCURRENT_SENDS" default:"8" validate:"min=1"`
}

// ScheduleConfig holds cron expressions for the in-process periodic invoker.
// The cron path calls the exact same reconciler entry points as the signed
// HTTP path; only transport authentication differs.
type ScheduleConfig struct {
	ExpireRecurrenceDays string `envconfig:"CRON_EXPIRE_RECURRENCE_DAYS" default:"*/10 * * * *"`
	InvoiceReminders     string `envconfig:"CRON_INVOICE_REMINDERS" default:"0 9 * * *"`
}

// ErrorType categorizes configuration loading failures to aid debugging.
type ErrorType string

const (
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ErrorType = "PARSING_FAILED"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ErrorType = "VALIDATION_FAILED"
)
