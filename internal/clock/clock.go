// Package clock supplies the reference time for reconciliation jobs.
//
// All temporal predicates in this service are evaluated against a single
// reference instant resolved in the configured operating timezone. Entities
// store calendar dates and wall-clock times of day without per-row timezones;
// treating the operating timezone as an explicit configuration value (rather
// than relying on the host's local time) is what makes the date/time-of-day
// comparisons well defined. Mixed-timezone fleets are an explicit limitation.
package clock

import (
	"fmt"
	"time"
)

// Clock supplies the current instant. Reconcilers and dispatchers take a Clock
// at construction so tests can pin time deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock. It reports the current time in the
// operating timezone loaded at startup.
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock loads the named timezone and returns a SystemClock pinned to
// it. An unknown timezone name is a configuration error and is returned to the
// caller so startup can fail fast.
func NewSystemClock(timezone string) (*SystemClock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading operating timezone %q: %w", timezone, err)
	}
	return &SystemClock{loc: loc}, nil
}

// Now returns the current instant in the operating timezone.
func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the operating timezone.
func (c *SystemClock) Location() *time.Location {
	return c.loc
}

// FixedClock is a Clock that always reports the same instant. Used by tests
// and by the job-runner tool's reference-time override.
type FixedClock struct {
	Instant time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.Instant
}

// StartOfDay truncates t to midnight in t's own location. The result is the
// "today" used by calendar-date predicates.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// TimeOfDay formats t's wall-clock time as "HH:MM:SS" for comparison against
// stored day-end times. Lexicographic order on this format matches temporal
// order, which the SQL predicates rely on.
func TimeOfDay(t time.Time) string {
	return t.Format("15:04:05")
}
