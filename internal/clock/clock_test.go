package clock

import (
	"testing"
	"time"
)

func TestNewSystemClock_ValidTimezone(t *testing.T) {
	clk, err := NewSystemClock("America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clk.Location().String() != "America/New_York" {
		t.Errorf("expected America/New_York, got %s", clk.Location())
	}
	if clk.Now().Location() != clk.Location() {
		t.Error("Now() must report in the operating timezone")
	}
}

func TestNewSystemClock_UnknownTimezone(t *testing.T) {
	_, err := NewSystemClock("Mars/Olympus_Mons")
	if err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestFixedClock_Now(t *testing.T) {
	instant := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	clk := FixedClock{Instant: instant}
	if !clk.Now().Equal(instant) {
		t.Errorf("expected %v, got %v", instant, clk.Now())
	}
}

func TestStartOfDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "midnight stays midnight",
			in:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "late evening truncates",
			in:   time.Date(2024, 1, 2, 23, 59, 59, 999999999, time.UTC),
			want: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "keeps location",
			in:   time.Date(2024, 7, 4, 12, 30, 0, 0, loc),
			want: time.Date(2024, 7, 4, 0, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartOfDay(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("StartOfDay(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Location() != tt.in.Location() {
				t.Errorf("location changed: got %v, want %v", got.Location(), tt.in.Location())
			}
		})
	}
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC), "17:00:00"},
		{time.Date(2024, 1, 1, 16, 59, 59, 0, time.UTC), "16:59:59"},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "00:00:00"},
		{time.Date(2024, 1, 1, 9, 5, 3, 0, time.UTC), "09:05:03"},
	}

	for _, tt := range tests {
		if got := TimeOfDay(tt.in); got != tt.want {
			t.Errorf("TimeOfDay(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTimeOfDay_LexicographicOrderMatchesTemporalOrder(t *testing.T) {
	// The SQL predicate compares these strings; zero-padding makes string
	// order agree with clock order.
	earlier := TimeOfDay(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC))
	later := TimeOfDay(time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC))
	if !(earlier < later) {
		t.Errorf("expected %q < %q", earlier, later)
	}
}
