package schedule

import (
	"fmt"
	"strings"
	"time"
)

const day = 24 * time.Hour

// TimeOfDayLayout is the wire layout for times of day
const TimeOfDayLayout = "15:04:05"

// TimeOfDay is a wall-clock offset from local midnight, always in [0, 24h)
type TimeOfDay time.Duration

// NewTimeOfDay builds a TimeOfDay from its clock fields
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	d := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second
	return normalize(d)
}

// ClockOf returns the wall-clock time of day of t in its own location
func ClockOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return NewTimeOfDay(h, m, s) + TimeOfDay(t.Nanosecond())
}

// ParseTimeOfDay parses an HH:MM:SS string. Fractional seconds are rejected.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil || strings.ContainsAny(s, ".,") {
		return 0, fmt.Errorf("%w: %q, expected HH:MM:SS", ErrInvalidLightTime, s)
	}
	return ClockOf(t), nil
}

// Add returns the time of day d later, wrapping past midnight.
// Only the time of day survives, so 23:00 plus 2h is 01:00.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return normalize(time.Duration(t) + d%day)
}

// String formats the time of day as HH:MM:SS, dropping fractional seconds
func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// MarshalText renders the time of day for JSON and YAML encoders
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func normalize(d time.Duration) TimeOfDay {
	d %= day
	if d < 0 {
		d += day
	}
	return TimeOfDay(d)
}
