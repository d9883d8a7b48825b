package journal

import (
	"fmt"
	"time"
)

// dayLayout is the canonical day-key format, one key per calendar day.
const dayLayout = "2006-01-02"

// DayKey uniquely identifies one diary entry.
type DayKey string

// String returns the key in YYYY-MM-DD form.
func (d DayKey) String() string { return string(d) }

// ParseDayKey validates a YYYY-MM-DD string and returns it as a DayKey.
func ParseDayKey(s string) (DayKey, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid day key %q (want YYYY-MM-DD): %w", s, err)
	}
	return DayKeyFor(t), nil
}

// DayKeyFor returns the day key for the calendar day containing t,
// in t's location.
func DayKeyFor(t time.Time) DayKey {
	return DayKey(t.Format(dayLayout))
}
