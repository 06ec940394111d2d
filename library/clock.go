package library

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for storage and display.
const DateLayout = "2006-01-02"

// Clock supplies the current calendar date.
type Clock interface {
	Today() time.Time
}

// SystemClock reads the wall clock in the local time zone.
type SystemClock struct{}

func (SystemClock) Today() time.Time { return DateOf(time.Now()) }

// FixedClock always reports the same date. Tests and the --today flag use it
// to simulate the passage of time.
type FixedClock struct {
	Date time.Time
}

func (c *FixedClock) Today() time.Time { return DateOf(c.Date) }

// Advance moves the clock forward by the given number of days.
func (c *FixedClock) Advance(days int) { c.Date = c.Date.AddDate(0, 0, days) }

// DateOf drops the time of day, keeping the calendar date as seen in t's
// location, and returns it as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
