package calendar

import (
	"errors"
	"fmt"
	"time"
)

// KeyLayout is the storage format of a calendar day.
const KeyLayout = "2006-01-02"

// DefaultOffsetHours is the canonical offset used when none is configured (Türkiye, UTC+3).
const DefaultOffsetHours = 3

// ErrInvalidTimestamp is returned for zero or unparsable timestamps.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Calendar maps instants onto calendar days in one fixed UTC offset.
// Every day-boundary decision must go through the same Calendar value.
type Calendar struct {
	loc   *time.Location
	clock Clock
}

// New returns a Calendar for the given offset in whole hours. A nil clock means the system clock.
func New(offsetHours int, clock Clock) *Calendar {
	if clock == nil {
		clock = SystemClock{}
	}
	name := fmt.Sprintf("UTC%+d", offsetHours)
	return &Calendar{
		loc:   time.FixedZone(name, offsetHours*3600),
		clock: clock,
	}
}

// Location returns the canonical zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Now returns the current instant expressed in the canonical offset.
func (c *Calendar) Now() time.Time {
	return c.clock.Now().In(c.loc)
}

// Today returns midnight of the current day in the canonical offset.
func (c *Calendar) Today() time.Time {
	return c.truncate(c.Now())
}

// Tomorrow returns Today() + 1 day.
func (c *Calendar) Tomorrow() time.Time {
	return c.AddDays(c.Today(), 1)
}

// Yesterday returns Today() - 1 day.
func (c *Calendar) Yesterday() time.Time {
	return c.AddDays(c.Today(), -1)
}

// DayOf returns the calendar day containing t.
func (c *Calendar) DayOf(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrInvalidTimestamp
	}
	return c.truncate(t.In(c.loc)), nil
}

// Key formats the calendar day containing t as YYYY-MM-DD.
func (c *Calendar) Key(t time.Time) string {
	return t.In(c.loc).Format(KeyLayout)
}

// ParseKey parses a YYYY-MM-DD key back into its midnight.
func (c *Calendar) ParseKey(key string) (time.Time, error) {
	d, err := time.ParseInLocation(KeyLayout, key, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, key)
	}
	return d, nil
}

// AddDays moves a calendar day by n days.
func (c *Calendar) AddDays(day time.Time, n int) time.Time {
	d := day.In(c.loc)
	return time.Date(d.Year(), d.Month(), d.Day()+n, 0, 0, 0, 0, c.loc)
}

// DaysBetween returns the number of whole days from a to b (negative when b is earlier).
func (c *Calendar) DaysBetween(a, b time.Time) int {
	da := c.truncate(a.In(c.loc))
	db := c.truncate(b.In(c.loc))
	// fixed offset, no DST: every day is exactly 24h
	return int(db.Sub(da) / (24 * time.Hour))
}

// MonthRange returns the first day of the month and the first day of the next month.
func (c *Calendar) MonthRange(year int, month time.Month) (time.Time, time.Time, error) {
	if month < time.January || month > time.December || year < 1 {
		return time.Time{}, time.Time{}, ErrInvalidTimestamp
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, c.loc)
	return first, first.AddDate(0, 1, 0), nil
}

func (c *Calendar) truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}
