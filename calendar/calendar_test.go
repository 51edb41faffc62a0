package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sukull/istikrar/calendar"
	"github.com/sukull/istikrar/testutil"
)

func TestTodayUsesCanonicalOffset(t *testing.T) {
	// 22:30 UTC is already 01:30 the next day at UTC+3
	clock := testutil.NewClock(time.Date(2026, 10, 17, 22, 30, 0, 0, time.UTC))
	cal := calendar.New(3, clock)

	today := cal.Today()
	assert.Equal(t, "2026-10-18", cal.Key(today))
	assert.Equal(t, 0, today.Hour())
	assert.Equal(t, "2026-10-19", cal.Key(cal.Tomorrow()))
	assert.Equal(t, "2026-10-17", cal.Key(cal.Yesterday()))
}

func TestDayOfMatchesToday(t *testing.T) {
	now := time.Date(2026, 10, 17, 21, 0, 0, 0, time.UTC)
	cal := calendar.New(3, testutil.NewClock(now))

	day, err := cal.DayOf(now)
	require.NoError(t, err)
	assert.True(t, day.Equal(cal.Today()))

	before, err := cal.DayOf(now.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", cal.Key(before))
}

func TestDayOfRejectsZeroTime(t *testing.T) {
	cal := calendar.New(3, nil)
	_, err := cal.DayOf(time.Time{})
	assert.ErrorIs(t, err, calendar.ErrInvalidTimestamp)
}

func TestDaysBetween(t *testing.T) {
	cal := calendar.New(3, nil)
	a, err := cal.ParseKey("2026-02-27")
	require.NoError(t, err)

	tests := []struct {
		name string
		b    string
		want int
	}{
		{"same day", "2026-02-27", 0},
		{"next day", "2026-02-28", 1},
		{"across month end", "2026-03-02", 3},
		{"backwards", "2026-02-25", -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := cal.ParseKey(tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cal.DaysBetween(a, b))
		})
	}
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	cal := calendar.New(3, nil)
	late := time.Date(2026, 10, 16, 20, 59, 0, 0, time.UTC) // 23:59 local
	early := time.Date(2026, 10, 16, 21, 1, 0, 0, time.UTC) // 00:01 local next day
	assert.Equal(t, 1, cal.DaysBetween(late, early))
}

func TestParseKeyInvalid(t *testing.T) {
	cal := calendar.New(3, nil)
	_, err := cal.ParseKey("18/10/2026")
	assert.ErrorIs(t, err, calendar.ErrInvalidTimestamp)
}

func TestMonthRange(t *testing.T) {
	cal := calendar.New(3, nil)
	first, next, err := cal.MonthRange(2026, time.December)
	require.NoError(t, err)
	assert.Equal(t, "2026-12-01", cal.Key(first))
	assert.Equal(t, "2027-01-01", cal.Key(next))

	_, _, err = cal.MonthRange(2026, 13)
	assert.ErrorIs(t, err, calendar.ErrInvalidTimestamp)
}
