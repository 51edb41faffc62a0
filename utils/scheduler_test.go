package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sukull/istikrar/calendar"
	"github.com/sukull/istikrar/testutil"
)

func TestDailySchedulerRunsOncePerDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	clock := testutil.NewClock(time.Date(2026, 10, 18, 0, 10, 0, 0, loc))
	cal := calendar.New(3, clock)

	runs := 0
	job := func(context.Context) error { runs++; return nil }
	s := &DailyScheduler{Name: "test-once", Calendar: cal, Window: time.Hour, Job: job}

	ran, err := s.RunDue(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)

	ran, err = s.RunDue(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)

	// a second instance sharing the lock does not run the same day
	other := &DailyScheduler{Name: "test-once", Calendar: cal, Window: time.Hour, Job: job}
	ran, err = other.RunDue(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 1, runs)

	clock.Advance(24 * time.Hour)
	ran, err = s.RunDue(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 2, runs)
}

func TestDailySchedulerSkipsOutsideWindow(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	clock := testutil.NewClock(time.Date(2026, 10, 18, 14, 0, 0, 0, loc))
	s := &DailyScheduler{
		Name:     "test-window",
		Calendar: calendar.New(3, clock),
		Window:   time.Hour,
		Job:      func(context.Context) error { t.Fatal("must not run"); return nil },
	}

	ran, err := s.RunDue(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestDailySchedulerReportsJobError(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	clock := testutil.NewClock(time.Date(2026, 10, 18, 0, 1, 0, 0, loc))
	boom := errors.New("boom")
	s := &DailyScheduler{
		Name:     "test-error",
		Calendar: calendar.New(3, clock),
		Job:      func(context.Context) error { return boom },
	}

	ran, err := s.RunDue(context.Background())
	assert.True(t, ran)
	assert.ErrorIs(t, err, boom)
}

func TestTryLockMemoryFallback(t *testing.T) {
	ok, err := TryLock(context.Background(), nil, "test-lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = TryLock(context.Background(), nil, "test-lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = TryLock(context.Background(), nil, "test-lock-expired", -time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = TryLock(context.Background(), nil, "test-lock-expired", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
