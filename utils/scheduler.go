package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sukull/istikrar/calendar"
)

// DailyJob is work that must run once per calendar day.
type DailyJob func(ctx context.Context) error

// DailyScheduler polls the calendar and runs a job once per day, shortly after midnight.
// A Redis lock keyed by the day keeps several instances from running it twice.
type DailyScheduler struct {
	Name     string
	Calendar *calendar.Calendar
	Redis    *redis.Client
	Interval time.Duration // poll period
	Window   time.Duration // how long after midnight a run may still start
	Job      DailyJob

	lastDay string
}

// Start launches the polling goroutine. It stops when ctx is done.
func (s *DailyScheduler) Start(ctx context.Context) {
	if s.Interval <= 0 {
		s.Interval = 5 * time.Minute
	}
	if s.Window <= 0 {
		s.Window = time.Hour
	}
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunDue(ctx); err != nil {
					Sugar.Errorw("daily job failed", "job", s.Name, "error", err)
				}
			}
		}
	}()
}

// RunDue runs the job if today's run is due and not yet taken. It reports whether it ran.
func (s *DailyScheduler) RunDue(ctx context.Context) (bool, error) {
	now := s.Calendar.Now()
	day := s.Calendar.Key(now)
	if day == s.lastDay {
		return false, nil
	}
	window := s.Window
	if window <= 0 {
		window = time.Hour
	}
	if now.Sub(s.Calendar.Today()) > window {
		return false, nil
	}

	ok, err := TryLock(ctx, s.Redis, s.Name+":"+day, 26*time.Hour)
	if err != nil {
		return false, err
	}
	s.lastDay = day
	if !ok {
		Sugar.Debugw("daily job already taken", "job", s.Name, "day", day)
		return false, nil
	}

	Sugar.Infow("daily job starting", "job", s.Name, "day", day)
	return true, s.Job(ctx)
}
