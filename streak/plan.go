package streak

import (
	"time"

	"github.com/sukull/istikrar/calendar"
	"github.com/sukull/istikrar/models"
)

// Plan is the result of catching one user up to the calendar day of now.
// It is computed without touching storage; the ledger persists it.
type Plan struct {
	Progress   models.UserProgress
	MissedDays []time.Time // days that must have an achieved=false record
	Reset      bool        // istikrar was broken
	Rollover   bool        // at least one day boundary was crossed
	Changed    bool        // Progress differs from the input
}

// PlanCatchUp reconciles p as of now. yesterday is the stored record for the day before now
// (nil when absent); it is only consulted when exactly one day boundary was crossed.
func PlanCatchUp(cal *calendar.Calendar, p models.UserProgress, yesterday *models.DailyStreakRecord, now time.Time) (Plan, error) {
	plan := Plan{Progress: p}

	// first-ever check
	if p.LastStreakCheck == nil {
		plan.touch(now)
		plan.Progress.Rebase()
		return plan, nil
	}

	lastDay, err := cal.DayOf(*p.LastStreakCheck)
	if err != nil {
		return plan, err
	}
	today, err := cal.DayOf(now)
	if err != nil {
		return plan, err
	}

	gap := cal.DaysBetween(lastDay, today)
	switch {
	case gap == 0:
		return plan, nil
	case gap < 0:
		// clock skew: only move the check forward to now
		plan.touch(now)
		return plan, nil
	}

	plan.Rollover = true
	if p.Istikrar == 0 {
		plan.touch(now)
		plan.Progress.Rebase()
		return plan, nil
	}

	if gap > 1 {
		for d := cal.AddDays(lastDay, 1); d.Before(today); d = cal.AddDays(d, 1) {
			plan.MissedDays = append(plan.MissedDays, d)
		}
		plan.breakStreak(now)
		return plan, nil
	}

	return PlanYesterday(cal, p, yesterday, now)
}

// PlanYesterday settles the day before now for a user with a running streak: a missing or
// unachieved record breaks the streak, an achieved one carries it into today.
func PlanYesterday(cal *calendar.Calendar, p models.UserProgress, yesterday *models.DailyStreakRecord, now time.Time) (Plan, error) {
	plan := Plan{Progress: p, Rollover: true}
	today, err := cal.DayOf(now)
	if err != nil {
		return plan, err
	}

	if yesterday != nil && yesterday.Achieved {
		plan.touch(now)
		plan.Progress.Rebase()
		return plan, nil
	}

	if p.Istikrar == 0 {
		plan.touch(now)
		plan.Progress.Rebase()
		return plan, nil
	}

	plan.MissedDays = []time.Time{cal.AddDays(today, -1)}
	plan.breakStreak(now)
	return plan, nil
}

// PlanSettle is the batch settlement of a running streak as of now. today and yesterday are the
// stored records around now, lastAchieved the most recent achieved record before today; any may be nil.
// An achieved today was already caught up by the reconcile that preceded its flip, so it is
// left alone. A broken streak gets an unachieved record for every day after lastAchieved.
func PlanSettle(cal *calendar.Calendar, p models.UserProgress, today, yesterday, lastAchieved *models.DailyStreakRecord, now time.Time) (Plan, error) {
	if today != nil && today.Achieved {
		return Plan{Progress: p}, nil
	}
	plan, err := PlanYesterday(cal, p, yesterday, now)
	if err != nil || !plan.Reset || lastAchieved == nil {
		return plan, err
	}

	day, err := cal.DayOf(now)
	if err != nil {
		return plan, err
	}
	since, err := cal.ParseKey(lastAchieved.Day)
	if err != nil {
		return plan, err
	}
	var missed []time.Time
	for d := cal.AddDays(since, 1); d.Before(day); d = cal.AddDays(d, 1) {
		missed = append(missed, d)
	}
	if len(missed) > 0 {
		plan.MissedDays = missed
	}
	return plan, nil
}

// GoalMet reports whether the points earned since the baseline reach the daily target.
func GoalMet(p *models.UserProgress) bool {
	return p.PointsEarnedToday() >= p.DailyTarget
}

func (pl *Plan) touch(now time.Time) {
	t := now
	pl.Progress.LastStreakCheck = &t
	pl.Changed = true
}

func (pl *Plan) breakStreak(now time.Time) {
	pl.Progress.Istikrar = 0
	pl.Progress.Rebase()
	pl.touch(now)
	pl.Reset = true
}
