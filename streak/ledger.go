package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sukull/istikrar/calendar"
	"github.com/sukull/istikrar/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ledger owns the per-day achievement records and the istikrar counter derived from them.
type Ledger struct {
	db  *gorm.DB
	cal *calendar.Calendar
	log *zap.SugaredLogger
}

// ReconcileResult reports what catching a user up changed.
type ReconcileResult struct {
	Reset      bool `json:"reset"`
	Rollover   bool `json:"rollover"`
	MissedDays int  `json:"missed_days"`
}

// Evaluation is the outcome of checking today's goal.
type Evaluation struct {
	Achieved bool          `json:"achieved"`
	Streak   int           `json:"streak"`
	Advanced bool          `json:"advanced"`
	Unlocked []Requirement `json:"unlocked,omitempty"`
}

// NewLedger builds a Ledger. A nil logger discards output.
func NewLedger(db *gorm.DB, cal *calendar.Calendar, log *zap.SugaredLogger) *Ledger {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Ledger{db: db, cal: cal, log: log}
}

// Calendar returns the calendar every decision of this ledger is made in.
func (l *Ledger) Calendar() *calendar.Calendar { return l.cal }

// ReconcileMissedDays catches userID up to today in its own transaction.
// A user without progress is a no-op.
func (l *Ledger) ReconcileMissedDays(ctx context.Context, userID string) (ReconcileResult, error) {
	var out ReconcileResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := LockProgress(tx, userID)
		if errors.Is(err, ErrProgressNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out, err = l.Reconcile(tx, p)
		return err
	})
	return out, err
}

// Reconcile catches a locked progress row up to today inside tx. p is updated in place.
func (l *Ledger) Reconcile(tx *gorm.DB, p *models.UserProgress) (ReconcileResult, error) {
	now := l.cal.Now()

	var yesterday *models.DailyStreakRecord
	if p.LastStreakCheck != nil && p.Istikrar > 0 {
		today, err := l.cal.DayOf(now)
		if err != nil {
			return ReconcileResult{}, err
		}
		yesterday, err = findRecord(tx, p.UserID, l.cal.Key(l.cal.AddDays(today, -1)))
		if err != nil {
			return ReconcileResult{}, fmt.Errorf("load yesterday: %w", err)
		}
	}

	plan, err := PlanCatchUp(l.cal, *p, yesterday, now)
	if err != nil {
		return ReconcileResult{}, err
	}
	return l.apply(tx, p, plan)
}

func (l *Ledger) apply(tx *gorm.DB, p *models.UserProgress, plan Plan) (ReconcileResult, error) {
	out := ReconcileResult{Reset: plan.Reset, Rollover: plan.Rollover}
	n, err := insertMissed(tx, l.cal, p.UserID, plan.MissedDays)
	if err != nil {
		return out, fmt.Errorf("insert missed days: %w", err)
	}
	out.MissedDays = int(n)
	if plan.Changed {
		*p = plan.Progress
		if err := SaveProgress(tx, p); err != nil {
			return out, fmt.Errorf("save progress: %w", err)
		}
	}
	if plan.Reset {
		l.log.Infow("istikrar reset", "user_id", p.UserID, "missed_days", len(plan.MissedDays))
	}
	return out, nil
}

// EvaluateToday catches userID up and checks today's goal in its own transaction.
func (l *Ledger) EvaluateToday(ctx context.Context, userID string) (Evaluation, error) {
	var out Evaluation
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := LockProgress(tx, userID)
		if err != nil {
			return err
		}
		if _, err := l.Reconcile(tx, p); err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		out, err = l.Evaluate(tx, p)
		return err
	})
	return out, err
}

// Evaluate marks today achieved once points earned since the baseline reach the target.
// The streak advances only for the call that flips today's record; later calls are no-ops.
func (l *Ledger) Evaluate(tx *gorm.DB, p *models.UserProgress) (Evaluation, error) {
	out := Evaluation{Streak: p.Istikrar}
	if !GoalMet(p) {
		return out, nil
	}
	out.Achieved = true

	now := l.cal.Now()
	today, err := l.cal.DayOf(now)
	if err != nil {
		return out, err
	}
	rec, err := findRecord(tx, p.UserID, l.cal.Key(today))
	if err != nil {
		return out, fmt.Errorf("load today: %w", err)
	}
	if rec != nil && rec.Achieved {
		return out, nil
	}

	flipped, err := markAchieved(tx, l.cal, p.UserID, today, now)
	if err != nil {
		return out, fmt.Errorf("mark achieved: %w", err)
	}
	if !flipped {
		return out, nil
	}

	p.Istikrar++
	checked := now
	p.LastStreakCheck = &checked
	out.Unlocked = applyUnlocks(p)
	if err := SaveProgress(tx, p); err != nil {
		return out, fmt.Errorf("save progress: %w", err)
	}
	out.Streak = p.Istikrar
	out.Advanced = true
	l.log.Debugw("daily goal achieved", "user_id", p.UserID, "day", l.cal.Key(today), "istikrar", p.Istikrar)
	for _, r := range out.Unlocked {
		l.log.Infow("feature unlocked", "user_id", p.UserID, "requirement", r, "istikrar", p.Istikrar)
	}
	return out, nil
}

// TodayAchieved reports whether userID already has an achieved record for today.
func (l *Ledger) TodayAchieved(tx *gorm.DB, userID string) (bool, error) {
	rec, err := findRecord(tx, userID, l.cal.Key(l.cal.Today()))
	if err != nil {
		return false, err
	}
	return rec != nil && rec.Achieved, nil
}

// MonthRecords returns the records of userID within one calendar month, ordered by day.
func (l *Ledger) MonthRecords(ctx context.Context, userID string, year int, month time.Month) ([]models.DailyStreakRecord, error) {
	first, next, err := l.cal.MonthRange(year, month)
	if err != nil {
		return nil, err
	}
	var recs []models.DailyStreakRecord
	err = l.db.WithContext(ctx).
		Where("user_id = ? AND day >= ? AND day < ?", userID, l.cal.Key(first), l.cal.Key(next)).
		Order("day").
		Find(&recs).Error
	return recs, err
}
