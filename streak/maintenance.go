package streak

import (
	"context"
	"fmt"

	"github.com/sukull/istikrar/models"
	"gorm.io/gorm"
)

// ResetReport summarizes one daily maintenance run.
type ResetReport struct {
	Rebased       int64 `json:"rebased"`
	Checked       int   `json:"checked"`
	Reset         int   `json:"reset"`
	MissedRecords int   `json:"missed_records"`
}

// RebaseAllUsersBaseline sets every user's baseline to their current points and stamps the check time.
func (l *Ledger) RebaseAllUsersBaseline(ctx context.Context) (int64, error) {
	now := l.cal.Now()
	res := l.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&models.UserProgress{}).
		Updates(map[string]interface{}{
			"previous_total_points": gorm.Expr("points"),
			"last_streak_check":     now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ResetStreaksForMissedGoal breaks the streak of every user whose yesterday is missing or unachieved.
// Each user is settled in its own locked transaction; users who already achieved today are skipped.
func (l *Ledger) ResetStreaksForMissedGoal(ctx context.Context) (ResetReport, error) {
	var report ResetReport
	var ids []string
	err := l.db.WithContext(ctx).
		Model(&models.UserProgress{}).
		Where("istikrar >= ?", 1).
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return report, fmt.Errorf("list streaks: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		out, err := l.settle(ctx, id)
		if err != nil {
			return report, fmt.Errorf("settle %s: %w", id, err)
		}
		report.Checked++
		report.MissedRecords += out.MissedDays
		if out.Reset {
			report.Reset++
		}
	}
	return report, nil
}

func (l *Ledger) settle(ctx context.Context, userID string) (ReconcileResult, error) {
	var out ReconcileResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := LockProgress(tx, userID)
		if err != nil {
			return err
		}
		if p.Istikrar < 1 {
			return nil
		}
		todayKey := l.cal.Key(l.cal.Today())
		today, err := findRecord(tx, userID, todayKey)
		if err != nil {
			return fmt.Errorf("load today: %w", err)
		}
		yesterday, err := findRecord(tx, userID, l.cal.Key(l.cal.Yesterday()))
		if err != nil {
			return fmt.Errorf("load yesterday: %w", err)
		}
		lastAchieved, err := lastAchievedBefore(tx, userID, todayKey)
		if err != nil {
			return fmt.Errorf("load last achieved: %w", err)
		}
		plan, err := PlanSettle(l.cal, *p, today, yesterday, lastAchieved, l.cal.Now())
		if err != nil {
			return err
		}
		out, err = l.apply(tx, p, plan)
		return err
	})
	return out, err
}

// PerformDailyReset rebases every baseline and then resets broken streaks.
// A failed rebase aborts before any reset.
func (l *Ledger) PerformDailyReset(ctx context.Context) (ResetReport, error) {
	rebased, err := l.RebaseAllUsersBaseline(ctx)
	if err != nil {
		return ResetReport{}, fmt.Errorf("rebase baselines: %w", err)
	}
	report, err := l.ResetStreaksForMissedGoal(ctx)
	report.Rebased = rebased
	if err != nil {
		return report, fmt.Errorf("reset streaks: %w", err)
	}
	l.log.Infow("daily reset finished",
		"rebased", report.Rebased,
		"checked", report.Checked,
		"reset", report.Reset,
		"missed_records", report.MissedRecords,
	)
	return report, nil
}
