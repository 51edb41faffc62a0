package streak

import (
	"errors"
	"time"

	"github.com/sukull/istikrar/calendar"
	"github.com/sukull/istikrar/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrProgressNotFound is returned when a user has no progress row.
var ErrProgressNotFound = errors.New("user progress not found")

// ProgressColumns are the columns written back after a reconcile or evaluation.
var ProgressColumns = []string{
	"points",
	"hearts",
	"previous_total_points",
	"last_streak_check",
	"istikrar",
	"daily_target",
	"school_id",
	"profile_editing_unlocked",
	"study_buddy_unlocked",
	"updated_at",
}

var recordConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "user_id"}, {Name: "day"}},
	DoNothing: true,
}

// LockProgress loads the progress row of userID with a row lock held until tx ends.
// Dialects without FOR UPDATE (sqlite) skip the lock clause.
func LockProgress(tx *gorm.DB, userID string) (*models.UserProgress, error) {
	var p models.UserProgress
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProgress writes the mutable columns of p.
func SaveProgress(tx *gorm.DB, p *models.UserProgress) error {
	return tx.Model(p).Select(ProgressColumns).Updates(p).Error
}

func findRecord(tx *gorm.DB, userID, day string) (*models.DailyStreakRecord, error) {
	var rec models.DailyStreakRecord
	err := tx.Where("user_id = ? AND day = ?", userID, day).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// lastAchievedBefore returns the most recent achieved record of userID strictly before day, or nil.
func lastAchievedBefore(tx *gorm.DB, userID, day string) (*models.DailyStreakRecord, error) {
	var rec models.DailyStreakRecord
	err := tx.Where("user_id = ? AND achieved = ? AND day < ?", userID, true, day).Order("day DESC").Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// insertMissed creates achieved=false records for days that have none; existing rows are kept.
func insertMissed(tx *gorm.DB, cal *calendar.Calendar, userID string, days []time.Time) (int64, error) {
	if len(days) == 0 {
		return 0, nil
	}
	recs := make([]models.DailyStreakRecord, 0, len(days))
	for _, d := range days {
		recs = append(recs, models.DailyStreakRecord{
			UserID: userID,
			Day:    cal.Key(d),
			Date:   d,
		})
	}
	res := tx.Clauses(recordConflict).Create(&recs)
	return res.RowsAffected, res.Error
}

// markAchieved flips the record of day to achieved. It reports true only for the caller
// that performed the false→true transition.
func markAchieved(tx *gorm.DB, cal *calendar.Calendar, userID string, day, now time.Time) (bool, error) {
	key := cal.Key(day)
	rec := models.DailyStreakRecord{UserID: userID, Day: key, Date: day, Achieved: true}
	res := tx.Clauses(recordConflict).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	res = tx.Model(&models.DailyStreakRecord{}).
		Where("user_id = ? AND day = ? AND achieved = ?", userID, key, false).
		Updates(map[string]interface{}{"achieved": true, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
