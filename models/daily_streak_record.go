package models

import "time"

// DailyStreakRecord marks whether a user met the daily target on one calendar day.
// Day is the YYYY-MM-DD key in the canonical offset; (user_id, day) is unique.
type DailyStreakRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:128;not null;index:idx_streak_user_day,unique" json:"user_id"`
	Day       string    `gorm:"size:10;not null;index:idx_streak_user_day,unique" json:"day"`
	Date      time.Time `gorm:"not null" json:"date"`
	Achieved  bool      `gorm:"not null;default:false" json:"achieved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table to user_daily_streak.
func (DailyStreakRecord) TableName() string {
	return "user_daily_streak"
}
