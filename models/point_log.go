package models

import "time"

// PointLog is an append-only audit row per applied point change.
type PointLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"size:128;not null;index" json:"user_id"`
	Kind        string    `gorm:"size:32;not null" json:"kind"`
	Requested   int       `gorm:"not null" json:"requested"`
	Applied     int       `gorm:"not null" json:"applied"`
	PointsAfter int       `gorm:"not null" json:"points_after"`
	HeartsAfter int       `gorm:"not null" json:"hearts_after"`
	Day         string    `gorm:"size:10;not null;index" json:"day"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName matches the point ledger naming.
func (PointLog) TableName() string {
	return "user_point_logs"
}
