package models

import "time"

// UserProgress is the per-user aggregate mutated by every point-changing action.
// A nil PreviousTotalPoints means the baseline was never initialized.
type UserProgress struct {
	UserID                 string     `gorm:"primaryKey;size:128" json:"user_id"`
	UserName               string     `gorm:"size:64;not null;default:'User'" json:"user_name"`
	UserImageSrc           string     `gorm:"size:512;not null;default:'/mascot_purple.svg'" json:"user_image_src"`
	Points                 int        `gorm:"not null;default:0;index" json:"points"`
	Hearts                 int        `gorm:"not null;default:5" json:"hearts"`
	PreviousTotalPoints    *int       `json:"previous_total_points"`
	LastStreakCheck        *time.Time `json:"last_streak_check"`
	Istikrar               int        `gorm:"not null;default:0;index" json:"istikrar"`
	DailyTarget            int        `gorm:"not null;default:50" json:"daily_target"`
	SchoolID               *uint      `gorm:"index" json:"school_id"`
	HasInfiniteHearts      bool       `gorm:"not null;default:false" json:"has_infinite_hearts"`
	SubscriptionExpiresAt  *time.Time `json:"subscription_expires_at"`
	ProfileEditingUnlocked bool       `gorm:"not null;default:false" json:"profile_editing_unlocked"`
	StudyBuddyUnlocked     bool       `gorm:"not null;default:false" json:"study_buddy_unlocked"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// TableName pins the table name shared with the rest of the platform.
func (UserProgress) TableName() string {
	return "user_progress"
}

// Baseline returns PreviousTotalPoints, treating an unset baseline as zero.
func (p *UserProgress) Baseline() int {
	if p.PreviousTotalPoints == nil {
		return 0
	}
	return *p.PreviousTotalPoints
}

// PointsEarnedToday is points minus the baseline.
func (p *UserProgress) PointsEarnedToday() int {
	return p.Points - p.Baseline()
}

// Rebase moves the baseline to the live point total.
func (p *UserProgress) Rebase() {
	v := p.Points
	p.PreviousTotalPoints = &v
}
