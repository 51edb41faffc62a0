package models

// School groups users; TotalPoints is a denormalized sum of its members' points.
type School struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	City        string `gorm:"size:64;not null" json:"city"`
	District    string `gorm:"size:64;not null" json:"district"`
	Category    string `gorm:"size:64;not null" json:"category"`
	TotalPoints int    `gorm:"not null;default:0;index" json:"total_points"`
}
