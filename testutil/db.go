package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sukull/istikrar/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB opens a private in-memory sqlite database with every model migrated.
// One open connection keeps the shared-cache database alive and serializes writers.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.All()...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	tb.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SeedProgress inserts p and returns it as stored.
func SeedProgress(tb testing.TB, db *gorm.DB, p models.UserProgress) models.UserProgress {
	tb.Helper()
	if p.UserName == "" {
		p.UserName = "User"
	}
	if p.Hearts == 0 {
		p.Hearts = 5
	}
	if p.DailyTarget == 0 {
		p.DailyTarget = 50
	}
	if err := db.Create(&p).Error; err != nil {
		tb.Fatalf("seed progress: %v", err)
	}
	return p
}

// LoadProgress reads the stored row for userID.
func LoadProgress(tb testing.TB, db *gorm.DB, userID string) models.UserProgress {
	tb.Helper()
	var p models.UserProgress
	if err := db.Where("user_id = ?", userID).First(&p).Error; err != nil {
		tb.Fatalf("load progress %s: %v", userID, err)
	}
	return p
}

// Records returns the streak records of userID ordered by day.
func Records(tb testing.TB, db *gorm.DB, userID string) []models.DailyStreakRecord {
	tb.Helper()
	var recs []models.DailyStreakRecord
	if err := db.Where("user_id = ?", userID).Order("day").Find(&recs).Error; err != nil {
		tb.Fatalf("load records %s: %v", userID, err)
	}
	return recs
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time { return &t }
