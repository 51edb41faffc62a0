package points_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sukull/istikrar/calendar"
	"github.com/sukull/istikrar/models"
	"github.com/sukull/istikrar/points"
	"github.com/sukull/istikrar/streak"
	"github.com/sukull/istikrar/testutil"
)

type countingFlusher struct{ calls int }

func (c *countingFlusher) InvalidateAll(context.Context) error {
	c.calls++
	return nil
}

func TestMaintenanceRun(t *testing.T) {
	db := testutil.DB(t)
	clock := testutil.NewClock(at(18, 0))
	ledger := streak.NewLedger(db, calendar.New(3, clock), nil)

	school := models.School{Name: "Ataturk Lisesi", City: "Ankara", District: "Cankaya", Category: "lise", TotalPoints: 1}
	require.NoError(t, db.Create(&school).Error)

	testutil.SeedProgress(t, db, models.UserProgress{
		UserID: "broken", Points: 70, PreviousTotalPoints: testutil.IntPtr(60),
		LastStreakCheck: testutil.TimePtr(at(17, 9)), Istikrar: 4, SchoolID: &school.ID,
	})
	testutil.SeedProgress(t, db, models.UserProgress{
		UserID: "fresh", Points: 30, SchoolID: &school.ID,
	})

	flusher := &countingFlusher{}
	m := &points.Maintenance{
		Ledger:   ledger,
		Schools:  points.NewSchoolTotals(db),
		Views:    flusher,
		Parallel: 2,
	}
	report, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.Rebased)
	assert.Equal(t, 1, report.Reset)
	assert.Equal(t, 1, report.Schools)
	assert.Equal(t, 1, flusher.calls)

	var stored models.School
	require.NoError(t, db.First(&stored, school.ID).Error)
	assert.Equal(t, 100, stored.TotalPoints)

	broken := testutil.LoadProgress(t, db, "broken")
	assert.Equal(t, 0, broken.Istikrar)
	assert.Equal(t, 70, broken.Baseline())
	fresh := testutil.LoadProgress(t, db, "fresh")
	assert.Equal(t, 30, fresh.Baseline())
}
