package points_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sukull/istikrar/calendar"
	"github.com/sukull/istikrar/identity"
	"github.com/sukull/istikrar/models"
	"github.com/sukull/istikrar/points"
	"github.com/sukull/istikrar/streak"
	"github.com/sukull/istikrar/testutil"
	"gorm.io/gorm"
)

var istanbul = time.FixedZone("UTC+3", 3*3600)

func at(day, hour int) time.Time {
	return time.Date(2026, 10, day, hour, 0, 0, 0, istanbul)
}

type fakeEntitlements struct {
	unlimited bool
	err       error
}

func (f fakeEntitlements) HasUnlimitedHearts(context.Context, string) (bool, error) {
	return f.unlimited, f.err
}

type failingSchools struct{ calls int }

func (f *failingSchools) Recompute(context.Context, uint) error {
	f.calls++
	return errors.New("aggregate store down")
}

type recordingInvalidator struct {
	mu           sync.Mutex
	progress     []string
	leaderboard  int
	schoolBoards int
}

func (r *recordingInvalidator) InvalidateProgress(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, userID)
	return nil
}

func (r *recordingInvalidator) InvalidateLeaderboard(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaderboard++
	return nil
}

func (r *recordingInvalidator) InvalidateSchoolLeaderboard(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schoolBoards++
	return nil
}

type harness struct {
	db    *gorm.DB
	clock *testutil.Clock
	inv   *recordingInvalidator
	svc   *points.Service
}

func newHarness(t *testing.T, opts ...points.Option) *harness {
	t.Helper()
	db := testutil.DB(t)
	clock := testutil.NewClock(at(18, 10))
	cal := calendar.New(3, clock)
	inv := &recordingInvalidator{}
	opts = append([]points.Option{
		points.WithInvalidator(inv),
		points.WithEntitlements(points.NewSubscriptionEntitlements(db, clock)),
	}, opts...)
	svc := points.NewService(db, streak.NewLedger(db, cal, nil), identity.ContextProvider{}, opts...)
	return &harness{db: db, clock: clock, inv: inv, svc: svc}
}

func asUser(id string) context.Context {
	return identity.WithUser(context.Background(), id)
}

func todayUser(id string, pts int) models.UserProgress {
	return models.UserProgress{
		UserID:              id,
		Points:              pts,
		PreviousTotalPoints: testutil.IntPtr(pts),
		LastStreakCheck:     testutil.TimePtr(at(18, 8)),
	}
}

func TestApplyPointsDeltaReachesDailyGoal(t *testing.T) {
	h := newHarness(t)
	testutil.SeedProgress(t, h.db, todayUser("u1", 100))
	ctx := asUser("u1")

	var res points.Result
	var err error
	for i := 0; i < 4; i++ {
		res, err = h.svc.ApplyPointsDelta(ctx, 10, points.FirstCompletion)
		require.NoError(t, err)
		assert.False(t, res.GoalAchieved)
	}
	assert.Equal(t, 40, res.EarnedToday)

	res, err = h.svc.ApplyPointsDelta(ctx, 10, points.FirstCompletion)
	require.NoError(t, err)
	assert.Equal(t, points.StatusOK, res.Status)
	assert.True(t, res.GoalAchieved)
	assert.Equal(t, 150, res.Points)
	assert.Equal(t, 50, res.EarnedToday)
	assert.Equal(t, 1, res.Streak)

	// further points the same day keep the streak where it is
	res, err = h.svc.ApplyPointsDelta(ctx, 10, points.FirstCompletion)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)

	var logs int64
	require.NoError(t, h.db.Model(&models.PointLog{}).Where("user_id = ?", "u1").Count(&logs).Error)
	assert.Equal(t, int64(6), logs)
	assert.Len(t, h.inv.progress, 6)
	assert.Equal(t, 6, h.inv.leaderboard)
	assert.Equal(t, 6, h.inv.schoolBoards)
}

func TestApplyPointsDeltaAfterOnboarding(t *testing.T) {
	h := newHarness(t)
	ctx := asUser("new")

	view, created, err := h.svc.EnsureProgress(ctx, "  Ayşe ", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Ayşe", view.Progress.UserName)
	assert.Equal(t, 5, view.Progress.Hearts)
	assert.Equal(t, 0, view.EarnedToday)

	res, err := h.svc.ApplyPointsDelta(ctx, 10, points.FirstCompletion)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Points)
	assert.Equal(t, 10, res.EarnedToday)
	assert.False(t, res.GoalAchieved)

	_, created, err = h.svc.EnsureProgress(ctx, "Other", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Ayşe", testutil.LoadProgress(t, h.db, "new").UserName)
}

func TestApplyPointsDeltaInsufficientHearts(t *testing.T) {
	h := newHarness(t)
	p := todayUser("u1", 30)
	p.Hearts = 0
	seeded := testutil.SeedProgress(t, h.db, p)
	require.NoError(t, h.db.Model(&models.UserProgress{}).Where("user_id = ?", "u1").Update("hearts", 0).Error)
	ctx := asUser("u1")

	for _, kind := range []points.Kind{points.FirstCompletion, points.Penalty} {
		delta := 10
		if kind == points.Penalty {
			delta = -10
		}
		res, err := h.svc.ApplyPointsDelta(ctx, delta, kind)
		require.NoError(t, err)
		assert.Equal(t, points.StatusInsufficientHearts, res.Status)
	}

	stored := testutil.LoadProgress(t, h.db, "u1")
	assert.Equal(t, seeded.Points, stored.Points)
	assert.Equal(t, 0, stored.Hearts)
	assert.Empty(t, h.inv.progress)

	var logs int64
	require.NoError(t, h.db.Model(&models.PointLog{}).Count(&logs).Error)
	assert.Zero(t, logs)

	// practice is never gated and gives a heart back
	res, err := h.svc.ApplyPointsDelta(ctx, 2, points.Practice)
	require.NoError(t, err)
	assert.Equal(t, points.StatusOK, res.Status)
	assert.Equal(t, 32, res.Points)
	assert.Equal(t, 1, res.Hearts)
}

func TestApplyPointsDeltaGameLeavesHeartsAlone(t *testing.T) {
	h := newHarness(t)
	testutil.SeedProgress(t, h.db, todayUser("u1", 500))
	require.NoError(t, h.db.Model(&models.UserProgress{}).Where("user_id = ?", "u1").Update("hearts", 0).Error)
	ctx := asUser("u1")

	res, err := h.svc.ApplyPointsDelta(ctx, 3, points.Game)
	require.NoError(t, err)
	assert.Equal(t, points.StatusOK, res.Status)
	assert.Equal(t, 503, res.Points)
	assert.Equal(t, 0, res.Hearts)

	res, err = h.svc.ApplyPointsDelta(ctx, -8, points.Game)
	require.NoError(t, err)
	assert.Equal(t, points.StatusOK, res.Status)
	assert.Equal(t, 495, res.Points)
	assert.Equal(t, 0, res.Hearts)

	var logs []models.PointLog
	require.NoError(t, h.db.Where("user_id = ?", "u1").Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "game", logs[0].Kind)
	assert.Equal(t, -8, logs[1].Applied)
}

func TestApplyPointsDeltaBoundsDelta(t *testing.T) {
	h := newHarness(t, points.WithSettings(points.Settings{
		MaxHearts:          5,
		PointsToRefill:     200,
		DefaultDailyTarget: 50,
		MinDailyTarget:     10,
		MaxDailyTarget:     1000,
		MaxDelta:           map[points.Kind]int{points.Game: 20},
	}))
	testutil.SeedProgress(t, h.db, todayUser("u1", 500))
	ctx := asUser("u1")

	for _, tt := range []struct {
		delta int
		kind  points.Kind
	}{
		{math.MaxInt, points.FirstCompletion},
		{points.DefaultMaxDelta + 1, points.Practice},
		{math.MinInt, points.Penalty},
		{21, points.Game},
		{-21, points.Game},
	} {
		_, err := h.svc.ApplyPointsDelta(ctx, tt.delta, tt.kind)
		assert.ErrorIs(t, err, points.ErrInvalidInput, "%s %d", tt.kind, tt.delta)
	}
	assert.Equal(t, 500, testutil.LoadProgress(t, h.db, "u1").Points)

	res, err := h.svc.ApplyPointsDelta(ctx, points.DefaultMaxDelta, points.FirstCompletion)
	require.NoError(t, err)
	assert.Equal(t, 600, res.Points)
	assert.Equal(t, 100, res.EarnedToday)
}

func TestApplyPointsDeltaSaturatesAtMaxInt(t *testing.T) {
	h := newHarness(t)
	testutil.SeedProgress(t, h.db, todayUser("u1", math.MaxInt-5))

	res, err := h.svc.ApplyPointsDelta(asUser("u1"), 10, points.Practice)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, res.Points)
	assert.Equal(t, 5, res.EarnedToday)
}

func TestApplyPointsDeltaUnlimitedHearts(t *testing.T) {
	h := newHarness(t, points.WithEntitlements(fakeEntitlements{unlimited: true}))
	testutil.SeedProgress(t, h.db, todayUser("u1", 30))
	require.NoError(t, h.db.Model(&models.UserProgress{}).Where("user_id = ?", "u1").Update("hearts", 0).Error)

	res, err := h.svc.ApplyPointsDelta(asUser("u1"), -10, points.Penalty)
	require.NoError(t, err)
	assert.Equal(t, points.StatusOK, res.Status)
	assert.Equal(t, 20, res.Points)
	assert.Equal(t, 0, res.Hearts)
}

func TestApplyPointsDeltaEntitlementFailure(t *testing.T) {
	h := newHarness(t, points.WithEntitlements(fakeEntitlements{err: errors.New("billing down")}))
	testutil.SeedProgress(t, h.db, todayUser("u1", 30))

	_, err := h.svc.ApplyPointsDelta(asUser("u1"), 10, points.FirstCompletion)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entitlements")
	assert.Equal(t, 30, testutil.LoadProgress(t, h.db, "u1").Points)
}

func TestPenaltyConsumesHeartAndClampsAtZero(t *testing.T) {
	h := newHarness(t)
	testutil.SeedProgress(t, h.db, todayUser("u1", 5))

	res, err := h.svc.ApplyPointsDelta(asUser("u1"), -10, points.Penalty)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Points)
	assert.Equal(t, 4, res.Hearts)

	var log models.PointLog
	require.NoError(t, h.db.Where("user_id = ?", "u1").Take(&log).Error)
	assert.Equal(t, -10, log.Requested)
	assert.Equal(t, -5, log.Applied)
	assert.Equal(t, "2026-10-18", log.Day)
}

func TestApplyPointsDeltaRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	testutil.SeedProgress(t, h.db, todayUser("u1", 5))
	ctx := asUser("u1")

	tests := []struct {
		name  string
		delta int
		kind  points.Kind
	}{
		{"unknown kind", 10, points.Kind("bonus")},
		{"negative completion", -10, points.FirstCompletion},
		{"negative practice", -1, points.Practice},
		{"positive penalty", 10, points.Penalty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.ApplyPointsDelta(ctx, tt.delta, tt.kind)
			assert.ErrorIs(t, err, points.ErrInvalidInput)
		})
	}
}

func TestApplyPointsDeltaIdentityAndMissingProgress(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.ApplyPointsDelta(context.Background(), 10, points.FirstCompletion)
	assert.ErrorIs(t, err, points.ErrUnauthorized)

	_, err = h.svc.ApplyPointsDelta(asUser("ghost"), 10, points.Practice)
	assert.ErrorIs(t, err, points.ErrProgressNotFound)
}

func TestApplyPointsDeltaReconcilesFirst(t *testing.T) {
	h := newHarness(t)
	testutil.SeedProgress(t, h.db, models.UserProgress{
		UserID:              "u1",
		Points:              400,
		PreviousTotalPoints: testutil.IntPtr(340),
		LastStreakCheck:     testutil.TimePtr(at(15, 20)),
		Istikrar:            9,
	})

	res, err := h.svc.ApplyPointsDelta(asUser("u1"), 10, points.FirstCompletion)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Streak)
	assert.Equal(t, 10, res.EarnedToday)
	assert.False(t, res.GoalAchieved)

	recs := testutil.Records(t, h.db, "u1")
	require.Len(t, recs, 2)
	assert.Equal(t, "2026-10-16", recs[0].Day)
	assert.Equal(t, "2026-10-17", recs[1].Day)
}

func TestApplyPointsDeltaAcrossMidnight(t *testing.T) {
	h := newHarness(t)
	ctx := asUser("u1")
	h.clock.Set(at(17, 23))
	testutil.SeedProgress(t, h.db, models.UserProgress{
		UserID:              "u1",
		Points:              100,
		PreviousTotalPoints: testutil.IntPtr(100),
		LastStreakCheck:     testutil.TimePtr(at(17, 9)),
		Istikrar:            2,
	})

	res, err := h.svc.ApplyPointsDelta(ctx, 50, points.FirstCompletion)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Streak)

	h.clock.Set(at(18, 0).Add(time.Minute))
	res, err = h.svc.ApplyPointsDelta(ctx, 10, points.FirstCompletion)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Streak)
	assert.Equal(t, 10, res.EarnedToday)
	assert.False(t, res.GoalAchieved)
}

func TestSchoolRecomputeFailureIsSwallowed(t *testing.T) {
	schools := &failingSchools{}
	h := newHarness(t, points.WithSchools(schools))
	school := models.School{Name: "Atatürk Lisesi", City: "Ankara", District: "Çankaya", Category: "lise"}
	require.NoError(t, h.db.Create(&school).Error)
	p := todayUser("u1", 0)
	p.SchoolID = &school.ID
	testutil.SeedProgress(t, h.db, p)

	res, err := h.svc.ApplyPointsDelta(asUser("u1"), 10, points.FirstCompletion)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Points)
	assert.Equal(t, 1, schools.calls)
	assert.Equal(t, 10, testutil.LoadProgress(t, h.db, "u1").Points)
	assert.Equal(t, []string{"u1"}, h.inv.progress)
}

func TestRefillHearts(t *testing.T) {
	h := newHarness(t)
	ctx := asUser("u1")
	testutil.SeedProgress(t, h.db, todayUser("u1", 150))

	_, err := h.svc.RefillHearts(ctx)
	assert.ErrorIs(t, err, points.ErrHeartsFull)

	require.NoError(t, h.db.Model(&models.UserProgress{}).Where("user_id = ?", "u1").Update("hearts", 2).Error)
	_, err = h.svc.RefillHearts(ctx)
	assert.ErrorIs(t, err, points.ErrNotEnoughPoints)

	require.NoError(t, h.db.Model(&models.UserProgress{}).Where("user_id = ?", "u1").Update("points", 260).Error)
	res, err := h.svc.RefillHearts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, res.Points)
	assert.Equal(t, 5, res.Hearts)
}

func TestSetDailyTarget(t *testing.T) {
	h := newHarness(t)
	ctx := asUser("u1")
	p := todayUser("u1", 100)
	p.Istikrar = 19
	testutil.SeedProgress(t, h.db, p)

	_, err := h.svc.SetDailyTarget(ctx, 5)
	assert.ErrorIs(t, err, points.ErrInvalidInput)

	_, err = h.svc.SetDailyTarget(ctx, 30)
	assert.ErrorIs(t, err, points.ErrRequirementNotMet)

	require.NoError(t, h.db.Model(&models.UserProgress{}).Where("user_id = ?", "u1").Update("istikrar", 20).Error)
	res, err := h.svc.SetDailyTarget(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, res.DailyTarget)
	assert.Equal(t, 30, testutil.LoadProgress(t, h.db, "u1").DailyTarget)
}

func TestAssignSchool(t *testing.T) {
	h := newHarness(t)
	ctx := asUser("u1")

	oldSchool := models.School{Name: "Old", City: "İzmir", District: "Konak", Category: "lise"}
	newSchool := models.School{Name: "New", City: "İzmir", District: "Bornova", Category: "lise"}
	require.NoError(t, h.db.Create(&oldSchool).Error)
	require.NoError(t, h.db.Create(&newSchool).Error)

	p := todayUser("u1", 100)
	p.SchoolID = &oldSchool.ID
	testutil.SeedProgress(t, h.db, p)
	mate := todayUser("u2", 40)
	mate.SchoolID = &oldSchool.ID
	testutil.SeedProgress(t, h.db, mate)

	_, err := h.svc.AssignSchool(ctx, newSchool.ID)
	assert.ErrorIs(t, err, points.ErrRequirementNotMet)

	require.NoError(t, h.db.Model(&models.UserProgress{}).Where("user_id = ?", "u1").Update("profile_editing_unlocked", true).Error)

	_, err = h.svc.AssignSchool(ctx, 999)
	assert.ErrorIs(t, err, points.ErrSchoolNotFound)

	view, err := h.svc.AssignSchool(ctx, newSchool.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Progress.SchoolID)
	assert.Equal(t, newSchool.ID, *view.Progress.SchoolID)

	var reloaded []models.School
	require.NoError(t, h.db.Order("id").Find(&reloaded).Error)
	assert.Equal(t, 40, reloaded[0].TotalPoints)
	assert.Equal(t, 100, reloaded[1].TotalPoints)
}

func TestSnapshotReconciles(t *testing.T) {
	h := newHarness(t)
	testutil.SeedProgress(t, h.db, models.UserProgress{
		UserID:              "u1",
		Points:              70,
		PreviousTotalPoints: testutil.IntPtr(20),
		LastStreakCheck:     testutil.TimePtr(at(16, 20)),
		Istikrar:            4,
	})

	view, err := h.svc.Snapshot(asUser("u1"))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", view.Today)
	assert.Equal(t, 0, view.Progress.Istikrar)
	assert.Equal(t, 0, view.EarnedToday)
	assert.False(t, view.GoalAchieved)
}
