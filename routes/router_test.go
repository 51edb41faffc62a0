package routes

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sukull/istikrar/calendar"
	"github.com/sukull/istikrar/config"
	"github.com/sukull/istikrar/controllers"
	"github.com/sukull/istikrar/identity"
	"github.com/sukull/istikrar/models"
	"github.com/sukull/istikrar/points"
	"github.com/sukull/istikrar/streak"
	"github.com/sukull/istikrar/testutil"
	"github.com/sukull/istikrar/utils"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	config.Override(config.AppConfig{
		GinMode:      "test",
		GinPath:      filepath.Join(t.TempDir(), "gin.log"),
		JWTSecret:    "router-secret",
		AdminUserIDs: []string{"admin_1"},
	})

	db := testutil.DB(t)
	clock := testutil.NewClock(time.Date(2026, 10, 18, 10, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)))
	cal := calendar.New(3, clock)
	ledger := streak.NewLedger(db, cal, nil)
	cache := utils.NewCache(nil, 0)
	svc := points.NewService(db, ledger, identity.ContextProvider{},
		points.WithEntitlements(points.NewSubscriptionEntitlements(db, clock)),
		points.WithInvalidator(cache),
	)
	testutil.SeedProgress(t, db, models.UserProgress{UserID: "user_1"})

	return SetupRouter(Deps{
		DB:          db,
		Calendar:    cal,
		Ledger:      ledger,
		Points:      svc,
		Maintenance: &points.Maintenance{Ledger: ledger, Schools: points.NewSchoolTotals(db), Views: cache},
		Cache:       cache,
		Amounts:     controllers.PointAmounts{FirstCompletion: 10, Practice: 2, Penalty: -10, Game: 1},
	})
}

func request(t *testing.T, h http.Handler, method, path, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		tok, err := utils.GenerateTokenWithSecret("router-secret", userID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter(t *testing.T) {
	h := newTestRouter(t)

	w := request(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2026-10-18")
	assert.NotEmpty(t, w.Header().Get(utils.RequestIDHeader))

	assert.Equal(t, http.StatusNotFound, request(t, h, http.MethodGet, "/api/v1/nope", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, http.MethodGet, "/api/v1/progress", "").Code)
	assert.Equal(t, http.StatusOK, request(t, h, http.MethodGet, "/api/v1/progress", "user_1").Code)
	assert.Equal(t, http.StatusOK, request(t, h, http.MethodGet, "/api/v1/leaderboard", "").Code)

	assert.Equal(t, http.StatusForbidden, request(t, h, http.MethodPost, "/api/v1/admin/daily-reset", "user_1").Code)
	assert.Equal(t, http.StatusOK, request(t, h, http.MethodPost, "/api/v1/admin/daily-reset", "admin_1").Code)
}
