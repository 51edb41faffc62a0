package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sukull/istikrar/calendar"
	"github.com/sukull/istikrar/points"
	"github.com/sukull/istikrar/utils"
)

// PointAmounts are the default deltas per kind, used when a request omits one.
type PointAmounts struct {
	FirstCompletion int
	Practice        int
	Penalty         int
	Game            int
}

// For returns the default delta of kind.
func (a PointAmounts) For(kind points.Kind) int {
	switch kind {
	case points.FirstCompletion:
		return a.FirstCompletion
	case points.Practice:
		return a.Practice
	case points.Penalty:
		return a.Penalty
	case points.Game:
		return a.Game
	}
	return 0
}

// ProgressController exposes the point-changing operations and the progress view.
type ProgressController struct {
	svc     *points.Service
	cal     *calendar.Calendar
	cache   *utils.Cache
	amounts PointAmounts
}

// NewProgressController creates a new ProgressController instance.
func NewProgressController(svc *points.Service, cal *calendar.Calendar, cache *utils.Cache, amounts PointAmounts) *ProgressController {
	return &ProgressController{svc: svc, cal: cal, cache: cache, amounts: amounts}
}

type onboardRequest struct {
	UserName     string `json:"user_name"`
	UserImageSrc string `json:"user_image_src"`
}

// Onboard creates the caller's progress row. An existing row is returned unchanged.
func (c *ProgressController) Onboard(ctx *gin.Context) {
	var req onboardRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40001, "invalid payload")
			return
		}
	}

	view, created, err := c.svc.EnsureProgress(ctx.Request.Context(), utils.SanitizeDisplayName(req.UserName), req.UserImageSrc)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if created {
		utils.Created(ctx, view)
		return
	}
	utils.Success(ctx, view)
}

// GetProgress returns today's view of the caller, served from cache when possible.
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	key := utils.ProgressCacheKey(userID, c.cal.Key(c.cal.Today()))
	var view points.View
	if c.cache.GetJSON(ctx.Request.Context(), key, &view) {
		utils.Success(ctx, view)
		return
	}

	view, err := c.svc.Snapshot(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	c.cache.SetJSON(ctx.Request.Context(), key, view)
	utils.Success(ctx, view)
}

type pointsRequest struct {
	Kind  string `json:"kind" binding:"required"`
	Delta *int   `json:"delta"`
}

// ApplyPoints applies a point change of the given kind. Without a delta the configured
// amount for the kind is used.
func (c *ProgressController) ApplyPoints(ctx *gin.Context) {
	var req pointsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid payload")
		return
	}
	kind, err := points.ParseKind(req.Kind)
	if err != nil {
		respondError(ctx, err)
		return
	}
	delta := c.amounts.For(kind)
	if req.Delta != nil {
		delta = *req.Delta
	}

	res, err := c.svc.ApplyPointsDelta(ctx.Request.Context(), delta, kind)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if res.Status == points.StatusInsufficientHearts {
		utils.Respond(ctx, http.StatusConflict, 40930, "no hearts left", res)
		return
	}
	utils.Success(ctx, res)
}

// RefillHearts spends points to restore every heart.
func (c *ProgressController) RefillHearts(ctx *gin.Context) {
	res, err := c.svc.RefillHearts(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

type dailyTargetRequest struct {
	DailyTarget int `json:"daily_target" binding:"required"`
}

// SetDailyTarget changes the caller's daily goal.
func (c *ProgressController) SetDailyTarget(ctx *gin.Context) {
	var req dailyTargetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid payload")
		return
	}
	res, err := c.svc.SetDailyTarget(ctx.Request.Context(), req.DailyTarget)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

type schoolRequest struct {
	SchoolID uint `json:"school_id" binding:"required"`
}

// AssignSchool moves the caller into a school.
func (c *ProgressController) AssignSchool(ctx *gin.Context) {
	var req schoolRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid payload")
		return
	}
	view, err := c.svc.AssignSchool(ctx.Request.Context(), req.SchoolID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}
