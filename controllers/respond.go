package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sukull/istikrar/identity"
	"github.com/sukull/istikrar/points"
	"github.com/sukull/istikrar/utils"
)

// currentUser returns the user bound to the request by the auth middleware.
func currentUser(ctx *gin.Context) (string, bool) {
	return identity.FromContext(ctx.Request.Context())
}

// respondError maps domain errors to the uniform error envelope.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, points.ErrUnauthorized):
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	case errors.Is(err, points.ErrProgressNotFound):
		utils.Error(ctx, http.StatusNotFound, 40410, "progress not found")
	case errors.Is(err, points.ErrSchoolNotFound):
		utils.Error(ctx, http.StatusNotFound, 40411, "school not found")
	case errors.Is(err, points.ErrChallengeNotFound):
		utils.Error(ctx, http.StatusNotFound, 40412, "challenge not found")
	case errors.Is(err, points.ErrInvalidInput):
		utils.Error(ctx, http.StatusBadRequest, 40030, err.Error())
	case errors.Is(err, points.ErrRequirementNotMet):
		utils.Error(ctx, http.StatusForbidden, 40320, err.Error())
	case errors.Is(err, points.ErrHeartsFull):
		utils.Error(ctx, http.StatusConflict, 40931, "hearts are already full")
	case errors.Is(err, points.ErrNotEnoughPoints):
		utils.Error(ctx, http.StatusConflict, 40932, "not enough points")
	default:
		utils.Sugar.Errorw("request failed", "path", ctx.FullPath(), "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "internal error")
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(ctx *gin.Context, name string, def int) (int, bool) {
	raw := ctx.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
