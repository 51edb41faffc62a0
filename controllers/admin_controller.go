package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/sukull/istikrar/points"
	"github.com/sukull/istikrar/utils"
)

// AdminController exposes maintenance operations to admin users.
type AdminController struct {
	maintenance *points.Maintenance
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(m *points.Maintenance) *AdminController {
	return &AdminController{maintenance: m}
}

// DailyReset runs the daily maintenance immediately.
func (c *AdminController) DailyReset(ctx *gin.Context) {
	report, err := c.maintenance.Run(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Sugar.Infow("daily reset triggered over HTTP", "user_id", ctx.GetString("user_id"), "reset", report.Reset)
	utils.Success(ctx, report)
}
