package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sukull/istikrar/points"
	"github.com/sukull/istikrar/streak"
	"github.com/sukull/istikrar/utils"
)

// StreakController serves the istikrar status and the monthly calendar.
type StreakController struct {
	svc    *points.Service
	ledger *streak.Ledger
}

// NewStreakController creates a new StreakController instance.
func NewStreakController(svc *points.Service, ledger *streak.Ledger) *StreakController {
	return &StreakController{svc: svc, ledger: ledger}
}

type requirementStatus struct {
	Requirement   streak.Requirement `json:"requirement"`
	Days          int                `json:"days"`
	Unlocked      bool               `json:"unlocked"`
	RemainingDays int                `json:"remaining_days"`
}

// Status returns the streak, today's progress toward the goal and every requirement.
func (c *StreakController) Status(ctx *gin.Context) {
	view, err := c.svc.Snapshot(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}

	p := &view.Progress
	reqs := make([]requirementStatus, 0, len(streak.Requirements()))
	for _, r := range streak.Requirements() {
		reqs = append(reqs, requirementStatus{
			Requirement:   r,
			Days:          r.Days(),
			Unlocked:      r.Met(p),
			RemainingDays: r.RemainingDays(p),
		})
	}

	utils.Success(ctx, gin.H{
		"istikrar":      p.Istikrar,
		"today":         view.Today,
		"daily_target":  p.DailyTarget,
		"earned_today":  view.EarnedToday,
		"goal_achieved": view.GoalAchieved,
		"requirements":  reqs,
	})
}

type calendarDay struct {
	Day      string `json:"day"`
	Achieved bool   `json:"achieved"`
}

// Calendar returns the caller's daily records for ?year=&month=, defaulting to the current month.
// Missed days are settled first so the month has no silent gaps.
func (c *StreakController) Calendar(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	now := c.ledger.Calendar().Now()
	year, ok := queryInt(ctx, "year", now.Year())
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid year")
		return
	}
	month, ok := queryInt(ctx, "month", int(now.Month()))
	if !ok || month < 1 || month > 12 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid month")
		return
	}

	if _, err := c.ledger.ReconcileMissedDays(ctx.Request.Context(), userID); err != nil {
		respondError(ctx, err)
		return
	}
	recs, err := c.ledger.MonthRecords(ctx.Request.Context(), userID, year, time.Month(month))
	if err != nil {
		respondError(ctx, err)
		return
	}

	days := make([]calendarDay, 0, len(recs))
	for _, r := range recs {
		days = append(days, calendarDay{Day: r.Day, Achieved: r.Achieved})
	}
	utils.Success(ctx, gin.H{
		"year":  year,
		"month": month,
		"days":  days,
	})
}
