package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sukull/istikrar/models"
	"github.com/sukull/istikrar/utils"
	"gorm.io/gorm"
)

const (
	defaultBoardLimit = 50
	maxBoardLimit     = 100
)

// LeaderboardController serves the user and school rankings.
type LeaderboardController struct {
	db    *gorm.DB
	cache *utils.Cache
}

// NewLeaderboardController creates a new LeaderboardController instance.
func NewLeaderboardController(db *gorm.DB, cache *utils.Cache) *LeaderboardController {
	return &LeaderboardController{db: db, cache: cache}
}

type leaderboardEntry struct {
	Rank         int    `json:"rank"`
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	UserImageSrc string `json:"user_image_src"`
	Points       int    `json:"points"`
	Istikrar     int    `json:"istikrar"`
}

func boardLimit(ctx *gin.Context) (int, bool) {
	limit, ok := queryInt(ctx, "limit", defaultBoardLimit)
	if !ok || limit < 1 {
		return 0, false
	}
	if limit > maxBoardLimit {
		limit = maxBoardLimit
	}
	return limit, true
}

// Users returns the top users by points.
func (c *LeaderboardController) Users(ctx *gin.Context) {
	limit, ok := boardLimit(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid limit")
		return
	}

	key := utils.LeaderboardCacheKey(limit)
	var entries []leaderboardEntry
	if c.cache.GetJSON(ctx.Request.Context(), key, &entries) {
		utils.Success(ctx, entries)
		return
	}

	err := c.db.WithContext(ctx.Request.Context()).
		Model(&models.UserProgress{}).
		Select("user_id, user_name, user_image_src, points, istikrar").
		Order("points DESC, user_id").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		respondError(ctx, err)
		return
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	c.cache.SetJSON(ctx.Request.Context(), key, entries)
	utils.Success(ctx, entries)
}

// Schools returns the top schools by total points, optionally filtered by ?city=.
func (c *LeaderboardController) Schools(ctx *gin.Context) {
	limit, ok := boardLimit(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid limit")
		return
	}
	city := strings.TrimSpace(ctx.Query("city"))

	key := utils.SchoolLeaderboardCacheKey(city, limit)
	var schools []models.School
	if c.cache.GetJSON(ctx.Request.Context(), key, &schools) {
		utils.Success(ctx, schools)
		return
	}

	q := c.db.WithContext(ctx.Request.Context()).Model(&models.School{})
	if city != "" {
		q = q.Where("city = ?", city)
	}
	if err := q.Order("total_points DESC, id").Limit(limit).Find(&schools).Error; err != nil {
		respondError(ctx, err)
		return
	}
	c.cache.SetJSON(ctx.Request.Context(), key, schools)
	utils.Success(ctx, schools)
}
