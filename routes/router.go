package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sukull/istikrar/calendar"
	"github.com/sukull/istikrar/config"
	"github.com/sukull/istikrar/controllers"
	"github.com/sukull/istikrar/middleware"
	"github.com/sukull/istikrar/points"
	"github.com/sukull/istikrar/streak"
	"github.com/sukull/istikrar/utils"
	"gorm.io/gorm"
)

// Deps are the wired services the HTTP layer needs.
type Deps struct {
	DB          *gorm.DB
	Calendar    *calendar.Calendar
	Ledger      *streak.Ledger
	Points      *points.Service
	Maintenance *points.Maintenance
	Cache       *utils.Cache
	Amounts     controllers.PointAmounts
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// access log goes to its own rolling file at the application log level
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		sqlDB, err := d.DB.DB()
		if err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
			utils.Error(ctx, http.StatusServiceUnavailable, 50301, "database unavailable")
			return
		}
		utils.Success(ctx, gin.H{"status": "ok", "today": d.Calendar.Key(d.Calendar.Today())})
	})

	progressController := controllers.NewProgressController(d.Points, d.Calendar, d.Cache, d.Amounts)
	streakController := controllers.NewStreakController(d.Points, d.Ledger)
	leaderboardController := controllers.NewLeaderboardController(d.DB, d.Cache)
	adminController := controllers.NewAdminController(d.Maintenance)

	api := r.Group("/api/v1")

	// Public rankings
	public := api.Group("")
	public.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware())
	public.GET("/leaderboard", leaderboardController.Users)
	public.GET("/schools/leaderboard", leaderboardController.Schools)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware())
	protected.POST("/progress", progressController.Onboard)
	protected.GET("/progress", progressController.GetProgress)
	protected.POST("/progress/points", progressController.ApplyPoints)
	protected.POST("/progress/hearts/refill", progressController.RefillHearts)
	protected.PATCH("/progress/daily-target", progressController.SetDailyTarget)
	protected.PUT("/progress/school", progressController.AssignSchool)
	protected.GET("/streak/status", streakController.Status)
	protected.GET("/streak/calendar", streakController.Calendar)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	admin.POST("/daily-reset", adminController.DailyReset)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40401, "not found")
	})

	return r
}
