package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sukull/istikrar/calendar"
	"github.com/sukull/istikrar/config"
	"github.com/sukull/istikrar/controllers"
	"github.com/sukull/istikrar/identity"
	"github.com/sukull/istikrar/models"
	"github.com/sukull/istikrar/points"
	"github.com/sukull/istikrar/routes"
	"github.com/sukull/istikrar/streak"
	"github.com/sukull/istikrar/utils"
	"gorm.io/gorm"
)

// app holds the wired services shared by every command.
type app struct {
	cfg         config.AppConfig
	db          *gorm.DB
	redis       *redis.Client
	cal         *calendar.Calendar
	ledger      *streak.Ledger
	points      *points.Service
	cache       *utils.Cache
	maintenance *points.Maintenance
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := config.InitDatabase(models.All()...)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	// Redis only accelerates; an unreachable server degrades to no cache and local locks
	rc, err := utils.NewRedis(ctx, cfg)
	if err != nil {
		utils.Sugar.Warnw("redis unavailable, continuing without it", "error", err)
	}
	cal := calendar.New(cfg.TimezoneOffsetHours, calendar.SystemClock{})
	ledger := streak.NewLedger(db, cal, utils.Sugar.Named("streak"))
	cache := utils.NewCache(rc, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	schools := points.NewSchoolTotals(db)

	svc := points.NewService(db, ledger, identity.ContextProvider{},
		points.WithEntitlements(points.NewSubscriptionEntitlements(db, calendar.SystemClock{})),
		points.WithSchools(schools),
		points.WithInvalidator(cache),
		points.WithSettings(points.Settings{
			MaxHearts:          cfg.MaxHearts,
			PointsToRefill:     cfg.PointsToRefill,
			DefaultDailyTarget: cfg.DefaultDailyTarget,
			MinDailyTarget:     points.DefaultSettings().MinDailyTarget,
			MaxDailyTarget:     points.DefaultSettings().MaxDailyTarget,
			MaxDelta: map[points.Kind]int{
				points.FirstCompletion: cfg.MaxPointsDelta,
				points.Practice:        cfg.MaxPointsDelta,
				points.Penalty:         cfg.MaxPointsDelta,
				points.Game:            cfg.MaxGameDelta,
			},
		}),
		points.WithLogger(utils.Sugar.Named("points")),
	)

	return &app{
		cfg:    cfg,
		db:     db,
		redis:  rc,
		cal:    cal,
		ledger: ledger,
		points: svc,
		cache:  cache,
		maintenance: &points.Maintenance{
			Ledger:   ledger,
			Schools:  schools,
			Views:    cache,
			Parallel: cfg.SchoolRecomputeParallel,
			Log:      utils.Sugar.Named("maintenance"),
		},
	}, nil
}

func (a *app) routerDeps() routes.Deps {
	return routes.Deps{
		DB:          a.db,
		Calendar:    a.cal,
		Ledger:      a.ledger,
		Points:      a.points,
		Maintenance: a.maintenance,
		Cache:       a.cache,
		Amounts: controllers.PointAmounts{
			FirstCompletion: a.cfg.FirstCompletionPoints,
			Practice:        a.cfg.PracticePoints,
			Penalty:         a.cfg.PenaltyPoints,
			Game:            a.cfg.GamePoints,
		},
	}
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = utils.Logger.Sync()
}
