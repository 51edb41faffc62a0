package points

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sukull/istikrar/models"
	"github.com/sukull/istikrar/streak"
	"github.com/sukull/istikrar/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Settings are the economy constants of the service.
type Settings struct {
	MaxHearts          int
	PointsToRefill     int
	DefaultDailyTarget int
	MinDailyTarget     int
	MaxDailyTarget     int
	// MaxDelta bounds |delta| per kind; missing kinds use DefaultMaxDelta.
	MaxDelta map[Kind]int
}

// DefaultSettings mirrors the production economy.
func DefaultSettings() Settings {
	return Settings{
		MaxHearts:          5,
		PointsToRefill:     200,
		DefaultDailyTarget: 50,
		MinDailyTarget:     10,
		MaxDailyTarget:     1000,
		MaxDelta: map[Kind]int{
			FirstCompletion: DefaultMaxDelta,
			Practice:        DefaultMaxDelta,
			Penalty:         DefaultMaxDelta,
			Game:            DefaultMaxDelta,
		},
	}
}

func (st Settings) maxDelta(k Kind) int {
	if v, ok := st.MaxDelta[k]; ok && v > 0 {
		return v
	}
	return DefaultMaxDelta
}

// Result is returned by every point-changing operation.
type Result struct {
	Status       Status               `json:"status"`
	Points       int                  `json:"points"`
	Hearts       int                  `json:"hearts"`
	Streak       int                  `json:"streak"`
	GoalAchieved bool                 `json:"goal_achieved"`
	EarnedToday  int                  `json:"earned_today"`
	DailyTarget  int                  `json:"daily_target"`
	Unlocked     []streak.Requirement `json:"unlocked,omitempty"`
}

// View is the read model of one user's progress for today.
type View struct {
	Progress     models.UserProgress `json:"progress"`
	Today        string              `json:"today"`
	EarnedToday  int                 `json:"earned_today"`
	GoalAchieved bool                `json:"goal_achieved"`
}

// Service applies point changes and keeps the streak ledger consistent with them.
type Service struct {
	db           *gorm.DB
	ledger       *streak.Ledger
	identity     Identity
	entitlements Entitlements
	schools      SchoolAggregator
	invalidator  Invalidator
	settings     Settings
	log          *zap.SugaredLogger
}

// Option configures a Service.
type Option func(*Service)

func WithEntitlements(e Entitlements) Option { return func(s *Service) { s.entitlements = e } }
func WithSchools(a SchoolAggregator) Option  { return func(s *Service) { s.schools = a } }
func WithInvalidator(i Invalidator) Option   { return func(s *Service) { s.invalidator = i } }
func WithSettings(st Settings) Option        { return func(s *Service) { s.settings = st } }
func WithLogger(l *zap.SugaredLogger) Option { return func(s *Service) { s.log = l } }

// NewService wires the orchestrator. Unset collaborators fall back to the database-backed
// entitlements and school totals, no cache invalidation and a no-op logger.
func NewService(db *gorm.DB, ledger *streak.Ledger, ident Identity, opts ...Option) *Service {
	s := &Service{
		db:       db,
		ledger:   ledger,
		identity: ident,
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.entitlements == nil {
		s.entitlements = NewSubscriptionEntitlements(db, nil)
	}
	if s.schools == nil {
		s.schools = NewSchoolTotals(db)
	}
	if s.invalidator == nil {
		s.invalidator = NopInvalidator{}
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	return s
}

func (s *Service) currentUser(ctx context.Context) (string, error) {
	id, ok := s.identity.CurrentUser(ctx)
	if !ok {
		return "", ErrUnauthorized
	}
	return id, nil
}

// ApplyPointsDelta applies delta of the given kind to the current user.
// With no hearts left a gated kind returns StatusInsufficientHearts and changes nothing.
func (s *Service) ApplyPointsDelta(ctx context.Context, delta int, kind Kind) (Result, error) {
	if !kind.Valid() || !kind.accepts(delta, s.settings.maxDelta(kind)) {
		return Result{}, fmt.Errorf("%w: delta %d for kind %q", ErrInvalidInput, delta, kind)
	}
	userID, err := s.currentUser(ctx)
	if err != nil {
		return Result{}, err
	}

	// resolved before the transaction so the lookup never waits on the locked row's connection
	unlimited := false
	if kind.HeartGated() {
		unlimited, err = s.entitlements.HasUnlimitedHearts(ctx, userID)
		if err != nil {
			return Result{}, fmt.Errorf("entitlements: %w", err)
		}
	}

	var res Result
	var schoolID *uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := streak.LockProgress(tx, userID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if kind.HeartGated() && p.Hearts <= 0 && !unlimited {
			res = s.result(p, StatusInsufficientHearts, streak.Evaluation{Streak: p.Istikrar})
			return nil
		}

		if _, err := s.ledger.Reconcile(tx, p); err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		if p.PreviousTotalPoints == nil {
			p.Rebase()
		}

		before := p.Points
		p.Points = addPoints(p.Points, delta)
		switch kind {
		case Practice:
			p.Hearts = min(s.settings.MaxHearts, p.Hearts+1)
		case Penalty:
			if !unlimited {
				p.Hearts = max(0, p.Hearts-1)
			}
		}

		if err := streak.SaveProgress(tx, p); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
		if err := s.appendLog(tx, p, string(kind), delta, p.Points-before); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		ev, err := s.ledger.Evaluate(tx, p)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		res = s.result(p, StatusOK, ev)
		schoolID = p.SchoolID
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if res.Status == StatusInsufficientHearts {
		s.log.Debugw("point change refused", "user_id", userID, "kind", kind)
		return res, nil
	}

	s.afterCommit(ctx, userID, schoolID)
	return res, nil
}

// RefillHearts spends PointsToRefill points to restore hearts to the maximum.
func (s *Service) RefillHearts(ctx context.Context) (Result, error) {
	userID, err := s.currentUser(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	var schoolID *uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := streak.LockProgress(tx, userID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if p.Hearts >= s.settings.MaxHearts {
			return ErrHeartsFull
		}
		if p.Points < s.settings.PointsToRefill {
			return ErrNotEnoughPoints
		}
		if _, err := s.ledger.Reconcile(tx, p); err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		if p.PreviousTotalPoints == nil {
			p.Rebase()
		}

		p.Points -= s.settings.PointsToRefill
		p.Hearts = s.settings.MaxHearts
		if err := streak.SaveProgress(tx, p); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
		if err := s.appendLog(tx, p, logKindRefill, -s.settings.PointsToRefill, -s.settings.PointsToRefill); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		ev, err := s.ledger.Evaluate(tx, p)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		res = s.result(p, StatusOK, ev)
		schoolID = p.SchoolID
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	s.afterCommit(ctx, userID, schoolID)
	return res, nil
}

// EnsureProgress creates the current user's progress row with an unset baseline.
// It reports whether the row was created; an existing row is left untouched.
func (s *Service) EnsureProgress(ctx context.Context, name, imageSrc string) (View, bool, error) {
	userID, err := s.currentUser(ctx)
	if err != nil {
		return View{}, false, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "User"
	}
	if len(name) > 64 {
		return View{}, false, fmt.Errorf("%w: name too long", ErrInvalidInput)
	}

	p := models.UserProgress{
		UserID:      userID,
		UserName:    name,
		Hearts:      s.settings.MaxHearts,
		DailyTarget: s.settings.DefaultDailyTarget,
	}
	if imageSrc != "" {
		p.UserImageSrc = imageSrc
	}
	created := true
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		if !utils.IsUniqueViolation(err) {
			return View{}, false, fmt.Errorf("create progress: %w", err)
		}
		created = false
	}
	if created {
		s.log.Infow("progress created", "user_id", userID)
		s.invalidate(ctx, userID, true)
	}

	view, err := s.Snapshot(ctx)
	return view, created, err
}

// Snapshot reconciles the current user and returns today's view.
func (s *Service) Snapshot(ctx context.Context) (View, error) {
	userID, err := s.currentUser(ctx)
	if err != nil {
		return View{}, err
	}
	var view View
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := streak.LockProgress(tx, userID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if _, err := s.ledger.Reconcile(tx, p); err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		achieved, err := s.ledger.TodayAchieved(tx, userID)
		if err != nil {
			return fmt.Errorf("load today: %w", err)
		}
		cal := s.ledger.Calendar()
		view = View{
			Progress:     *p,
			Today:        cal.Key(cal.Today()),
			EarnedToday:  p.PointsEarnedToday(),
			GoalAchieved: achieved,
		}
		return nil
	})
	return view, err
}

// SetDailyTarget changes the current user's daily target once DailyGoalChange is unlocked.
func (s *Service) SetDailyTarget(ctx context.Context, target int) (Result, error) {
	if target < s.settings.MinDailyTarget || target > s.settings.MaxDailyTarget {
		return Result{}, fmt.Errorf("%w: target must be within [%d, %d]", ErrInvalidInput, s.settings.MinDailyTarget, s.settings.MaxDailyTarget)
	}
	userID, err := s.currentUser(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := streak.LockProgress(tx, userID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if _, err := s.ledger.Reconcile(tx, p); err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		if !streak.DailyGoalChange.Met(p) {
			return fmt.Errorf("%w: %d more days", ErrRequirementNotMet, streak.DailyGoalChange.RemainingDays(p))
		}
		p.DailyTarget = target
		if err := streak.SaveProgress(tx, p); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
		ev, err := s.ledger.Evaluate(tx, p)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		res = s.result(p, StatusOK, ev)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	s.invalidate(ctx, userID, false)
	return res, nil
}

// AssignSchool moves the current user into schoolID once SchoolSelection is unlocked.
func (s *Service) AssignSchool(ctx context.Context, schoolID uint) (View, error) {
	userID, err := s.currentUser(ctx)
	if err != nil {
		return View{}, err
	}

	var previous *uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := streak.LockProgress(tx, userID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if _, err := s.ledger.Reconcile(tx, p); err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		if !streak.SchoolSelection.Met(p) {
			return fmt.Errorf("%w: %d more days", ErrRequirementNotMet, streak.SchoolSelection.RemainingDays(p))
		}
		var school models.School
		if err := tx.Select("id").Where("id = ?", schoolID).Take(&school).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSchoolNotFound
			}
			return fmt.Errorf("load school: %w", err)
		}
		previous = p.SchoolID
		id := schoolID
		p.SchoolID = &id
		if err := streak.SaveProgress(tx, p); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
		return nil
	})
	if err != nil {
		return View{}, err
	}

	target := schoolID
	if previous != nil && *previous != schoolID {
		s.afterCommit(ctx, userID, previous, &target)
	} else {
		s.afterCommit(ctx, userID, &target)
	}
	return s.Snapshot(ctx)
}

func (s *Service) appendLog(tx *gorm.DB, p *models.UserProgress, kind string, requested, applied int) error {
	cal := s.ledger.Calendar()
	return tx.Create(&models.PointLog{
		UserID:      p.UserID,
		Kind:        kind,
		Requested:   requested,
		Applied:     applied,
		PointsAfter: p.Points,
		HeartsAfter: p.Hearts,
		Day:         cal.Key(cal.Now()),
	}).Error
}

// addPoints applies delta to a non-negative total, clamped to [0, math.MaxInt].
func addPoints(total, delta int) int {
	if delta > 0 && total > math.MaxInt-delta {
		return math.MaxInt
	}
	return max(0, total+delta)
}

func (s *Service) result(p *models.UserProgress, status Status, ev streak.Evaluation) Result {
	return Result{
		Status:       status,
		Points:       p.Points,
		Hearts:       p.Hearts,
		Streak:       ev.Streak,
		GoalAchieved: ev.Achieved,
		EarnedToday:  p.PointsEarnedToday(),
		DailyTarget:  p.DailyTarget,
		Unlocked:     ev.Unlocked,
	}
}

// afterCommit runs the best-effort follow-ups of a committed change. Failures are logged only.
func (s *Service) afterCommit(ctx context.Context, userID string, schools ...*uint) {
	for _, id := range schools {
		if id == nil {
			continue
		}
		if err := s.schools.Recompute(ctx, *id); err != nil {
			s.log.Warnw("school aggregate recompute failed", "user_id", userID, "school_id", *id, "error", err)
		}
	}
	s.invalidate(ctx, userID, true)
}

func (s *Service) invalidate(ctx context.Context, userID string, boards bool) {
	if err := s.invalidator.InvalidateProgress(ctx, userID); err != nil {
		s.log.Warnw("invalidate progress failed", "user_id", userID, "error", err)
	}
	if !boards {
		return
	}
	if err := s.invalidator.InvalidateLeaderboard(ctx); err != nil {
		s.log.Warnw("invalidate leaderboard failed", "error", err)
	}
	if err := s.invalidator.InvalidateSchoolLeaderboard(ctx); err != nil {
		s.log.Warnw("invalidate school leaderboard failed", "error", err)
	}
}
