package points

import (
	"context"
	"errors"
	"time"

	"github.com/sukull/istikrar/calendar"
	"github.com/sukull/istikrar/models"
	"gorm.io/gorm"
)

// Identity resolves the authenticated user of a request.
type Identity interface {
	CurrentUser(ctx context.Context) (string, bool)
}

// Entitlements answers whether a user is exempt from heart gating.
type Entitlements interface {
	HasUnlimitedHearts(ctx context.Context, userID string) (bool, error)
}

// SchoolAggregator recomputes one school's denormalized point total.
type SchoolAggregator interface {
	Recompute(ctx context.Context, schoolID uint) error
}

// Invalidator drops cached read views after a successful change.
type Invalidator interface {
	InvalidateProgress(ctx context.Context, userID string) error
	InvalidateLeaderboard(ctx context.Context) error
	InvalidateSchoolLeaderboard(ctx context.Context) error
}

// NopInvalidator is used when no cache is configured.
type NopInvalidator struct{}

func (NopInvalidator) InvalidateProgress(context.Context, string) error { return nil }
func (NopInvalidator) InvalidateLeaderboard(context.Context) error { return nil }
func (NopInvalidator) InvalidateSchoolLeaderboard(context.Context) error { return nil }

// SubscriptionEntitlements grants unlimited hearts from the progress row: the lifetime
// flag or a subscription that has not expired yet.
type SubscriptionEntitlements struct {
	db    *gorm.DB
	clock calendar.Clock
}

// NewSubscriptionEntitlements builds the default entitlement check. A nil clock means wall time.
func NewSubscriptionEntitlements(db *gorm.DB, clock calendar.Clock) *SubscriptionEntitlements {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &SubscriptionEntitlements{db: db, clock: clock}
}

func (e *SubscriptionEntitlements) HasUnlimitedHearts(ctx context.Context, userID string) (bool, error) {
	var row struct {
		HasInfiniteHearts     bool
		SubscriptionExpiresAt *time.Time
	}
	err := e.db.WithContext(ctx).
		Model(&models.UserProgress{}).
		Select("has_infinite_hearts", "subscription_expires_at").
		Where("user_id = ?", userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if row.HasInfiniteHearts {
		return true, nil
	}
	return row.SubscriptionExpiresAt != nil && row.SubscriptionExpiresAt.After(e.clock.Now()), nil
}
