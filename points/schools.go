package points

import (
	"context"
	"fmt"

	"github.com/sukull/istikrar/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// SchoolTotals keeps schools.total_points equal to the sum of its members' points.
type SchoolTotals struct {
	db *gorm.DB
}

// NewSchoolTotals builds the gorm-backed aggregator.
func NewSchoolTotals(db *gorm.DB) *SchoolTotals {
	return &SchoolTotals{db: db}
}

// Recompute sums the points of schoolID's members into the school row.
func (s *SchoolTotals) Recompute(ctx context.Context, schoolID uint) error {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.UserProgress{}).
		Where("school_id = ?", schoolID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	if err != nil {
		return fmt.Errorf("sum school %d: %w", schoolID, err)
	}
	err = s.db.WithContext(ctx).
		Model(&models.School{}).
		Where("id = ?", schoolID).
		Update("total_points", total).Error
	if err != nil {
		return fmt.Errorf("update school %d: %w", schoolID, err)
	}
	return nil
}

// RecomputeAllSchools recomputes every school with at most parallel workers.
func (s *SchoolTotals) RecomputeAllSchools(ctx context.Context, parallel int) (int, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.School{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("list schools: %w", err)
	}
	if parallel < 1 {
		parallel = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return s.Recompute(gctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(ids), nil
}
