package points

import (
	"context"
	"fmt"

	"github.com/sukull/istikrar/streak"
	"go.uber.org/zap"
)

// ViewFlusher drops every cached read view.
type ViewFlusher interface {
	InvalidateAll(ctx context.Context) error
}

// MaintenanceReport summarizes one daily maintenance run.
type MaintenanceReport struct {
	streak.ResetReport
	Schools int `json:"schools"`
}

// Maintenance is the daily batch: streak reset, school totals, cache flush.
type Maintenance struct {
	Ledger   *streak.Ledger
	Schools  *SchoolTotals
	Views    ViewFlusher
	Parallel int
	Log      *zap.SugaredLogger
}

// Run performs the daily reset and refreshes the derived data. A failed reset aborts the run;
// school totals and cache flush failures are reported after the reset has committed.
func (m *Maintenance) Run(ctx context.Context) (MaintenanceReport, error) {
	log := m.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	reset, err := m.Ledger.PerformDailyReset(ctx)
	out := MaintenanceReport{ResetReport: reset}
	if err != nil {
		return out, err
	}

	if m.Schools != nil {
		n, err := m.Schools.RecomputeAllSchools(ctx, m.Parallel)
		if err != nil {
			return out, fmt.Errorf("recompute schools: %w", err)
		}
		out.Schools = n
	}
	if m.Views != nil {
		if err := m.Views.InvalidateAll(ctx); err != nil {
			log.Warnw("cache flush after daily reset failed", "error", err)
		}
	}
	log.Infow("daily maintenance finished", "reset", out.Reset, "schools", out.Schools)
	return out, nil
}
