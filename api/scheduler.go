/*
scheduler.go - Periodic re-projection of stored plans

PURPOSE:
  Re-runs every stored plan on a cron schedule and stores a run per plan,
  so the run history tracks changes to engine defaults and plan edits
  without anyone pressing a button.

DESIGN:
  - Cron-driven (robfig/cron), standard 5-field specs or descriptors
    such as "@daily" and "@every 6h"
  - One refresh at a time: a tick that fires while a refresh is still
    running is skipped
  - A plan that fails to project is logged and skipped; the others
    still run

CONFIGURATION:
  - Spec: cron expression (default "@daily")
  - Enabled: whether the scheduler starts at all (default: false)

USAGE:
  scheduler := NewRefreshScheduler(handler, "@daily", logger)
  if err := scheduler.Start(); err != nil {
      log.Fatal(err)
  }
  defer scheduler.Stop()

SEE ALSO:
  - handlers.go: runStoredPlan, shared with POST /api/plans/{id}/runs
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/warp/projection-engine/generic"
	"go.uber.org/zap"
)

// RefreshResult counts the outcome of one refresh.
type RefreshResult struct {
	Projected int
	Failed    int
}

// RefreshScheduler re-projects stored plans on a cron schedule.
type RefreshScheduler struct {
	Handler *Handler
	Spec    string
	Enabled bool
	Logger  *zap.Logger

	cron    *cron.Cron
	entryID cron.EntryID
	running sync.Mutex
	mu      sync.Mutex
}

// NewRefreshScheduler creates an enabled scheduler for spec.
func NewRefreshScheduler(handler *Handler, spec string, logger *zap.Logger) *RefreshScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshScheduler{
		Handler: handler,
		Spec:    spec,
		Enabled: true,
		Logger:  logger,
	}
}

// Start registers the refresh job and starts the cron loop. It fails on an
// invalid spec.
func (rs *RefreshScheduler) Start() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Logger.Info("refresh scheduler disabled, not starting")
		return nil
	}
	if rs.cron != nil {
		return nil
	}

	c := cron.New()
	id, err := c.AddFunc(rs.Spec, func() {
		rs.RunNow(context.Background())
	})
	if err != nil {
		return fmt.Errorf("invalid scheduler spec %q: %w", rs.Spec, err)
	}
	rs.cron = c
	rs.entryID = id
	c.Start()

	rs.Logger.Info("refresh scheduler started",
		zap.String("spec", rs.Spec),
		zap.Time("next_run", rs.nextRunLocked()),
	)
	return nil
}

// Stop stops the cron loop and waits for a running refresh to finish.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.cron == nil {
		return
	}
	<-rs.cron.Stop().Done()
	rs.cron = nil
	rs.Logger.Info("refresh scheduler stopped")
}

// NextRun returns when the next refresh will fire, or the zero time when
// the scheduler is not running.
func (rs *RefreshScheduler) NextRun() time.Time {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.nextRunLocked()
}

func (rs *RefreshScheduler) nextRunLocked() time.Time {
	if rs.cron == nil {
		return time.Time{}
	}
	return rs.cron.Entry(rs.entryID).Next
}

// RunNow re-projects every stored plan immediately. It returns a zero
// result without doing anything if another refresh is in progress.
func (rs *RefreshScheduler) RunNow(ctx context.Context) RefreshResult {
	var result RefreshResult
	if !rs.running.TryLock() {
		rs.Logger.Warn("refresh already in progress, skipping")
		return result
	}
	defer rs.running.Unlock()

	start := time.Now()
	plans, err := rs.Handler.Store.ListPlans(ctx)
	if err != nil {
		rs.Logger.Error("failed to list plans", zap.Error(err))
		return result
	}

	for _, rec := range plans {
		if ctx.Err() != nil {
			break
		}
		if _, err := rs.Handler.runStoredPlan(ctx, rec, generic.RunSourceScheduler); err != nil {
			result.Failed++
			rs.Logger.Warn("plan refresh failed", zap.String("plan_id", rec.ID), zap.Error(err))
			continue
		}
		result.Projected++
	}

	rs.Logger.Info("refresh complete",
		zap.Int("projected", result.Projected),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result
}
