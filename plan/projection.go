/*
projection.go - End-to-end projection run

PURPOSE:
  Runs every stage for one configuration and assembles the monthly, yearly
  and summary views.

DEPENDENCY DAG:
  branch schedule ──┬── revenue ──┐
                    ├── opex ─────┼── yearly P&L ── summary
                    └─ (years) depreciation ┘   └── monthly P&L

  Revenue, opex and depreciation only read the schedule and their own
  inputs, so Engine.Run evaluates them concurrently. Each stage writes to
  its own result variable; nothing is shared.

YEAR COUNTS:
  Revenue and opex roll up with the partial first year, giving
  YearCount(horizon) rows. Depreciation runs ceil(horizon/12) years. Years
  past the depreciation vector carry zero depreciation.

EXAMPLE:
  engine := plan.NewEngine(logger)
  result, err := engine.Run(ctx, plan.Config{
      Services: services,
      Expenses: expenses,
  })
  fmt.Println(result.Summary.RevenueCagr)

SEE ALSO:
  - validate.go: Config.Validate, called first
  - pnl.go: Statement and summary formulas
*/
package plan

import (
	"context"
	"fmt"

	"github.com/warp/projection-engine/generic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// OUTPUT
// =============================================================================

// MonthlyView is the month-level output.
type MonthlyView struct {
	Labels     []string
	Revenue    generic.Series
	Opex       generic.Series
	PnL        []MonthlyPnL
	ByStream   map[string]generic.Series
	ByCategory map[string]generic.Series
}

// YearlyView is the fiscal-year output.
type YearlyView struct {
	Labels       []string
	Months       []int // months per year; the last year may be short
	PnL          []YearlyPnL
	Depreciation *DepreciationProjection
}

// Projection is the full result of one run.
type Projection struct {
	HorizonMonths int
	Calendar      generic.Calendar
	Schedule      *BranchSchedule
	Revenue       *RevenueProjection
	Opex          *OpexProjection
	Monthly       MonthlyView
	Yearly        YearlyView
	Summary       Summary
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs projections. The zero value is ready to use.
type Engine struct {
	Logger *zap.Logger
}

// NewEngine returns an engine that logs to logger (nil for none).
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{Logger: logger}
}

func (e *Engine) logger() *zap.Logger {
	if e == nil || e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Run validates cfg and projects it. The only errors are configuration
// errors and context cancellation.
func (e *Engine) Run(ctx context.Context, cfg Config) (*Projection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	horizon := cfg.horizon()
	depreciationYears := (horizon + generic.MonthsPerYear - 1) / generic.MonthsPerYear
	schedule := BuildBranchSchedule(cfg.BranchSchedule, horizon)
	growth := cfg.growth()
	profiles := NewProfileTable(cfg.Profiles, cfg.CategoryProfiles)

	var (
		revenue      *RevenueProjection
		opex         *OpexProjection
		depreciation *DepreciationProjection
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		revenue = ProjectRevenue(cfg.Services, schedule, growth, horizon)
		return gctx.Err()
	})
	g.Go(func() error {
		opex = ProjectOpex(cfg.Expenses, schedule, profiles, horizon)
		return gctx.Err()
	})
	g.Go(func() error {
		depreciation = ProjectDepreciation(cfg.Assets, depreciationYears)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("projection cancelled: %w", err)
	}

	taxRate := cfg.taxRate()
	yearly := YearlyStatement(YearlyInput{
		Revenue:         revenue.YearlyGrand,
		Opex:            opex.YearlyGrand,
		Depreciation:    depreciation.YearlyTotal,
		RevenueByStream: revenue.YearlyByStream,
		OpexByCategory:  opex.YearlyByCategory,
		TaxRate:         taxRate,
	})
	monthly := MonthlyStatement(MonthlyInput{
		Revenue: revenue.MonthlyGrand,
		Opex:    opex.MonthlyGrand,
		TaxRate: taxRate,
	})
	summary := Summarize(yearly)

	result := &Projection{
		HorizonMonths: horizon,
		Calendar:      cfg.Calendar,
		Schedule:      schedule,
		Revenue:       revenue,
		Opex:          opex,
		Monthly: MonthlyView{
			Labels:     monthLabels(cfg.Calendar, horizon),
			Revenue:    revenue.MonthlyGrand,
			Opex:       opex.MonthlyGrand,
			PnL:        monthly,
			ByStream:   streamTotals(revenue),
			ByCategory: categoryTotals(opex),
		},
		Yearly: YearlyView{
			Labels:       yearLabels(cfg.Calendar, horizon),
			Months:       yearMonths(horizon),
			PnL:          yearly,
			Depreciation: depreciation,
		},
		Summary: summary,
	}

	e.logger().Debug("projection complete",
		zap.Int("horizon_months", horizon),
		zap.Int("years", len(yearly)),
		zap.Int("services", len(cfg.Services)),
		zap.Int("expenses", len(cfg.Expenses)),
		zap.String("total_revenue", summary.TotalRevenue.StringFixed(2)),
		zap.String("total_pat", summary.TotalPat.StringFixed(2)),
	)
	return result, nil
}

// Run projects cfg with a default engine.
func Run(ctx context.Context, cfg Config) (*Projection, error) {
	return (&Engine{}).Run(ctx, cfg)
}

func streamTotals(rp *RevenueProjection) map[string]generic.Series {
	out := make(map[string]generic.Series, len(rp.Streams))
	for _, s := range rp.Streams {
		out[s.Name] = s.MonthlyTotal
	}
	return out
}

func categoryTotals(op *OpexProjection) map[string]generic.Series {
	out := make(map[string]generic.Series, len(op.Categories))
	for _, c := range op.Categories {
		out[c.Name] = c.MonthlyTotal
	}
	return out
}

func monthLabels(cal generic.Calendar, horizon int) []string {
	out := make([]string, horizon)
	for m := range out {
		out[m] = cal.MonthLabel(m)
	}
	return out
}

func yearMonths(horizon int) []int {
	years := generic.FiscalYears(horizon)
	out := make([]int, len(years))
	for i, fy := range years {
		out[i] = fy.Months()
	}
	return out
}

func yearLabels(cal generic.Calendar, horizon int) []string {
	years := generic.FiscalYears(horizon)
	out := make([]string, len(years))
	for i, fy := range years {
		out[i] = cal.YearLabel(fy)
	}
	return out
}
