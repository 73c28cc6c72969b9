// Package plan implements the business-plan projection engine.
// It chains pure stages (branch schedule, revenue, opex, depreciation, P&L)
// on top of the generic series and fiscal-calendar primitives.
package plan

import (
	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/generic"
)

// DefaultHorizonMonths is the projection length used when none is given.
const DefaultHorizonMonths = 72

// =============================================================================
// INPUT ENTITIES
// =============================================================================

// BranchScheduleEntry is one month of the branch-expansion plan.
type BranchScheduleEntry struct {
	Month         int
	Branches      int
	GrowthRate    decimal.Decimal
	NewBranches   int
	Subscriptions map[string]int // stream key -> subscriber count
}

func (e BranchScheduleEntry) clone() BranchScheduleEntry {
	out := e
	out.Subscriptions = make(map[string]int, len(e.Subscriptions))
	for k, v := range e.Subscriptions {
		out.Subscriptions[k] = v
	}
	return out
}

// GrowthConfig holds the revenue growth tables, keyed by fiscal-year index.
//   - MonthlyRates: compounded every month within the year
//   - YearlyStepUps: applied once when the year opens
type GrowthConfig struct {
	MonthlyRates  map[int]decimal.Decimal
	YearlyStepUps map[int]decimal.Decimal
}

func (g GrowthConfig) monthlyRate(year int) decimal.Decimal {
	if r, ok := g.MonthlyRates[year]; ok {
		return r
	}
	return decimal.Zero
}

func (g GrowthConfig) stepUp(year int) decimal.Decimal {
	if r, ok := g.YearlyStepUps[year]; ok {
		return r
	}
	return decimal.Zero
}

// Clone returns a deep copy.
func (g GrowthConfig) Clone() GrowthConfig {
	return GrowthConfig{
		MonthlyRates:  cloneRates(g.MonthlyRates),
		YearlyStepUps: cloneRates(g.YearlyStepUps),
	}
}

func cloneRates(in map[int]decimal.Decimal) map[int]decimal.Decimal {
	if in == nil {
		return nil
	}
	out := make(map[int]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Service is one revenue stream line: units sold per branch per month at a
// constant price.
type Service struct {
	Name          string
	StreamName    string
	SubStreamName string
	BaseUnits     decimal.Decimal
	Price         decimal.Decimal
	Active        bool

	// CustomGrowth replaces the plan-wide growth tables for this service.
	CustomGrowth *GrowthConfig

	// ManualRamp holds literal total quantities for the first months.
	// Growth continues from the last literal value afterwards.
	ManualRamp []decimal.Decimal

	// SubscriptionKey scales the service by the schedule's subscriber count
	// for that key instead of by the branch count.
	SubscriptionKey string
}

// Expense is one operating-expense line.
type Expense struct {
	Name      string
	Category  string
	Amount    decimal.Decimal // monthly cost, per branch when PerBranch
	PerBranch bool
	Active    bool
}

// FixedAsset is a capital item depreciated straight-line.
type FixedAsset struct {
	Name            string
	Cost            decimal.Decimal
	UsefulLife      int // years
	AcquisitionYear int // fiscal-year index
}

// Config is everything the engine needs for one projection. Zero values
// select the reference defaults.
type Config struct {
	HorizonMonths    int
	Calendar         generic.Calendar
	BranchSchedule   []BranchScheduleEntry
	Services         []Service
	Expenses         []Expense
	Assets           []FixedAsset
	Growth           *GrowthConfig
	TaxRate          *decimal.Decimal
	Profiles         map[Profile]GrowthProfile
	CategoryProfiles map[string]Profile
}

func (c Config) horizon() int {
	if c.HorizonMonths <= 0 {
		return DefaultHorizonMonths
	}
	return c.HorizonMonths
}

func (c Config) growth() GrowthConfig {
	if c.Growth == nil {
		return DefaultRevenueGrowth()
	}
	return c.Growth.Clone()
}

func (c Config) taxRate() decimal.Decimal {
	if c.TaxRate == nil {
		return DefaultTaxRate()
	}
	return *c.TaxRate
}
