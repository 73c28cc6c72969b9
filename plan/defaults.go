package plan

import (
	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/generic"
)

// =============================================================================
// REFERENCE DEFAULTS
// =============================================================================
// Every default is built fresh on each call. Callers may mutate what they get
// back without affecting later projections.

// DefaultTaxRate is the flat corporate rate, 25.17%.
func DefaultTaxRate() decimal.Decimal {
	return generic.MustParseDecimal("0.2517")
}

type defaultEntry struct {
	branches    int
	growth      string
	newBranches int
	marketplace int
	retail      int
	corporate   int
}

// Year 0 (months 0-6) is the launch ramp; year 1 (months 7-18) settles at
// ten branches. Later months repeat the last entry with zero growth.
var defaultSchedule = []defaultEntry{
	{1, "0", 1, 0, 0, 0},
	{3, "0.15", 2, 0, 60, 0},
	{3, "0.15", 0, 0, 75, 0},
	{4, "0.10", 1, 0, 100, 0},
	{5, "0.25", 1, 50, 130, 1000},
	{8, "0.30", 3, 80, 180, 1000},
	{10, "0.20", 2, 100, 230, 1000},

	{10, "0.10", 0, 150, 300, 1200},
	{10, "0.10", 0, 200, 340, 1200},
	{10, "0.18", 0, 250, 385, 1200},
	{10, "0.17", 0, 300, 420, 1500},
	{10, "0", 0, 350, 450, 1500},
	{10, "0", 0, 400, 500, 1500},
	{10, "0", 0, 450, 500, 1800},
	{10, "0.09", 0, 500, 500, 1800},
	{10, "0", 0, 500, 500, 1800},
	{10, "0", 0, 500, 500, 2100},
	{10, "0", 0, 500, 500, 2100},
	{10, "0", 0, 500, 500, 2100},
}

// Subscription stream keys used by the default schedule.
const (
	SubsMarketplace = "marketplace"
	SubsRetail      = "retail"
	SubsCorporate   = "corporate"
)

// DefaultBranchSchedule returns the built-in expansion plan.
func DefaultBranchSchedule() []BranchScheduleEntry {
	out := make([]BranchScheduleEntry, len(defaultSchedule))
	for i, d := range defaultSchedule {
		out[i] = BranchScheduleEntry{
			Month:       i,
			Branches:    d.branches,
			GrowthRate:  generic.MustParseDecimal(d.growth),
			NewBranches: d.newBranches,
			Subscriptions: map[string]int{
				SubsMarketplace: d.marketplace,
				SubsRetail:      d.retail,
				SubsCorporate:   d.corporate,
			},
		}
	}
	return out
}

func rates(kv map[int]string) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal, len(kv))
	for k, v := range kv {
		out[k] = generic.MustParseDecimal(v)
	}
	return out
}

// DefaultRevenueGrowth: year 0 grows through branch expansion only, year 1
// compounds 25% a month, later years step up once at the boundary.
func DefaultRevenueGrowth() GrowthConfig {
	return GrowthConfig{
		MonthlyRates: rates(map[int]string{
			0: "0", 1: "0.25", 2: "0", 3: "0", 4: "0", 5: "0",
		}),
		YearlyStepUps: rates(map[int]string{
			2: "0.20", 3: "0.10", 4: "0.10", 5: "0.15",
		}),
	}
}

// DefaultProfiles returns the stable and declining rate tables.
func DefaultProfiles() map[Profile]GrowthProfile {
	return map[Profile]GrowthProfile{
		ProfileStable: {
			YearlyRates: rates(map[int]string{
				1: "0.01", 2: "0.01", 3: "0.01", 4: "0.01", 5: "0.01",
			}),
		},
		ProfileDeclining: {
			YearlyRates: rates(map[int]string{
				1: "0.01", 2: "0.45", 3: "0.40", 4: "0.25", 5: "0.15",
			}),
		},
	}
}

// DefaultCategoryProfiles maps the reference expense categories.
func DefaultCategoryProfiles() map[string]Profile {
	return map[string]Profile{
		"Utilities":               ProfileStable,
		"Salaries":                ProfileStable,
		"Vendor Payments":         ProfileStable,
		"Supplies":                ProfileStable,
		"Payouts":                 ProfileStable,
		"Marketing & Promotions":  ProfileDeclining,
		"Licenses & Registration": ProfileDeclining,
	}
}
