package plan_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/projection-engine/generic"
	"github.com/warp/projection-engine/plan"
	"go.uber.org/zap/zaptest"
)

// referenceConfig is a small clinic plan on every default.
func referenceConfig() plan.Config {
	return plan.Config{
		Services: []plan.Service{
			{Name: "General Consultation", StreamName: "Consultations", BaseUnits: dec("8"), Price: dec("5500"), Active: true},
			{Name: "Lab Tests", StreamName: "Diagnostics", BaseUnits: dec("20"), Price: dec("1800"), Active: true},
			{Name: "Marketplace", StreamName: "Subscriptions", BaseUnits: dec("1"), Price: dec("2500"), Active: true, SubscriptionKey: plan.SubsMarketplace},
		},
		Expenses: []plan.Expense{
			{Name: "Electricity", Category: "Utilities", Amount: dec("295000"), PerBranch: true, Active: true},
			{Name: "Head Office", Category: "Salaries", Amount: dec("2500000"), Active: true},
			{Name: "Launch", Category: "Marketing & Promotions", Amount: dec("1500000"), Active: true},
		},
		Assets: []plan.FixedAsset{
			{Name: "Medical Equipment", Cost: dec("25000000"), UsefulLife: 10},
		},
	}
}

// =============================================================================
// ENGINE TESTS
// =============================================================================

func TestRun_DefaultHorizonShape(t *testing.T) {
	// GIVEN: A plan that leaves horizon, growth and tax at their defaults
	cfg := referenceConfig()

	// WHEN: Running the engine
	result, err := plan.NewEngine(zaptest.NewLogger(t)).Run(context.Background(), cfg)
	require.NoError(t, err)

	// THEN: 72 months, 7 fiscal years, 6 depreciation years
	assert.Equal(t, 72, result.HorizonMonths)
	assert.Len(t, result.Monthly.PnL, 72)
	assert.Len(t, result.Monthly.Labels, 72)
	assert.Equal(t, "M1", result.Monthly.Labels[0])
	require.Len(t, result.Yearly.PnL, 7)
	assert.Equal(t, []string{"Y1", "Y2", "Y3", "Y4", "Y5", "Y6", "Y7"}, result.Yearly.Labels)
	assert.Equal(t, []int{7, 12, 12, 12, 12, 12, 5}, result.Yearly.Months)
	assert.Len(t, result.Yearly.Depreciation.YearlyTotal, 6)

	// AND: The seventh year has no depreciation
	assert.True(t, result.Yearly.PnL[6].Depreciation.IsZero())
	assert.Equal(t, "2500000.00", result.Yearly.PnL[5].Depreciation.StringFixed(2))

	// AND: The first month matches 8 × 1 × 5500 + 20 × 1 × 1800
	assert.Equal(t, "80000.00", result.Monthly.Revenue[0].StringFixed(2))
	assert.Equal(t, "44000.00", result.Monthly.ByStream["Consultations"][0].StringFixed(2))
}

func TestRun_YearlyTotalsMatchMonthly(t *testing.T) {
	result, err := plan.Run(context.Background(), referenceConfig())
	require.NoError(t, err)

	yearlyRevenue := decimal.Zero
	yearlyOpex := decimal.Zero
	for _, y := range result.Yearly.PnL {
		yearlyRevenue = yearlyRevenue.Add(y.Revenue)
		yearlyOpex = yearlyOpex.Add(y.Opex)
		assert.True(t, y.Pat.Equal(y.Pbt.Sub(y.Tax)), y.Label)
		assert.True(t, y.Ebitda.Equal(y.Revenue.Sub(y.Opex)), y.Label)
	}

	// Monthly values are already rounded, so rolling up is exact.
	assert.True(t, yearlyRevenue.Equal(result.Monthly.Revenue.Sum()))
	assert.True(t, yearlyOpex.Equal(result.Monthly.Opex.Sum()))
	assert.True(t, result.Summary.TotalRevenue.Equal(yearlyRevenue))
}

func TestRun_StreamBreakdownAddsUp(t *testing.T) {
	result, err := plan.Run(context.Background(), referenceConfig())
	require.NoError(t, err)

	for _, y := range result.Yearly.PnL {
		streams := decimal.Zero
		for _, v := range y.RevenueByStream {
			streams = streams.Add(v)
		}
		categories := decimal.Zero
		for _, v := range y.OpexByCategory {
			categories = categories.Add(v)
		}
		assert.True(t, streams.Equal(y.Revenue), y.Label)
		assert.True(t, categories.Equal(y.Opex), y.Label)
	}
}

func TestRun_Deterministic(t *testing.T) {
	first, err := plan.Run(context.Background(), referenceConfig())
	require.NoError(t, err)
	second, err := plan.Run(context.Background(), referenceConfig())
	require.NoError(t, err)

	assert.Equal(t, fixed(first.Monthly.Revenue), fixed(second.Monthly.Revenue))
	assert.Equal(t, fixed(first.Monthly.Opex), fixed(second.Monthly.Opex))
	assert.Equal(t, first.Summary.TotalPat.String(), second.Summary.TotalPat.String())
	assert.Equal(t, first.Summary.BreakEvenYear, second.Summary.BreakEvenYear)
}

func TestRun_DoesNotMutateConfig(t *testing.T) {
	// GIVEN: A plan with its own growth table and schedule
	growth := plan.GrowthConfig{MonthlyRates: rateTable(map[int]string{0: "0.05"})}
	cfg := referenceConfig()
	cfg.Growth = &growth
	cfg.BranchSchedule = []plan.BranchScheduleEntry{{Branches: 2, Subscriptions: map[string]int{plan.SubsMarketplace: 5}}}
	cfg.HorizonMonths = 24

	// WHEN: Running it
	_, err := plan.Run(context.Background(), cfg)
	require.NoError(t, err)

	// THEN: The inputs are untouched
	assert.Equal(t, "0.05", growth.MonthlyRates[0].String())
	assert.Len(t, growth.MonthlyRates, 1)
	assert.Equal(t, 0, cfg.BranchSchedule[0].Month)
	assert.Equal(t, 5, cfg.BranchSchedule[0].Subscriptions[plan.SubsMarketplace])
}

func TestRun_CustomHorizonAndCalendar(t *testing.T) {
	cfg := referenceConfig()
	cfg.HorizonMonths = 20
	cal, err := generic.ParseCalendar("2025-09")
	require.NoError(t, err)
	cfg.Calendar = cal

	result, err := plan.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Len(t, result.Monthly.PnL, 20)
	assert.Len(t, result.Yearly.PnL, 3)
	assert.Equal(t, "Sep-2025", result.Monthly.Labels[0])
	assert.Equal(t, "Y1 (Sep-2025..Mar-2026)", result.Yearly.Labels[0])
	assert.Equal(t, "Y3 (Apr-2027..Apr-2027)", result.Yearly.Labels[2])
	assert.Equal(t, []int{7, 12, 1}, result.Yearly.Months)
}

func TestRun_ZeroTaxRate(t *testing.T) {
	cfg := referenceConfig()
	zero := decimal.Zero
	cfg.TaxRate = &zero

	result, err := plan.Run(context.Background(), cfg)
	require.NoError(t, err)

	for _, y := range result.Yearly.PnL {
		assert.True(t, y.Tax.IsZero())
		assert.True(t, y.Pat.Equal(y.Pbt))
	}
}

func TestRun_EmptyPlan(t *testing.T) {
	// GIVEN: No services, expenses or assets
	result, err := plan.Run(context.Background(), plan.Config{
		Services: []plan.Service{},
		Expenses: []plan.Expense{},
	})
	require.NoError(t, err)

	// THEN: Everything is zero and break-even is year 1
	assert.True(t, result.Summary.TotalRevenue.IsZero())
	require.NotNil(t, result.Summary.BreakEvenYear)
	assert.Equal(t, 1, *result.Summary.BreakEvenYear)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := plan.Run(ctx, referenceConfig())

	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate_RejectsMalformedConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*plan.Config)
		field  string
	}{
		{"negative horizon", func(c *plan.Config) { c.HorizonMonths = -1 }, "horizon_months"},
		{"horizon too long", func(c *plan.Config) { c.HorizonMonths = plan.MaxHorizonMonths + 1 }, "horizon_months"},
		{"missing services", func(c *plan.Config) { c.Services = nil }, "services"},
		{"missing expenses", func(c *plan.Config) { c.Expenses = nil }, "expenses"},
		{"negative branches", func(c *plan.Config) {
			c.BranchSchedule = []plan.BranchScheduleEntry{{Branches: -1}}
		}, "branch_schedule[0].branches"},
		{"negative subscribers", func(c *plan.Config) {
			c.BranchSchedule = []plan.BranchScheduleEntry{{Branches: 1, Subscriptions: map[string]int{"retail": -2}}}
		}, "branch_schedule[0].subscriptions.retail"},
		{"negative ramp", func(c *plan.Config) {
			c.Services[1].ManualRamp = []decimal.Decimal{dec("1"), dec("-1")}
		}, "services[1].manual_ramp[1]"},
		{"negative expense", func(c *plan.Config) { c.Expenses[2].Amount = dec("-5") }, "expenses[2].amount"},
		{"negative asset cost", func(c *plan.Config) { c.Assets[0].Cost = dec("-1") }, "assets[0].cost"},
		{"tax above one", func(c *plan.Config) {
			rate := dec("1.5")
			c.TaxRate = &rate
		}, "tax_rate"},
		{"rate at minus one", func(c *plan.Config) {
			c.Growth = &plan.GrowthConfig{YearlyStepUps: rateTable(map[int]string{2: "-1"})}
		}, "growth_config.yearly_step_ups.2"},
		{"negative year key", func(c *plan.Config) {
			c.Services[0].CustomGrowth = &plan.GrowthConfig{MonthlyRates: rateTable(map[int]string{-1: "0.1"})}
		}, "services[0].custom_growth.monthly_rates"},
		{"unknown category profile", func(c *plan.Config) {
			c.CategoryProfiles = map[string]plan.Profile{"Rent": plan.Profile(9)}
		}, "category_profiles.Rent"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := referenceConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.ErrorIs(t, err, generic.ErrInvalidConfig)
			var cfgErr *generic.InvalidConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tc.field, cfgErr.Field)

			_, runErr := plan.Run(context.Background(), cfg)
			assert.ErrorIs(t, runErr, generic.ErrInvalidConfig)
		})
	}
}

func TestValidate_ReportsFirstFieldInKeyOrder(t *testing.T) {
	// GIVEN: Several bad entries in every map-backed section
	cases := []struct {
		name   string
		mutate func(*plan.Config)
		field  string
	}{
		{"rates", func(c *plan.Config) {
			c.Growth = &plan.GrowthConfig{YearlyStepUps: rateTable(map[int]string{
				5: "-2", 1: "-1", 3: "-1.5", 4: "-3", 2: "-1",
			})}
		}, "growth_config.yearly_step_ups.1"},
		{"subscriptions", func(c *plan.Config) {
			c.BranchSchedule = []plan.BranchScheduleEntry{{Branches: 1, Subscriptions: map[string]int{
				"retail": -1, "corporate": -1, "marketplace": -1, "enterprise": -1,
			}}}
		}, "branch_schedule[0].subscriptions.corporate"},
		{"category profiles", func(c *plan.Config) {
			c.CategoryProfiles = map[string]plan.Profile{
				"Rent": plan.Profile(9), "Payouts": plan.Profile(8), "Salaries": plan.Profile(7), "Utilities": plan.Profile(6),
			}
		}, "category_profiles.Payouts"},
		{"profiles", func(c *plan.Config) {
			c.Profiles = map[plan.Profile]plan.GrowthProfile{
				plan.ProfileDeclining: {YearlyRates: rateTable(map[int]string{1: "-1"})},
				plan.ProfileStable:    {YearlyRates: rateTable(map[int]string{1: "-1"})},
			}
		}, "profiles.stable.yearly_rates.1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// WHEN: Validating repeatedly
			for i := 0; i < 20; i++ {
				cfg := referenceConfig()
				tc.mutate(&cfg)

				var cfgErr *generic.InvalidConfigError
				require.True(t, errors.As(cfg.Validate(), &cfgErr))

				// THEN: The same field is reported every time
				assert.Equal(t, tc.field, cfgErr.Field)
			}
		})
	}
}

func TestValidate_AcceptsDegenerateInputs(t *testing.T) {
	// GIVEN: Inputs the engine defaults on rather than rejects
	cfg := referenceConfig()
	cfg.Services[0].Active = false
	cfg.Services[1].Price = decimal.Zero
	cfg.Assets[0].UsefulLife = 0
	cfg.BranchSchedule = []plan.BranchScheduleEntry{{Branches: 0}}

	assert.NoError(t, cfg.Validate())
}
