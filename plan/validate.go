package plan

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/generic"
)

// MaxHorizonMonths bounds a projection to fifty years.
const MaxHorizonMonths = 600

var minusOne = decimal.NewFromInt(-1)

// Validate rejects configurations the engine cannot project meaningfully.
// It does not reject degenerate inputs the engine defaults on: inactive or
// zero-priced services, zero-life assets and short branch schedules are all
// valid.
func (c Config) Validate() error {
	if c.HorizonMonths < 0 || c.HorizonMonths > MaxHorizonMonths {
		return generic.InvalidConfig("horizon_months", fmt.Sprintf("must be between 0 and %d", MaxHorizonMonths))
	}
	if c.Services == nil {
		return generic.InvalidConfig("services", "is required")
	}
	if c.Expenses == nil {
		return generic.InvalidConfig("expenses", "is required")
	}

	for i, e := range c.BranchSchedule {
		if e.Branches < 0 {
			return generic.InvalidConfig(fmt.Sprintf("branch_schedule[%d].branches", i), "must not be negative")
		}
		if e.NewBranches < 0 {
			return generic.InvalidConfig(fmt.Sprintf("branch_schedule[%d].new_branches", i), "must not be negative")
		}
		keys := make([]string, 0, len(e.Subscriptions))
		for key := range e.Subscriptions {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if n := e.Subscriptions[key]; n < 0 {
				return generic.InvalidConfig(fmt.Sprintf("branch_schedule[%d].subscriptions.%s", i, key), "must not be negative")
			}
		}
	}

	for i, s := range c.Services {
		field := fmt.Sprintf("services[%d]", i)
		if s.CustomGrowth != nil {
			if err := validateGrowth(field+".custom_growth", *s.CustomGrowth); err != nil {
				return err
			}
		}
		for m, v := range s.ManualRamp {
			if v.IsNegative() {
				return generic.InvalidConfig(fmt.Sprintf("%s.manual_ramp[%d]", field, m), "must not be negative")
			}
		}
	}

	for i, e := range c.Expenses {
		if e.Amount.IsNegative() {
			return generic.InvalidConfig(fmt.Sprintf("expenses[%d].amount", i), "must not be negative")
		}
	}

	for i, a := range c.Assets {
		if a.Cost.IsNegative() {
			return generic.InvalidConfig(fmt.Sprintf("assets[%d].cost", i), "must not be negative")
		}
		if a.AcquisitionYear < 0 {
			return generic.InvalidConfig(fmt.Sprintf("assets[%d].acquisition_year", i), "must not be negative")
		}
	}

	if c.Growth != nil {
		if err := validateGrowth("growth_config", *c.Growth); err != nil {
			return err
		}
	}
	if c.TaxRate != nil && (c.TaxRate.IsNegative() || c.TaxRate.GreaterThan(decimal.NewFromInt(1))) {
		return generic.InvalidConfig("tax_rate", "must be between 0 and 1")
	}

	profiles := make([]Profile, 0, len(c.Profiles))
	for p := range c.Profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i] < profiles[j] })
	for _, p := range profiles {
		gp := c.Profiles[p]
		if _, ok := profileNames[p]; !ok {
			return generic.InvalidConfig("profiles", p.String()+" is not a known profile")
		}
		field := "profiles." + p.String()
		if err := validateRates(field+".yearly_rates", gp.YearlyRates); err != nil {
			return err
		}
		if err := validateRates(field+".monthly_rates", gp.MonthlyRates); err != nil {
			return err
		}
	}
	categories := make([]string, 0, len(c.CategoryProfiles))
	for category := range c.CategoryProfiles {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		p := c.CategoryProfiles[category]
		if _, ok := profileNames[p]; !ok {
			return generic.InvalidConfig("category_profiles."+category, p.String()+" is not a known profile")
		}
	}
	return nil
}

func validateGrowth(field string, g GrowthConfig) error {
	if err := validateRates(field+".monthly_rates", g.MonthlyRates); err != nil {
		return err
	}
	return validateRates(field+".yearly_step_ups", g.YearlyStepUps)
}

// validateRates rejects negative year keys and rates at or below -100%,
// reporting the lowest offending year.
func validateRates(field string, rates map[int]decimal.Decimal) error {
	years := make([]int, 0, len(rates))
	for year := range rates {
		years = append(years, year)
	}
	sort.Ints(years)
	for _, year := range years {
		r := rates[year]
		if year < 0 {
			return generic.InvalidConfig(field, fmt.Sprintf("year index %d must not be negative", year))
		}
		if r.LessThanOrEqual(minusOne) {
			return generic.InvalidConfig(fmt.Sprintf("%s.%d", field, year), "must be greater than -1")
		}
	}
	return nil
}
