package plan

import (
	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/generic"
)

// =============================================================================
// OPEX - Operating expense projection
// =============================================================================

// MonthlyCost is one month of one expense line.
type MonthlyCost struct {
	Month int
	Cost  decimal.Decimal
}

// ExpenseProjection is the monthly projection of one expense line.
type ExpenseProjection struct {
	Name    string
	Profile Profile
	Monthly []MonthlyCost
}

// Costs returns the monthly cost column.
func (ep ExpenseProjection) Costs() generic.Series {
	out := make(generic.Series, len(ep.Monthly))
	for i, m := range ep.Monthly {
		out[i] = m.Cost
	}
	return out
}

// CategoryProjection groups the expense lines of one category.
type CategoryProjection struct {
	Name         string
	Profile      Profile
	Items        []ExpenseProjection
	MonthlyTotal generic.Series
}

// OpexProjection is the output of the opex stage.
type OpexProjection struct {
	Categories       []CategoryProjection // in order of first appearance
	MonthlyGrand     generic.Series
	YearlyGrand      generic.Series
	YearlyByCategory map[string]generic.Series
}

// Category looks a category up by name.
func (op *OpexProjection) Category(name string) (CategoryProjection, bool) {
	for _, c := range op.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return CategoryProjection{}, false
}

// ProjectExpense projects one expense line. The base cost steps up once at
// each fiscal-year boundary by the profile's rate for the new year (and
// compounds monthly if the profile defines monthly rates). Per-branch lines
// are multiplied by the month's branch count.
func ProjectExpense(item Expense, schedule *BranchSchedule, profile GrowthProfile, horizon int) []MonthlyCost {
	if horizon < 0 {
		horizon = 0
	}
	out := make([]MonthlyCost, horizon)
	if !item.Active || !item.Amount.IsPositive() {
		for m := range out {
			out[m] = MonthlyCost{Month: m, Cost: decimal.Zero}
		}
		return out
	}

	cost := item.Amount
	for m := 0; m < horizon; m++ {
		year := generic.YearIndex(m)
		if generic.IsYearBoundary(m) {
			cost = cost.Mul(generic.Factor(profile.yearlyRate(year)))
		}
		if m > 0 {
			cost = cost.Mul(generic.Factor(profile.monthlyRate(year)))
		}

		monthly := cost
		if item.PerBranch {
			monthly = cost.Mul(decimal.NewFromInt(int64(schedule.BranchesAt(m))))
		}
		out[m] = MonthlyCost{Month: m, Cost: generic.Round(monthly)}
	}
	return out
}

// ProjectOpex projects every expense line, grouped by category.
func ProjectOpex(items []Expense, schedule *BranchSchedule, table ProfileTable, horizon int) *OpexProjection {
	if horizon < 0 {
		horizon = 0
	}
	var categories []CategoryProjection
	index := make(map[string]int)

	for _, item := range items {
		profile := table.ProfileForCategory(item.Category)
		ep := ExpenseProjection{
			Name:    item.Name,
			Profile: profile,
			Monthly: ProjectExpense(item, schedule, table.Profile(profile), horizon),
		}

		i, ok := index[item.Category]
		if !ok {
			i = len(categories)
			index[item.Category] = i
			categories = append(categories, CategoryProjection{
				Name:         item.Category,
				Profile:      profile,
				MonthlyTotal: generic.NewSeries(horizon),
			})
		}
		categories[i].Items = append(categories[i].Items, ep)
		categories[i].MonthlyTotal.Accumulate(ep.Costs())
	}

	grand := generic.NewSeries(horizon)
	byCategory := make(map[string]generic.Series, len(categories))
	for _, c := range categories {
		grand.Accumulate(c.MonthlyTotal)
		byCategory[c.Name] = c.MonthlyTotal.AggregateYearly()
	}

	return &OpexProjection{
		Categories:       categories,
		MonthlyGrand:     grand,
		YearlyGrand:      grand.AggregateYearly(),
		YearlyByCategory: byCategory,
	}
}
