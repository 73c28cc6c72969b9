package plan_test

import (
	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/generic"
	"github.com/warp/projection-engine/plan"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return generic.MustParseDecimal(s)
}

func series(values ...string) generic.Series {
	s := make(generic.Series, len(values))
	for i, v := range values {
		s[i] = dec(v)
	}
	return s
}

func fixed(s generic.Series) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = v.StringFixed(2)
	}
	return out
}

func revenueColumn(rows []plan.MonthlyRevenue) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Revenue.StringFixed(2)
	}
	return out
}

func quantityColumn(rows []plan.MonthlyRevenue) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Quantity.StringFixed(2)
	}
	return out
}

func costColumn(rows []plan.MonthlyCost) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Cost.StringFixed(2)
	}
	return out
}

// flatSchedule is a single-entry schedule: every month has n branches.
func flatSchedule(n, horizon int) *plan.BranchSchedule {
	return plan.BuildBranchSchedule([]plan.BranchScheduleEntry{{Branches: n}}, horizon)
}

func rateTable(kv map[int]string) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal, len(kv))
	for k, v := range kv {
		out[k] = dec(v)
	}
	return out
}
