package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FISCAL YEAR - The unit every monthly series is rolled up into
// =============================================================================

// The first fiscal year is partial: the plan starts mid-year and the books
// close after FirstYearMonths months. Every later year is a full
// MonthsPerYear block.
//
//   Year 0 = months 0-6
//   Year 1 = months 7-18
//   Year 2 = months 19-30, and so on
const (
	FirstYearMonths = 7
	MonthsPerYear   = 12
)

// YearIndex maps a 0-based month to its 0-based fiscal year.
func YearIndex(month int) int {
	if month < FirstYearMonths {
		return 0
	}
	return (month-FirstYearMonths)/MonthsPerYear + 1
}

// IsYearBoundary reports whether month opens a new fiscal year.
// Month 0 is never a boundary: there is no previous year to step up from.
func IsYearBoundary(month int) bool {
	return month > 0 && YearIndex(month) != YearIndex(month-1)
}

// YearCount returns how many fiscal years a horizon touches:
// ceil((horizon − 7) / 12) + 1, with a minimum of one year.
func YearCount(horizonMonths int) int {
	if horizonMonths <= FirstYearMonths {
		return 1
	}
	rest := horizonMonths - FirstYearMonths
	return (rest+MonthsPerYear-1)/MonthsPerYear + 1
}

// FiscalYear is the month range [FirstMonth, LastMonth] of one fiscal year.
type FiscalYear struct {
	Index      int
	FirstMonth int
	LastMonth  int
}

// FiscalYearAt returns the unbounded month range for year index y.
func FiscalYearAt(y int) FiscalYear {
	if y <= 0 {
		return FiscalYear{Index: 0, FirstMonth: 0, LastMonth: FirstYearMonths - 1}
	}
	first := FirstYearMonths + (y-1)*MonthsPerYear
	return FiscalYear{Index: y, FirstMonth: first, LastMonth: first + MonthsPerYear - 1}
}

// FiscalYears lists the years of a horizon. The last one is clipped to the
// horizon when it ends mid-year.
func FiscalYears(horizonMonths int) []FiscalYear {
	n := YearCount(horizonMonths)
	years := make([]FiscalYear, n)
	for y := 0; y < n; y++ {
		fy := FiscalYearAt(y)
		if horizonMonths > 0 && fy.LastMonth > horizonMonths-1 {
			fy.LastMonth = horizonMonths - 1
		}
		years[y] = fy
	}
	return years
}

// Contains returns true if month lies within the year.
func (fy FiscalYear) Contains(month int) bool {
	return month >= fy.FirstMonth && month <= fy.LastMonth
}

// Months returns the number of months in the year.
func (fy FiscalYear) Months() int {
	if fy.LastMonth < fy.FirstMonth {
		return 0
	}
	return fy.LastMonth - fy.FirstMonth + 1
}

// Label returns the 1-indexed display name ("Y1", "Y2", ...).
func (fy FiscalYear) Label() string {
	return fmt.Sprintf("Y%d", fy.Index+1)
}

// =============================================================================
// YEARLY AGGREGATION
// =============================================================================

// AggregateYearly rolls a monthly series up into fiscal years. Element 0 is
// the sum of months 0-6, each following element the sum of the next 12-month
// block (the final block may be short). Every total is rounded.
func (s Series) AggregateYearly() Series {
	years := FiscalYears(len(s))
	out := make(Series, len(years))
	for _, fy := range years {
		total := decimal.Zero
		for m := fy.FirstMonth; m <= fy.LastMonth && m < len(s); m++ {
			total = total.Add(s[m])
		}
		out[fy.Index] = Round(total)
	}
	return out
}
