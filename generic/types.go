/*
Package generic provides the domain-agnostic primitives of the projection engine.

PURPOSE:
  This package contains the value types and time-series algorithms that every
  projection stage shares. Revenue, operating expense and depreciation are all
  "a number per month, rolled up per fiscal year", so the same rounding rule,
  series arithmetic and fiscal calendar serve all of them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money rounding: every value entering an output is rounded to 2 places
  - Series: an ordered sequence of decimal values indexed by month or year
  - Percent / growth helpers guarded against division by zero

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Round at aggregation: sums operate on already-rounded values
  3. No surprises: ratios against a zero base are 0, never NaN or a panic

USAGE:
  monthly := generic.NewSeries(72)
  monthly[0] = generic.Round(decimal.NewFromFloat(44000.004))
  yearly := monthly.AggregateYearly()

SEE ALSO:
  - period.go: Fiscal-year mapping and yearly aggregation
  - time.go: Calendar labels for months and fiscal years
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ROUNDING
// =============================================================================

// MoneyPlaces is the number of decimal places kept in every output value.
const MoneyPlaces = 2

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Round rounds to MoneyPlaces, half away from zero (spreadsheet ROUND).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Dec is shorthand for decimal.NewFromFloat.
func Dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// MustParseDecimal parses s, returning zero for malformed input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Factor returns 1 + rate.
func Factor(rate decimal.Decimal) decimal.Decimal {
	return one.Add(rate)
}

// Percent returns part/whole × 100 rounded, or 0 when whole is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return Round(part.Div(whole).Mul(hundred))
}

// GrowthPercent returns (current/previous − 1) × 100 rounded, or 0 when
// previous is not positive.
func GrowthPercent(current, previous decimal.Decimal) decimal.Decimal {
	if !previous.IsPositive() {
		return decimal.Zero
	}
	return Round(current.Div(previous).Sub(one).Mul(hundred))
}

// =============================================================================
// SERIES - Ordered decimal values (monthly or yearly)
// =============================================================================

// Series is an ordered sequence of values. Index is a month or a fiscal year
// depending on context.
type Series []decimal.Decimal

// NewSeries returns a zero-filled series of length n.
func NewSeries(n int) Series {
	if n < 0 {
		n = 0
	}
	s := make(Series, n)
	for i := range s {
		s[i] = decimal.Zero
	}
	return s
}

// At returns the value at i, or zero when i is out of range.
func (s Series) At(i int) decimal.Decimal {
	if i < 0 || i >= len(s) {
		return decimal.Zero
	}
	return s[i]
}

// Sum adds every element.
func (s Series) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s {
		total = total.Add(v)
	}
	return total
}

// Accumulate adds o into s element-wise. o may be shorter than s.
func (s Series) Accumulate(o Series) {
	for i := range s {
		if i >= len(o) {
			return
		}
		s[i] = s[i].Add(o[i])
	}
}

// Round returns a copy with every element rounded to MoneyPlaces.
func (s Series) Round() Series {
	out := make(Series, len(s))
	for i, v := range s {
		out[i] = Round(v)
	}
	return out
}

// Clone returns an independent copy.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Max returns the largest element, or zero for an empty series.
func (s Series) Max() decimal.Decimal {
	if len(s) == 0 {
		return decimal.Zero
	}
	m := s[0]
	for _, v := range s[1:] {
		if v.GreaterThan(m) {
			m = v
		}
	}
	return m
}

// CumulativeSum returns the running total, each element rounded.
func (s Series) CumulativeSum() Series {
	out := make(Series, len(s))
	running := decimal.Zero
	for i, v := range s {
		running = running.Add(v)
		out[i] = Round(running)
	}
	return out
}

// Floats converts to float64 for wire formats.
func (s Series) Floats() []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v.InexactFloat64()
	}
	return out
}
