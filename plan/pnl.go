/*
pnl.go - Profit & loss consolidation

PURPOSE:
  Combines revenue, opex and depreciation into EBITDA, PBT, tax and PAT,
  yearly and monthly, and derives the headline summary.

FORMULAS (per period):
  EBITDA        = revenue - opex
  EBITDA margin = EBITDA / revenue × 100          (0 when revenue = 0)
  PBT           = EBITDA - depreciation           (yearly only)
  Tax           = PBT × taxRate when PBT > 0, else 0
  PAT           = PBT - tax
  PAT margin    = PAT / revenue × 100             (0 when revenue = 0)
  Growth        = (current / previous - 1) × 100  (0 for year 1 or previous ≤ 0)

  The monthly view has no depreciation: tax applies to EBITDA directly.

ROUNDING:
  Inputs arrive rounded, so PBT is exact. Tax is rounded, then PAT is
  PBT - tax exactly: the three always reconcile to the cent.

SUMMARY:
  CAGR          = (last / first)^(1/(years-1)) - 1, as a percent
  Break-even    = first 1-indexed year whose cumulative PAT is ≥ 0
*/
package plan

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/generic"
)

// YearlyPnL is one fiscal year of the consolidated statement.
type YearlyPnL struct {
	Year            int    // 1-indexed
	Label           string // "Y1", ...
	Revenue         decimal.Decimal
	Opex            decimal.Decimal
	Ebitda          decimal.Decimal
	EbitdaMargin    decimal.Decimal // percent
	Depreciation    decimal.Decimal
	Pbt             decimal.Decimal
	Tax             decimal.Decimal
	Pat             decimal.Decimal
	PatMargin       decimal.Decimal // percent
	RevenueGrowth   decimal.Decimal // percent
	OpexGrowth      decimal.Decimal // percent
	RevenueByStream map[string]decimal.Decimal
	OpexByCategory  map[string]decimal.Decimal
}

// MonthlyPnL is one month of the pre-depreciation statement.
type MonthlyPnL struct {
	Month        int
	Revenue      decimal.Decimal
	Opex         decimal.Decimal
	Ebitda       decimal.Decimal
	EbitdaMargin decimal.Decimal // percent
	Tax          decimal.Decimal
	Pat          decimal.Decimal
}

// Summary holds the headline figures across every year.
type Summary struct {
	TotalRevenue    decimal.Decimal
	TotalOpex       decimal.Decimal
	TotalEbitda     decimal.Decimal
	TotalPat        decimal.Decimal
	AvgEbitdaMargin decimal.Decimal // percent
	RevenueCagr     decimal.Decimal // percent
	BreakEvenYear   *int            // nil when cumulative PAT never turns non-negative
	PeakRevenue     decimal.Decimal
	PeakPat         decimal.Decimal
}

// YearlyInput feeds YearlyStatement.
type YearlyInput struct {
	Revenue         generic.Series
	Opex            generic.Series
	Depreciation    generic.Series // may be shorter; missing years are 0
	RevenueByStream map[string]generic.Series
	OpexByCategory  map[string]generic.Series
	TaxRate         decimal.Decimal
}

// MonthlyInput feeds MonthlyStatement.
type MonthlyInput struct {
	Revenue generic.Series
	Opex    generic.Series
	TaxRate decimal.Decimal
}

func taxOn(profit, rate decimal.Decimal) decimal.Decimal {
	if !profit.IsPositive() {
		return decimal.Zero
	}
	return generic.Round(profit.Mul(rate))
}

func breakdown(series map[string]generic.Series, y int) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(series))
	for name, s := range series {
		out[name] = s.At(y)
	}
	return out
}

// YearlyStatement builds one row per year of in.Revenue.
func YearlyStatement(in YearlyInput) []YearlyPnL {
	rows := make([]YearlyPnL, len(in.Revenue))
	for y := range in.Revenue {
		revenue := generic.Round(in.Revenue[y])
		opex := generic.Round(in.Opex.At(y))
		depreciation := generic.Round(in.Depreciation.At(y))

		ebitda := revenue.Sub(opex)
		pbt := ebitda.Sub(depreciation)
		tax := taxOn(pbt, in.TaxRate)
		pat := pbt.Sub(tax)

		row := YearlyPnL{
			Year:            y + 1,
			Label:           generic.FiscalYearAt(y).Label(),
			Revenue:         revenue,
			Opex:            opex,
			Ebitda:          ebitda,
			EbitdaMargin:    generic.Percent(ebitda, revenue),
			Depreciation:    depreciation,
			Pbt:             pbt,
			Tax:             tax,
			Pat:             pat,
			PatMargin:       generic.Percent(pat, revenue),
			RevenueGrowth:   decimal.Zero,
			OpexGrowth:      decimal.Zero,
			RevenueByStream: breakdown(in.RevenueByStream, y),
			OpexByCategory:  breakdown(in.OpexByCategory, y),
		}
		if y > 0 {
			row.RevenueGrowth = generic.GrowthPercent(revenue, in.Revenue[y-1])
			row.OpexGrowth = generic.GrowthPercent(opex, in.Opex.At(y-1))
		}
		rows[y] = row
	}
	return rows
}

// MonthlyStatement builds one row per month present in both series.
func MonthlyStatement(in MonthlyInput) []MonthlyPnL {
	months := len(in.Revenue)
	if len(in.Opex) < months {
		months = len(in.Opex)
	}
	rows := make([]MonthlyPnL, months)
	for m := 0; m < months; m++ {
		revenue := generic.Round(in.Revenue[m])
		opex := generic.Round(in.Opex[m])
		ebitda := revenue.Sub(opex)
		tax := taxOn(ebitda, in.TaxRate)

		rows[m] = MonthlyPnL{
			Month:        m,
			Revenue:      revenue,
			Opex:         opex,
			Ebitda:       ebitda,
			EbitdaMargin: generic.Percent(ebitda, revenue),
			Tax:          tax,
			Pat:          ebitda.Sub(tax),
		}
	}
	return rows
}

// Summarize derives the headline figures from the yearly statement.
func Summarize(rows []YearlyPnL) Summary {
	s := Summary{
		TotalRevenue:    decimal.Zero,
		TotalOpex:       decimal.Zero,
		TotalEbitda:     decimal.Zero,
		TotalPat:        decimal.Zero,
		AvgEbitdaMargin: decimal.Zero,
		RevenueCagr:     decimal.Zero,
		PeakRevenue:     decimal.Zero,
		PeakPat:         decimal.Zero,
	}
	if len(rows) == 0 {
		return s
	}

	revenues := make(generic.Series, len(rows))
	pats := make(generic.Series, len(rows))
	marginSum := decimal.Zero
	cumulative := decimal.Zero

	for i, r := range rows {
		s.TotalRevenue = s.TotalRevenue.Add(r.Revenue)
		s.TotalOpex = s.TotalOpex.Add(r.Opex)
		s.TotalPat = s.TotalPat.Add(r.Pat)
		marginSum = marginSum.Add(r.EbitdaMargin)
		revenues[i] = r.Revenue
		pats[i] = r.Pat

		cumulative = cumulative.Add(r.Pat)
		if s.BreakEvenYear == nil && !cumulative.IsNegative() {
			year := r.Year
			s.BreakEvenYear = &year
		}
	}

	s.TotalRevenue = generic.Round(s.TotalRevenue)
	s.TotalOpex = generic.Round(s.TotalOpex)
	s.TotalEbitda = s.TotalRevenue.Sub(s.TotalOpex)
	s.TotalPat = generic.Round(s.TotalPat)
	s.AvgEbitdaMargin = generic.Round(marginSum.Div(decimal.NewFromInt(int64(len(rows)))))
	s.RevenueCagr = cagrPercent(rows[0].Revenue, rows[len(rows)-1].Revenue, len(rows)-1)
	s.PeakRevenue = revenues.Max()
	s.PeakPat = pats.Max()
	return s
}

// cagrPercent returns ((last/first)^(1/n) - 1) × 100, or 0 when first ≤ 0
// or n ≤ 0.
func cagrPercent(first, last decimal.Decimal, n int) decimal.Decimal {
	if !first.IsPositive() || n <= 0 {
		return decimal.Zero
	}
	ratio := last.Div(first).InexactFloat64()
	if ratio < 0 {
		return decimal.Zero
	}
	cagr := math.Pow(ratio, 1/float64(n)) - 1
	if math.IsNaN(cagr) || math.IsInf(cagr, 0) {
		return decimal.Zero
	}
	return generic.Round(generic.Dec(cagr * 100))
}
