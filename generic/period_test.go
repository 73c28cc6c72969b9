package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/projection-engine/generic"
)

// =============================================================================
// FISCAL YEAR TESTS
// =============================================================================

func TestYearIndex_PartialFirstYear(t *testing.T) {
	cases := map[int]int{0: 0, 6: 0, 7: 1, 18: 1, 19: 2, 30: 2, 31: 3, 71: 6}
	for month, want := range cases {
		assert.Equal(t, want, generic.YearIndex(month), "month %d", month)
	}
}

func TestIsYearBoundary(t *testing.T) {
	assert.False(t, generic.IsYearBoundary(0), "month 0 has no previous year")
	assert.True(t, generic.IsYearBoundary(7))
	assert.True(t, generic.IsYearBoundary(19))
	assert.False(t, generic.IsYearBoundary(8))
	assert.False(t, generic.IsYearBoundary(18))
}

func TestYearCount(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 7: 1, 8: 2, 19: 2, 20: 3, 60: 6, 72: 7, 79: 7, 80: 8}
	for horizon, want := range cases {
		assert.Equal(t, want, generic.YearCount(horizon), "horizon %d", horizon)
	}
}

func TestFiscalYears_ClipsLastYear(t *testing.T) {
	// GIVEN: The default 72-month horizon
	years := generic.FiscalYears(72)

	// THEN: 7 years, the first 7 months long and the last 5
	require.Len(t, years, 7)
	assert.Equal(t, 7, years[0].Months())
	assert.Equal(t, 12, years[1].Months())
	assert.Equal(t, 67, years[6].FirstMonth)
	assert.Equal(t, 71, years[6].LastMonth)
	assert.Equal(t, 5, years[6].Months())
	assert.Equal(t, "Y7", years[6].Label())
	assert.True(t, years[1].Contains(7))
	assert.False(t, years[1].Contains(19))
}

func TestAggregateYearly_PartitionsEveryMonthOnce(t *testing.T) {
	// GIVEN: 72 months of 1.00
	s := generic.NewSeries(72)
	for i := range s {
		s[i] = generic.Dec(1)
	}

	// WHEN: Rolling up
	yearly := s.AggregateYearly()

	// THEN: Year sizes follow the 7/12/.../5 partition and nothing is lost
	assert.Equal(t, []string{"7.00", "12.00", "12.00", "12.00", "12.00", "12.00", "5.00"}, fixed(yearly))
	assert.True(t, yearly.Sum().Equal(s.Sum()))
}

func TestAggregateYearly_RoundsTotals(t *testing.T) {
	s := series(0.333, 0.333, 0.333)

	assert.Equal(t, []string{"1.00"}, fixed(s.AggregateYearly()))
}

// =============================================================================
// CALENDAR TESTS
// =============================================================================

func TestCalendar_Labels(t *testing.T) {
	cal, err := generic.ParseCalendar("2025-09")
	require.NoError(t, err)

	assert.Equal(t, "Sep-2025", cal.MonthLabel(0))
	assert.Equal(t, "Mar-2026", cal.MonthLabel(6))
	assert.Equal(t, "Y1 (Sep-2025..Mar-2026)", cal.YearLabel(generic.FiscalYearAt(0)))
	assert.Equal(t, "2025-09", cal.String())
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), cal.MonthStart(7))
}

func TestCalendar_ZeroValueUsesIndices(t *testing.T) {
	cal, err := generic.ParseCalendar("")
	require.NoError(t, err)

	assert.True(t, cal.IsZero())
	assert.Equal(t, "M1", cal.MonthLabel(0))
	assert.Equal(t, "Y2", cal.YearLabel(generic.FiscalYearAt(1)))
	assert.Equal(t, "", cal.String())
}

func TestParseCalendar_Invalid(t *testing.T) {
	_, err := generic.ParseCalendar("09/2025")
	assert.Error(t, err)
}
