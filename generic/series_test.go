package generic_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/projection-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func series(values ...float64) generic.Series {
	s := generic.NewSeries(len(values))
	for i, v := range values {
		s[i] = decimal.NewFromFloat(v)
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

// =============================================================================
// ROUNDING TESTS
// =============================================================================

func TestRound_HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"-1.005", "-1.01"},
		{"44000.004", "44000.00"},
		{"2.675", "2.68"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := generic.Round(generic.MustParseDecimal(tc.in))
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

func TestMustParseDecimal_MalformedIsZero(t *testing.T) {
	assert.True(t, generic.MustParseDecimal("abc").IsZero())
	assert.Equal(t, "12.50", generic.MustParseDecimal("12.5").StringFixed(2))
}

func TestPercent_ZeroBase(t *testing.T) {
	// GIVEN: A zero or negative denominator
	// THEN: The ratio is 0, never a division panic
	assert.True(t, generic.Percent(generic.Dec(10), decimal.Zero).IsZero())
	assert.True(t, generic.Percent(generic.Dec(10), generic.Dec(-5)).IsZero())
	assert.Equal(t, "25.00", generic.Percent(generic.Dec(1), generic.Dec(4)).StringFixed(2))
}

func TestGrowthPercent(t *testing.T) {
	assert.Equal(t, "50.00", generic.GrowthPercent(generic.Dec(150), generic.Dec(100)).StringFixed(2))
	assert.Equal(t, "-20.00", generic.GrowthPercent(generic.Dec(80), generic.Dec(100)).StringFixed(2))
	assert.True(t, generic.GrowthPercent(generic.Dec(80), decimal.Zero).IsZero())
}

// =============================================================================
// SERIES TESTS
// =============================================================================

func TestSeries_AtOutOfRange(t *testing.T) {
	s := series(1, 2, 3)

	assert.Equal(t, "2.00", s.At(1).StringFixed(2))
	assert.True(t, s.At(-1).IsZero())
	assert.True(t, s.At(3).IsZero())
}

func TestSeries_NewSeriesNegativeLength(t *testing.T) {
	assert.Empty(t, generic.NewSeries(-4))
}

func TestSeries_AccumulateShorterOperand(t *testing.T) {
	// GIVEN: A target longer than the operand
	s := series(1, 1, 1, 1)

	// WHEN: Accumulating
	s.Accumulate(series(10, 20))

	// THEN: Only the overlapping prefix changes
	assert.Equal(t, []string{"11.00", "21.00", "1.00", "1.00"}, fixed(s))
}

func TestSeries_CloneIsIndependent(t *testing.T) {
	s := series(1, 2)
	c := s.Clone()
	c[0] = generic.Dec(99)

	assert.Equal(t, "1.00", s[0].StringFixed(2))
}

func TestSeries_CumulativeSumAndMax(t *testing.T) {
	s := series(-5, 3, 10, -1)

	assert.Equal(t, []string{"-5.00", "-2.00", "8.00", "7.00"}, fixed(s.CumulativeSum()))
	assert.Equal(t, "10.00", s.Max().StringFixed(2))
	assert.True(t, generic.Series{}.Max().IsZero())
}

func TestSeries_Floats(t *testing.T) {
	assert.Equal(t, []float64{1.5, -2}, series(1.5, -2).Floats())
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestInvalidConfigError_Classification(t *testing.T) {
	err := fmt.Errorf("loading plan: %w", generic.InvalidConfig("assets[2].cost", "must not be negative"))

	assert.True(t, errors.Is(err, generic.ErrInvalidConfig))
	assert.True(t, generic.IsClientError(err))
	assert.False(t, generic.IsNotFound(err))

	var cfgErr *generic.InvalidConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "assets[2].cost", cfgErr.Field)
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestInvalidConfigError_KeepsCause(t *testing.T) {
	cause := errors.New("strconv: bad digit")
	err := &generic.InvalidConfigError{Field: "growth_config.monthly_rates", Reason: "bad year key", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, generic.ErrInvalidConfig)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, generic.IsNotFound(fmt.Errorf("x: %w", generic.ErrPlanNotFound)))
	assert.True(t, generic.IsNotFound(generic.ErrRunNotFound))
	assert.False(t, generic.IsClientError(generic.ErrRunNotFound))
	assert.True(t, generic.IsClientError(generic.ErrUnknownProfile))
	assert.True(t, generic.IsClientError(generic.ErrUnsupportedFormat))
}
