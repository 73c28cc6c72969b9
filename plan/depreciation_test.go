package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/projection-engine/plan"
)

func TestProjectAsset_StraightLine(t *testing.T) {
	// GIVEN: 25,000,000 over 10 years, acquired in year 0
	asset := plan.FixedAsset{Name: "Medical Equipment", Cost: dec("25000000"), UsefulLife: 10}

	// WHEN: Depreciating over a 72-month horizon (6 years)
	ad := plan.ProjectAsset(asset, 6)

	// THEN: 2,500,000 a year, 10,000,000 left after six years
	require.Len(t, ad.Schedule, 6)
	assert.Equal(t, "2500000.00", ad.AnnualDepreciation.StringFixed(2))
	assert.Equal(t, "2500000.00", ad.Schedule[0].Depreciation.StringFixed(2))
	assert.Equal(t, "15000000.00", ad.Schedule[5].Accumulated.StringFixed(2))
	assert.Equal(t, "10000000.00", ad.Schedule[5].NetBookValue.StringFixed(2))
}

func TestProjectAsset_ClipsAtCost(t *testing.T) {
	// GIVEN: An asset that is fully depreciated before the horizon ends
	asset := plan.FixedAsset{Cost: dec("1000"), UsefulLife: 4}

	ad := plan.ProjectAsset(asset, 6)

	// THEN: Depreciation stops at cost and NBV never goes negative
	assert.Equal(t, "250.00", ad.Schedule[3].Depreciation.StringFixed(2))
	assert.Equal(t, "0.00", ad.Schedule[4].Depreciation.StringFixed(2))
	assert.Equal(t, "1000.00", ad.Schedule[5].Accumulated.StringFixed(2))
	assert.Equal(t, "0.00", ad.Schedule[5].NetBookValue.StringFixed(2))
}

func TestProjectAsset_LateAcquisition(t *testing.T) {
	asset := plan.FixedAsset{Cost: dec("600"), UsefulLife: 3, AcquisitionYear: 2}

	ad := plan.ProjectAsset(asset, 4)

	assert.Equal(t, "0.00", ad.Schedule[1].Depreciation.StringFixed(2))
	assert.Equal(t, "600.00", ad.Schedule[1].NetBookValue.StringFixed(2))
	assert.Equal(t, "200.00", ad.Schedule[2].Depreciation.StringFixed(2))
	assert.Equal(t, "200.00", ad.Schedule[3].NetBookValue.StringFixed(2))
}

func TestProjectAsset_ZeroLifeDepreciatesNothing(t *testing.T) {
	ad := plan.ProjectAsset(plan.FixedAsset{Cost: dec("500"), UsefulLife: 0}, 3)

	assert.True(t, ad.AnnualDepreciation.IsZero())
	for _, row := range ad.Schedule {
		assert.Equal(t, "0.00", row.Depreciation.StringFixed(2))
		assert.Equal(t, "500.00", row.NetBookValue.StringFixed(2))
	}
}

func TestProjectDepreciation_Totals(t *testing.T) {
	// GIVEN: Two assets, one acquired a year later
	assets := []plan.FixedAsset{
		{Name: "Fit-out", Cost: dec("1000"), UsefulLife: 2},
		{Name: "Expansion", Cost: dec("300"), UsefulLife: 3, AcquisitionYear: 1},
	}

	// WHEN: Depreciating over 4 years
	dp := plan.ProjectDepreciation(assets, 4)

	// THEN: Totals, accumulated and net block agree
	assert.Equal(t, "1300", dp.TotalCost.String())
	require.Len(t, dp.Assets, 2)
	assert.Equal(t, []string{"500.00", "600.00", "100.00", "100.00"}, fixed(dp.YearlyTotal))
	assert.Equal(t, []string{"500.00", "1100.00", "1200.00", "1300.00"}, fixed(dp.YearlyAccumulated))
	assert.Equal(t, []string{"800.00", "200.00", "100.00", "0.00"}, fixed(dp.YearlyNetBlock))
}

func TestProjectDepreciation_NoAssets(t *testing.T) {
	dp := plan.ProjectDepreciation(nil, 6)

	assert.True(t, dp.TotalCost.IsZero())
	assert.Equal(t, []string{"0.00", "0.00", "0.00", "0.00", "0.00", "0.00"}, fixed(dp.YearlyNetBlock))
}
