package plan

import (
	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/generic"
)

// =============================================================================
// DEPRECIATION - Straight-line schedule per fixed asset
// =============================================================================

// DepreciationYear is one fiscal year of one asset.
type DepreciationYear struct {
	Year         int
	Depreciation decimal.Decimal
	Accumulated  decimal.Decimal
	NetBookValue decimal.Decimal
}

// AssetDepreciation is the full schedule of one asset.
type AssetDepreciation struct {
	Name               string
	Cost               decimal.Decimal
	AnnualDepreciation decimal.Decimal
	Schedule           []DepreciationYear
}

// DepreciationProjection is the output of the depreciation stage.
type DepreciationProjection struct {
	TotalCost         decimal.Decimal
	Assets            []AssetDepreciation
	YearlyTotal       generic.Series
	YearlyAccumulated generic.Series
	YearlyNetBlock    generic.Series
}

// ProjectAsset depreciates cost/usefulLife per year from the acquisition
// year on. The final year is clipped so accumulated never exceeds cost.
// A useful life of zero or less depreciates nothing.
func ProjectAsset(asset FixedAsset, totalYears int) AssetDepreciation {
	if totalYears < 0 {
		totalYears = 0
	}
	annual := decimal.Zero
	if asset.UsefulLife > 0 {
		annual = asset.Cost.Div(decimal.NewFromInt(int64(asset.UsefulLife)))
	}

	schedule := make([]DepreciationYear, totalYears)
	accumulated := decimal.Zero
	for y := 0; y < totalYears; y++ {
		dep := decimal.Zero
		if y >= asset.AcquisitionYear && accumulated.LessThan(asset.Cost) {
			dep = decimal.Min(annual, asset.Cost.Sub(accumulated))
		}
		accumulated = accumulated.Add(dep)

		schedule[y] = DepreciationYear{
			Year:         y,
			Depreciation: generic.Round(dep),
			Accumulated:  generic.Round(accumulated),
			NetBookValue: generic.Round(asset.Cost.Sub(accumulated)),
		}
	}

	return AssetDepreciation{
		Name:               asset.Name,
		Cost:               asset.Cost,
		AnnualDepreciation: generic.Round(annual),
		Schedule:           schedule,
	}
}

// ProjectDepreciation depreciates every asset and derives the yearly total,
// accumulated and net-block vectors.
func ProjectDepreciation(assets []FixedAsset, totalYears int) *DepreciationProjection {
	if totalYears < 0 {
		totalYears = 0
	}
	totalCost := decimal.Zero
	yearly := generic.NewSeries(totalYears)
	results := make([]AssetDepreciation, 0, len(assets))

	for _, a := range assets {
		totalCost = totalCost.Add(a.Cost)
		ad := ProjectAsset(a, totalYears)
		for y, row := range ad.Schedule {
			yearly[y] = yearly[y].Add(row.Depreciation)
		}
		results = append(results, ad)
	}

	accumulated := yearly.CumulativeSum()
	netBlock := make(generic.Series, totalYears)
	for y := range netBlock {
		netBlock[y] = generic.Round(totalCost.Sub(accumulated[y]))
	}

	return &DepreciationProjection{
		TotalCost:         totalCost,
		Assets:            results,
		YearlyTotal:       yearly.Round(),
		YearlyAccumulated: accumulated,
		YearlyNetBlock:    netBlock,
	}
}
