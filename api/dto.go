/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine values are
  decimals; on the wire they are plain JSON numbers rounded to 2 places,
  which is what spreadsheet adapters and charts expect.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Projection:
    ProjectionDTO, MonthlyDTO, YearlyDTO, SummaryDTO

  Plans and runs:
    PlanDTO (wraps factory.PlanJSON), RunDTO

  Reference data:
    ProfilesDTO, ScenarioDTO

SEE ALSO:
  - handlers.go: Uses these types
  - factory/plan.go: PlanJSON type
*/
package api

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/factory"
	"github.com/warp/projection-engine/generic"
	"github.com/warp/projection-engine/plan"
)

// =============================================================================
// PROJECTION
// =============================================================================

// ProjectionDTO is a full projection result.
type ProjectionDTO struct {
	PlanID        string     `json:"plan_id,omitempty"`
	PlanName      string     `json:"plan_name,omitempty"`
	HorizonMonths int        `json:"horizon_months"`
	StartMonth    string     `json:"start_month,omitempty"`
	Monthly       MonthlyDTO `json:"monthly"`
	Yearly        YearlyDTO  `json:"yearly"`
	Summary       SummaryDTO `json:"summary"`
}

// MonthlyDTO is the month-level view.
type MonthlyDTO struct {
	Labels      []string             `json:"labels"`
	Branches    []int                `json:"branches"`
	NewBranches []int                `json:"new_branches"`
	Revenue     []float64            `json:"revenue"`
	Opex        []float64            `json:"opex"`
	PnL         []MonthlyPnLDTO      `json:"pnl"`
	ByStream    map[string][]float64 `json:"by_stream"`
	ByCategory  map[string][]float64 `json:"by_category"`
	Streams     []StreamDTO          `json:"streams"`
}

// MonthlyPnLDTO is one month of the pre-depreciation statement.
type MonthlyPnLDTO struct {
	Month        int     `json:"month"`
	Revenue      float64 `json:"revenue"`
	Opex         float64 `json:"opex"`
	Ebitda       float64 `json:"ebitda"`
	EbitdaMargin float64 `json:"ebitda_margin"`
	Tax          float64 `json:"tax"`
	Pat          float64 `json:"pat"`
}

// StreamDTO is one revenue stream with its services.
type StreamDTO struct {
	Name     string       `json:"name"`
	Services []ServiceDTO `json:"services"`
}

// ServiceDTO is the monthly quantity and revenue of one service.
type ServiceDTO struct {
	Name      string    `json:"name"`
	SubStream string    `json:"sub_stream,omitempty"`
	Quantity  []float64 `json:"quantity"`
	Revenue   []float64 `json:"revenue"`
}

// YearlyDTO is the fiscal-year view.
type YearlyDTO struct {
	Labels       []string        `json:"labels"`
	Months       []int           `json:"months"`
	PnL          []YearlyPnLDTO  `json:"pnl"`
	Depreciation DepreciationDTO `json:"depreciation"`
}

// YearlyPnLDTO is one fiscal year of the consolidated statement.
type YearlyPnLDTO struct {
	Year            int                `json:"year"`
	Label           string             `json:"label"`
	Revenue         float64            `json:"revenue"`
	Opex            float64            `json:"opex"`
	Ebitda          float64            `json:"ebitda"`
	EbitdaMargin    float64            `json:"ebitda_margin"`
	Depreciation    float64            `json:"depreciation"`
	Pbt             float64            `json:"pbt"`
	Tax             float64            `json:"tax"`
	Pat             float64            `json:"pat"`
	PatMargin       float64            `json:"pat_margin"`
	RevenueGrowth   float64            `json:"revenue_growth"`
	OpexGrowth      float64            `json:"opex_growth"`
	RevenueByStream map[string]float64 `json:"revenue_by_stream"`
	OpexByCategory  map[string]float64 `json:"opex_by_category"`
}

// DepreciationDTO is the fixed-asset schedule.
type DepreciationDTO struct {
	TotalCost   float64    `json:"total_cost"`
	Yearly      []float64  `json:"yearly"`
	Accumulated []float64  `json:"accumulated"`
	NetBlock    []float64  `json:"net_block"`
	Assets      []AssetDTO `json:"assets"`
}

// AssetDTO is one asset's schedule.
type AssetDTO struct {
	Name               string    `json:"name"`
	Cost               float64   `json:"cost"`
	AnnualDepreciation float64   `json:"annual_depreciation"`
	Depreciation       []float64 `json:"depreciation"`
	NetBookValue       []float64 `json:"net_book_value"`
}

// SummaryDTO holds the headline figures.
type SummaryDTO struct {
	TotalRevenue    float64 `json:"total_revenue"`
	TotalOpex       float64 `json:"total_opex"`
	TotalEbitda     float64 `json:"total_ebitda"`
	TotalPat        float64 `json:"total_pat"`
	AvgEbitdaMargin float64 `json:"avg_ebitda_margin"`
	RevenueCagr     float64 `json:"revenue_cagr"`
	BreakEvenYear   *int    `json:"break_even_year"`
	PeakRevenue     float64 `json:"peak_revenue"`
	PeakPat         float64 `json:"peak_pat"`
}

// =============================================================================
// PLANS AND RUNS
// =============================================================================

// PlanDTO is a stored plan.
type PlanDTO struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Version   int              `json:"version"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
	Document  factory.PlanJSON `json:"document"`
}

// RunDTO is a stored projection run. Result is omitted from listings.
type RunDTO struct {
	ID            string          `json:"id"`
	PlanID        string          `json:"plan_id"`
	PlanVersion   int             `json:"plan_version"`
	Source        string          `json:"source"`
	HorizonMonths int             `json:"horizon_months"`
	TotalRevenue  float64         `json:"total_revenue"`
	TotalPat      float64         `json:"total_pat"`
	BreakEvenYear *int            `json:"break_even_year"`
	CreatedAt     string          `json:"created_at"`
	Result        json.RawMessage `json:"result,omitempty"`
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// ProfilesDTO lists the default growth profiles and category mapping.
type ProfilesDTO struct {
	TaxRate    float64                    `json:"tax_rate"`
	Profiles   map[string]ProfileRatesDTO `json:"profiles"`
	Categories map[string]string          `json:"categories"`
}

// ProfileRatesDTO is one profile's rate tables keyed by year index.
type ProfileRatesDTO struct {
	YearlyRates  map[string]float64 `json:"yearly_rates"`
	MonthlyRates map[string]float64 `json:"monthly_rates,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func f(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func seriesMap(in map[string]generic.Series) map[string][]float64 {
	out := make(map[string][]float64, len(in))
	for k, s := range in {
		out[k] = s.Floats()
	}
	return out
}

func decimalMap(in map[string]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = f(v)
	}
	return out
}

func rateMap(in map[int]decimal.Decimal) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for year, r := range in {
		out[strconv.Itoa(year)] = f(r)
	}
	return out
}

func toProjectionDTO(p *plan.Projection) ProjectionDTO {
	dto := ProjectionDTO{
		HorizonMonths: p.HorizonMonths,
		StartMonth:    p.Calendar.String(),
		Summary:       toSummaryDTO(p.Summary),
	}

	branches := make([]int, 0, p.Schedule.Len())
	newBranches := make([]int, 0, p.Schedule.Len())
	for _, e := range p.Schedule.Entries() {
		branches = append(branches, e.Branches)
		newBranches = append(newBranches, e.NewBranches)
	}

	monthly := MonthlyDTO{
		Labels:      p.Monthly.Labels,
		Branches:    branches,
		NewBranches: newBranches,
		Revenue:     p.Monthly.Revenue.Floats(),
		Opex:        p.Monthly.Opex.Floats(),
		PnL:         make([]MonthlyPnLDTO, len(p.Monthly.PnL)),
		ByStream:    seriesMap(p.Monthly.ByStream),
		ByCategory:  seriesMap(p.Monthly.ByCategory),
		Streams:     make([]StreamDTO, 0, len(p.Revenue.Streams)),
	}
	for i, row := range p.Monthly.PnL {
		monthly.PnL[i] = MonthlyPnLDTO{
			Month:        row.Month,
			Revenue:      f(row.Revenue),
			Opex:         f(row.Opex),
			Ebitda:       f(row.Ebitda),
			EbitdaMargin: f(row.EbitdaMargin),
			Tax:          f(row.Tax),
			Pat:          f(row.Pat),
		}
	}
	for _, s := range p.Revenue.Streams {
		sd := StreamDTO{Name: s.Name, Services: make([]ServiceDTO, 0, len(s.Services))}
		for _, svc := range s.Services {
			qty := make([]float64, len(svc.Monthly))
			for m, mr := range svc.Monthly {
				qty[m] = f(mr.Quantity)
			}
			sd.Services = append(sd.Services, ServiceDTO{
				Name:      svc.Name,
				SubStream: svc.SubStream,
				Quantity:  qty,
				Revenue:   svc.Revenue().Floats(),
			})
		}
		monthly.Streams = append(monthly.Streams, sd)
	}
	dto.Monthly = monthly

	yearly := YearlyDTO{
		Labels:       p.Yearly.Labels,
		Months:       p.Yearly.Months,
		PnL:          make([]YearlyPnLDTO, len(p.Yearly.PnL)),
		Depreciation: toDepreciationDTO(p.Yearly.Depreciation),
	}
	for i, row := range p.Yearly.PnL {
		yearly.PnL[i] = YearlyPnLDTO{
			Year:            row.Year,
			Label:           row.Label,
			Revenue:         f(row.Revenue),
			Opex:            f(row.Opex),
			Ebitda:          f(row.Ebitda),
			EbitdaMargin:    f(row.EbitdaMargin),
			Depreciation:    f(row.Depreciation),
			Pbt:             f(row.Pbt),
			Tax:             f(row.Tax),
			Pat:             f(row.Pat),
			PatMargin:       f(row.PatMargin),
			RevenueGrowth:   f(row.RevenueGrowth),
			OpexGrowth:      f(row.OpexGrowth),
			RevenueByStream: decimalMap(row.RevenueByStream),
			OpexByCategory:  decimalMap(row.OpexByCategory),
		}
	}
	dto.Yearly = yearly
	return dto
}

func toDepreciationDTO(d *plan.DepreciationProjection) DepreciationDTO {
	dto := DepreciationDTO{
		TotalCost:   f(d.TotalCost),
		Yearly:      d.YearlyTotal.Floats(),
		Accumulated: d.YearlyAccumulated.Floats(),
		NetBlock:    d.YearlyNetBlock.Floats(),
		Assets:      make([]AssetDTO, 0, len(d.Assets)),
	}
	for _, a := range d.Assets {
		ad := AssetDTO{
			Name:               a.Name,
			Cost:               f(a.Cost),
			AnnualDepreciation: f(a.AnnualDepreciation),
			Depreciation:       make([]float64, len(a.Schedule)),
			NetBookValue:       make([]float64, len(a.Schedule)),
		}
		for y, row := range a.Schedule {
			ad.Depreciation[y] = f(row.Depreciation)
			ad.NetBookValue[y] = f(row.NetBookValue)
		}
		dto.Assets = append(dto.Assets, ad)
	}
	return dto
}

func toSummaryDTO(s plan.Summary) SummaryDTO {
	return SummaryDTO{
		TotalRevenue:    f(s.TotalRevenue),
		TotalOpex:       f(s.TotalOpex),
		TotalEbitda:     f(s.TotalEbitda),
		TotalPat:        f(s.TotalPat),
		AvgEbitdaMargin: f(s.AvgEbitdaMargin),
		RevenueCagr:     f(s.RevenueCagr),
		BreakEvenYear:   s.BreakEvenYear,
		PeakRevenue:     f(s.PeakRevenue),
		PeakPat:         f(s.PeakPat),
	}
}

func toPlanDTO(rec generic.PlanRecord) (PlanDTO, error) {
	var doc factory.PlanJSON
	if err := json.Unmarshal([]byte(rec.ConfigJSON), &doc); err != nil {
		return PlanDTO{}, err
	}
	return PlanDTO{
		ID:        rec.ID,
		Name:      rec.Name,
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
		Document:  doc,
	}, nil
}

func toRunDTO(rec generic.RunRecord, withResult bool) RunDTO {
	dto := RunDTO{
		ID:            rec.ID,
		PlanID:        rec.PlanID,
		PlanVersion:   rec.PlanVersion,
		Source:        rec.Source,
		HorizonMonths: rec.HorizonMonths,
		TotalRevenue:  f(generic.MustParseDecimal(rec.TotalRevenue)),
		TotalPat:      f(generic.MustParseDecimal(rec.TotalPat)),
		BreakEvenYear: rec.BreakEvenYear,
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
	}
	if withResult {
		dto.Result = json.RawMessage(rec.ResultJSON)
	}
	return dto
}

func toProfilesDTO(table plan.ProfileTable, taxRate decimal.Decimal) ProfilesDTO {
	dto := ProfilesDTO{
		TaxRate:    f(taxRate),
		Profiles:   make(map[string]ProfileRatesDTO),
		Categories: make(map[string]string),
	}
	for _, p := range plan.Profiles() {
		gp := table.Profile(p)
		dto.Profiles[p.String()] = ProfileRatesDTO{
			YearlyRates:  rateMap(gp.YearlyRates),
			MonthlyRates: rateMap(gp.MonthlyRates),
		}
	}
	for c, p := range table.Categories() {
		dto.Categories[c] = p.String()
	}
	return dto
}
