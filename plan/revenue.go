/*
revenue.go - Revenue projection

PURPOSE:
  Projects monthly quantity × price for every service and rolls services up
  into streams, a monthly grand total and fiscal-year totals.

GROWTH SEMANTICS (per service, month m > 0, in this order):
  1. Year boundary: units *= 1 + yearlyStepUps[year(m)]
  2. Every month:   units *= 1 + monthlyRates[year(m)]
  3. quantity = units × scale(m)
  4. Manual ramp:   while m < len(ramp), quantity = ramp[m] unscaled and
                    units = ramp[m] / scale(m), so growth resumes from the
                    literal value next month
  5. revenue = quantity × price

  scale(m) is the branch count, or the subscriber count when the service
  names a subscription key. Price is constant over the horizon.

DEGENERATE STREAMS:
  Inactive services, or services with non-positive units or price, project
  to all zeros. This is a defaulting policy, not an error.

ROUNDING:
  Quantity and revenue are rounded per month. Stream and grand totals sum
  the rounded monthly values; yearly totals round again after summing.

SEE ALSO:
  - branch.go: Branch and subscriber counts
  - generic/period.go: Fiscal-year mapping and AggregateYearly
*/
package plan

import (
	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/generic"
)

// MonthlyRevenue is one month of one service.
type MonthlyRevenue struct {
	Month    int
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Revenue  decimal.Decimal
}

// ServiceProjection is the monthly projection of one service.
type ServiceProjection struct {
	Name      string
	SubStream string
	Monthly   []MonthlyRevenue
}

// Revenue returns the monthly revenue column.
func (sp ServiceProjection) Revenue() generic.Series {
	out := make(generic.Series, len(sp.Monthly))
	for i, m := range sp.Monthly {
		out[i] = m.Revenue
	}
	return out
}

// StreamProjection groups the services of one revenue stream.
type StreamProjection struct {
	Name         string
	Services     []ServiceProjection
	MonthlyTotal generic.Series
}

// RevenueProjection is the output of the revenue stage.
type RevenueProjection struct {
	Streams        []StreamProjection // in order of first appearance
	MonthlyGrand   generic.Series
	YearlyGrand    generic.Series
	YearlyByStream map[string]generic.Series
}

// Stream looks a stream up by name.
func (rp *RevenueProjection) Stream(name string) (StreamProjection, bool) {
	for _, s := range rp.Streams {
		if s.Name == name {
			return s, true
		}
	}
	return StreamProjection{}, false
}

func zeroRevenue(horizon int) []MonthlyRevenue {
	out := make([]MonthlyRevenue, horizon)
	for m := range out {
		out[m] = MonthlyRevenue{Month: m, Quantity: decimal.Zero, Price: decimal.Zero, Revenue: decimal.Zero}
	}
	return out
}

// ProjectService projects a single service over horizon months.
func ProjectService(svc Service, schedule *BranchSchedule, growth GrowthConfig, horizon int) []MonthlyRevenue {
	if horizon < 0 {
		horizon = 0
	}
	if !svc.Active || !svc.BaseUnits.IsPositive() || !svc.Price.IsPositive() {
		return zeroRevenue(horizon)
	}
	if svc.CustomGrowth != nil {
		growth = *svc.CustomGrowth
	}

	out := make([]MonthlyRevenue, horizon)
	units := svc.BaseUnits
	price := svc.Price

	for m := 0; m < horizon; m++ {
		year := generic.YearIndex(m)

		if generic.IsYearBoundary(m) {
			units = units.Mul(generic.Factor(growth.stepUp(year)))
		}
		if m > 0 {
			units = units.Mul(generic.Factor(growth.monthlyRate(year)))
		}
		scale := decimal.NewFromInt(int64(scaleAt(svc, schedule, m)))
		quantity := units.Mul(scale)
		if m < len(svc.ManualRamp) {
			// Ramp values are total quantities. units is re-anchored per
			// branch so the month after the ramp continues from it.
			quantity = svc.ManualRamp[m]
			units = quantity
			if scale.IsPositive() {
				units = quantity.Div(scale)
			}
		}
		revenue := quantity.Mul(price)

		out[m] = MonthlyRevenue{
			Month:    m,
			Quantity: generic.Round(quantity),
			Price:    price,
			Revenue:  generic.Round(revenue),
		}
	}
	return out
}

func scaleAt(svc Service, schedule *BranchSchedule, m int) int {
	if svc.SubscriptionKey != "" {
		return schedule.subscribersAt(m, svc.SubscriptionKey)
	}
	return schedule.BranchesAt(m)
}

// ProjectRevenue projects every service, grouped by stream name.
func ProjectRevenue(services []Service, schedule *BranchSchedule, growth GrowthConfig, horizon int) *RevenueProjection {
	if horizon < 0 {
		horizon = 0
	}
	var streams []StreamProjection
	index := make(map[string]int)

	for _, svc := range services {
		sp := ServiceProjection{
			Name:      svc.Name,
			SubStream: svc.SubStreamName,
			Monthly:   ProjectService(svc, schedule, growth, horizon),
		}

		i, ok := index[svc.StreamName]
		if !ok {
			i = len(streams)
			index[svc.StreamName] = i
			streams = append(streams, StreamProjection{
				Name:         svc.StreamName,
				MonthlyTotal: generic.NewSeries(horizon),
			})
		}
		streams[i].Services = append(streams[i].Services, sp)
		streams[i].MonthlyTotal.Accumulate(sp.Revenue())
	}

	grand := generic.NewSeries(horizon)
	byStream := make(map[string]generic.Series, len(streams))
	for _, s := range streams {
		grand.Accumulate(s.MonthlyTotal)
		byStream[s.Name] = s.MonthlyTotal.AggregateYearly()
	}

	return &RevenueProjection{
		Streams:        streams,
		MonthlyGrand:   grand,
		YearlyGrand:    grand.AggregateYearly(),
		YearlyByStream: byStream,
	}
}
