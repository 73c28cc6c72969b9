package plan

import (
	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/generic"
)

// =============================================================================
// BRANCH SCHEDULE - Month-by-month expansion plan
// =============================================================================

// BranchSchedule is the expansion plan stretched over the full horizon.
// Past the end of the explicit plan every month repeats the last entry's
// branches and subscriptions with zero growth and no new branches.
type BranchSchedule struct {
	entries []BranchScheduleEntry
}

// BuildBranchSchedule extends override (or the built-in plan when override
// is empty) to horizonMonths entries. It never fails: a short or absent
// schedule simply reaches steady state sooner.
func BuildBranchSchedule(override []BranchScheduleEntry, horizonMonths int) *BranchSchedule {
	source := override
	if len(source) == 0 {
		source = DefaultBranchSchedule()
	}
	if horizonMonths < 0 {
		horizonMonths = 0
	}

	entries := make([]BranchScheduleEntry, horizonMonths)
	last := source[len(source)-1]
	for m := 0; m < horizonMonths; m++ {
		if m < len(source) {
			e := source[m].clone()
			e.Month = m
			entries[m] = e
			continue
		}
		steady := last.clone()
		steady.Month = m
		steady.GrowthRate = decimal.Zero
		steady.NewBranches = 0
		entries[m] = steady
	}
	return &BranchSchedule{entries: entries}
}

// Len returns the number of months in the schedule.
func (s *BranchSchedule) Len() int { return len(s.entries) }

// At returns a copy of the entry for month, clamped to the last entry.
func (s *BranchSchedule) At(month int) BranchScheduleEntry {
	if len(s.entries) == 0 {
		return BranchScheduleEntry{Month: month, Subscriptions: map[string]int{}}
	}
	if month < 0 {
		month = 0
	}
	if month >= len(s.entries) {
		return s.entries[len(s.entries)-1].clone()
	}
	return s.entries[month].clone()
}

// Entries returns a deep copy of every month.
func (s *BranchSchedule) Entries() []BranchScheduleEntry {
	out := make([]BranchScheduleEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.clone()
	}
	return out
}

// BranchesAt returns the branch count for month.
func (s *BranchSchedule) BranchesAt(month int) int {
	if len(s.entries) == 0 {
		return 0
	}
	if month >= len(s.entries) {
		return s.entries[len(s.entries)-1].Branches
	}
	if month < 0 {
		month = 0
	}
	return s.entries[month].Branches
}

// GrowthFactorAt returns 1 + the month's growth rate.
func (s *BranchSchedule) GrowthFactorAt(month int) decimal.Decimal {
	if len(s.entries) == 0 {
		return generic.Factor(decimal.Zero)
	}
	if month >= len(s.entries) {
		month = len(s.entries) - 1
	}
	if month < 0 {
		month = 0
	}
	return generic.Factor(s.entries[month].GrowthRate)
}

// SubscriptionsAt returns a copy of the month's subscriber counts.
func (s *BranchSchedule) SubscriptionsAt(month int) map[string]int {
	return s.At(month).Subscriptions
}

// subscribersAt avoids the map copy on the hot path.
func (s *BranchSchedule) subscribersAt(month int, key string) int {
	if len(s.entries) == 0 {
		return 0
	}
	if month >= len(s.entries) {
		month = len(s.entries) - 1
	}
	if month < 0 {
		month = 0
	}
	return s.entries[month].Subscriptions[key]
}

// YearIndex maps month onto its fiscal year.
func (s *BranchSchedule) YearIndex(month int) int { return generic.YearIndex(month) }
