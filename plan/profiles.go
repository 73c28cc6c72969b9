package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/generic"
)

// =============================================================================
// GROWTH PROFILES - How an expense line grows year over year
// =============================================================================

// Profile is the closed set of expense growth profiles. Categories map onto
// a profile; an unmapped category is Stable.
type Profile int

const (
	// ProfileStable: full cost from day one, flat 1% inflation each year.
	ProfileStable Profile = iota
	// ProfileDeclining: front-loaded step-ups that taper as the brand settles.
	ProfileDeclining
)

var profileNames = map[Profile]string{
	ProfileStable:    "stable",
	ProfileDeclining: "declining",
}

func (p Profile) String() string {
	if name, ok := profileNames[p]; ok {
		return name
	}
	return fmt.Sprintf("profile(%d)", int(p))
}

// ParseProfile resolves a profile name, case-insensitively.
func ParseProfile(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for p, n := range profileNames {
		if n == key {
			return p, nil
		}
	}
	return ProfileStable, fmt.Errorf("%w: %q", generic.ErrUnknownProfile, name)
}

// Profiles lists every profile in declaration order.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profileNames))
	for p := range profileNames {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GrowthProfile is a rate table keyed by fiscal-year index.
//   - YearlyRates: step-up applied once when the year opens
//   - MonthlyRates: optional compounding applied every month of the year
type GrowthProfile struct {
	YearlyRates  map[int]decimal.Decimal
	MonthlyRates map[int]decimal.Decimal
}

// Clone returns a deep copy.
func (gp GrowthProfile) Clone() GrowthProfile {
	return GrowthProfile{
		YearlyRates:  cloneRates(gp.YearlyRates),
		MonthlyRates: cloneRates(gp.MonthlyRates),
	}
}

func (gp GrowthProfile) yearlyRate(year int) decimal.Decimal {
	if r, ok := gp.YearlyRates[year]; ok {
		return r
	}
	return decimal.Zero
}

func (gp GrowthProfile) monthlyRate(year int) decimal.Decimal {
	if r, ok := gp.MonthlyRates[year]; ok {
		return r
	}
	return decimal.Zero
}

// =============================================================================
// PROFILE RESOLUTION
// =============================================================================

// ProfileTable resolves expense categories to growth profiles.
type ProfileTable struct {
	profiles   map[Profile]GrowthProfile
	categories map[string]Profile
}

// NewProfileTable starts from the reference tables and layers the overrides
// on top. Override maps are copied, never retained.
func NewProfileTable(profiles map[Profile]GrowthProfile, categories map[string]Profile) ProfileTable {
	t := ProfileTable{
		profiles:   DefaultProfiles(),
		categories: DefaultCategoryProfiles(),
	}
	for p, gp := range profiles {
		t.profiles[p] = gp.Clone()
	}
	for c, p := range categories {
		t.categories[c] = p
	}
	return t
}

// ProfileForCategory returns the category's profile, Stable when unmapped.
func (t ProfileTable) ProfileForCategory(category string) Profile {
	if p, ok := t.categories[category]; ok {
		return p
	}
	return ProfileStable
}

// Growth returns the rate table for a category.
func (t ProfileTable) Growth(category string) GrowthProfile {
	return t.profiles[t.ProfileForCategory(category)]
}

// Profile returns the rate table for p.
func (t ProfileTable) Profile(p Profile) GrowthProfile {
	return t.profiles[p]
}

// Categories returns a copy of the category mapping.
func (t ProfileTable) Categories() map[string]Profile {
	out := make(map[string]Profile, len(t.categories))
	for k, v := range t.categories {
		out[k] = v
	}
	return out
}
