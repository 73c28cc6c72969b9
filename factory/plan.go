/*
Package factory converts plan documents into engine configurations.

PURPOSE:
  A plan document is the user-facing shape of a business plan: snake_case
  keys, plain numbers, profile names as strings. The factory decodes it,
  checks its shape and builds a plan.Config. Planners edit documents, the
  engine never sees them.

FORMATS:
  JSON, YAML and HJSON. YAML and HJSON are normalized to JSON first, so a
  single decoder and a single set of error messages serve all three.

DOCUMENT SCHEMA:
  {
    "id": "clinic-network",
    "name": "Clinic Network",
    "horizon_months": 72,
    "start_month": "2025-09",
    "branch_schedule": [
      {"branches": 1, "growth": 0, "new_branches": 1, "subscriptions": {"retail": 0}}
    ],
    "services": [
      {"name": "Consultation", "stream": "Clinic", "base_units": 8, "price": 5500, "active": true}
    ],
    "expenses": [
      {"name": "Electricity", "category": "Utilities", "amount": 295000, "per_branch": true, "active": true}
    ],
    "assets": [
      {"name": "Equipment", "cost": 25000000, "useful_life": 10, "acquisition_year": 0}
    ],
    "growth_config": {"monthly_rates": {"1": 0.25}, "yearly_step_ups": {"2": 0.2}},
    "tax_rate": 0.2517,
    "profiles": {"declining": {"yearly_rates": {"2": 0.45}}},
    "category_profiles": {"Rent": "stable"}
  }

SHAPE RULES:
  - services and expenses are required arrays (empty is fine)
  - rate-table keys are integer fiscal-year indices
  - profile names must be known profiles
  - omitted booleans are false: a service without "active" is inactive

USAGE:
  doc, err := factory.LoadFile("plans/clinic.yaml")
  result, err := plan.Run(ctx, doc.Config)

SEE ALSO:
  - plan/types.go: Config and its entities
  - plan/validate.go: Range checks applied by the engine
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hjson/hjson-go/v4"
	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/generic"
	"github.com/warp/projection-engine/plan"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT SCHEMA TYPES
// =============================================================================

// PlanJSON is the document representation of a plan.
type PlanJSON struct {
	ID               string                 `json:"id,omitempty"`
	Name             string                 `json:"name,omitempty"`
	HorizonMonths    int                    `json:"horizon_months,omitempty"`
	StartMonth       string                 `json:"start_month,omitempty"`
	BranchSchedule   []BranchEntryJSON      `json:"branch_schedule,omitempty"`
	Services         []ServiceJSON          `json:"services"`
	Expenses         []ExpenseJSON          `json:"expenses"`
	Assets           []AssetJSON            `json:"assets,omitempty"`
	GrowthConfig     *GrowthJSON            `json:"growth_config,omitempty"`
	TaxRate          *float64               `json:"tax_rate,omitempty"`
	Profiles         map[string]ProfileJSON `json:"profiles,omitempty"`
	CategoryProfiles map[string]string      `json:"category_profiles,omitempty"`
}

// BranchEntryJSON is one month of the branch schedule. Entries are
// positional: the first is month 0.
type BranchEntryJSON struct {
	Branches      int            `json:"branches"`
	Growth        float64        `json:"growth,omitempty"`
	NewBranches   int            `json:"new_branches,omitempty"`
	Subscriptions map[string]int `json:"subscriptions,omitempty"`
}

// ServiceJSON is one revenue line.
type ServiceJSON struct {
	Name            string      `json:"name"`
	Stream          string      `json:"stream"`
	SubStream       string      `json:"sub_stream,omitempty"`
	BaseUnits       float64     `json:"base_units"`
	Price           float64     `json:"price"`
	Active          bool        `json:"active"`
	CustomGrowth    *GrowthJSON `json:"custom_growth,omitempty"`
	ManualRamp      []float64   `json:"manual_ramp,omitempty"`
	SubscriptionKey string      `json:"subscription_key,omitempty"`
}

// ExpenseJSON is one operating-expense line.
type ExpenseJSON struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Amount    float64 `json:"amount"`
	PerBranch bool    `json:"per_branch,omitempty"`
	Active    bool    `json:"active"`
}

// AssetJSON is one fixed asset.
type AssetJSON struct {
	Name            string  `json:"name"`
	Cost            float64 `json:"cost"`
	UsefulLife      int     `json:"useful_life"`
	AcquisitionYear int     `json:"acquisition_year,omitempty"`
}

// GrowthJSON holds revenue growth tables keyed by year index ("0", "1", ...).
type GrowthJSON struct {
	MonthlyRates  map[string]float64 `json:"monthly_rates,omitempty"`
	YearlyStepUps map[string]float64 `json:"yearly_step_ups,omitempty"`
}

// ProfileJSON overrides the rate tables of one growth profile.
type ProfileJSON struct {
	YearlyRates  map[string]float64 `json:"yearly_rates,omitempty"`
	MonthlyRates map[string]float64 `json:"monthly_rates,omitempty"`
}

// =============================================================================
// FORMATS
// =============================================================================

// Format is a plan document encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatHJSON Format = "hjson"
)

// ParseFormat resolves a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "hjson":
		return FormatHJSON, nil
	}
	return "", fmt.Errorf("%w: %q", generic.ErrUnsupportedFormat, s)
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// normalize converts YAML or HJSON input to JSON.
func normalize(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return data, nil
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return json.Marshal(stringKeys(v))
	case FormatHJSON:
		var v any
		if err := hjson.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}
	return nil, fmt.Errorf("%w: %q", generic.ErrUnsupportedFormat, format)
}

// stringKeys rewrites YAML maps with non-string keys (year indices written
// as bare integers) into JSON-compatible maps.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	}
	return v
}

// =============================================================================
// PLAN FACTORY
// =============================================================================

// Plan is a decoded document together with the engine configuration it
// describes.
type Plan struct {
	ID       string
	Name     string
	Document PlanJSON
	Config   plan.Config
}

// JSON returns the canonical JSON encoding of the document, the form plans
// are stored in.
func (p *Plan) JSON() ([]byte, error) {
	return json.Marshal(p.Document)
}

// LoadFile reads and parses a plan document, picking the format from the
// file extension.
func LoadFile(path string) (*Plan, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan %s: %w", path, err)
	}
	return ParsePlan(data, format)
}

// ParsePlan decodes a document in the given format. A document without an
// id gets a fresh one.
func ParsePlan(data []byte, format Format) (*Plan, error) {
	raw, err := normalize(data, format)
	if err != nil {
		return nil, &generic.InvalidConfigError{Field: "document", Reason: fmt.Sprintf("malformed %s", format), Err: err}
	}

	var doc PlanJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, decodeError(err)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	return FromDocument(doc)
}

// ParsePlanJSON is ParsePlan for JSON input.
func ParsePlanJSON(data []byte) (*Plan, error) {
	return ParsePlan(data, FormatJSON)
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "document"
		}
		return &generic.InvalidConfigError{Field: field, Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value), Err: err}
	}
	return &generic.InvalidConfigError{Field: "document", Reason: "malformed json", Err: err}
}

// FromDocument checks the document's shape and builds the engine config.
func FromDocument(doc PlanJSON) (*Plan, error) {
	if doc.Services == nil {
		return nil, generic.InvalidConfig("services", "is required")
	}
	if doc.Expenses == nil {
		return nil, generic.InvalidConfig("expenses", "is required")
	}

	calendar, err := generic.ParseCalendar(doc.StartMonth)
	if err != nil {
		return nil, &generic.InvalidConfigError{Field: "start_month", Reason: "must be YYYY-MM", Err: err}
	}

	cfg := plan.Config{
		HorizonMonths: doc.HorizonMonths,
		Calendar:      calendar,
		Services:      make([]plan.Service, 0, len(doc.Services)),
		Expenses:      make([]plan.Expense, 0, len(doc.Expenses)),
	}

	for _, e := range doc.BranchSchedule {
		cfg.BranchSchedule = append(cfg.BranchSchedule, plan.BranchScheduleEntry{
			Month:         len(cfg.BranchSchedule),
			Branches:      e.Branches,
			GrowthRate:    generic.Dec(e.Growth),
			NewBranches:   e.NewBranches,
			Subscriptions: copyCounts(e.Subscriptions),
		})
	}

	for i, s := range doc.Services {
		svc, err := parseService(i, s)
		if err != nil {
			return nil, err
		}
		cfg.Services = append(cfg.Services, svc)
	}

	for _, e := range doc.Expenses {
		cfg.Expenses = append(cfg.Expenses, plan.Expense{
			Name:      e.Name,
			Category:  e.Category,
			Amount:    generic.Dec(e.Amount),
			PerBranch: e.PerBranch,
			Active:    e.Active,
		})
	}

	for _, a := range doc.Assets {
		cfg.Assets = append(cfg.Assets, plan.FixedAsset{
			Name:            a.Name,
			Cost:            generic.Dec(a.Cost),
			UsefulLife:      a.UsefulLife,
			AcquisitionYear: a.AcquisitionYear,
		})
	}

	if doc.GrowthConfig != nil {
		g, err := parseGrowth("growth_config", *doc.GrowthConfig)
		if err != nil {
			return nil, err
		}
		cfg.Growth = &g
	}

	if doc.TaxRate != nil {
		rate := generic.Dec(*doc.TaxRate)
		cfg.TaxRate = &rate
	}

	if len(doc.Profiles) > 0 {
		cfg.Profiles = make(map[plan.Profile]plan.GrowthProfile, len(doc.Profiles))
		for name, pj := range doc.Profiles {
			p, err := plan.ParseProfile(name)
			if err != nil {
				return nil, &generic.InvalidConfigError{Field: "profiles." + name, Reason: "unknown profile", Err: err}
			}
			yearly, err := parseRates("profiles."+name+".yearly_rates", pj.YearlyRates)
			if err != nil {
				return nil, err
			}
			monthly, err := parseRates("profiles."+name+".monthly_rates", pj.MonthlyRates)
			if err != nil {
				return nil, err
			}
			cfg.Profiles[p] = plan.GrowthProfile{YearlyRates: yearly, MonthlyRates: monthly}
		}
	}

	if len(doc.CategoryProfiles) > 0 {
		cfg.CategoryProfiles = make(map[string]plan.Profile, len(doc.CategoryProfiles))
		for category, name := range doc.CategoryProfiles {
			p, err := plan.ParseProfile(name)
			if err != nil {
				return nil, &generic.InvalidConfigError{Field: "category_profiles." + category, Reason: "unknown profile", Err: err}
			}
			cfg.CategoryProfiles[category] = p
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Plan{
		ID:       doc.ID,
		Name:     doc.Name,
		Document: doc,
		Config:   cfg,
	}, nil
}

func parseService(i int, s ServiceJSON) (plan.Service, error) {
	svc := plan.Service{
		Name:            s.Name,
		StreamName:      s.Stream,
		SubStreamName:   s.SubStream,
		BaseUnits:       generic.Dec(s.BaseUnits),
		Price:           generic.Dec(s.Price),
		Active:          s.Active,
		SubscriptionKey: s.SubscriptionKey,
	}
	if s.CustomGrowth != nil {
		g, err := parseGrowth(fmt.Sprintf("services[%d].custom_growth", i), *s.CustomGrowth)
		if err != nil {
			return plan.Service{}, err
		}
		svc.CustomGrowth = &g
	}
	for _, v := range s.ManualRamp {
		svc.ManualRamp = append(svc.ManualRamp, generic.Dec(v))
	}
	return svc, nil
}

func parseGrowth(field string, g GrowthJSON) (plan.GrowthConfig, error) {
	monthly, err := parseRates(field+".monthly_rates", g.MonthlyRates)
	if err != nil {
		return plan.GrowthConfig{}, err
	}
	yearly, err := parseRates(field+".yearly_step_ups", g.YearlyStepUps)
	if err != nil {
		return plan.GrowthConfig{}, err
	}
	return plan.GrowthConfig{MonthlyRates: monthly, YearlyStepUps: yearly}, nil
}

// parseRates converts a {"year": rate} table. Keys must be integers.
func parseRates(field string, in map[string]float64) (map[int]decimal.Decimal, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[int]decimal.Decimal, len(in))
	for k, v := range in {
		year, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, &generic.InvalidConfigError{Field: field, Reason: fmt.Sprintf("year key %q is not an integer", k), Err: err}
		}
		out[year] = generic.Dec(v)
	}
	return out, nil
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
