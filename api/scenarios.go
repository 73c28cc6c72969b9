/*
scenarios.go - Demo plans for testing and demonstrations

PURPOSE:

	Provides ready-made plans that exercise the engine's features, so a
	fresh database has something meaningful to project.

AVAILABLE SCENARIOS:

	clinic-network:   Default branch schedule, per-branch services and costs
	subscription-app: Subscriber-driven revenue with a manual launch ramp
	franchise:        Custom branch schedule, per-service growth, custom profiles

HOW SCENARIOS WORK:
 1. Optionally reset the database (clear all plans and runs)
 2. Build the plan document in Go
 3. Decode it through the factory (same path as uploaded documents)
 4. Save it as a plan
 5. Project it once and store the run

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "clinic-network"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Write a document builder: xxxPlan() factory.PlanJSON
 3. Register it in scenarioPlans

SEE ALSO:
  - handlers.go: Plan and run handlers
  - factory/plan.go: Plan document schema
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/projection-engine/factory"
	"github.com/warp/projection-engine/generic"
	"github.com/warp/projection-engine/plan"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "clinic-network",
		Name:        "Clinic Network",
		Description: "Default 10-branch roll-out with consultations, diagnostics and a marketplace subscription",
	},
	{
		ID:          "subscription-app",
		Name:        "Subscription App",
		Description: "Single-site business whose revenue follows retail and corporate subscribers, with a manual launch ramp",
	},
	{
		ID:          "franchise",
		Name:        "Franchise",
		Description: "Custom branch schedule, per-service growth and overridden expense profiles",
	},
}

var scenarioPlans = map[string]func() factory.PlanJSON{
	"clinic-network":   clinicNetworkPlan,
	"subscription-app": subscriptionAppPlan,
	"franchise":        franchisePlan,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario saves a scenario's plan and projects it once. With
// "reset": true every existing plan and run is removed first.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoadScenarioRequest
		Reset bool `json:"reset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Reset {
		if err := h.Store.Reset(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
			return
		}
	}

	run, err := h.loadScenario(r.Context(), req.ScenarioID)
	if err != nil {
		writeFailure(w, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"scenario": req.ScenarioID,
		"plan_id":  run.PlanID,
		"run":      toRunDTO(*run, false),
	})
}

// ResetDatabase clears all plans and runs.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.scenarioMu.Lock()
	h.currentScenario = ""
	h.scenarioMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) loadScenario(ctx context.Context, id string) (*generic.RunRecord, error) {
	build, ok := scenarioPlans[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown scenario %q", generic.ErrPlanNotFound, id)
	}

	p, err := factory.FromDocument(build())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", id, err)
	}
	rec, err := h.savePlan(ctx, p)
	if err != nil {
		return nil, err
	}
	run, err := h.runStoredPlan(ctx, *rec, generic.RunSourceScenario)
	if err != nil {
		return nil, err
	}
	h.scenarioMu.Lock()
	h.currentScenario = id
	h.scenarioMu.Unlock()
	return run, nil
}

// =============================================================================
// SCENARIO PLANS
// =============================================================================

func clinicNetworkPlan() factory.PlanJSON {
	return factory.PlanJSON{
		ID:            "clinic-network",
		Name:          "Clinic Network",
		HorizonMonths: plan.DefaultHorizonMonths,
		StartMonth:    "2025-09",
		Services: []factory.ServiceJSON{
			{Name: "General Consultation", Stream: "Consultations", SubStream: "Walk-in", BaseUnits: 8, Price: 5500, Active: true},
			{Name: "Specialist Consultation", Stream: "Consultations", SubStream: "Referral", BaseUnits: 3, Price: 12000, Active: true},
			{Name: "Lab Tests", Stream: "Diagnostics", BaseUnits: 20, Price: 1800, Active: true},
			{Name: "Imaging", Stream: "Diagnostics", BaseUnits: 4, Price: 9500, Active: true},
			{Name: "Marketplace Listing", Stream: "Subscriptions", BaseUnits: 1, Price: 2500, Active: true, SubscriptionKey: plan.SubsMarketplace},
			{Name: "Home Visits", Stream: "Consultations", BaseUnits: 2, Price: 15000, Active: false},
		},
		Expenses: []factory.ExpenseJSON{
			{Name: "Electricity", Category: "Utilities", Amount: 295000, PerBranch: true, Active: true},
			{Name: "Doctors", Category: "Salaries", Amount: 1200000, PerBranch: true, Active: true},
			{Name: "Head Office", Category: "Salaries", Amount: 2500000, Active: true},
			{Name: "Consumables", Category: "Supplies", Amount: 180000, PerBranch: true, Active: true},
			{Name: "Launch Campaigns", Category: "Marketing & Promotions", Amount: 1500000, Active: true},
			{Name: "Clinic Licences", Category: "Licenses & Registration", Amount: 250000, Active: true},
		},
		Assets: []factory.AssetJSON{
			{Name: "Medical Equipment", Cost: 25000000, UsefulLife: 10},
			{Name: "Fit-out", Cost: 8000000, UsefulLife: 5},
			{Name: "Expansion Equipment", Cost: 15000000, UsefulLife: 10, AcquisitionYear: 1},
		},
	}
}

func subscriptionAppPlan() factory.PlanJSON {
	schedule := make([]factory.BranchEntryJSON, 0, 19)
	retail, corporate := 0, 0
	for m := 0; m < 19; m++ {
		schedule = append(schedule, factory.BranchEntryJSON{
			Branches: 1,
			Subscriptions: map[string]int{
				plan.SubsRetail:    retail,
				plan.SubsCorporate: corporate,
			},
		})
		retail += 150
		if m >= 6 {
			corporate += 40
		}
	}

	taxRate := 0.25
	return factory.PlanJSON{
		ID:             "subscription-app",
		Name:           "Subscription App",
		HorizonMonths:  60,
		StartMonth:     "2026-01",
		BranchSchedule: schedule,
		Services: []factory.ServiceJSON{
			{Name: "Retail Plan", Stream: "Subscriptions", SubStream: "Retail", BaseUnits: 1, Price: 999, Active: true, SubscriptionKey: plan.SubsRetail},
			{Name: "Corporate Plan", Stream: "Subscriptions", SubStream: "Corporate", BaseUnits: 1, Price: 4999, Active: true, SubscriptionKey: plan.SubsCorporate},
			{
				Name: "Onboarding", Stream: "Services", BaseUnits: 10, Price: 25000, Active: true,
				ManualRamp: []float64{0, 2, 4, 6, 8},
			},
		},
		Expenses: []factory.ExpenseJSON{
			{Name: "Cloud Hosting", Category: "Vendor Payments", Amount: 450000, Active: true},
			{Name: "Engineering", Category: "Salaries", Amount: 3000000, Active: true},
			{Name: "Performance Marketing", Category: "Marketing & Promotions", Amount: 2000000, Active: true},
		},
		Assets: []factory.AssetJSON{
			{Name: "Laptops", Cost: 3600000, UsefulLife: 3},
		},
		// Subscriber counts already carry the growth.
		GrowthConfig: &factory.GrowthJSON{},
		TaxRate:      &taxRate,
	}
}

func franchisePlan() factory.PlanJSON {
	schedule := []factory.BranchEntryJSON{
		{Branches: 1, NewBranches: 1},
		{Branches: 1},
		{Branches: 2, Growth: 0.1, NewBranches: 1},
		{Branches: 2, Growth: 0.1},
		{Branches: 4, Growth: 0.2, NewBranches: 2},
		{Branches: 4, Growth: 0.1},
		{Branches: 6, Growth: 0.2, NewBranches: 2},
		{Branches: 8, Growth: 0.1, NewBranches: 2},
		{Branches: 12, Growth: 0.1, NewBranches: 4},
		{Branches: 16, Growth: 0.05, NewBranches: 4},
		{Branches: 20, Growth: 0.05, NewBranches: 4},
	}

	return factory.PlanJSON{
		ID:             "franchise",
		Name:           "Franchise",
		HorizonMonths:  plan.DefaultHorizonMonths,
		BranchSchedule: schedule,
		Services: []factory.ServiceJSON{
			{Name: "Franchise Fee", Stream: "Royalties", BaseUnits: 1, Price: 350000, Active: true},
			{
				Name: "Store Sales", Stream: "Retail", BaseUnits: 600, Price: 450, Active: true,
				CustomGrowth: &factory.GrowthJSON{
					MonthlyRates:  map[string]float64{"0": 0.05, "1": 0.02},
					YearlyStepUps: map[string]float64{"2": 0.08, "3": 0.06, "4": 0.05},
				},
			},
		},
		Expenses: []factory.ExpenseJSON{
			{Name: "Store Rent", Category: "Rent", Amount: 400000, PerBranch: true, Active: true},
			{Name: "Store Staff", Category: "Salaries", Amount: 650000, PerBranch: true, Active: true},
			{Name: "Brand Marketing", Category: "Marketing & Promotions", Amount: 1200000, Active: true},
			{Name: "Franchise Support", Category: "Payouts", Amount: 300000, Active: true},
		},
		Assets: []factory.AssetJSON{
			{Name: "Central Kitchen", Cost: 40000000, UsefulLife: 8},
		},
		GrowthConfig: &factory.GrowthJSON{
			YearlyStepUps: map[string]float64{"2": 0.1, "3": 0.1},
		},
		Profiles: map[string]factory.ProfileJSON{
			"stable": {YearlyRates: map[string]float64{"1": 0.03, "2": 0.03, "3": 0.03, "4": 0.03, "5": 0.03}},
		},
		CategoryProfiles: map[string]string{
			"Rent": "stable",
		},
	}
}
