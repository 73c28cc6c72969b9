/*
handlers_test.go - HTTP tests for the projection API

Tests for:
- Stateless projection in every document format
- Plan lifecycle (create, replace, list, delete)
- Runs (record, list, latest, lookup)
- Error mapping (400 / 404)
*/
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/projection-engine/generic"
	memstore "github.com/warp/projection-engine/generic/store"
	"github.com/warp/projection-engine/store/sqlite"
	"go.uber.org/zap/zaptest"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func setupTestHandler(t *testing.T) *Handler {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewHandler(store, zaptest.NewLogger(t))
}

// forEachStore runs fn once per Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, h *Handler)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, setupTestHandler(t))
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, NewHandler(memstore.NewMemory(), zaptest.NewLogger(t)))
	})
}

func doRequest(t *testing.T, h http.Handler, method, path, body, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const consultationPlan = `{
  "id": "consult",
  "name": "Consultations Only",
  "services": [
    {"name": "General Consultation", "stream": "Consultations", "base_units": 8, "price": 5500, "active": true}
  ],
  "expenses": [
    {"name": "Electricity", "category": "Utilities", "amount": 295000, "per_branch": true, "active": true}
  ],
  "assets": [
    {"name": "Equipment", "cost": 25000000, "useful_life": 10}
  ]
}`

const consultationYAML = `
id: consult-yaml
services:
  - name: General Consultation
    stream: Consultations
    base_units: 8
    price: 5500
    active: true
expenses: []
horizon_months: 24
`

// =============================================================================
// PROJECTION TESTS
// =============================================================================

func TestProject_JSON(t *testing.T) {
	// GIVEN: A plan document on every engine default
	router := NewRouter(setupTestHandler(t))

	// WHEN: Projecting it
	rec := doRequest(t, router, http.MethodPost, "/api/projections", consultationPlan, "application/json")

	// THEN: 72 months, 7 years, month 0 revenue = 8 × 1 × 5500
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dto := decode[ProjectionDTO](t, rec)
	assert.Equal(t, "consult", dto.PlanID)
	assert.Equal(t, 72, dto.HorizonMonths)
	require.Len(t, dto.Monthly.Revenue, 72)
	assert.Equal(t, 44000.0, dto.Monthly.Revenue[0])
	assert.Equal(t, 1475000.0, dto.Monthly.Opex[4])
	assert.Equal(t, 5, dto.Monthly.Branches[4])
	assert.Len(t, dto.Monthly.Branches, 72)
	assert.Len(t, dto.Monthly.NewBranches, 72)
	assert.Equal(t, []int{7, 12, 12, 12, 12, 12, 5}, dto.Yearly.Months)
	assert.Len(t, dto.Yearly.PnL, 7)
	assert.Equal(t, 2500000.0, dto.Yearly.Depreciation.Assets[0].AnnualDepreciation)
	assert.Equal(t, 10000000.0, dto.Yearly.Depreciation.Assets[0].NetBookValue[5])
	assert.Contains(t, dto.Monthly.ByStream, "Consultations")
}

func TestProject_YAMLUsesHandlerDefaults(t *testing.T) {
	// GIVEN: A handler whose default tax rate is zero
	h := setupTestHandler(t)
	h.Defaults.TaxRate = decimal.Zero
	router := NewRouter(h)

	// WHEN: Projecting a YAML plan without a tax rate
	rec := doRequest(t, router, http.MethodPost, "/api/projections", consultationYAML, "application/yaml")

	// THEN: The plan's horizon is kept and no tax is charged
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dto := decode[ProjectionDTO](t, rec)
	assert.Equal(t, 24, dto.HorizonMonths)
	assert.Len(t, dto.Yearly.PnL, 3)
	for _, y := range dto.Yearly.PnL {
		assert.Zero(t, y.Tax)
		assert.Equal(t, y.Pbt, y.Pat)
	}
}

func TestProject_DefaultHorizonFromHandler(t *testing.T) {
	h := setupTestHandler(t)
	h.Defaults.HorizonMonths = 30
	router := NewRouter(h)

	rec := doRequest(t, router, http.MethodPost, "/api/projections?format=json", consultationPlan, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, decode[ProjectionDTO](t, rec).HorizonMonths)
}

func TestProject_BadRequests(t *testing.T) {
	router := NewRouter(setupTestHandler(t))

	cases := []struct {
		name string
		path string
		body string
	}{
		{"missing services", "/api/projections", `{"expenses": []}`},
		{"malformed json", "/api/projections", `{"services": [`},
		{"negative horizon", "/api/projections", `{"services": [], "expenses": [], "horizon_months": -3}`},
		{"unsupported format", "/api/projections?format=toml", consultationPlan},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, tc.path, tc.body, "application/json")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.Details)
		})
	}
}

// =============================================================================
// PLAN AND RUN TESTS
// =============================================================================

func TestPlanLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *Handler) {
		router := NewRouter(h)

		// GIVEN: A stored plan
		rec := doRequest(t, router, http.MethodPost, "/api/plans", consultationPlan, "application/json")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		created := decode[PlanDTO](t, rec)
		assert.Equal(t, "consult", created.ID)
		assert.Equal(t, 1, created.Version)
		assert.Len(t, created.Document.Services, 1)

		// WHEN: Saving the same id again
		rec = doRequest(t, router, http.MethodPost, "/api/plans", consultationPlan, "application/json")
		require.Equal(t, http.StatusCreated, rec.Code)

		// THEN: It is replaced, not duplicated
		rec = doRequest(t, router, http.MethodGet, "/api/plans/consult", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, decode[PlanDTO](t, rec).Version)

		rec = doRequest(t, router, http.MethodGet, "/api/plans", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]PlanDTO](t, rec), 1)

		// AND: Deleting removes it
		rec = doRequest(t, router, http.MethodDelete, "/api/plans/consult", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		rec = doRequest(t, router, http.MethodGet, "/api/plans/consult", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = doRequest(t, router, http.MethodDelete, "/api/plans/consult", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRuns(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *Handler) {
		router := NewRouter(h)
		rec := doRequest(t, router, http.MethodPost, "/api/plans", consultationPlan, "application/json")
		require.Equal(t, http.StatusCreated, rec.Code)

		// WHEN: Running the stored plan twice
		rec = doRequest(t, router, http.MethodPost, "/api/plans/consult/runs", "", "")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		first := decode[RunDTO](t, rec)
		rec = doRequest(t, router, http.MethodPost, "/api/plans/consult/runs", "", "")
		require.Equal(t, http.StatusCreated, rec.Code)
		second := decode[RunDTO](t, rec)

		// THEN: Each run carries its totals and full result
		assert.Equal(t, "consult", first.PlanID)
		assert.Equal(t, 1, first.PlanVersion)
		assert.Equal(t, generic.RunSourceAPI, first.Source)
		assert.Equal(t, 72, first.HorizonMonths)
		assert.Positive(t, first.TotalRevenue)
		require.NotEmpty(t, first.Result)
		var result ProjectionDTO
		require.NoError(t, json.Unmarshal(first.Result, &result))
		assert.Equal(t, 44000.0, result.Monthly.Revenue[0])
		assert.Equal(t, first.TotalRevenue, result.Summary.TotalRevenue)

		// AND: Listing returns both, without results
		rec = doRequest(t, router, http.MethodGet, "/api/plans/consult/runs", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		runs := decode[[]RunDTO](t, rec)
		require.Len(t, runs, 2)
		assert.Empty(t, runs[0].Result)

		rec = doRequest(t, router, http.MethodGet, "/api/plans/consult/runs?limit=1", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]RunDTO](t, rec), 1)

		// AND: Latest is the second run
		rec = doRequest(t, router, http.MethodGet, "/api/plans/consult/runs/latest", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, second.ID, decode[RunDTO](t, rec).ID)

		rec = doRequest(t, router, http.MethodGet, "/api/runs/"+first.ID, "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, first.ID, decode[RunDTO](t, rec).ID)
	})
}

func TestRuns_NotFoundAndBadLimit(t *testing.T) {
	router := NewRouter(setupTestHandler(t))

	assert.Equal(t, http.StatusNotFound, doRequest(t, router, http.MethodPost, "/api/plans/ghost/runs", "", "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(t, router, http.MethodGet, "/api/plans/ghost/runs", "", "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(t, router, http.MethodGet, "/api/runs/ghost", "", "").Code)

	rec := doRequest(t, router, http.MethodPost, "/api/plans", consultationPlan, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusNotFound, doRequest(t, router, http.MethodGet, "/api/plans/consult/runs/latest", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, router, http.MethodGet, "/api/plans/consult/runs?limit=abc", "", "").Code)
}

// =============================================================================
// REFERENCE TESTS
// =============================================================================

func TestGetProfiles(t *testing.T) {
	router := NewRouter(setupTestHandler(t))

	rec := doRequest(t, router, http.MethodGet, "/api/profiles", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[ProfilesDTO](t, rec)
	assert.Equal(t, 0.2517, dto.TaxRate)
	assert.Contains(t, dto.Profiles, "stable")
	assert.Contains(t, dto.Profiles, "declining")
	assert.Equal(t, 0.45, dto.Profiles["declining"].YearlyRates["2"])
	assert.Equal(t, "stable", dto.Categories["Utilities"])
	assert.Equal(t, "declining", dto.Categories["Marketing & Promotions"])
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, NewRouter(setupTestHandler(t)), http.MethodGet, "/api/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
