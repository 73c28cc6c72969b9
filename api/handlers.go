/*
handlers.go - HTTP API handlers for the projection engine

PURPOSE:
  Exposes the projection engine and the plan store via REST API. Handles
  HTTP request/response, document decoding and error mapping, and
  delegates to the factory, the engine and the store.

ENDPOINTS:
  Projections:
    POST   /api/projections            Project a plan document (not stored)

  Plans:
    GET    /api/plans                  List stored plans
    POST   /api/plans                  Create or replace a plan
    GET    /api/plans/{id}             Get a plan document
    DELETE /api/plans/{id}             Delete a plan and its runs

  Runs:
    POST   /api/plans/{id}/runs        Project a stored plan and keep the run
    GET    /api/plans/{id}/runs        List runs (?limit=N), newest first
    GET    /api/plans/{id}/runs/latest Latest run with its result
    GET    /api/runs/{id}              One run with its result

  Reference:
    GET    /api/profiles               Default growth profiles and tax rate
    GET    /api/health                 Liveness

DOCUMENT FORMATS:
  Plan bodies may be JSON, YAML or HJSON. The format comes from ?format=,
  then the Content-Type header, then defaults to JSON.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed documents, invalid configuration
  - 404: Unknown plan or run
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo plans
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/projection-engine/factory"
	"github.com/warp/projection-engine/generic"
	"github.com/warp/projection-engine/plan"
	"go.uber.org/zap"
)

// maxBodyBytes bounds uploaded plan documents.
const maxBodyBytes = 4 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Defaults fill settings a plan document leaves unset.
type Defaults struct {
	HorizonMonths int
	TaxRate       decimal.Decimal
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    generic.Store
	Engine   *plan.Engine
	Logger   *zap.Logger
	Defaults Defaults

	// Track currently loaded scenario
	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store generic.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:  store,
		Engine: plan.NewEngine(logger.Named("engine")),
		Logger: logger,
		Defaults: Defaults{
			HorizonMonths: plan.DefaultHorizonMonths,
			TaxRate:       plan.DefaultTaxRate(),
		},
	}
}

// applyDefaults fills the horizon and tax rate from h.Defaults.
func (h *Handler) applyDefaults(cfg plan.Config) plan.Config {
	if cfg.HorizonMonths == 0 && h.Defaults.HorizonMonths > 0 {
		cfg.HorizonMonths = h.Defaults.HorizonMonths
	}
	if cfg.TaxRate == nil {
		rate := h.Defaults.TaxRate
		cfg.TaxRate = &rate
	}
	return cfg
}

// project runs a decoded plan through the engine.
func (h *Handler) project(ctx context.Context, p *factory.Plan) (*plan.Projection, *ProjectionDTO, error) {
	result, err := h.Engine.Run(ctx, h.applyDefaults(p.Config))
	if err != nil {
		return nil, nil, err
	}
	dto := toProjectionDTO(result)
	dto.PlanID = p.ID
	dto.PlanName = p.Name
	return result, &dto, nil
}

// runStoredPlan projects a stored plan and records the run.
func (h *Handler) runStoredPlan(ctx context.Context, rec generic.PlanRecord, source string) (*generic.RunRecord, error) {
	p, err := factory.ParsePlanJSON([]byte(rec.ConfigJSON))
	if err != nil {
		return nil, fmt.Errorf("stored plan %s: %w", rec.ID, err)
	}
	p.ID = rec.ID

	projection, dto, err := h.project(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", rec.ID, err)
	}
	result, err := json.Marshal(dto)
	if err != nil {
		return nil, err
	}

	run := generic.RunRecord{
		PlanID:        rec.ID,
		PlanVersion:   rec.Version,
		Source:        source,
		HorizonMonths: dto.HorizonMonths,
		TotalRevenue:  projection.Summary.TotalRevenue.StringFixed(2),
		TotalPat:      projection.Summary.TotalPat.StringFixed(2),
		BreakEvenYear: projection.Summary.BreakEvenYear,
		ResultJSON:    string(result),
	}
	id, err := h.Store.SaveRun(ctx, run)
	if err != nil {
		return nil, err
	}
	stored, err := h.Store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	h.Logger.Info("plan projected",
		zap.String("plan_id", rec.ID),
		zap.String("run_id", id),
		zap.String("source", source),
		zap.String("total_revenue", run.TotalRevenue),
	)
	return stored, nil
}

// savePlan stores a decoded plan and returns the stored record.
func (h *Handler) savePlan(ctx context.Context, p *factory.Plan) (*generic.PlanRecord, error) {
	doc, err := p.JSON()
	if err != nil {
		return nil, err
	}
	name := p.Name
	if name == "" {
		name = p.ID
	}
	if err := h.Store.SavePlan(ctx, generic.PlanRecord{ID: p.ID, Name: name, ConfigJSON: string(doc)}); err != nil {
		return nil, err
	}
	return h.Store.GetPlan(ctx, p.ID)
}

// =============================================================================
// PROJECTION HANDLERS
// =============================================================================

// Project projects a plan document without storing it.
func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
	p, err := readPlan(r)
	if err != nil {
		writeFailure(w, "Invalid plan document", err)
		return
	}

	_, dto, err := h.project(r.Context(), p)
	if err != nil {
		writeFailure(w, "Projection failed", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

// ListPlans returns all stored plans.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListPlans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list plans", err)
		return
	}

	dtos := make([]PlanDTO, 0, len(records))
	for _, rec := range records {
		dto, err := toPlanDTO(rec)
		if err != nil {
			h.Logger.Warn("skipping unreadable plan", zap.String("plan_id", rec.ID), zap.Error(err))
			continue
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePlan stores a plan document. Saving an existing id replaces it.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	p, err := readPlan(r)
	if err != nil {
		writeFailure(w, "Invalid plan document", err)
		return
	}

	rec, err := h.savePlan(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save plan", err)
		return
	}
	dto, err := toPlanDTO(*rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// GetPlan returns one stored plan.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, "Plan not found", err)
		return
	}
	dto, err := toPlanDTO(*rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read plan", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeletePlan removes a plan and its runs.
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeletePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, "Failed to delete plan", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// RunPlan projects a stored plan and records the run.
func (h *Handler) RunPlan(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, "Plan not found", err)
		return
	}

	run, err := h.runStoredPlan(r.Context(), *rec, generic.RunSourceAPI)
	if err != nil {
		writeFailure(w, "Projection failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRunDTO(*run, true))
}

// ListRuns returns a plan's runs without their results.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "id")
	if _, err := h.Store.GetPlan(r.Context(), planID); err != nil {
		writeFailure(w, "Plan not found", err)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListRuns(r.Context(), planID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LatestRun returns a plan's newest run with its result.
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.LatestRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, "Run not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run, true))
}

// GetRun returns one run with its result.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, "Run not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run, true))
}

// =============================================================================
// REFERENCE HANDLERS
// =============================================================================

// GetProfiles returns the default growth profiles, category mapping and
// the effective default tax rate.
func (h *Handler) GetProfiles(w http.ResponseWriter, r *http.Request) {
	table := plan.NewProfileTable(nil, nil)
	writeJSON(w, http.StatusOK, toProfilesDTO(table, h.Defaults.TaxRate))
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// readPlan decodes the request body as a plan document.
func readPlan(r *http.Request) (*factory.Plan, error) {
	format, err := requestFormat(r)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return factory.ParsePlan(body, format)
}

func requestFormat(r *http.Request) (factory.Format, error) {
	if q := r.URL.Query().Get("format"); q != "" {
		return factory.ParseFormat(q)
	}
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	switch {
	case strings.Contains(ct, "yaml"):
		return factory.FormatYAML, nil
	case strings.Contains(ct, "hjson"):
		return factory.FormatHJSON, nil
	}
	return factory.FormatJSON, nil
}

// statusFor maps an error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeFailure writes err with the status it maps to.
func writeFailure(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}
