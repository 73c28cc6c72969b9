/*
store.go - Persistence interface for plans and projection runs

PURPOSE:
  Defines the interface between the HTTP layer and the database.
  Plans are versioned documents; runs are immutable snapshots of one
  projection of one plan version. Different implementations can use
  SQLite or in-memory storage.

KEY INTERFACES:
  PlanStore: Versioned plan documents (save, get, list, delete)
  RunStore:  Projection runs (save, get, list newest first, latest)
  Store:     Both, plus Reset and Close

RUN IMMUTABILITY:
  RunStore has no update method. Re-projecting a plan appends a new run
  carrying the plan version it was computed from.

CASCADE:
  DeletePlan removes the plan's runs. SaveRun for an unknown plan fails.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (file or ":memory:")
  - generic/store/memory.go: In-memory for tests and throwaway servers

EXAMPLE:
  err := store.SavePlan(ctx, PlanRecord{ID: "clinic", Name: "Clinic", ConfigJSON: doc})
  rec, err := store.GetPlan(ctx, "clinic")
  if IsNotFound(err) {
      // 404
  }

SEE ALSO:
  - api/handlers.go: HTTP surface over the Store
  - errors.go: ErrPlanNotFound, ErrRunNotFound
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// RECORDS
// =============================================================================

// PlanRecord is a stored plan with its canonical JSON document.
type PlanRecord struct {
	ID         string
	Name       string
	ConfigJSON string
	Version    int // starts at 1, bumped on every save
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Run sources.
const (
	RunSourceAPI       = "api"
	RunSourceScheduler = "scheduler"
	RunSourceScenario  = "scenario"
)

// RunRecord is one stored projection run.
type RunRecord struct {
	ID            string
	PlanID        string
	PlanVersion   int
	Source        string
	HorizonMonths int
	TotalRevenue  string // decimal, 2 places
	TotalPat      string // decimal, 2 places
	BreakEvenYear *int
	ResultJSON    string
	CreatedAt     time.Time
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// PlanStore persists plan documents.
type PlanStore interface {
	// SavePlan inserts a plan, or replaces it and bumps its version.
	// CreatedAt is kept across saves.
	SavePlan(ctx context.Context, p PlanRecord) error

	// GetPlan returns ErrPlanNotFound for an unknown id.
	GetPlan(ctx context.Context, id string) (*PlanRecord, error)

	// ListPlans returns every plan ordered by name, then id.
	ListPlans(ctx context.Context) ([]PlanRecord, error)

	// DeletePlan removes a plan and its runs.
	DeletePlan(ctx context.Context, id string) error
}

// RunStore persists projection runs. Append-only.
type RunStore interface {
	// SaveRun stores a run and returns its id. An empty ID gets a fresh
	// UUID, an empty Source becomes RunSourceAPI and a zero CreatedAt
	// becomes now. Fails with ErrPlanNotFound if the plan doesn't exist.
	SaveRun(ctx context.Context, r RunRecord) (string, error)

	// GetRun returns ErrRunNotFound for an unknown id.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns a plan's runs, newest first. limit <= 0 returns all.
	ListRuns(ctx context.Context, planID string, limit int) ([]RunRecord, error)

	// LatestRun returns the newest run, or ErrRunNotFound if there is none.
	LatestRun(ctx context.Context, planID string) (*RunRecord, error)
}

// Store is the full persistence surface used by the API.
type Store interface {
	PlanStore
	RunStore

	// Reset removes every plan and run.
	Reset(ctx context.Context) error
	Close() error
}
