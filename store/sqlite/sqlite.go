/*
Package sqlite persists plans and projection runs in SQLite.

PURPOSE:
  Plans are stored as their canonical JSON document so the factory can
  rebuild the engine config at any time. Each projection run stores its
  headline figures as columns (for listing) and the full result as JSON.

KEY TABLES:
  plans:           Plan documents (versioned on every save)
  projection_runs: One row per executed projection, newest first

VERSIONING:
  Saving an existing plan id replaces the document and bumps the version.
  Runs record the plan version they were computed from.

CASCADE:
  Deleting a plan deletes its runs (foreign key ON DELETE CASCADE).

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block
  the scheduler while it writes runs.

USAGE:
  store, err := sqlite.New("./data/projections.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  err = store.SavePlan(ctx, sqlite.PlanRecord{ID: "clinic", Name: "Clinic", ConfigJSON: doc})

SEE ALSO:
  - factory/plan.go: Produces and parses ConfigJSON
  - api/handlers.go: HTTP surface over this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/projection-engine/generic"
)

var _ generic.Store = (*Store)(nil)

// Store persists plans and runs.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projection_runs (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		plan_version INTEGER NOT NULL,
		source TEXT NOT NULL,
		horizon_months INTEGER NOT NULL,
		total_revenue TEXT NOT NULL,
		total_pat TEXT NOT NULL,
		break_even_year INTEGER,
		result_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_plan_created
		ON projection_runs(plan_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset removes every plan and run.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"projection_runs", "plans"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// PLAN STORE
// =============================================================================

// PlanRecord is a stored plan with its JSON document.
type PlanRecord = generic.PlanRecord

// SavePlan inserts a plan, or replaces it and bumps its version.
func (s *Store) SavePlan(ctx context.Context, p PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO plans (id, name, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = plans.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.ConfigJSON, now, now)
	if err != nil {
		return fmt.Errorf("failed to save plan %s: %w", p.ID, err)
	}
	return nil
}

// GetPlan retrieves a plan by ID.
func (s *Store) GetPlan(ctx context.Context, id string) (*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p PlanRecord
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, config_json, version, created_at, updated_at FROM plans WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &p.ConfigJSON, &p.Version, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrPlanNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// ListPlans returns every plan ordered by name.
func (s *Store) ListPlans(ctx context.Context) ([]PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, config_json, version, created_at, updated_at FROM plans ORDER BY name, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []PlanRecord
	for rows.Next() {
		var p PlanRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.ConfigJSON, &p.Version, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// DeletePlan removes a plan and its runs.
func (s *Store) DeletePlan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM plans WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", generic.ErrPlanNotFound, id)
	}
	return nil
}

// =============================================================================
// RUN STORE
// =============================================================================

// Run sources, re-exported for callers that only import this package.
const (
	RunSourceAPI       = generic.RunSourceAPI
	RunSourceScheduler = generic.RunSourceScheduler
	RunSourceScenario  = generic.RunSourceScenario
)

// RunRecord is one stored projection run.
type RunRecord = generic.RunRecord

// SaveRun stores a run. An empty ID gets a fresh UUID; the stored ID is
// returned.
func (s *Store) SaveRun(ctx context.Context, r RunRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Source == "" {
		r.Source = RunSourceAPI
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plans WHERE id = ?", r.PlanID).Scan(&exists)
	if err != nil {
		return "", err
	}
	if exists == 0 {
		return "", fmt.Errorf("%w: %s", generic.ErrPlanNotFound, r.PlanID)
	}

	var breakEven sql.NullInt64
	if r.BreakEvenYear != nil {
		breakEven = sql.NullInt64{Int64: int64(*r.BreakEvenYear), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projection_runs
			(id, plan_id, plan_version, source, horizon_months, total_revenue, total_pat, break_even_year, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PlanID, r.PlanVersion, r.Source, r.HorizonMonths,
		r.TotalRevenue, r.TotalPat, breakEven, r.ResultJSON,
		r.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save run for plan %s: %w", r.PlanID, err)
	}
	return r.ID, nil
}

const runColumns = `id, plan_id, plan_version, source, horizon_months, total_revenue, total_pat, break_even_year, result_json, created_at`

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM projection_runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns a plan's runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, planID string, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + runColumns + " FROM projection_runs WHERE plan_id = ? ORDER BY created_at DESC, rowid DESC"
	args := []any{planID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRun returns the newest run of a plan.
func (s *Store) LatestRun(ctx context.Context, planID string) (*RunRecord, error) {
	runs, err := s.ListRuns(ctx, planID, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no runs for plan %s", generic.ErrRunNotFound, planID)
	}
	return &runs[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var r RunRecord
	var breakEven sql.NullInt64
	var createdAt string
	if err := row.Scan(
		&r.ID, &r.PlanID, &r.PlanVersion, &r.Source, &r.HorizonMonths,
		&r.TotalRevenue, &r.TotalPat, &breakEven, &r.ResultJSON, &createdAt,
	); err != nil {
		return RunRecord{}, err
	}
	if breakEven.Valid {
		year := int(breakEven.Int64)
		r.BreakEvenYear = &year
	}
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
