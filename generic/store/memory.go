// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/projection-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

var _ generic.Store = (*Memory)(nil)

type Memory struct {
	mu     sync.RWMutex
	plans  map[string]generic.PlanRecord
	runs   map[string]generic.RunRecord
	byPlan map[string][]string // run ids, oldest first
}

func NewMemory() *Memory {
	return &Memory{
		plans:  make(map[string]generic.PlanRecord),
		runs:   make(map[string]generic.RunRecord),
		byPlan: make(map[string][]string),
	}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// Reset removes every plan and run.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plans = make(map[string]generic.PlanRecord)
	m.runs = make(map[string]generic.RunRecord)
	m.byPlan = make(map[string][]string)
	return nil
}

// =============================================================================
// PLANS
// =============================================================================

// SavePlan inserts a plan, or replaces it and bumps its version.
func (m *Memory) SavePlan(_ context.Context, p generic.PlanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.plans[p.ID]; ok {
		p.Version = existing.Version + 1
		p.CreatedAt = existing.CreatedAt
	} else {
		p.Version = 1
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.plans[p.ID] = p
	return nil
}

func (m *Memory) GetPlan(_ context.Context, id string) (*generic.PlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plans[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrPlanNotFound, id)
	}
	return &p, nil
}

func (m *Memory) ListPlans(_ context.Context) ([]generic.PlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.PlanRecord, 0, len(m.plans))
	for _, p := range m.plans {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeletePlan removes a plan and its runs.
func (m *Memory) DeletePlan(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[id]; !ok {
		return fmt.Errorf("%w: %s", generic.ErrPlanNotFound, id)
	}
	for _, runID := range m.byPlan[id] {
		delete(m.runs, runID)
	}
	delete(m.byPlan, id)
	delete(m.plans, id)
	return nil
}

// =============================================================================
// RUNS
// =============================================================================

// SaveRun stores a run. Runs with equal CreatedAt keep insertion order.
func (m *Memory) SaveRun(_ context.Context, r generic.RunRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[r.PlanID]; !ok {
		return "", fmt.Errorf("%w: %s", generic.ErrPlanNotFound, r.PlanID)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, dup := m.runs[r.ID]; dup {
		return "", fmt.Errorf("run %s already exists", r.ID)
	}
	if r.Source == "" {
		r.Source = generic.RunSourceAPI
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.BreakEvenYear = copyInt(r.BreakEvenYear)

	ids := m.byPlan[r.PlanID]
	i := sort.Search(len(ids), func(i int) bool {
		return m.runs[ids[i]].CreatedAt.After(r.CreatedAt)
	})
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = r.ID
	m.byPlan[r.PlanID] = ids
	m.runs[r.ID] = r
	return r.ID, nil
}

func (m *Memory) GetRun(_ context.Context, id string) (*generic.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrRunNotFound, id)
	}
	r.BreakEvenYear = copyInt(r.BreakEvenYear)
	return &r, nil
}

// ListRuns returns a plan's runs, newest first. limit <= 0 returns all.
func (m *Memory) ListRuns(_ context.Context, planID string, limit int) ([]generic.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byPlan[planID]
	n := len(ids)
	if limit > 0 && limit < n {
		n = limit
	}
	var result []generic.RunRecord
	for i := len(ids) - 1; i >= len(ids)-n; i-- {
		r := m.runs[ids[i]]
		r.BreakEvenYear = copyInt(r.BreakEvenYear)
		result = append(result, r)
	}
	return result, nil
}

func (m *Memory) LatestRun(ctx context.Context, planID string) (*generic.RunRecord, error) {
	runs, err := m.ListRuns(ctx, planID, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no runs for plan %s", generic.ErrRunNotFound, planID)
	}
	return &runs[0], nil
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
