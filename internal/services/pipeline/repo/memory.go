package repo

import (
	"context"
	"slices"
	"sync"

	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/services/pipeline/domain"
)

// Memory is an in-process domain.Ledger that keeps the newest Keep runs
type Memory struct {
	mu   sync.Mutex
	keep int
	runs []domain.Run // oldest first
}

// NewMemory returns a memory ledger; keep <=0 -> 50
func NewMemory(keep int) *Memory {
	if keep <= 0 {
		keep = 50
	}
	return &Memory{keep: keep}
}

func (m *Memory) find(id string) int {
	for i := len(m.runs) - 1; i >= 0; i-- {
		if m.runs[i].ID == id {
			return i
		}
	}
	return -1
}

// StartRun stores a new run, dropping the oldest past the cap
func (m *Memory) StartRun(_ context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.Stages = nil
	if i := m.find(run.ID); i >= 0 {
		m.runs[i] = run
		return nil
	}
	m.runs = append(m.runs, run)
	if over := len(m.runs) - m.keep; over > 0 {
		m.runs = slices.Delete(m.runs, 0, over)
	}
	return nil
}

// RecordStage appends a stage to a known run
func (m *Memory) RecordStage(_ context.Context, runID string, st domain.StageResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.find(runID)
	if i < 0 {
		return perr.NotFoundf("ledger: run %s not found", runID)
	}
	m.runs[i].Stages = append(m.runs[i].Stages, st)
	return nil
}

// FinishRun stores the final status of a known run
func (m *Memory) FinishRun(_ context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.find(run.ID)
	if i < 0 {
		return perr.NotFoundf("ledger: run %s not found", run.ID)
	}
	m.runs[i].Status = run.Status
	m.runs[i].Finished = run.Finished
	m.runs[i].Err = run.Err
	return nil
}

// Recent returns up to limit runs, newest first
func (m *Memory) Recent(_ context.Context, limit int) ([]domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	out := make([]domain.Run, 0, min(limit, len(m.runs)))
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, clone(m.runs[i]))
	}
	return out, nil
}

// Get returns one run by id
func (m *Memory) Get(_ context.Context, id string) (domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.find(id)
	if i < 0 {
		return domain.Run{}, perr.NotFoundf("ledger: run %s not found", id)
	}
	return clone(m.runs[i]), nil
}

func clone(r domain.Run) domain.Run {
	r.Stages = slices.Clone(r.Stages)
	return r
}
