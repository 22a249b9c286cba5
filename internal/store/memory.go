package store

import (
	"context"
	"slices"
	"sync"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/models"
)

// Memory keeps drafts in process memory, matching the baseline lifetime of
// the data. Values are copied on the way in and out so callers cannot mutate
// stored state behind the orchestrator's back.
type Memory struct {
	mu     sync.RWMutex
	drafts map[string]models.Draft
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{drafts: make(map[string]models.Draft)}
}

func (m *Memory) Put(_ context.Context, d *models.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[d.ID] = clone(*d)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*models.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(d)
	return &out, nil
}

func (m *Memory) Update(_ context.Context, d *models.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[d.ID]; !ok {
		return ErrNotFound
	}
	m.drafts[d.ID] = clone(*d)
	return nil
}

func (m *Memory) List(_ context.Context) ([]models.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Draft, 0, len(m.drafts))
	for _, d := range m.drafts {
		out = append(out, clone(d))
	}
	slices.SortFunc(out, func(a, b models.Draft) int {
		return a.ReferenceDate.Compare(b.ReferenceDate)
	})
	return out, nil
}

func (m *Memory) Close() error { return nil }

func clone(d models.Draft) models.Draft {
	d.Topics = slices.Clone(d.Topics)
	return d
}
