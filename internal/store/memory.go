package store

import (
	"context"
	"sort"
	"sync"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/table"
)

// Memory is an in-process FileStore for tests and dry runs
type Memory struct {
	mu   sync.RWMutex
	sets map[string]*table.Table
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{sets: make(map[string]*table.Table)}
}

func (m *Memory) Save(_ context.Context, name string, t *table.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[name] = t
	return nil
}

func (m *Memory) Load(_ context.Context, name string) (*table.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.sets[name]
	if !ok {
		return nil, &contracts.DatasetNotFoundError{Name: name}
	}
	return t, nil
}

// Names lists the stored datasets
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sets))
	for n := range m.sets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// List reports the calculated datasets. Path and Size stay empty.
func (m *Memory) List() ([]DatasetInfo, error) {
	var out []DatasetInfo
	for _, n := range m.Names() {
		if contracts.IsCalculated(n) {
			out = append(out, DatasetInfo{Name: n})
		}
	}
	return out, nil
}
