// internal/registry/memory.go
package registry

import (
	"fmt"
	"maps"
	"sort"
	"sync"
)

// Memory is an in-process registry.
type Memory struct {
	mu      sync.RWMutex
	entries map[int]Entry

	writes int
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[int]Entry)}
}

// Writes counts successful Create and Update calls.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *Memory) Exists(id int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[id]
	return ok, nil
}

func (m *Memory) Get(id int) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Descriptor.Options = maps.Clone(e.Descriptor.Options)
	return e, nil
}

func (m *Memory) Create(id int, name string, d Descriptor) error {
	if id < 0 {
		return fmt.Errorf("registry: negative id %d", id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; ok {
		return fmt.Errorf("registry: entry %d already exists", id)
	}

	d.Options = maps.Clone(d.Options)
	m.entries[id] = Entry{ID: id, Name: name, Descriptor: d}
	m.writes++
	return nil
}

func (m *Memory) Update(id int, d Descriptor, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("registry: update %d: %w", id, ErrNotFound)
	}

	e.Descriptor = d
	e.Descriptor.Options = maps.Clone(d.Options)
	e.Value = value
	m.entries[id] = e
	m.writes++
	return nil
}

func (m *Memory) Delete(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

// List returns all entries ordered by id.
func (m *Memory) List() ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
