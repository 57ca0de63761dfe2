package adapters

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	kits map[string]Record
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{kits: make(map[string]Record)}
}

func (m *Memory) Put(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec.Document = rec.Document.Clone()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kits[rec.ID] = rec
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.kits[id]
	if !ok {
		return Record{}, kitNotFound(id)
	}
	rec.Document = rec.Document.Clone()
	return rec, nil
}

func (m *Memory) List(ctx context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.kits))
	for _, rec := range m.kits {
		out = append(out, Summary{ID: rec.ID, Version: rec.Version, UpdatedAt: rec.UpdatedAt})
	}
	sortSummaries(out)
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.kits[id]; !ok {
		return kitNotFound(id)
	}
	delete(m.kits, id)
	return nil
}

func (m *Memory) Close() error { return nil }

// sortSummaries orders newest first, then by id.
func sortSummaries(s []Summary) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].UpdatedAt.Equal(s[j].UpdatedAt) {
			return s[i].UpdatedAt.After(s[j].UpdatedAt)
		}
		return s[i].ID < s[j].ID
	})
}
