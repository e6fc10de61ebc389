package db

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("record not found")

// Repository stores opaque records grouped by collection.
type Repository interface {
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Set(ctx context.Context, collection, id string, data []byte) error
	List(ctx context.Context, collection string) ([][]byte, error)
}

// MemoryRepository is the in-process Repository used for practice wallets
// and for running without Redis or Postgres.
type MemoryRepository struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		collections: make(map[string]map[string][]byte),
	}
}

func (m *MemoryRepository) Get(_ context.Context, collection, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryRepository) Set(_ context.Context, collection, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		c = make(map[string][]byte)
		m.collections[collection] = c
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	c[id] = stored
	return nil
}

// List returns the collection's records ordered by id.
func (m *MemoryRepository) List(_ context.Context, collection string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := m.collections[collection]
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		data := make([]byte, len(c[id]))
		copy(data, c[id])
		out = append(out, data)
	}
	return out, nil
}
