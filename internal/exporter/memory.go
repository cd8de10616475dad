package exporter

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps tables in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]Table)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, table Table) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[key] = table.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[key]
	if !ok {
		return Table{}, ErrTableNotFound
	}
	return t.Clone(), nil
}

// Keys lists the stored keys, sorted.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.tables))
	for k := range s.tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
