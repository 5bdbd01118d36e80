// Package storage provides table providers: the cache-manager collaborators
// that source base table rows for scans. The engine never reads a storage
// engine directly; it only sees these providers.
package storage

import (
	"sync"

	"github.com/tessera-db/tessera/engine/executor"
)

// MemoryStore is an in-memory table provider, used for tests, demos, and as
// the staging layer in front of a persistent store.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]executor.Row
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]executor.Row)}
}

// Get returns the rows of a named table.
func (s *MemoryStore) Get(table string) ([]executor.Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.tables[table]
	return rows, ok
}

// SetTable replaces the rows of a table.
func (s *MemoryStore) SetTable(table string, rows []executor.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = rows
}

// DropTable removes a table.
func (s *MemoryStore) DropTable(table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, table)
}

// Tables returns the names of all stored tables.
func (s *MemoryStore) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	return names
}
