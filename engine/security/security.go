// Package security provides the access-control collaborator used by the
// secure execution decorator. It gates table access and masks disallowed
// columns; it never changes relational semantics beyond column filtering.
package security

import "sync"

// DefaultRedaction replaces the value of a masked column.
const DefaultRedaction = "********"

// Manager holds table and column access rules. The zero policy allows
// everything; rules only subtract access.
type Manager struct {
	mu            sync.RWMutex
	deniedTables  map[string]bool
	deniedColumns map[string]map[string]bool // table -> column -> denied
	redaction     string
}

// NewManager creates a manager that allows all access until rules are added.
func NewManager() *Manager {
	return &Manager{
		deniedTables:  make(map[string]bool),
		deniedColumns: make(map[string]map[string]bool),
		redaction:     DefaultRedaction,
	}
}

// DenyTable forbids all access to table.
func (m *Manager) DenyTable(table string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deniedTables[table] = true
}

// AllowTable removes a table denial.
func (m *Manager) AllowTable(table string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deniedTables, table)
}

// TableAllowed reports whether table may be read at all.
func (m *Manager) TableAllowed(table string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.deniedTables[table]
}

// DenyColumn masks column on table in emitted rows.
func (m *Manager) DenyColumn(table, column string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cols, ok := m.deniedColumns[table]
	if !ok {
		cols = make(map[string]bool)
		m.deniedColumns[table] = cols
	}
	cols[column] = true
}

// ColumnAllowed reports whether column may be emitted unmasked for table.
func (m *Manager) ColumnAllowed(table, column string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cols, ok := m.deniedColumns[table]; ok {
		return !cols[column]
	}
	return true
}

// DeniedColumns returns the set of masked columns across the given tables.
func (m *Manager) DeniedColumns(tables []string) map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	denied := make(map[string]bool)
	for _, table := range tables {
		for col, d := range m.deniedColumns[table] {
			if d {
				denied[col] = true
			}
		}
	}
	return denied
}

// SetRedaction overrides the masking string.
func (m *Manager) SetRedaction(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redaction = s
}

// Redaction returns the string substituted for masked column values.
func (m *Manager) Redaction() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.redaction
}
