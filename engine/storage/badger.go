package storage

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tessera-db/tessera/engine/executor"
)

const tableKeyPrefix = "table/"

// BadgerStore is a table provider over a Badger key-value database. Each
// table is stored as one JSON-encoded row list under "table/<name>", which
// suits this engine's workload: scans always read whole tables, and table
// snapshots are immutable for the duration of a query.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (creating if needed) a Badger-backed store at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // engine debug logging is handled elsewhere
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: opening badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Get returns the rows of a named table. Missing tables and decode failures
// both report ok=false: the scan operator treats an unavailable table as
// fatal either way.
func (s *BadgerStore) Get(table string) ([]executor.Row, bool) {
	var rows []executor.Row
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tableKeyPrefix + table))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rows)
		})
	})
	if err != nil {
		return nil, false
	}
	return rows, true
}

// SetTable replaces the rows of a table.
func (s *BadgerStore) SetTable(table string, rows []executor.Row) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("storage: encoding table %s: %w", table, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(tableKeyPrefix+table), data)
	})
	if err != nil {
		return fmt.Errorf("storage: writing table %s: %w", table, err)
	}
	return nil
}

// DropTable removes a table.
func (s *BadgerStore) DropTable(table string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(tableKeyPrefix + table))
	})
	if err != nil {
		return fmt.Errorf("storage: dropping table %s: %w", table, err)
	}
	return nil
}
