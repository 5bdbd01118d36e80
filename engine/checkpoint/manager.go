// Package checkpoint implements per-operator execution checkpointing and
// failure detection for the fault-tolerant execution layer.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/snappy"
)

// Checkpoint is a persisted snapshot of one operator's progress. State is an
// opaque blob owned by the operator; the manager only serializes it.
type Checkpoint struct {
	OperatorID string                 `json:"operator_id"`
	State      map[string]interface{} `json:"state,omitempty"`
	RowCount   int64                  `json:"row_count"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Manager persists, loads, and clears operator checkpoints as files named by
// operator id. At most one on-disk checkpoint exists per operator.
type Manager struct {
	dir string
	mu  sync.Mutex
}

// NewManager creates a checkpoint manager rooted at dir, creating the
// directory if needed.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		dir = "checkpoints"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: creating %s: %w", dir, err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the checkpoint directory.
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) path(operatorID string) string {
	return filepath.Join(m.dir, operatorID+".checkpoint")
}

// Save writes the checkpoint for cp.OperatorID, replacing any previous one.
// The blob is JSON serialized and snappy compressed.
func (m *Manager) Save(cp Checkpoint) error {
	if cp.OperatorID == "" {
		return fmt.Errorf("checkpoint: empty operator id")
	}
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now()
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("checkpoint: serializing %s: %w", cp.OperatorID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.WriteFile(m.path(cp.OperatorID), snappy.Encode(nil, data), 0o644); err != nil {
		return fmt.Errorf("checkpoint: writing %s: %w", cp.OperatorID, err)
	}
	return nil
}

// Load reads the checkpoint for operatorID. Returns (nil, nil) when no
// checkpoint exists.
func (m *Manager) Load(operatorID string) (*Checkpoint, error) {
	m.mu.Lock()
	raw, err := os.ReadFile(m.path(operatorID))
	m.mu.Unlock()

	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading %s: %w", operatorID, err)
	}

	data, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: decompressing %s: %w", operatorID, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: parsing %s: %w", operatorID, err)
	}
	return &cp, nil
}

// Clear removes the checkpoint for operatorID. Clearing a missing checkpoint
// is not an error.
func (m *Manager) Clear(operatorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := os.Remove(m.path(operatorID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: clearing %s: %w", operatorID, err)
	}
	return nil
}

// Exists reports whether a checkpoint is on disk for operatorID.
func (m *Manager) Exists(operatorID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := os.Stat(m.path(operatorID))
	return err == nil
}
