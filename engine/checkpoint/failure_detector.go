package checkpoint

import (
	"sync"
	"time"
)

// RecoveryFunc is invoked when an operator's failure count crosses the
// detector's threshold. It runs synchronously on the failing goroutine and
// never suppresses the error that triggered it.
type RecoveryFunc func(operatorID string, failureCount int)

type failureState struct {
	count       int
	lastFailure time.Time
}

// FailureDetector counts per-operator failures within a rolling recovery
// window. A failure landing outside the window resets the count to 1;
// crossing the threshold dispatches the registered recovery callback exactly
// once per crossing.
type FailureDetector struct {
	mu        sync.Mutex
	states    map[string]*failureState
	threshold int
	window    time.Duration
	onRecover RecoveryFunc
}

// NewFailureDetector creates a detector with the given threshold and rolling
// window. Zero values fall back to the defaults (3 failures, 5 minutes).
func NewFailureDetector(threshold int, window time.Duration) *FailureDetector {
	if threshold <= 0 {
		threshold = 3
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &FailureDetector{
		states:    make(map[string]*failureState),
		threshold: threshold,
		window:    window,
	}
}

// OnRecovery registers the callback dispatched on threshold crossings.
func (d *FailureDetector) OnRecovery(fn RecoveryFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onRecover = fn
}

// RecordFailure records one failure for operatorID and returns true when this
// failure crossed the threshold. The recovery callback, if registered, fires
// on the crossing itself, not on subsequent failures beyond it.
func (d *FailureDetector) RecordFailure(operatorID string) bool {
	d.mu.Lock()

	now := time.Now()
	state, ok := d.states[operatorID]
	if !ok || now.Sub(state.lastFailure) > d.window {
		state = &failureState{}
		d.states[operatorID] = state
	}
	state.count++
	state.lastFailure = now

	crossed := state.count == d.threshold
	count := state.count
	onRecover := d.onRecover
	d.mu.Unlock()

	if crossed && onRecover != nil {
		onRecover(operatorID, count)
	}
	return crossed
}

// Count returns the current failure count for operatorID.
func (d *FailureDetector) Count(operatorID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if state, ok := d.states[operatorID]; ok {
		return state.count
	}
	return 0
}

// Reset clears the failure state for operatorID.
func (d *FailureDetector) Reset(operatorID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.states, operatorID)
}
