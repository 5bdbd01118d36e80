package executor

import (
	"fmt"
	"runtime"
	"sync"
)

// WorkerPool provides generic parallel execution over a fixed set of inputs.
// It is intentionally generic so the same pool serves partition-local scans,
// per-partition hash-table builds, and partial aggregation.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a pool with workerCount goroutines per call
// (0 = NumCPU).
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &WorkerPool{workerCount: workerCount}
}

// WorkerCount returns the pool's concurrency.
func (p *WorkerPool) WorkerCount() int {
	return p.workerCount
}

// ExecuteParallel runs operation on every input and returns results in input
// (submission) order, or the first error encountered. All dispatched work
// runs to completion even on error; there is no cancellation in this engine.
func (p *WorkerPool) ExecuteParallel(
	inputs []interface{},
	operation func(interface{}) (interface{}, error),
) ([]interface{}, error) {
	if len(inputs) == 0 {
		return []interface{}{}, nil
	}

	results := make([]interface{}, len(inputs))
	errs := make([]error, len(inputs))

	jobs := make(chan int, len(inputs))
	var wg sync.WaitGroup
	for w := 0; w < p.workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx], errs[idx] = operation(inputs[idx])
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("parallel execution failed at partition %d: %w", i, err)
		}
	}
	return results, nil
}

// PoolSet owns the worker pools of one parallel execution context: Scan for
// partition-local scan and build work, Compute for CPU-bound partial
// aggregation. Callers must Release the set at context teardown; Release is
// idempotent.
type PoolSet struct {
	Scan    *WorkerPool
	Compute *WorkerPool

	mu       sync.Mutex
	released bool
}

// NewPoolSet creates both pools sized to workers (0 = NumCPU).
func NewPoolSet(workers int) *PoolSet {
	return &PoolSet{
		Scan:    NewWorkerPool(workers),
		Compute: NewWorkerPool(workers),
	}
}

// Release marks the set released. Pools here are goroutine-per-call rather
// than persistent OS resources, so release is bookkeeping: using a released
// set is a programming error surfaced by Acquire.
func (s *PoolSet) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
}

// Acquire returns an error if the set was already released.
func (s *PoolSet) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return fmt.Errorf("parallel: pool set already released")
	}
	return nil
}
