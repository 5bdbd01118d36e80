package executor

import "time"

// Options controls execution behavior. The zero value is not usable; start
// from DefaultOptions.
type Options struct {
	// Adaptive execution
	EnableAdaptive      bool
	SampleSize          int
	AdaptationThreshold float64

	// Fault tolerance
	CheckpointInterval int
	MaxRetries         int
	RetryBackoff       time.Duration

	// Parallel execution
	PartitionCount int
	MaxWorkers     int // 0 = NumCPU

	// Caching
	CacheMaxSize int
	CacheTTL     time.Duration

	// Debug logging via guarded printf; off in production
	EnableDebugLogging bool
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		EnableAdaptive:      false,
		SampleSize:          1000,
		AdaptationThreshold: 0.5,
		CheckpointInterval:  1000,
		MaxRetries:          3,
		RetryBackoff:        time.Second,
		PartitionCount:      16,
		MaxWorkers:          0,
		CacheMaxSize:        100,
		CacheTTL:            5 * time.Minute,
		EnableDebugLogging:  false,
	}
}
