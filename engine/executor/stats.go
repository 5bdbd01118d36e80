package executor

import "sync"

// SampleStats summarizes a sampled prefix of an operator's input.
type SampleStats struct {
	SampledRows  int
	DistinctKeys int
	// EstimatedTotal extrapolates total input size from the sample; equal to
	// SampledRows when the input was exhausted during sampling.
	EstimatedTotal int64
	Exhausted      bool
}

// Statistics is the per-query statistics sink on the execution context.
// Adaptive operators record samples and replan hints here; every operator
// records produced row counts.
type Statistics struct {
	mu          sync.Mutex
	rowCounts   map[string]int64
	samples     map[string]SampleStats
	replanHints map[string]string
	strategies  map[string]string
}

// NewStatistics creates an empty statistics sink.
func NewStatistics() *Statistics {
	return &Statistics{
		rowCounts:   make(map[string]int64),
		samples:     make(map[string]SampleStats),
		replanHints: make(map[string]string),
		strategies:  make(map[string]string),
	}
}

// RecordRows adds n produced rows to operatorID's counter.
func (s *Statistics) RecordRows(operatorID string, n int64) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCounts[operatorID] += n
}

// RowCount returns the produced-row counter for operatorID.
func (s *Statistics) RowCount(operatorID string) int64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rowCounts[operatorID]
}

// RecordSample stores sample statistics for operatorID.
func (s *Statistics) RecordSample(operatorID string, sample SampleStats) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[operatorID] = sample
}

// Sample returns the recorded sample statistics for operatorID.
func (s *Statistics) Sample(operatorID string) (SampleStats, bool) {
	if s == nil {
		return SampleStats{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sample, ok := s.samples[operatorID]
	return sample, ok
}

// RecordStrategy stores the strategy an adaptive operator selected.
func (s *Statistics) RecordStrategy(operatorID, strategy string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies[operatorID] = strategy
}

// Strategy returns the strategy recorded for operatorID.
func (s *Statistics) Strategy(operatorID string) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	strategy, ok := s.strategies[operatorID]
	return strategy, ok
}

// RecordReplanHint notes that observed cardinality diverged from the sampled
// estimate badly enough that a different strategy should be considered on
// the next execution of this subtree.
func (s *Statistics) RecordReplanHint(operatorID, hint string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replanHints[operatorID] = hint
}

// ReplanHint returns the replan hint recorded for operatorID.
func (s *Statistics) ReplanHint(operatorID string) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hint, ok := s.replanHints[operatorID]
	return hint, ok
}
