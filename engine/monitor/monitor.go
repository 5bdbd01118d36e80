// Package monitor provides the performance-monitoring collaborator attached
// to execution contexts by the monitoring decorator.
package monitor

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics is a point-in-time snapshot of monitor state.
type Metrics struct {
	RowsProcessed   int64
	QueriesExecuted int64
	CacheHits       int64
	CacheMisses     int64
	TotalLatency    time.Duration
	Gauges          map[string]float64
}

// PerformanceMonitor collects throughput, latency, and cache-hit metrics from
// monitored operators. Counter updates use atomics so concurrent operator
// trees can share one monitor; gauges take the mutex.
type PerformanceMonitor struct {
	rowsProcessed   int64
	queriesExecuted int64
	cacheHits       int64
	cacheMisses     int64
	latencyNanos    int64

	mu     sync.Mutex
	gauges map[string]float64
}

// NewPerformanceMonitor creates an empty monitor.
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{
		gauges: make(map[string]float64),
	}
}

// RecordRows adds n to the processed-row counter.
func (m *PerformanceMonitor) RecordRows(n int64) {
	atomic.AddInt64(&m.rowsProcessed, n)
}

// RecordQuery records one completed query and its wall-clock latency.
func (m *PerformanceMonitor) RecordQuery(latency time.Duration) {
	atomic.AddInt64(&m.queriesExecuted, 1)
	atomic.AddInt64(&m.latencyNanos, int64(latency))
}

// RecordCacheHit increments the cache-hit counter.
func (m *PerformanceMonitor) RecordCacheHit() {
	atomic.AddInt64(&m.cacheHits, 1)
}

// RecordCacheMiss increments the cache-miss counter.
func (m *PerformanceMonitor) RecordCacheMiss() {
	atomic.AddInt64(&m.cacheMisses, 1)
}

// UpdateGauge sets a named gauge to value.
func (m *PerformanceMonitor) UpdateGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
}

// Gauge returns the current value of a named gauge.
func (m *PerformanceMonitor) Gauge(name string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.gauges[name]
	return v, ok
}

// CacheHitRate returns hits/(hits+misses), or 0 when nothing was recorded.
func (m *PerformanceMonitor) CacheHitRate() float64 {
	hits := atomic.LoadInt64(&m.cacheHits)
	misses := atomic.LoadInt64(&m.cacheMisses)
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Snapshot returns a copy of all metrics.
func (m *PerformanceMonitor) Snapshot() Metrics {
	m.mu.Lock()
	gauges := make(map[string]float64, len(m.gauges))
	for k, v := range m.gauges {
		gauges[k] = v
	}
	m.mu.Unlock()

	return Metrics{
		RowsProcessed:   atomic.LoadInt64(&m.rowsProcessed),
		QueriesExecuted: atomic.LoadInt64(&m.queriesExecuted),
		CacheHits:       atomic.LoadInt64(&m.cacheHits),
		CacheMisses:     atomic.LoadInt64(&m.cacheMisses),
		TotalLatency:    time.Duration(atomic.LoadInt64(&m.latencyNanos)),
		Gauges:          gauges,
	}
}
