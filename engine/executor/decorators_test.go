package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-db/tessera/engine/cache"
	"github.com/tessera-db/tessera/engine/monitor"
	"github.com/tessera-db/tessera/engine/plan"
	"github.com/tessera-db/tessera/engine/security"
)

func scanPlan(table string) *plan.QueryPlan {
	return &plan.QueryPlan{Root: &plan.Node{Op: plan.OpTableScan, Table: table}}
}

func TestCachedReplayAndInvalidation(t *testing.T) {
	provider := testProvider{"employees": employeeRows()}
	ctx := newTestContext(provider)
	ctx.Cache = cache.NewQueryCache(10, time.Minute)
	ctx.Monitor = monitor.NewPerformanceMonitor()

	first, err := Run(scanPlan("employees"), ctx)
	require.NoError(t, err)
	require.Len(t, first, 5)

	// Mutate the provider: a hit must replay the cached rows, not rescan
	provider["employees"] = nil

	second, err := Run(scanPlan("employees"), ctx)
	require.NoError(t, err)
	assert.Equal(t, multiset(first), multiset(second))

	snap := ctx.Monitor.Snapshot()
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.CacheMisses)

	// Invalidating the dependency forces a rescan
	ctx.Cache.Invalidate("employees")
	third, err := Run(scanPlan("employees"), ctx)
	require.NoError(t, err)
	assert.Empty(t, third)
}

func TestCacheKeysDifferPerSubtree(t *testing.T) {
	ctx := newTestContext(testProvider{"a": {{"v": 1}}, "b": {{"v": 2}}})
	ctx.Cache = cache.NewQueryCache(10, time.Minute)

	rowsA, err := Run(scanPlan("a"), ctx)
	require.NoError(t, err)
	rowsB, err := Run(scanPlan("b"), ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, rowsA[0]["v"])
	assert.Equal(t, 2, rowsB[0]["v"])
}

func TestSecureDeniedTable(t *testing.T) {
	ctx := newTestContext(testProvider{"employees": employeeRows()})
	ctx.Security = security.NewManager()
	ctx.Security.DenyTable("employees")

	_, err := Run(scanPlan("employees"), ctx)
	require.Error(t, err)
	assert.True(t, IsPermissionError(err))

	ctx.Security.AllowTable("employees")
	rows, err := Run(scanPlan("employees"), ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestSecureColumnMasking(t *testing.T) {
	ctx := newTestContext(testProvider{"employees": employeeRows()})
	ctx.Security = security.NewManager()
	ctx.Security.DenyColumn("employees", "salary")

	rows, err := Run(scanPlan("employees"), ctx)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for _, row := range rows {
		assert.Equal(t, security.DefaultRedaction, row["salary"])
		assert.NotEqual(t, security.DefaultRedaction, row["name"])
	}
}

func TestSecureMaskingAppliesToCacheReplay(t *testing.T) {
	ctx := newTestContext(testProvider{"employees": employeeRows()})
	ctx.Cache = cache.NewQueryCache(10, time.Minute)
	ctx.Security = security.NewManager()
	ctx.Security.DenyColumn("employees", "salary")

	_, err := Run(scanPlan("employees"), ctx)
	require.NoError(t, err)

	// Policy is enforced per execution: cached rows stay unmasked, the replay
	// is masked again.
	rows, err := Run(scanPlan("employees"), ctx)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, security.DefaultRedaction, row["salary"])
	}
}

func TestSecureDeniedJoinSideIsRejected(t *testing.T) {
	ctx := newTestContext(testProvider{
		"employees":   employeeRows(),
		"departments": departmentRows(),
	})
	ctx.Security = security.NewManager()
	ctx.Security.DenyTable("departments")

	_, err := Run(&plan.QueryPlan{Root: joinNode(JoinTypeHash)}, ctx)
	require.Error(t, err)
	assert.True(t, IsPermissionError(err))
}

func TestMonitoredCountsRowsAndQueries(t *testing.T) {
	ctx := newTestContext(testProvider{"employees": employeeRows()})
	ctx.Monitor = monitor.NewPerformanceMonitor()

	_, err := Run(scanPlan("employees"), ctx)
	require.NoError(t, err)

	snap := ctx.Monitor.Snapshot()
	assert.Equal(t, int64(5), snap.RowsProcessed)
	assert.Equal(t, int64(1), snap.QueriesExecuted)

	gauge, ok := ctx.Monitor.Gauge("table_scan_rows")
	require.True(t, ok)
	assert.Equal(t, 5.0, gauge)
}

func TestCacheHitRate(t *testing.T) {
	m := monitor.NewPerformanceMonitor()
	assert.Equal(t, 0.0, m.CacheHitRate())
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()
	assert.InDelta(t, 2.0/3.0, m.CacheHitRate(), 1e-9)
}
