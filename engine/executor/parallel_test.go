package executor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-db/tessera/engine/plan"
)

func newParallelContext(tables testProvider) *Context {
	ctx := newTestContext(tables)
	ctx.Pools = NewPoolSet(4)
	return ctx
}

func TestWorkerPoolPreservesSubmissionOrder(t *testing.T) {
	pool := NewWorkerPool(8)

	inputs := make([]interface{}, 100)
	for i := range inputs {
		inputs[i] = i
	}
	results, err := pool.ExecuteParallel(inputs, func(in interface{}) (interface{}, error) {
		return in.(int) * 2, nil
	})
	require.NoError(t, err)

	for i, res := range results {
		assert.Equal(t, i*2, res.(int))
	}
}

func TestWorkerPoolReportsFirstError(t *testing.T) {
	pool := NewWorkerPool(4)

	inputs := []interface{}{0, 1, 2, 3}
	_, err := pool.ExecuteParallel(inputs, func(in interface{}) (interface{}, error) {
		if in.(int) == 2 {
			return nil, fmt.Errorf("partition blew up")
		}
		return in, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partition 2")
	assert.Contains(t, err.Error(), "partition blew up")
}

func TestParallelScanMatchesSequential(t *testing.T) {
	rows := make([]Row, 200)
	for i := range rows {
		rows[i] = Row{"n": i, "extra": "x"}
	}
	node := &plan.Node{Op: plan.OpTableScan, Table: "t", Columns: []string{"n"}}

	seqCtx := newTestContext(testProvider{"t": rows})
	seq, err := Run(&plan.QueryPlan{Root: node}, seqCtx)
	require.NoError(t, err)

	parCtx := newParallelContext(testProvider{"t": rows})
	defer parCtx.Close()
	par, err := Run(&plan.QueryPlan{Root: node}, parCtx)
	require.NoError(t, err)

	assert.Equal(t, multiset(seq), multiset(par))
	require.Len(t, par, 200)
	_, hasExtra := par[0]["extra"]
	assert.False(t, hasExtra)
}

func TestParallelHashJoinMatchesSequential(t *testing.T) {
	tables := testProvider{
		"employees":   employeeRows(),
		"departments": departmentRows(),
	}
	node := joinNode(JoinTypeHash)

	seq, err := Run(&plan.QueryPlan{Root: node}, newTestContext(tables))
	require.NoError(t, err)

	parCtx := newParallelContext(tables)
	defer parCtx.Close()
	par, err := Run(&plan.QueryPlan{Root: node}, parCtx)
	require.NoError(t, err)

	assert.Equal(t, multiset(seq), multiset(par))
}

func TestParallelAggregateMatchesStandard(t *testing.T) {
	rows := make([]Row, 1000)
	for i := range rows {
		rows[i] = Row{"dept": fmt.Sprintf("d%d", i%7), "salary": i}
	}
	node := &plan.Node{
		Op:      plan.OpAggregate,
		GroupBy: []string{"dept"},
		Aggregates: []plan.AggregateSpec{
			{Function: "sum", Column: "salary", Alias: "total"},
			{Function: "count", Alias: "n"},
			{Function: "avg", Column: "salary", Alias: "mean"},
			{Function: "min", Column: "salary", Alias: "lo"},
			{Function: "max", Column: "salary", Alias: "hi"},
		},
	}

	seqCtx := newTestContext(nil)
	seqOp, err := NewAggregate(node, seqCtx, newStaticOp(seqCtx, rows))
	require.NoError(t, err)
	seqIt, err := seqOp.Open()
	require.NoError(t, err)
	seq, err := Collect(seqIt)
	require.NoError(t, err)

	parCtx := newParallelContext(nil)
	defer parCtx.Close()
	parOp, err := NewParallelAggregate(node, parCtx, newStaticOp(parCtx, rows))
	require.NoError(t, err)
	parIt, err := parOp.Open()
	require.NoError(t, err)
	par, err := Collect(parIt)
	require.NoError(t, err)

	assert.Equal(t, multiset(seq), multiset(par))
}

func TestParallelAggregateRejectsNonMergeable(t *testing.T) {
	ctx := newParallelContext(nil)
	defer ctx.Close()

	node := &plan.Node{
		Op:         plan.OpAggregate,
		Aggregates: []plan.AggregateSpec{{Function: "median", Column: "v"}},
	}
	_, err := NewParallelAggregate(node, ctx, newStaticOp(ctx, nil))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestBuilderFallsBackForNonMergeableAggregates(t *testing.T) {
	ctx := newParallelContext(testProvider{"t": {{"v": 1.0}, {"v": 2.0}, {"v": 3.0}}})
	defer ctx.Close()

	rows, err := Run(&plan.QueryPlan{Root: &plan.Node{
		Op:         plan.OpAggregate,
		Aggregates: []plan.AggregateSpec{{Function: "median", Column: "v", Alias: "med"}},
		Children:   []*plan.Node{{Op: plan.OpTableScan, Table: "t"}},
	}}, ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2.0, rows[0]["med"])
}

func TestReleasedPoolsRejectWork(t *testing.T) {
	ctx := newParallelContext(testProvider{"t": {{"a": 1}}})
	ctx.Pools.Release()

	_, err := Run(scanPlan("t"), ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "released")
}

func TestPoolReleaseIsIdempotent(t *testing.T) {
	pools := NewPoolSet(2)
	pools.Release()
	pools.Release()
	assert.Error(t, pools.Acquire())
}
