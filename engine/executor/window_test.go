package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-db/tessera/engine/plan"
)

func runWindow(t *testing.T, node *plan.Node, input []Row) []Row {
	t.Helper()
	ctx := newTestContext(nil)
	op, err := NewWindow(node, ctx, newStaticOp(ctx, input))
	require.NoError(t, err)
	it, err := op.Open()
	require.NoError(t, err)
	rows, err := Collect(it)
	require.NoError(t, err)
	return rows
}

func windowValues(rows []Row, column string) []interface{} {
	out := make([]interface{}, len(rows))
	for i, row := range rows {
		out[i] = row[column]
	}
	return out
}

func TestRankingFunctions(t *testing.T) {
	input := []Row{{"v": 10}, {"v": 10}, {"v": 20}}
	node := &plan.Node{
		Op:      plan.OpWindow,
		OrderBy: []string{"v"},
		Windows: []plan.WindowSpec{
			{Function: "rank", Alias: "r"},
			{Function: "dense_rank", Alias: "dr"},
			{Function: "row_number", Alias: "rn"},
		},
	}
	rows := runWindow(t, node, input)
	require.Len(t, rows, 3)

	assert.Equal(t, []interface{}{int64(1), int64(1), int64(3)}, windowValues(rows, "r"))
	assert.Equal(t, []interface{}{int64(1), int64(1), int64(2)}, windowValues(rows, "dr"))
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, windowValues(rows, "rn"))
}

func TestRankWithoutOrderByDegenerates(t *testing.T) {
	input := []Row{{"v": 10}, {"v": 30}, {"v": 20}}
	node := &plan.Node{
		Op: plan.OpWindow,
		Windows: []plan.WindowSpec{
			{Function: "rank", Alias: "r"},
			{Function: "row_number", Alias: "rn"},
		},
	}
	rows := runWindow(t, node, input)

	// Every row ties, so rank is 1 everywhere; row_number still numbers in
	// arrival order.
	assert.Equal(t, []interface{}{int64(1), int64(1), int64(1)}, windowValues(rows, "r"))
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, windowValues(rows, "rn"))
	assert.Equal(t, []interface{}{10, 30, 20}, windowValues(rows, "v"))
}

func TestLeadLag(t *testing.T) {
	input := []Row{{"v": 1}, {"v": 2}, {"v": 3}}
	node := &plan.Node{
		Op:      plan.OpWindow,
		OrderBy: []string{"v"},
		Windows: []plan.WindowSpec{
			{Function: "lead", Alias: "next", Params: map[string]interface{}{"column": "v", "default": -1}},
			{Function: "lag", Alias: "prev", Params: map[string]interface{}{"column": "v"}},
			{Function: "lead", Alias: "next2", Params: map[string]interface{}{"column": "v", "offset": 2}},
		},
	}
	rows := runWindow(t, node, input)

	assert.Equal(t, []interface{}{2, 3, -1}, windowValues(rows, "next"))
	assert.Equal(t, []interface{}{nil, 1, 2}, windowValues(rows, "prev"))
	assert.Equal(t, []interface{}{3, nil, nil}, windowValues(rows, "next2"))
}

func TestFirstLastValue(t *testing.T) {
	input := []Row{{"v": 3}, {"v": 1}, {"v": 2}}
	node := &plan.Node{
		Op:      plan.OpWindow,
		OrderBy: []string{"v"},
		Windows: []plan.WindowSpec{
			{Function: "first_value", Alias: "first", Params: map[string]interface{}{"column": "v"}},
			{Function: "last_value", Alias: "last", Params: map[string]interface{}{"column": "v"}},
		},
	}
	rows := runWindow(t, node, input)

	assert.Equal(t, []interface{}{1, 1, 1}, windowValues(rows, "first"))
	assert.Equal(t, []interface{}{3, 3, 3}, windowValues(rows, "last"))
}

func TestNtileBucketSizes(t *testing.T) {
	input := numericRows("v", 1, 2, 3, 4, 5, 6, 7)
	node := &plan.Node{
		Op:      plan.OpWindow,
		OrderBy: []string{"v"},
		Windows: []plan.WindowSpec{
			{Function: "ntile", Alias: "bucket", Params: map[string]interface{}{"n": 3}},
		},
	}
	rows := runWindow(t, node, input)

	// 7 rows over 3 buckets: the first 7 mod 3 buckets take the extra row
	sizes := map[int64]int{}
	for _, row := range rows {
		sizes[row["bucket"].(int64)]++
	}
	assert.Equal(t, map[int64]int{1: 3, 2: 2, 3: 2}, sizes)
}

func TestWindowPartitioning(t *testing.T) {
	input := []Row{
		{"dept": "HR", "salary": 60000},
		{"dept": "IT", "salary": 70000},
		{"dept": "HR", "salary": 50000},
	}
	node := &plan.Node{
		Op:          plan.OpWindow,
		PartitionBy: []string{"dept"},
		OrderBy:     []string{"salary"},
		Windows:     []plan.WindowSpec{{Function: "row_number", Alias: "rn"}},
	}
	rows := runWindow(t, node, input)
	require.Len(t, rows, 3)

	// Partitions emit in first-seen order, sorted within each partition
	assert.Equal(t, Row{"dept": "HR", "salary": 50000, "rn": int64(1)}, rows[0])
	assert.Equal(t, Row{"dept": "HR", "salary": 60000, "rn": int64(2)}, rows[1])
	assert.Equal(t, Row{"dept": "IT", "salary": 70000, "rn": int64(1)}, rows[2])
}

func TestWindowDoesNotMutateSourceRows(t *testing.T) {
	input := []Row{{"v": 1}}
	node := &plan.Node{
		Op:      plan.OpWindow,
		Windows: []plan.WindowSpec{{Function: "row_number", Alias: "rn"}},
	}
	runWindow(t, node, input)
	_, ok := input[0]["rn"]
	assert.False(t, ok, "source rows must stay untouched")
}

func TestWindowValidationErrors(t *testing.T) {
	ctx := newTestContext(nil)

	_, err := NewWindow(&plan.Node{
		Op:      plan.OpWindow,
		Windows: []plan.WindowSpec{{Function: "percent_rank"}},
	}, ctx, newStaticOp(ctx, nil))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	_, err = NewWindow(&plan.Node{
		Op:      plan.OpWindow,
		Windows: []plan.WindowSpec{{Function: "ntile"}},
	}, ctx, newStaticOp(ctx, nil))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}
