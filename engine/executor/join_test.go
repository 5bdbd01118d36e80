package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-db/tessera/engine/plan"
)

func openJoin(t *testing.T, joinType string, left, right []Row) []Row {
	t.Helper()
	ctx := newTestContext(nil)
	node := joinNode(joinType)

	op, err := NewJoin(node, ctx, newStaticOp(ctx, left), newStaticOp(ctx, right))
	require.NoError(t, err)

	it, err := op.Open()
	require.NoError(t, err)
	rows, err := Collect(it)
	require.NoError(t, err)
	return rows
}

func TestHashJoinBasic(t *testing.T) {
	rows := openJoin(t, JoinTypeHash, employeeRows(), departmentRows())

	expected := []Row{
		{"name": "Alice", "dept_id": 1, "salary": 50000, "id": 1, "dept": "HR"},
		{"name": "Bob", "dept_id": 1, "salary": 60000, "id": 1, "dept": "HR"},
		{"name": "Carol", "dept_id": 2, "salary": 70000, "id": 2, "dept": "IT"},
	}
	assert.Equal(t, multiset(expected), multiset(rows))
}

func TestJoinAlgorithmsAgree(t *testing.T) {
	left := employeeRows()
	right := departmentRows()

	reference := multiset(openJoin(t, JoinTypeNestedLoop, left, right))
	require.Len(t, reference, 3)

	for _, joinType := range []string{JoinTypeHash, JoinTypeMerge, JoinTypePartitionedHash} {
		rows := openJoin(t, joinType, left, right)
		assert.Equal(t, reference, multiset(rows), "join type %s must match nested loop", joinType)
	}
}

func TestJoinNullKeysNeverMatch(t *testing.T) {
	left := []Row{{"dept_id": nil, "name": "Erin"}}
	right := []Row{{"id": nil, "dept": "Ghost"}}

	for _, joinType := range []string{JoinTypeNestedLoop, JoinTypeHash, JoinTypeMerge, JoinTypePartitionedHash} {
		rows := openJoin(t, joinType, left, right)
		assert.Empty(t, rows, "join type %s must not match null keys", joinType)
	}
}

func TestJoinDisjointKeys(t *testing.T) {
	left := []Row{{"dept_id": 10}, {"dept_id": 20}}
	right := []Row{{"id": 30}, {"id": 40}}

	for _, joinType := range []string{JoinTypeNestedLoop, JoinTypeHash, JoinTypeMerge, JoinTypePartitionedHash} {
		assert.Empty(t, openJoin(t, joinType, left, right))
	}
}

func TestJoinNumericKeyCanonicalization(t *testing.T) {
	// int 1 on one side joins float64 1.0 on the other
	left := []Row{{"dept_id": 1, "name": "Alice"}}
	right := []Row{{"id": 1.0, "dept": "HR"}}

	for _, joinType := range []string{JoinTypeHash, JoinTypeMerge, JoinTypePartitionedHash} {
		rows := openJoin(t, joinType, left, right)
		require.Len(t, rows, 1, "join type %s", joinType)
		assert.Equal(t, "HR", rows[0]["dept"])
	}
}

func TestJoinRightOverwritesLeft(t *testing.T) {
	left := []Row{{"dept_id": 1, "region": "east"}}
	right := []Row{{"id": 1, "region": "west"}}

	rows := openJoin(t, JoinTypeNestedLoop, left, right)
	require.Len(t, rows, 1)
	assert.Equal(t, "west", rows[0]["region"])
}

func TestJoinDuplicateKeysMultiply(t *testing.T) {
	left := []Row{{"dept_id": 1, "n": "a"}, {"dept_id": 1, "n": "b"}}
	right := []Row{{"id": 1, "d": "x"}, {"id": 1, "d": "y"}}

	for _, joinType := range []string{JoinTypeNestedLoop, JoinTypeHash, JoinTypeMerge, JoinTypePartitionedHash} {
		rows := openJoin(t, joinType, left, right)
		assert.Len(t, rows, 4, "join type %s must cross-multiply matching groups", joinType)
	}
}

func TestIndexJoin(t *testing.T) {
	ctx := newTestContext(nil)
	ctx.Indexes = map[string]JoinIndex{
		"departments": BuildJoinIndex(departmentRows(), "id"),
	}
	node := joinNode(JoinTypeIndex)

	op, err := NewJoin(node, ctx, newStaticOp(ctx, employeeRows()), newStaticOp(ctx, departmentRows()))
	require.NoError(t, err)

	it, err := op.Open()
	require.NoError(t, err)
	rows, err := Collect(it)
	require.NoError(t, err)

	reference := openJoin(t, JoinTypeHash, employeeRows(), departmentRows())
	assert.Equal(t, multiset(reference), multiset(rows))
}

func TestIndexJoinWithoutIndexIsConfigError(t *testing.T) {
	ctx := newTestContext(nil)
	node := joinNode(JoinTypeIndex)

	_, err := NewJoin(node, ctx, newStaticOp(ctx, nil), newStaticOp(ctx, nil))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestUnknownJoinTypeIsConfigError(t *testing.T) {
	ctx := newTestContext(nil)
	node := joinNode("cartesian")

	_, err := NewJoin(node, ctx, newStaticOp(ctx, nil), newStaticOp(ctx, nil))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestJoinWithoutConditionIsConfigError(t *testing.T) {
	ctx := newTestContext(nil)
	node := &plan.Node{Op: plan.OpJoin, JoinType: JoinTypeHash}

	_, err := NewJoin(node, ctx, newStaticOp(ctx, nil), newStaticOp(ctx, nil))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}
