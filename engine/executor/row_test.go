package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompareValuesTotalOrder(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	cases := []struct {
		a, b interface{}
		want int
	}{
		{nil, nil, 0},
		{nil, 1, -1},
		{1, nil, 1},
		{1, 2, -1},
		{2.5, 2, 1},
		{int64(3), 3.0, 0}, // numeric widths compare by value
		{false, true, -1},
		{true, true, 0},
		{"a", "b", -1},
		{"b", "b", 0},
		{earlier, later, -1},
		{later, later, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, compareValues(tc.a, tc.b), "compare(%v, %v)", tc.a, tc.b)
	}
}

func TestJoinKeyCanonicalizesNumerics(t *testing.T) {
	assert.Equal(t, joinKey(int32(7)), joinKey(7.0))
	assert.Equal(t, joinKey(uint8(7)), joinKey(int64(7)))
	assert.Equal(t, "x", joinKey("x"))
}

func TestGroupKeyDistinguishesNilFromMissingTuplePositions(t *testing.T) {
	a := groupKey(Row{"x": 1, "y": 2}, []string{"x", "y"})
	b := groupKey(Row{"x": 1}, []string{"x", "y"})
	c := groupKey(Row{"x": 1, "y": nil}, []string{"x", "y"})

	assert.NotEqual(t, a, b)
	assert.Equal(t, b, c, "missing and null group values coincide by contract")

	// Numeric widths group together
	assert.Equal(t,
		groupKey(Row{"x": 1}, []string{"x"}),
		groupKey(Row{"x": 1.0}, []string{"x"}))

	// Tuple boundaries matter
	assert.NotEqual(t,
		groupKey(Row{"x": "a", "y": "bc"}, []string{"x", "y"}),
		groupKey(Row{"x": "ab", "y": "c"}, []string{"x", "y"}))
}

func TestMergeRowsRightWins(t *testing.T) {
	left := Row{"a": 1, "b": 2}
	right := Row{"b": 3, "c": 4}

	merged := mergeRows(left, right)
	assert.Equal(t, Row{"a": 1, "b": 3, "c": 4}, merged)

	// Inputs stay untouched
	assert.Equal(t, Row{"a": 1, "b": 2}, left)
	assert.Equal(t, Row{"b": 3, "c": 4}, right)
}
