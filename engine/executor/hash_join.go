package executor

import (
	"github.com/tessera-db/tessera/engine/plan"
)

// HashJoinOperator materializes the right side into a hash table keyed by
// the join key, then probes it lazily with left rows. O(n+m); the right side
// is assumed to fit in memory. Null keys never match on either side. Output
// order is undefined.
type HashJoinOperator struct {
	baseOperator
}

// NewHashJoin creates a hash join of left and right on node.JoinCond.
func NewHashJoin(node *plan.Node, ctx *Context, left, right Operator) (*HashJoinOperator, error) {
	if node.JoinCond == nil {
		return nil, configErrorf("join node has no join condition")
	}
	return &HashJoinOperator{baseOperator: newBaseOperator(node, ctx, left, right)}, nil
}

func (o *HashJoinOperator) Open() (RowIterator, error) {
	cond := o.node.JoinCond

	// Build phase: drain the right child into the hash table.
	rightRows, err := openAndCollect(o.children[1])
	if err != nil {
		return nil, err
	}
	table := buildHashTable(rightRows, cond.Right)
	o.ctx.debugf("hash_join: built table with %d keys from %d rows", len(table), len(rightRows))

	leftIt, err := o.children[0].Open()
	if err != nil {
		return nil, err
	}

	// Probe phase state
	var leftRow Row
	var matches []Row
	matchIdx := 0

	return &funcIterator{
		fn: func() (Row, error) {
			for {
				if matchIdx < len(matches) {
					m := matches[matchIdx]
					matchIdx++
					o.ctx.Stats.RecordRows(o.id, 1)
					return mergeRows(leftRow, m), nil
				}

				if !leftIt.Next() {
					return nil, leftIt.Err()
				}
				leftRow = leftIt.Row()

				key, ok := leftRow[cond.Left]
				if !ok || key == nil {
					continue
				}
				matches = table[joinKey(key)]
				matchIdx = 0
			}
		},
		close: leftIt.Close,
	}, nil
}

// buildHashTable indexes rows by the canonicalized value of column, skipping
// rows with null or missing keys.
func buildHashTable(rows []Row, column string) map[interface{}][]Row {
	table := make(map[interface{}][]Row, len(rows))
	for _, row := range rows {
		v, ok := row[column]
		if !ok || v == nil {
			continue
		}
		k := joinKey(v)
		table[k] = append(table[k], row)
	}
	return table
}
