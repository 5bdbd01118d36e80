package executor

import (
	"sort"

	"github.com/tessera-db/tessera/engine/plan"
)

// MergeJoinOperator materializes and sorts both sides by their join key,
// then merges: equal-key groups on both sides are gathered and
// cross-multiplied before advancing; otherwise the side with the smaller key
// advances. O(n log n + m log m). Output is ordered by the join key.
type MergeJoinOperator struct {
	baseOperator
}

// NewMergeJoin creates a sort-merge join of left and right on node.JoinCond.
func NewMergeJoin(node *plan.Node, ctx *Context, left, right Operator) (*MergeJoinOperator, error) {
	if node.JoinCond == nil {
		return nil, configErrorf("join node has no join condition")
	}
	return &MergeJoinOperator{baseOperator: newBaseOperator(node, ctx, left, right)}, nil
}

func (o *MergeJoinOperator) Open() (RowIterator, error) {
	cond := o.node.JoinCond

	leftRows, err := openAndCollect(o.children[0])
	if err != nil {
		return nil, err
	}
	rightRows, err := openAndCollect(o.children[1])
	if err != nil {
		return nil, err
	}

	left := sortedByKey(leftRows, cond.Left)
	right := sortedByKey(rightRows, cond.Right)
	o.ctx.debugf("merge_join: sorted %d left, %d right rows", len(left), len(right))

	li, ri := 0, 0
	var pending []Row

	return &funcIterator{fn: func() (Row, error) {
		for {
			if len(pending) > 0 {
				row := pending[0]
				pending = pending[1:]
				o.ctx.Stats.RecordRows(o.id, 1)
				return row, nil
			}

			if li >= len(left) || ri >= len(right) {
				return nil, nil
			}

			lk := left[li][cond.Left]
			rk := right[ri][cond.Right]
			cmp := compareValues(lk, rk)

			switch {
			case cmp < 0:
				li++
			case cmp > 0:
				ri++
			default:
				// Gather the equal-key group on each side, then emit the
				// cross product of the two groups.
				lEnd := li
				for lEnd < len(left) && compareValues(left[lEnd][cond.Left], lk) == 0 {
					lEnd++
				}
				rEnd := ri
				for rEnd < len(right) && compareValues(right[rEnd][cond.Right], rk) == 0 {
					rEnd++
				}
				for i := li; i < lEnd; i++ {
					for j := ri; j < rEnd; j++ {
						pending = append(pending, mergeRows(left[i], right[j]))
					}
				}
				li, ri = lEnd, rEnd
			}
		}
	}}, nil
}

// sortedByKey returns rows with null/missing keys removed, stably sorted by
// the key column. Dropping null keys up front keeps the merge loop free of
// nil special cases; null keys never match anyway.
func sortedByKey(rows []Row, column string) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if v, ok := row[column]; ok && v != nil {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return compareValues(out[i][column], out[j][column]) < 0
	})
	return out
}
