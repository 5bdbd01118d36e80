package executor

import (
	"github.com/tessera-db/tessera/engine/plan"
)

// NestedLoopJoinOperator is the baseline equality join: the right side is
// buffered fully in memory, then each left row is checked against every
// buffered right row. Matching pairs emit the shallow union of both rows,
// right overwriting left on key collision.
type NestedLoopJoinOperator struct {
	baseOperator
}

// NewNestedLoopJoin creates a nested-loop join of left and right on
// node.JoinCond.
func NewNestedLoopJoin(node *plan.Node, ctx *Context, left, right Operator) (*NestedLoopJoinOperator, error) {
	if node.JoinCond == nil {
		return nil, configErrorf("join node has no join condition")
	}
	return &NestedLoopJoinOperator{baseOperator: newBaseOperator(node, ctx, left, right)}, nil
}

func (o *NestedLoopJoinOperator) Open() (RowIterator, error) {
	rightRows, err := openAndCollect(o.children[1])
	if err != nil {
		return nil, err
	}

	leftIt, err := o.children[0].Open()
	if err != nil {
		return nil, err
	}

	cond := o.node.JoinCond
	o.ctx.debugf("nested_loop_join: buffered %d right rows", len(rightRows))

	var leftRow Row
	haveLeft := false
	rightPos := 0

	return &funcIterator{
		fn: func() (Row, error) {
			for {
				if !haveLeft {
					if !leftIt.Next() {
						return nil, leftIt.Err()
					}
					leftRow = leftIt.Row()
					rightPos = 0
					haveLeft = true
				}

				leftKey, hasKey := leftRow[cond.Left]
				if !hasKey || leftKey == nil {
					// Null join keys never match
					haveLeft = false
					continue
				}

				for rightPos < len(rightRows) {
					rightRow := rightRows[rightPos]
					rightPos++

					rightKey, ok := rightRow[cond.Right]
					if !ok || rightKey == nil {
						continue
					}
					if compareValues(leftKey, rightKey) == 0 {
						o.ctx.Stats.RecordRows(o.id, 1)
						return mergeRows(leftRow, rightRow), nil
					}
				}
				haveLeft = false
			}
		},
		close: leftIt.Close,
	}, nil
}
