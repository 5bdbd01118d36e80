package executor

import (
	"github.com/tessera-db/tessera/engine/plan"
)

// IndexJoinOperator probes a caller-supplied key-to-rows index with left
// rows instead of building one: O(n) probes, no build phase. Used when an
// index already exists, e.g. retained from a prior cached execution.
type IndexJoinOperator struct {
	baseOperator
	index JoinIndex
}

// NewIndexJoin creates an index nested-loop join of left against index on
// node.JoinCond. A nil index is a configuration error: this join has nothing
// to build one from.
func NewIndexJoin(node *plan.Node, ctx *Context, left Operator, index JoinIndex) (*IndexJoinOperator, error) {
	if node.JoinCond == nil {
		return nil, configErrorf("join node has no join condition")
	}
	if index == nil {
		return nil, configErrorf("index join requires a precomputed index")
	}
	return &IndexJoinOperator{
		baseOperator: newBaseOperator(node, ctx, left),
		index:        index,
	}, nil
}

func (o *IndexJoinOperator) Open() (RowIterator, error) {
	leftIt, err := o.children[0].Open()
	if err != nil {
		return nil, err
	}

	cond := o.node.JoinCond
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
				matches = o.index[joinKey(key)]
				matchIdx = 0
			}
		},
		close: leftIt.Close,
	}, nil
}

// BuildJoinIndex constructs a JoinIndex from rows keyed by column, for
// callers that want to reuse one across queries.
func BuildJoinIndex(rows []Row, column string) JoinIndex {
	return JoinIndex(buildHashTable(rows, column))
}
