package executor

import (
	"github.com/tessera-db/tessera/engine/plan"
)

// Join algorithm names accepted in plan.Node.JoinType. An empty JoinType
// selects the baseline nested-loop join.
const (
	JoinTypeHash            = "hash"
	JoinTypeMerge           = "merge"
	JoinTypeIndex           = "index"
	JoinTypePartitionedHash = "partitioned_hash"
	JoinTypeNestedLoop      = "nested_loop"
)

// NewJoin selects a join operator by node.JoinType. For "index" joins the
// precomputed index is looked up in ctx.Indexes under the right child's
// table name; its absence is a configuration error. An unknown join type is
// a configuration error.
func NewJoin(node *plan.Node, ctx *Context, left, right Operator) (Operator, error) {
	switch node.JoinType {
	case "", JoinTypeNestedLoop:
		return NewNestedLoopJoin(node, ctx, left, right)
	case JoinTypeHash:
		return NewHashJoin(node, ctx, left, right)
	case JoinTypeMerge:
		return NewMergeJoin(node, ctx, left, right)
	case JoinTypePartitionedHash:
		return NewPartitionedHashJoin(node, ctx, left, right, ctx.Options.PartitionCount)
	case JoinTypeIndex:
		var index JoinIndex
		if len(node.Children) > 1 && node.Children[1] != nil {
			index = ctx.Indexes[node.Children[1].Table]
		}
		return NewIndexJoin(node, ctx, left, index)
	default:
		return nil, configErrorf("unsupported join type %q", node.JoinType)
	}
}
