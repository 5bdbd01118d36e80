package executor

import (
	"github.com/tessera-db/tessera/engine/plan"
)

// FilterOperator evaluates a single {column, op, value} predicate per row.
// Rows missing the predicate column are dropped, not errored, per the
// permissive null-handling contract.
type FilterOperator struct {
	baseOperator
}

// NewFilter creates a filter over child. The predicate operator is validated
// eagerly: an unknown operator is a configuration error, not a per-row one.
func NewFilter(node *plan.Node, ctx *Context, child Operator) (*FilterOperator, error) {
	if node.Predicate == nil {
		return nil, configErrorf("filter node has no predicate")
	}
	if !validPredicateOp(node.Predicate.Op) {
		return nil, configErrorf("unsupported filter operator %q", node.Predicate.Op)
	}
	return &FilterOperator{baseOperator: newBaseOperator(node, ctx, child)}, nil
}

func validPredicateOp(op string) bool {
	switch op {
	case "=", "!=", ">", "<", ">=", "<=":
		return true
	default:
		return false
	}
}

func (o *FilterOperator) Open() (RowIterator, error) {
	child, err := o.children[0].Open()
	if err != nil {
		return nil, err
	}

	pred := o.node.Predicate
	return &funcIterator{
		fn: func() (Row, error) {
			for child.Next() {
				row := child.Row()
				v, ok := row[pred.Column]
				if !ok {
					continue
				}
				if matchPredicate(v, pred.Op, pred.Value) {
					o.ctx.Stats.RecordRows(o.id, 1)
					return row, nil
				}
			}
			return nil, child.Err()
		},
		close: child.Close,
	}, nil
}

func matchPredicate(v interface{}, op string, target interface{}) bool {
	cmp := compareValues(v, target)
	switch op {
	case "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	}
	return false
}
