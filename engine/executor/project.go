package executor

import (
	"github.com/tessera-db/tessera/engine/plan"
)

// ProjectOperator emits only the requested columns present on each row.
// Missing columns are silently omitted rather than errored.
type ProjectOperator struct {
	baseOperator
}

// NewProject creates a projection over child.
func NewProject(node *plan.Node, ctx *Context, child Operator) *ProjectOperator {
	return &ProjectOperator{baseOperator: newBaseOperator(node, ctx, child)}
}

func (o *ProjectOperator) Open() (RowIterator, error) {
	child, err := o.children[0].Open()
	if err != nil {
		return nil, err
	}

	columns := o.node.Columns
	return &funcIterator{
		fn: func() (Row, error) {
			if !child.Next() {
				return nil, child.Err()
			}
			o.ctx.Stats.RecordRows(o.id, 1)
			return projectRow(child.Row(), columns), nil
		},
		close: child.Close,
	}, nil
}
