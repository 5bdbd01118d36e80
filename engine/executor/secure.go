package executor

import (
	"github.com/tessera-db/tessera/engine/plan"
)

// SecureOperator gates table access and masks disallowed columns. A denied
// table raises a PermissionError before the wrapped operator opens; it is
// fatal and never retried. Denied columns are replaced per row with the security
// manager's redaction string, which is the one way a decorator changes
// emitted row shape.
type SecureOperator struct {
	baseOperator
	inner Operator
}

// NewSecure wraps inner with access control through ctx.Security.
func NewSecure(node *plan.Node, ctx *Context, inner Operator) *SecureOperator {
	return &SecureOperator{
		baseOperator: newBaseOperator(node, ctx, inner),
		inner:        inner,
	}
}

func (o *SecureOperator) Open() (RowIterator, error) {
	sec := o.ctx.Security
	tables := o.node.Tables()

	for _, table := range tables {
		if !sec.TableAllowed(table) {
			return nil, &PermissionError{Table: table}
		}
	}

	it, err := o.inner.Open()
	if err != nil {
		return nil, err
	}

	denied := sec.DeniedColumns(tables)
	if len(denied) == 0 {
		return it, nil
	}

	redaction := sec.Redaction()
	return &funcIterator{
		fn: func() (Row, error) {
			if !it.Next() {
				return nil, it.Err()
			}
			row := copyRow(it.Row())
			for col := range denied {
				if _, ok := row[col]; ok {
					row[col] = redaction
				}
			}
			return row, nil
		},
		close: it.Close,
	}, nil
}
