package executor

import (
	"fmt"

	"github.com/tessera-db/tessera/engine/plan"
)

// TableScanOperator sources rows from the context's table provider and
// projects them to the requested columns. It is the only leaf operator; a
// missing provider or table is fatal because this engine has no direct
// storage access to fall back on.
type TableScanOperator struct {
	baseOperator
}

// NewTableScan creates a scan over node.Table.
func NewTableScan(node *plan.Node, ctx *Context) *TableScanOperator {
	return &TableScanOperator{baseOperator: newBaseOperator(node, ctx)}
}

func (o *TableScanOperator) Open() (RowIterator, error) {
	if o.ctx.Tables == nil {
		return nil, fmt.Errorf("table_scan: no table provider configured for %q", o.node.Table)
	}

	rows, ok := o.ctx.Tables.Get(o.node.Table)
	if !ok {
		return nil, fmt.Errorf("table_scan: table %q not available from provider", o.node.Table)
	}

	o.ctx.debugf("table_scan %s: %d rows", o.node.Table, len(rows))

	columns := o.node.Columns
	pos := 0
	return &funcIterator{fn: func() (Row, error) {
		if pos >= len(rows) {
			return nil, nil
		}
		row := rows[pos]
		pos++
		o.ctx.Stats.RecordRows(o.id, 1)
		return projectRow(row, columns), nil
	}}, nil
}

// projectRow restricts row to the named columns, copying so downstream
// mutation never reaches the provider's backing rows. Missing columns are
// silently omitted; an empty column list means all columns.
func projectRow(row Row, columns []string) Row {
	if len(columns) == 0 {
		return copyRow(row)
	}
	out := make(Row, len(columns))
	for _, col := range columns {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}
