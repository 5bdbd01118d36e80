package executor

import (
	"fmt"
	"sort"

	"github.com/tessera-db/tessera/engine/plan"
)

// testProvider is a minimal in-memory table provider for executor tests.
type testProvider map[string][]Row

func (p testProvider) Get(table string) ([]Row, bool) {
	rows, ok := p[table]
	return rows, ok
}

func newTestContext(tables testProvider) *Context {
	ctx := NewContext(DefaultOptions())
	ctx.Tables = tables
	return ctx
}

// staticOp feeds fixed rows into an operator under test.
type staticOp struct {
	baseOperator
	rows []Row
}

func newStaticOp(ctx *Context, rows []Row) *staticOp {
	return &staticOp{
		baseOperator: newBaseOperator(&plan.Node{Op: "static"}, ctx),
		rows:         rows,
	}
}

func (o *staticOp) Open() (RowIterator, error) {
	return newSliceIterator(o.rows), nil
}

// failNTimesOp fails its first n Opens, then behaves like staticOp.
type failNTimesOp struct {
	baseOperator
	rows     []Row
	failures int
	opens    int
}

func newFailNTimesOp(ctx *Context, rows []Row, failures int) *failNTimesOp {
	return &failNTimesOp{
		baseOperator: newBaseOperator(&plan.Node{Op: "flaky"}, ctx),
		rows:         rows,
		failures:     failures,
	}
}

func (o *failNTimesOp) Open() (RowIterator, error) {
	o.opens++
	if o.opens <= o.failures {
		return nil, fmt.Errorf("transient failure %d", o.opens)
	}
	return newSliceIterator(o.rows), nil
}

// brokenAfterOp yields its fixed rows, then fails the iteration with err.
type brokenAfterOp struct {
	baseOperator
	rows []Row
	err  error
}

func newBrokenAfterOp(ctx *Context, rows []Row, err error) *brokenAfterOp {
	return &brokenAfterOp{
		baseOperator: newBaseOperator(&plan.Node{Op: "broken"}, ctx),
		rows:         rows,
		err:          err,
	}
}

func (o *brokenAfterOp) Open() (RowIterator, error) {
	pos := 0
	return &funcIterator{
		fn: func() (Row, error) {
			if pos < len(o.rows) {
				row := o.rows[pos]
				pos++
				return row, nil
			}
			return nil, o.err
		},
	}, nil
}

// canonical renders a row as a stable string so result sets can be compared
// as multisets regardless of emission order.
func canonical(row Row) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for _, k := range keys {
		s += fmt.Sprintf("%s=%v;", k, row[k])
	}
	return s
}

func multiset(rows []Row) map[string]int {
	m := make(map[string]int)
	for _, row := range rows {
		m[canonical(row)]++
	}
	return m
}

func employeeRows() []Row {
	return []Row{
		{"name": "Alice", "dept_id": 1, "salary": 50000},
		{"name": "Bob", "dept_id": 1, "salary": 60000},
		{"name": "Carol", "dept_id": 2, "salary": 70000},
		{"name": "Dave", "dept_id": 3, "salary": 55000},
		{"name": "Erin", "dept_id": nil, "salary": 45000},
	}
}

func departmentRows() []Row {
	return []Row{
		{"id": 1, "dept": "HR"},
		{"id": 2, "dept": "IT"},
		{"id": 4, "dept": "Legal"},
	}
}

func aggNode() *plan.Node {
	return &plan.Node{
		Op:         plan.OpAggregate,
		GroupBy:    []string{"dept"},
		Aggregates: []plan.AggregateSpec{{Function: "sum", Column: "salary", Alias: "total"}},
	}
}

func joinNode(joinType string) *plan.Node {
	return &plan.Node{
		Op:       plan.OpJoin,
		JoinType: joinType,
		JoinCond: &plan.JoinCondition{Left: "dept_id", Right: "id"},
		Children: []*plan.Node{
			{Op: plan.OpTableScan, Table: "employees"},
			{Op: plan.OpTableScan, Table: "departments"},
		},
	}
}
