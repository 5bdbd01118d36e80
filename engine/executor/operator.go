package executor

import (
	"github.com/google/uuid"

	"github.com/tessera-db/tessera/engine/plan"
)

// Operator is one node of the physical execution tree. An operator is
// constructed once per query per plan node and its output is consumed
// exactly once: Open returns a lazy, single-pass row sequence, and pulling
// it may itself pull from the children's sequences.
type Operator interface {
	// ID uniquely identifies this operator instance within a query run.
	// Checkpoints and failure counters are keyed by it.
	ID() string

	// Node returns the plan node this operator executes.
	Node() *plan.Node

	// Children returns child operators in declaration order.
	Children() []Operator

	// Open starts execution and returns the operator's output sequence.
	// Build phases (hash tables, sorts, buffering) may run lazily on the
	// first Next rather than inside Open.
	Open() (RowIterator, error)
}

// baseOperator carries the state shared by every concrete operator.
type baseOperator struct {
	id       string
	node     *plan.Node
	ctx      *Context
	children []Operator
}

func newBaseOperator(node *plan.Node, ctx *Context, children ...Operator) baseOperator {
	return baseOperator{
		id:       string(node.Op) + "-" + uuid.NewString(),
		node:     node,
		ctx:      ctx,
		children: children,
	}
}

func (o *baseOperator) ID() string           { return o.id }
func (o *baseOperator) Node() *plan.Node     { return o.node }
func (o *baseOperator) Children() []Operator { return o.children }

// openAndCollect fully materializes a child operator's output. Used by build
// phases and by wrappers that deliberately trade memory for replayability.
func openAndCollect(op Operator) ([]Row, error) {
	it, err := op.Open()
	if err != nil {
		return nil, err
	}
	return Collect(it)
}
