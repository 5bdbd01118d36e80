package executor

import (
	"github.com/tessera-db/tessera/engine/plan"
)

// AggregateOperator buckets input rows by the tuple of group-by column
// values and drives one accumulator per aggregate spec per group. Output
// preserves first-seen group order; accumulators are lazily initialized on
// the first row of each group; a finalize pass converts accumulated state to
// output values once the input is drained.
type AggregateOperator struct {
	baseOperator
}

// NewAggregate creates a grouped aggregation over child. Every aggregate
// function name and parameter is validated here, at build time.
func NewAggregate(node *plan.Node, ctx *Context, child Operator) (*AggregateOperator, error) {
	if len(node.Aggregates) == 0 {
		return nil, configErrorf("aggregate node has no aggregate specs")
	}
	// Validate specs eagerly by constructing (and discarding) accumulators.
	for _, spec := range node.Aggregates {
		if _, err := NewAccumulator(spec); err != nil {
			return nil, err
		}
	}
	return &AggregateOperator{baseOperator: newBaseOperator(node, ctx, child)}, nil
}

type aggGroup struct {
	groupRow Row // group-by column values
	accs     []Accumulator
}

func (o *AggregateOperator) Open() (RowIterator, error) {
	child, err := o.children[0].Open()
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*aggGroup)
	var order []string

	for child.Next() {
		row := child.Row()
		key := groupKey(row, o.node.GroupBy)

		g, ok := groups[key]
		if !ok {
			g = &aggGroup{groupRow: make(Row, len(o.node.GroupBy))}
			for _, col := range o.node.GroupBy {
				if v, present := row[col]; present {
					g.groupRow[col] = v
				}
			}
			g.accs = make([]Accumulator, len(o.node.Aggregates))
			for i, spec := range o.node.Aggregates {
				// Specs were validated at build time; a failure here means
				// the node mutated mid-query.
				acc, err := NewAccumulator(spec)
				if err != nil {
					child.Close()
					return nil, err
				}
				g.accs[i] = acc
			}
			groups[key] = g
			order = append(order, key)
		}

		for _, acc := range g.accs {
			acc.Update(row)
		}
	}
	if err := child.Err(); err != nil {
		child.Close()
		return nil, err
	}
	if err := child.Close(); err != nil {
		return nil, err
	}

	o.ctx.debugf("aggregate: %d groups over %d specs", len(order), len(o.node.Aggregates))

	// Finalize pass
	out := make([]Row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row := copyRow(g.groupRow)
		for i, spec := range o.node.Aggregates {
			row[spec.OutputName()] = g.accs[i].Final()
		}
		out = append(out, row)
	}

	o.ctx.Stats.RecordRows(o.id, int64(len(out)))
	return newSliceIterator(out), nil
}
