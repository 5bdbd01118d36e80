package executor

import (
	"github.com/tessera-db/tessera/engine/plan"
)

// Build walks a plan tree and instantiates the matching physical operator
// for each node, attaching children recursively in declaration order. It
// then layers decorators for whichever capabilities the context carries, so
// caching, fault tolerance, monitoring, and security combine freely on one
// tree without parallel operator hierarchies:
//
//	secure(monitored(faultTolerant(cached(base))))
//
// Security sits outermost so masking applies to cache replays too: cached
// rows stay unmasked and policy is enforced per execution. An unknown
// operation is a configuration error raised here, not at iteration time.
func Build(node *plan.Node, ctx *Context) (Operator, error) {
	if node == nil {
		return nil, configErrorf("nil plan node")
	}

	children := make([]Operator, len(node.Children))
	for i, childNode := range node.Children {
		child, err := Build(childNode, ctx)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}

	op, err := buildBase(node, ctx, children)
	if err != nil {
		return nil, err
	}

	if ctx.Cache != nil {
		op = NewCached(node, ctx, op)
	}
	if ctx.Checkpoints != nil && ctx.Failures != nil {
		op = NewFaultTolerant(node, ctx, op)
	}
	if ctx.Monitor != nil {
		op = NewMonitored(node, ctx, op)
	}
	if ctx.Security != nil {
		op = NewSecure(node, ctx, op)
	}
	return op, nil
}

func buildBase(node *plan.Node, ctx *Context, children []Operator) (Operator, error) {
	switch node.Op {
	case plan.OpTableScan:
		if ctx.Pools != nil {
			return NewParallelScan(node, ctx)
		}
		return NewTableScan(node, ctx), nil

	case plan.OpFilter:
		if len(children) != 1 {
			return nil, configErrorf("filter requires one child, got %d", len(children))
		}
		return NewFilter(node, ctx, children[0])

	case plan.OpProject:
		if len(children) != 1 {
			return nil, configErrorf("project requires one child, got %d", len(children))
		}
		return NewProject(node, ctx, children[0]), nil

	case plan.OpJoin:
		if len(children) != 2 {
			return nil, configErrorf("join requires two children, got %d", len(children))
		}
		if ctx.Options.EnableAdaptive {
			return NewAdaptiveJoin(node, ctx, children[0], children[1])
		}
		if ctx.Pools != nil && node.JoinType == JoinTypeHash {
			return NewParallelHashJoin(node, ctx, children[0], children[1], ctx.Options.PartitionCount)
		}
		return NewJoin(node, ctx, children[0], children[1])

	case plan.OpAggregate:
		if len(children) != 1 {
			return nil, configErrorf("aggregate requires one child, got %d", len(children))
		}
		if ctx.Options.EnableAdaptive {
			return NewAdaptiveAggregation(node, ctx, children[0])
		}
		if ctx.Pools != nil && allMergeable(node.Aggregates) {
			return NewParallelAggregate(node, ctx, children[0])
		}
		return NewAggregate(node, ctx, children[0])

	case plan.OpWindow:
		if len(children) != 1 {
			return nil, configErrorf("window requires one child, got %d", len(children))
		}
		return NewWindow(node, ctx, children[0])

	default:
		return nil, configErrorf("unsupported operation %q", node.Op)
	}
}

// Execute builds the operator tree for a plan and opens it, returning the
// lazy result sequence. The caller owns the iterator and the context.
func Execute(p *plan.QueryPlan, ctx *Context) (RowIterator, error) {
	if p == nil || p.Root == nil {
		return nil, configErrorf("empty query plan")
	}
	op, err := Build(p.Root, ctx)
	if err != nil {
		return nil, err
	}
	return op.Open()
}

// Run executes a plan to completion, returning all rows. On success it
// clears the subtree's checkpoints and failure counters.
func Run(p *plan.QueryPlan, ctx *Context) ([]Row, error) {
	if p == nil || p.Root == nil {
		return nil, configErrorf("empty query plan")
	}
	op, err := Build(p.Root, ctx)
	if err != nil {
		return nil, err
	}
	it, err := op.Open()
	if err != nil {
		return nil, err
	}
	rows, err := Collect(it)
	if err != nil {
		return nil, err
	}
	if err := CleanupTree(ctx, op); err != nil {
		return nil, err
	}
	return rows, nil
}
