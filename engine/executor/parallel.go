package executor

import (
	"github.com/tessera-db/tessera/engine/plan"
)

// Parallel operator variants. All three materialize their output: partitions
// are dispatched to worker pools and concatenated, so peak memory scales
// with output size. Ordering: parallel scan preserves partition-submission
// order (not original row order); parallel join and aggregation have no
// defined output order beyond aggregation's per-partition first-seen groups.

// ParallelScanOperator splits a table's rows round-robin into one partition
// per worker, projects columns per-partition on the scan pool, and
// concatenates results in partition-submission order.
type ParallelScanOperator struct {
	baseOperator
}

// NewParallelScan creates a parallel scan over node.Table.
func NewParallelScan(node *plan.Node, ctx *Context) (*ParallelScanOperator, error) {
	if ctx.Pools == nil {
		return nil, configErrorf("parallel scan requires a pool set on the context")
	}
	return &ParallelScanOperator{baseOperator: newBaseOperator(node, ctx)}, nil
}

func (o *ParallelScanOperator) Open() (RowIterator, error) {
	if err := o.ctx.Pools.Acquire(); err != nil {
		return nil, err
	}
	if o.ctx.Tables == nil {
		return nil, configErrorf("parallel scan: no table provider configured for %q", o.node.Table)
	}
	rows, ok := o.ctx.Tables.Get(o.node.Table)
	if !ok {
		return nil, configErrorf("parallel scan: table %q not available from provider", o.node.Table)
	}

	pool := o.ctx.Pools.Scan
	parts := roundRobin(rows, pool.WorkerCount())
	columns := o.node.Columns

	inputs := make([]interface{}, len(parts))
	for i := range parts {
		inputs[i] = parts[i]
	}
	results, err := pool.ExecuteParallel(inputs, func(in interface{}) (interface{}, error) {
		part := in.([]Row)
		out := make([]Row, len(part))
		for i, row := range part {
			out[i] = projectRow(row, columns)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	out := concatPartitions(results)
	o.ctx.Stats.RecordRows(o.id, int64(len(out)))
	o.ctx.debugf("parallel_scan %s: %d rows across %d partitions", o.node.Table, len(out), len(parts))
	return newSliceIterator(out), nil
}

// ParallelHashJoinOperator partitions both sides by the same key hash, builds
// one hash table per right-side partition on the scan pool, then probes each
// left partition against its co-partitioned table only. Matching keys always
// share a partition because both sides use the same hash function.
type ParallelHashJoinOperator struct {
	baseOperator
	partitions int
}

// NewParallelHashJoin creates a parallel hash join of left and right on
// node.JoinCond.
func NewParallelHashJoin(node *plan.Node, ctx *Context, left, right Operator, partitions int) (*ParallelHashJoinOperator, error) {
	if node.JoinCond == nil {
		return nil, configErrorf("join node has no join condition")
	}
	if ctx.Pools == nil {
		return nil, configErrorf("parallel join requires a pool set on the context")
	}
	if partitions <= 0 {
		partitions = 16
	}
	return &ParallelHashJoinOperator{
		baseOperator: newBaseOperator(node, ctx, left, right),
		partitions:   partitions,
	}, nil
}

func (o *ParallelHashJoinOperator) Open() (RowIterator, error) {
	if err := o.ctx.Pools.Acquire(); err != nil {
		return nil, err
	}
	cond := o.node.JoinCond

	leftRows, err := openAndCollect(o.children[0])
	if err != nil {
		return nil, err
	}
	rightRows, err := openAndCollect(o.children[1])
	if err != nil {
		return nil, err
	}

	leftParts := partitionByKey(leftRows, cond.Left, o.partitions)
	rightParts := partitionByKey(rightRows, cond.Right, o.partitions)

	type bucketPair struct {
		left, right []Row
	}
	inputs := make([]interface{}, o.partitions)
	for i := 0; i < o.partitions; i++ {
		inputs[i] = bucketPair{left: leftParts[i], right: rightParts[i]}
	}

	results, err := o.ctx.Pools.Scan.ExecuteParallel(inputs, func(in interface{}) (interface{}, error) {
		pair := in.(bucketPair)
		if len(pair.left) == 0 || len(pair.right) == 0 {
			return []Row(nil), nil
		}
		return joinPartition(pair.left, pair.right, cond), nil
	})
	if err != nil {
		return nil, err
	}

	out := concatPartitions(results)
	o.ctx.Stats.RecordRows(o.id, int64(len(out)))
	o.ctx.debugf("parallel_hash_join: %d results from %d partitions", len(out), o.partitions)
	return newSliceIterator(out), nil
}

// ParallelAggregateOperator partitions input rows, computes partial
// per-partition per-group accumulators on the compute pool, merges partials
// pairwise with per-function merge rules, and finalizes once at the end.
// Only mergeable functions (sum, count, avg, min, max) qualify; the builder
// falls back to the standard aggregate for anything else.
type ParallelAggregateOperator struct {
	baseOperator
}

// NewParallelAggregate creates a parallel aggregation over child. Every spec
// must be mergeable; a non-mergeable function is a configuration error here
// (callers choose the standard aggregate instead).
func NewParallelAggregate(node *plan.Node, ctx *Context, child Operator) (*ParallelAggregateOperator, error) {
	if len(node.Aggregates) == 0 {
		return nil, configErrorf("aggregate node has no aggregate specs")
	}
	if ctx.Pools == nil {
		return nil, configErrorf("parallel aggregation requires a pool set on the context")
	}
	for _, spec := range node.Aggregates {
		kind, err := ParseAggregateKind(spec.Function)
		if err != nil {
			return nil, err
		}
		if !Mergeable(kind) {
			return nil, configErrorf("aggregate function %q does not support parallel merge", spec.Function)
		}
	}
	return &ParallelAggregateOperator{baseOperator: newBaseOperator(node, ctx, child)}, nil
}

type partialGroups struct {
	groups map[string]*aggGroup
	order  []string
}

func (o *ParallelAggregateOperator) Open() (RowIterator, error) {
	if err := o.ctx.Pools.Acquire(); err != nil {
		return nil, err
	}

	rows, err := openAndCollect(o.children[0])
	if err != nil {
		return nil, err
	}

	pool := o.ctx.Pools.Compute
	parts := roundRobin(rows, pool.WorkerCount())

	inputs := make([]interface{}, len(parts))
	for i := range parts {
		inputs[i] = parts[i]
	}
	results, err := pool.ExecuteParallel(inputs, func(in interface{}) (interface{}, error) {
		return o.accumulatePartition(in.([]Row))
	})
	if err != nil {
		return nil, err
	}

	// Merge phase: fold every partition's partial groups into the first.
	merged := &partialGroups{groups: make(map[string]*aggGroup)}
	for _, res := range results {
		partial := res.(*partialGroups)
		for _, key := range partial.order {
			pg := partial.groups[key]
			g, ok := merged.groups[key]
			if !ok {
				merged.groups[key] = pg
				merged.order = append(merged.order, key)
				continue
			}
			for i := range g.accs {
				g.accs[i].(MergeableAccumulator).Merge(pg.accs[i])
			}
		}
	}

	out := make([]Row, 0, len(merged.order))
	for _, key := range merged.order {
		g := merged.groups[key]
		row := copyRow(g.groupRow)
		for i, spec := range o.node.Aggregates {
			row[spec.OutputName()] = g.accs[i].Final()
		}
		out = append(out, row)
	}

	o.ctx.Stats.RecordRows(o.id, int64(len(out)))
	o.ctx.debugf("parallel_aggregate: %d groups from %d partitions", len(out), len(parts))
	return newSliceIterator(out), nil
}

func (o *ParallelAggregateOperator) accumulatePartition(part []Row) (*partialGroups, error) {
	pg := &partialGroups{groups: make(map[string]*aggGroup)}
	for _, row := range part {
		key := groupKey(row, o.node.GroupBy)
		g, ok := pg.groups[key]
		if !ok {
			g = &aggGroup{groupRow: make(Row, len(o.node.GroupBy))}
			for _, col := range o.node.GroupBy {
				if v, present := row[col]; present {
					g.groupRow[col] = v
				}
			}
			g.accs = make([]Accumulator, len(o.node.Aggregates))
			for i, spec := range o.node.Aggregates {
				acc, err := NewAccumulator(spec)
				if err != nil {
					return nil, err
				}
				g.accs[i] = acc
			}
			pg.groups[key] = g
			pg.order = append(pg.order, key)
		}
		for _, acc := range g.accs {
			acc.Update(row)
		}
	}
	return pg, nil
}

// roundRobin deals rows into n partitions in turn. Always returns at least
// one partition so downstream loops stay simple.
func roundRobin(rows []Row, n int) [][]Row {
	if n < 1 {
		n = 1
	}
	parts := make([][]Row, n)
	for i, row := range rows {
		parts[i%n] = append(parts[i%n], row)
	}
	return parts
}

func concatPartitions(results []interface{}) []Row {
	var out []Row
	for _, res := range results {
		out = append(out, res.([]Row)...)
	}
	return out
}
