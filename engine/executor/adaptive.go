package executor

import (
	"github.com/tessera-db/tessera/engine/plan"
)

// Adaptive execution: sample the input, compute simple statistics, and pick
// a physical strategy before the first output row is yielded. The strategy
// is then fixed for the run: swapping an in-flight iterator risks duplicate
// or dropped rows, so mid-run the estimator only records a replan hint in
// the statistics sink for the next execution of this subtree to consult.

const (
	// adaptiveJoinRowThreshold: below this many sampled build rows a plain
	// hash join wins; above it sort-merge amortizes better.
	adaptiveJoinRowThreshold = 1000

	// adaptiveAggRowThreshold and the distinct ratio gate parallel
	// aggregation: many rows collapsing into few groups parallelize well.
	adaptiveAggRowThreshold = 10000

	// estimateInterval is how often (in emitted rows) the estimator
	// recomputes extrapolated cardinality.
	estimateInterval = 1000
)

// AdaptiveJoinOperator samples the left input, selects hash or merge join,
// and replays the sample into the selected strategy so no row is lost.
type AdaptiveJoinOperator struct {
	baseOperator
}

// NewAdaptiveJoin creates an adaptive join of left and right on
// node.JoinCond.
func NewAdaptiveJoin(node *plan.Node, ctx *Context, left, right Operator) (*AdaptiveJoinOperator, error) {
	if node.JoinCond == nil {
		return nil, configErrorf("join node has no join condition")
	}
	return &AdaptiveJoinOperator{baseOperator: newBaseOperator(node, ctx, left, right)}, nil
}

func (o *AdaptiveJoinOperator) Open() (RowIterator, error) {
	leftIt, err := o.children[0].Open()
	if err != nil {
		return nil, err
	}

	sample, buffered, exhausted, err := sampleIterator(leftIt, o.ctx.Options.SampleSize, o.node.JoinCond.Left)
	if err != nil {
		leftIt.Close()
		return nil, err
	}
	o.ctx.Stats.RecordSample(o.id, sample)

	strategy := JoinTypeHash
	if sample.SampledRows >= adaptiveJoinRowThreshold {
		strategy = JoinTypeMerge
	}
	o.ctx.Stats.RecordStrategy(o.id, strategy)
	o.ctx.debugf("adaptive_join: sampled %d rows (%d distinct keys), chose %s",
		sample.SampledRows, sample.DistinctKeys, strategy)

	// Replay the sampled prefix ahead of the still-live left iterator. The
	// replay node comes from the child operator: the plan node for an
	// in-memory subtree may carry no Children of its own.
	replayLeft := newReplayOperator(o.children[0].Node(), o.ctx, buffered, leftIt, exhausted)

	var joinOp Operator
	joinNode := *o.node
	joinNode.JoinType = strategy
	if strategy == JoinTypeHash {
		joinOp, err = NewHashJoin(&joinNode, o.ctx, replayLeft, o.children[1])
	} else {
		joinOp, err = NewMergeJoin(&joinNode, o.ctx, replayLeft, o.children[1])
	}
	if err != nil {
		leftIt.Close()
		return nil, err
	}

	it, err := joinOp.Open()
	if err != nil {
		leftIt.Close()
		return nil, err
	}
	return newEstimatingIterator(it, o.ctx, o.id, sample), nil
}

// AdaptiveAggregationOperator materializes its input (grouped aggregation is
// a blocking operation regardless), computes exact row and distinct-group
// counts, and selects parallel aggregation when the input is large, the
// group count is comparatively small, pools are available, and every
// function supports merging. Otherwise it runs the standard aggregate.
type AdaptiveAggregationOperator struct {
	baseOperator
}

// NewAdaptiveAggregation creates an adaptive aggregation over child.
func NewAdaptiveAggregation(node *plan.Node, ctx *Context, child Operator) (*AdaptiveAggregationOperator, error) {
	if len(node.Aggregates) == 0 {
		return nil, configErrorf("aggregate node has no aggregate specs")
	}
	for _, spec := range node.Aggregates {
		if _, err := ParseAggregateKind(spec.Function); err != nil {
			return nil, err
		}
	}
	return &AdaptiveAggregationOperator{baseOperator: newBaseOperator(node, ctx, child)}, nil
}

func (o *AdaptiveAggregationOperator) Open() (RowIterator, error) {
	rows, err := openAndCollect(o.children[0])
	if err != nil {
		return nil, err
	}

	distinct := make(map[string]struct{})
	for _, row := range rows {
		distinct[groupKey(row, o.node.GroupBy)] = struct{}{}
	}
	sample := SampleStats{
		SampledRows:    len(rows),
		DistinctKeys:   len(distinct),
		EstimatedTotal: int64(len(rows)),
		Exhausted:      true,
	}
	o.ctx.Stats.RecordSample(o.id, sample)

	useParallel := o.ctx.Pools != nil &&
		len(rows) > adaptiveAggRowThreshold &&
		len(distinct) < len(rows)/10 &&
		allMergeable(o.node.Aggregates)

	source := newReplayOperator(o.children[0].Node(), o.ctx, rows, nil, true)

	var aggOp Operator
	if useParallel {
		o.ctx.Stats.RecordStrategy(o.id, "parallel")
		aggOp, err = NewParallelAggregate(o.node, o.ctx, source)
	} else {
		o.ctx.Stats.RecordStrategy(o.id, "standard")
		aggOp, err = NewAggregate(o.node, o.ctx, source)
	}
	if err != nil {
		return nil, err
	}
	o.ctx.debugf("adaptive_aggregation: %d rows, %d groups, parallel=%v",
		len(rows), len(distinct), useParallel)
	return aggOp.Open()
}

func allMergeable(specs []plan.AggregateSpec) bool {
	for _, spec := range specs {
		kind, err := ParseAggregateKind(spec.Function)
		if err != nil || !Mergeable(kind) {
			return false
		}
	}
	return true
}

// sampleIterator pulls up to limit rows from it, counting distinct values of
// keyColumn. Returns the sample stats, the buffered prefix, and whether the
// iterator was exhausted during sampling. An iterator error during sampling
// is returned, not folded into a short sample.
func sampleIterator(it RowIterator, limit int, keyColumn string) (SampleStats, []Row, bool, error) {
	if limit <= 0 {
		limit = 1000
	}
	distinct := make(map[interface{}]struct{})
	var buffered []Row

	exhausted := false
	for len(buffered) < limit {
		if !it.Next() {
			if err := it.Err(); err != nil {
				return SampleStats{}, nil, false, err
			}
			exhausted = true
			break
		}
		row := it.Row()
		buffered = append(buffered, row)
		if v, ok := row[keyColumn]; ok && v != nil {
			distinct[joinKey(v)] = struct{}{}
		}
	}

	stats := SampleStats{
		SampledRows:    len(buffered),
		DistinctKeys:   len(distinct),
		EstimatedTotal: int64(len(buffered)),
		Exhausted:      exhausted,
	}
	if !exhausted {
		stats.EstimatedTotal = -1 // unknown until consumed
	}
	return stats, buffered, exhausted, nil
}

// replayOperator serves a buffered row prefix, then continues from a live
// iterator. Single-use, like every operator output.
type replayOperator struct {
	baseOperator
	buffered  []Row
	rest      RowIterator
	exhausted bool
	opened    bool
}

func newReplayOperator(node *plan.Node, ctx *Context, buffered []Row, rest RowIterator, exhausted bool) *replayOperator {
	return &replayOperator{
		baseOperator: newBaseOperator(node, ctx),
		buffered:     buffered,
		rest:         rest,
		exhausted:    exhausted,
	}
}

func (o *replayOperator) Open() (RowIterator, error) {
	if o.opened {
		return nil, configErrorf("replay source opened twice; operator outputs are single-use")
	}
	o.opened = true

	pos := 0
	return &funcIterator{
		fn: func() (Row, error) {
			if pos < len(o.buffered) {
				row := o.buffered[pos]
				pos++
				return row, nil
			}
			if o.exhausted || o.rest == nil {
				return nil, nil
			}
			if !o.rest.Next() {
				return nil, o.rest.Err()
			}
			return o.rest.Row(), nil
		},
		close: func() error {
			if o.rest != nil {
				return o.rest.Close()
			}
			return nil
		},
	}, nil
}

// estimatingIterator recomputes an extrapolated total-row estimate every
// estimateInterval emitted rows. When the relative error between the emitted
// count and the extrapolation exceeds the adaptation threshold it records a
// replan hint; it never replaces the in-flight sequence.
type estimatingIterator struct {
	inner      RowIterator
	ctx        *Context
	operatorID string
	sample     SampleStats
	emitted    int64
	hinted     bool
}

func newEstimatingIterator(inner RowIterator, ctx *Context, operatorID string, sample SampleStats) *estimatingIterator {
	return &estimatingIterator{inner: inner, ctx: ctx, operatorID: operatorID, sample: sample}
}

func (it *estimatingIterator) Next() bool {
	if !it.inner.Next() {
		return false
	}
	it.emitted++

	if !it.hinted && it.emitted%estimateInterval == 0 {
		// The sample predicted total cardinality; when the input was not
		// exhausted the sampled row count is the only lower bound we have.
		predicted := float64(it.sample.EstimatedTotal)
		if predicted <= 0 {
			predicted = float64(it.sample.SampledRows)
		}
		if predicted > 0 {
			relErr := abs(float64(it.emitted)-predicted) / predicted
			if relErr > it.ctx.Options.AdaptationThreshold {
				it.ctx.Stats.RecordReplanHint(it.operatorID, "cardinality estimate off; reselect strategy next run")
				it.hinted = true
			}
		}
	}
	return true
}

func (it *estimatingIterator) Row() Row     { return it.inner.Row() }
func (it *estimatingIterator) Err() error   { return it.inner.Err() }
func (it *estimatingIterator) Close() error { return it.inner.Close() }

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
