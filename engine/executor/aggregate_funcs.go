package executor

import (
	"math"
	"sort"

	"github.com/tessera-db/tessera/engine/plan"
)

// AggregateKind is the closed set of supported aggregate functions. Dispatch
// happens through exhaustive switches on this type rather than a runtime
// string-keyed table, so an unhandled kind is a compile-time smell instead
// of a silent miss.
type AggregateKind int

const (
	AggSum AggregateKind = iota
	AggCount
	AggAvg
	AggMin
	AggMax
	AggStdDev
	AggVariance
	AggMedian
	AggMode
	AggPercentile
	AggMovingAverage
	AggCorrelation
)

// ParseAggregateKind maps a plan function name to its kind. Unknown names
// are a configuration error, surfaced at plan-build time.
func ParseAggregateKind(name string) (AggregateKind, error) {
	switch name {
	case "sum":
		return AggSum, nil
	case "count":
		return AggCount, nil
	case "avg", "average":
		return AggAvg, nil
	case "min":
		return AggMin, nil
	case "max":
		return AggMax, nil
	case "stddev":
		return AggStdDev, nil
	case "variance":
		return AggVariance, nil
	case "median":
		return AggMedian, nil
	case "mode":
		return AggMode, nil
	case "percentile":
		return AggPercentile, nil
	case "moving_average", "moving_avg":
		return AggMovingAverage, nil
	case "correlation", "corr":
		return AggCorrelation, nil
	default:
		return 0, configErrorf("unsupported aggregate function %q", name)
	}
}

// Accumulator is one aggregate computation bound to its input column(s).
// Update consumes a row (null and non-numeric inputs are silently skipped,
// per the permissive contract); Final converts accumulated state to the
// output value.
type Accumulator interface {
	Update(row Row)
	Final() interface{}
}

// MergeableAccumulator additionally supports combining partial results from
// parallel partitions. Merge panics if other is a different concrete type;
// the parallel engine only merges accumulators it built from the same spec.
type MergeableAccumulator interface {
	Accumulator
	Merge(other Accumulator)
}

// NewAccumulator builds a fresh accumulator for one aggregate spec.
// Function-name and parameter validation errors are configuration errors.
func NewAccumulator(spec plan.AggregateSpec) (Accumulator, error) {
	kind, err := ParseAggregateKind(spec.Function)
	if err != nil {
		return nil, err
	}

	switch kind {
	case AggSum:
		return &sumAcc{column: spec.Column}, nil
	case AggCount:
		return &countAcc{column: spec.Column}, nil
	case AggAvg:
		return &avgAcc{column: spec.Column}, nil
	case AggMin:
		return &extremeAcc{column: spec.Column, wantMax: false}, nil
	case AggMax:
		return &extremeAcc{column: spec.Column, wantMax: true}, nil
	case AggStdDev:
		return &varianceAcc{column: spec.Column, sqrt: true}, nil
	case AggVariance:
		return &varianceAcc{column: spec.Column}, nil
	case AggMedian:
		return &medianAcc{column: spec.Column}, nil
	case AggMode:
		return &modeAcc{column: spec.Column}, nil
	case AggPercentile:
		p, ok := paramFloat(spec.Params, "p")
		if !ok || p < 0 || p > 100 {
			return nil, configErrorf("percentile requires param p in [0,100]")
		}
		return &percentileAcc{column: spec.Column, p: p}, nil
	case AggMovingAverage:
		w, ok := paramFloat(spec.Params, "window")
		if !ok || w < 1 {
			return nil, configErrorf("moving_average requires param window >= 1")
		}
		return &movingAvgAcc{column: spec.Column, window: int(w)}, nil
	case AggCorrelation:
		if len(spec.Columns) != 2 {
			return nil, configErrorf("correlation requires exactly two columns, got %d", len(spec.Columns))
		}
		return &correlationAcc{colX: spec.Columns[0], colY: spec.Columns[1]}, nil
	}
	return nil, configErrorf("unsupported aggregate function %q", spec.Function)
}

// Mergeable reports whether the function kind supports partial-result
// merging for parallel aggregation.
func Mergeable(kind AggregateKind) bool {
	switch kind {
	case AggSum, AggCount, AggAvg, AggMin, AggMax:
		return true
	default:
		return false
	}
}

func paramFloat(params map[string]interface{}, key string) (float64, bool) {
	if params == nil {
		return 0, false
	}
	return toFloat64(params[key])
}

// numericValue extracts a numeric column value, reporting ok=false for
// missing, null, or non-numeric values.
func numericValue(row Row, column string) (float64, bool) {
	v, ok := row[column]
	if !ok || v == nil {
		return 0, false
	}
	return toFloat64(v)
}

type sumAcc struct {
	column string
	sum    float64
}

func (a *sumAcc) Update(row Row) {
	if v, ok := numericValue(row, a.column); ok {
		a.sum += v
	}
}

func (a *sumAcc) Final() interface{} { return a.sum }

func (a *sumAcc) Merge(other Accumulator) {
	a.sum += other.(*sumAcc).sum
}

type countAcc struct {
	column string
	n      int64
}

func (a *countAcc) Update(row Row) {
	// count(column) counts non-null values; count with no column counts rows
	if a.column != "" {
		if v, ok := row[a.column]; !ok || v == nil {
			return
		}
	}
	a.n++
}

func (a *countAcc) Final() interface{} { return a.n }

func (a *countAcc) Merge(other Accumulator) {
	a.n += other.(*countAcc).n
}

// avgAcc keeps a running sum and count, dividing only at finalize so merges
// of partial results stay exact.
type avgAcc struct {
	column string
	sum    float64
	n      int64
}

func (a *avgAcc) Update(row Row) {
	if v, ok := numericValue(row, a.column); ok {
		a.sum += v
		a.n++
	}
}

func (a *avgAcc) Final() interface{} {
	if a.n == 0 {
		return nil
	}
	return a.sum / float64(a.n)
}

func (a *avgAcc) Merge(other Accumulator) {
	o := other.(*avgAcc)
	a.sum += o.sum
	a.n += o.n
}

type extremeAcc struct {
	column  string
	wantMax bool
	best    interface{}
	seen    bool
}

func (a *extremeAcc) Update(row Row) {
	v, ok := row[a.column]
	if !ok || v == nil {
		return
	}
	if !a.seen {
		a.best = v
		a.seen = true
		return
	}
	cmp := compareValues(v, a.best)
	if (a.wantMax && cmp > 0) || (!a.wantMax && cmp < 0) {
		a.best = v
	}
}

func (a *extremeAcc) Final() interface{} {
	if !a.seen {
		return nil
	}
	return a.best
}

func (a *extremeAcc) Merge(other Accumulator) {
	o := other.(*extremeAcc)
	if !o.seen {
		return
	}
	if !a.seen {
		a.best, a.seen = o.best, true
		return
	}
	cmp := compareValues(o.best, a.best)
	if (a.wantMax && cmp > 0) || (!a.wantMax && cmp < 0) {
		a.best = o.best
	}
}

// varianceAcc computes sample variance (n-1 denominator) from running sums;
// single-value groups yield 0 rather than dividing by zero.
type varianceAcc struct {
	column string
	sqrt   bool
	sum    float64
	sumSq  float64
	n      int64
}

func (a *varianceAcc) Update(row Row) {
	if v, ok := numericValue(row, a.column); ok {
		a.sum += v
		a.sumSq += v * v
		a.n++
	}
}

func (a *varianceAcc) Final() interface{} {
	if a.n == 0 {
		return nil
	}
	if a.n < 2 {
		return 0.0
	}
	mean := a.sum / float64(a.n)
	variance := (a.sumSq - a.sum*mean) / float64(a.n-1)
	if variance < 0 {
		variance = 0 // numeric noise
	}
	if a.sqrt {
		return math.Sqrt(variance)
	}
	return variance
}

type medianAcc struct {
	column string
	values []float64
}

func (a *medianAcc) Update(row Row) {
	if v, ok := numericValue(row, a.column); ok {
		a.values = append(a.values, v)
	}
}

func (a *medianAcc) Final() interface{} {
	n := len(a.values)
	if n == 0 {
		return nil
	}
	sorted := append([]float64(nil), a.values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// modeAcc tracks value frequencies; ties break toward the first-seen value.
type modeAcc struct {
	column string
	counts map[interface{}]int
	order  []interface{}
}

func (a *modeAcc) Update(row Row) {
	v, ok := row[a.column]
	if !ok || v == nil {
		return
	}
	k := joinKey(v)
	if a.counts == nil {
		a.counts = make(map[interface{}]int)
	}
	if _, seen := a.counts[k]; !seen {
		a.order = append(a.order, k)
	}
	a.counts[k]++
}

func (a *modeAcc) Final() interface{} {
	var best interface{}
	bestCount := 0
	for _, k := range a.order {
		if a.counts[k] > bestCount {
			best = k
			bestCount = a.counts[k]
		}
	}
	if bestCount == 0 {
		return nil
	}
	return best
}

// percentileAcc returns the nearest-rank percentile of collected values.
type percentileAcc struct {
	column string
	p      float64
	values []float64
}

func (a *percentileAcc) Update(row Row) {
	if v, ok := numericValue(row, a.column); ok {
		a.values = append(a.values, v)
	}
}

func (a *percentileAcc) Final() interface{} {
	n := len(a.values)
	if n == 0 {
		return nil
	}
	sorted := append([]float64(nil), a.values...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(a.p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// movingAvgAcc averages the trailing window of values in arrival order.
type movingAvgAcc struct {
	column string
	window int
	values []float64
}

func (a *movingAvgAcc) Update(row Row) {
	if v, ok := numericValue(row, a.column); ok {
		a.values = append(a.values, v)
	}
}

func (a *movingAvgAcc) Final() interface{} {
	if len(a.values) == 0 {
		return nil
	}
	start := len(a.values) - a.window
	if start < 0 {
		start = 0
	}
	tail := a.values[start:]
	sum := 0.0
	for _, v := range tail {
		sum += v
	}
	return sum / float64(len(tail))
}

// correlationAcc computes the Pearson correlation of paired samples. Rows
// missing either column contribute nothing; fewer than two complete pairs
// yield nil.
type correlationAcc struct {
	colX, colY string
	xs, ys     []float64
}

func (a *correlationAcc) Update(row Row) {
	x, okX := numericValue(row, a.colX)
	y, okY := numericValue(row, a.colY)
	if !okX || !okY {
		return
	}
	a.xs = append(a.xs, x)
	a.ys = append(a.ys, y)
}

func (a *correlationAcc) Final() interface{} {
	n := len(a.xs)
	if n < 2 {
		return nil
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += a.xs[i]
		sumY += a.ys[i]
	}
	meanX, meanY := sumX/float64(n), sumY/float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx, dy := a.xs[i]-meanX, a.ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return nil
	}
	return cov / math.Sqrt(varX*varY)
}
