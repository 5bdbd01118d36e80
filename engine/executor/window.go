package executor

import (
	"sort"

	"github.com/tessera-db/tessera/engine/plan"
)

// WindowKind is the closed set of supported window functions.
type WindowKind int

const (
	WinRank WindowKind = iota
	WinDenseRank
	WinRowNumber
	WinLead
	WinLag
	WinFirstValue
	WinLastValue
	WinNtile
)

// ParseWindowKind maps a plan function name to its kind. Unknown names are a
// configuration error, surfaced at plan-build time.
func ParseWindowKind(name string) (WindowKind, error) {
	switch name {
	case "rank":
		return WinRank, nil
	case "dense_rank":
		return WinDenseRank, nil
	case "row_number":
		return WinRowNumber, nil
	case "lead":
		return WinLead, nil
	case "lag":
		return WinLag, nil
	case "first_value":
		return WinFirstValue, nil
	case "last_value":
		return WinLastValue, nil
	case "ntile":
		return WinNtile, nil
	default:
		return 0, configErrorf("unsupported window function %q", name)
	}
}

// WindowOperator buckets rows into partitions by the partition_by tuple and
// computes window functions over each partition. All partitions are fully
// materialized before any function runs: the functions need whole-partition
// visibility, so this operator is deliberately not streaming.
//
// Without order_by the functions degenerate: every row ties, so rank and
// dense_rank return 1 everywhere while row_number still numbers rows in
// their original order.
type WindowOperator struct {
	baseOperator
	kinds []WindowKind
}

// NewWindow creates a window operator over child, validating every function
// name and parameter at build time.
func NewWindow(node *plan.Node, ctx *Context, child Operator) (*WindowOperator, error) {
	if len(node.Windows) == 0 {
		return nil, configErrorf("window node has no window functions")
	}
	kinds := make([]WindowKind, len(node.Windows))
	for i, spec := range node.Windows {
		kind, err := ParseWindowKind(spec.Function)
		if err != nil {
			return nil, err
		}
		if kind == WinNtile {
			if n, ok := paramFloat(spec.Params, "n"); !ok || n < 1 {
				return nil, configErrorf("ntile requires param n >= 1")
			}
		}
		kinds[i] = kind
	}
	return &WindowOperator{
		baseOperator: newBaseOperator(node, ctx, child),
		kinds:        kinds,
	}, nil
}

func (o *WindowOperator) Open() (RowIterator, error) {
	rows, err := openAndCollect(o.children[0])
	if err != nil {
		return nil, err
	}

	// Partition phase: bucket by the partition_by tuple, first-seen order.
	partitions := make(map[string][]Row)
	var order []string
	for _, row := range rows {
		key := groupKey(row, o.node.PartitionBy)
		if _, ok := partitions[key]; !ok {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], row)
	}

	o.ctx.debugf("window: %d partitions over %d rows", len(order), len(rows))

	out := make([]Row, 0, len(rows))
	for _, key := range order {
		part := partitions[key]
		o.sortPartition(part)

		for i, spec := range o.node.Windows {
			values := o.computeWindow(o.kinds[i], spec, part)
			for j := range part {
				// Copy on first function so provider rows stay untouched.
				if i == 0 {
					part[j] = copyRow(part[j])
				}
				part[j][spec.OutputName()] = values[j]
			}
		}
		out = append(out, part...)
	}

	o.ctx.Stats.RecordRows(o.id, int64(len(out)))
	return newSliceIterator(out), nil
}

// sortPartition stably sorts a partition by the order_by columns. With no
// order_by the original order is preserved and every row compares equal.
func (o *WindowOperator) sortPartition(part []Row) {
	if len(o.node.OrderBy) == 0 {
		return
	}
	sort.SliceStable(part, func(i, j int) bool {
		return o.compareOrder(part[i], part[j]) < 0
	})
}

func (o *WindowOperator) compareOrder(a, b Row) int {
	for _, col := range o.node.OrderBy {
		if cmp := compareValues(a[col], b[col]); cmp != 0 {
			return cmp
		}
	}
	return 0
}

func (o *WindowOperator) computeWindow(kind WindowKind, spec plan.WindowSpec, part []Row) []interface{} {
	n := len(part)
	values := make([]interface{}, n)

	switch kind {
	case WinRank:
		// Ties share the 1-based position of the first tied row; gaps follow.
		for i := 0; i < n; i++ {
			if i > 0 && o.compareOrder(part[i], part[i-1]) == 0 {
				values[i] = values[i-1]
			} else {
				values[i] = int64(i + 1)
			}
		}

	case WinDenseRank:
		rank := int64(0)
		for i := 0; i < n; i++ {
			if i == 0 || o.compareOrder(part[i], part[i-1]) != 0 {
				rank++
			}
			values[i] = rank
		}

	case WinRowNumber:
		for i := 0; i < n; i++ {
			values[i] = int64(i + 1)
		}

	case WinLead, WinLag:
		column, _ := spec.Params["column"].(string)
		offset := 1
		if off, ok := paramFloat(spec.Params, "offset"); ok && off > 0 {
			offset = int(off)
		}
		def := spec.Params["default"]
		for i := 0; i < n; i++ {
			j := i + offset
			if kind == WinLag {
				j = i - offset
			}
			if j < 0 || j >= n {
				values[i] = def
			} else {
				values[i] = part[j][column]
			}
		}

	case WinFirstValue, WinLastValue:
		column, _ := spec.Params["column"].(string)
		idx := 0
		if kind == WinLastValue {
			idx = n - 1
		}
		var v interface{}
		if n > 0 {
			v = part[idx][column]
		}
		for i := 0; i < n; i++ {
			values[i] = v
		}

	case WinNtile:
		k, _ := paramFloat(spec.Params, "n")
		buckets := int(k)
		if buckets > n && n > 0 {
			buckets = n
		}
		// First n mod k buckets get the extra row.
		base := 0
		extra := 0
		if buckets > 0 {
			base = n / buckets
			extra = n % buckets
		}
		pos := 0
		for b := 1; b <= buckets; b++ {
			size := base
			if b <= extra {
				size++
			}
			for s := 0; s < size && pos < n; s++ {
				values[pos] = int64(b)
				pos++
			}
		}
	}

	return values
}
