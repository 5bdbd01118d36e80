// Package executor turns an optimized plan tree into a physical operator
// tree and drives it to produce result rows. Execution is pull-based and
// lazy by default: an operator computes its next row only when its parent
// asks for it. Orthogonal concerns (adaptive strategy selection, result
// caching, fault tolerance, parallel execution, monitoring, security) layer
// onto the same operator contract as wrappers.
package executor

import (
	"fmt"
	"strings"
	"time"
)

// Row is one result row: column name to value. No fixed schema is enforced;
// present columns depend entirely on upstream projections.
type Row = map[string]interface{}

// copyRow returns a shallow copy of r.
func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// mergeRows returns the shallow union of left and right. Right overwrites
// left on key collision.
func mergeRows(left, right Row) Row {
	out := make(Row, len(left)+len(right))
	for k, v := range left {
		out[k] = v
	}
	for k, v := range right {
		out[k] = v
	}
	return out
}

// toFloat64 converts numeric values to float64. Non-numeric values report
// ok=false and are skipped by aggregates per the permissive null-handling
// contract.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// compareValues imposes a total order over row values: nil first, then
// numerics by magnitude, booleans, strings, times, and finally everything
// else by formatted representation.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	fa, aNum := toFloat64(a)
	fb, bNum := toFloat64(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}

	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case !ba && bb:
				return -1
			case ba && !bb:
				return 1
			default:
				return 0
			}
		}
	}

	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			default:
				return 0
			}
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// joinKey canonicalizes a join key value so that equal values of different
// numeric widths hash and compare identically. Callers must skip nil keys
// before calling; null keys never match in any join.
func joinKey(v interface{}) interface{} {
	if f, ok := toFloat64(v); ok {
		return f
	}
	return v
}

// groupKey builds a deterministic string key from the named columns of a
// row. Missing columns contribute a nil marker so (a, nil) and (a) never
// collide with each other.
func groupKey(row Row, columns []string) string {
	var b strings.Builder
	for i, col := range columns {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		v, ok := row[col]
		if !ok || v == nil {
			b.WriteString("\x00nil")
			continue
		}
		fmt.Fprintf(&b, "%T:%v", joinKey(v), joinKey(v))
	}
	return b.String()
}
