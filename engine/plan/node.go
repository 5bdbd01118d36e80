// Package plan defines the logical query tree consumed by the execution
// engine. Plans arrive already parsed and optimized; this package only
// models their shape and never rewrites them.
package plan

// Op identifies a relational operation on a plan node.
type Op string

const (
	OpTableScan Op = "table_scan"
	OpFilter    Op = "filter"
	OpJoin      Op = "join"
	OpProject   Op = "project"
	OpAggregate Op = "aggregate"
	OpWindow    Op = "window"
)

// Predicate is a single column comparison evaluated per row.
type Predicate struct {
	Column string      `json:"column"`
	Op     string      `json:"op"`
	Value  interface{} `json:"value"`
}

// JoinCondition names the equality columns of a join, left side and right
// side respectively.
type JoinCondition struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// AggregateSpec describes one aggregate computation within an aggregate node.
// Columns is used by functions that consume more than one input column
// (correlation); everything else reads Column.
type AggregateSpec struct {
	Function string                 `json:"function"`
	Column   string                 `json:"column,omitempty"`
	Columns  []string               `json:"columns,omitempty"`
	Alias    string                 `json:"alias,omitempty"`
	Params   map[string]interface{} `json:"params,omitempty"`
}

// OutputName returns the column name the aggregate result is emitted under.
func (a AggregateSpec) OutputName() string {
	if a.Alias != "" {
		return a.Alias
	}
	if a.Column != "" {
		return a.Function + "_" + a.Column
	}
	return a.Function
}

// WindowSpec describes one window function computed over a partition.
type WindowSpec struct {
	Function string                 `json:"function"`
	Alias    string                 `json:"alias,omitempty"`
	Params   map[string]interface{} `json:"params,omitempty"`
}

// OutputName returns the column name the window result is emitted under.
func (w WindowSpec) OutputName() string {
	if w.Alias != "" {
		return w.Alias
	}
	return w.Function
}

// Node is one operation in the logical query tree. Only the fields relevant
// to the node's Op are populated; the rest stay zero. Nodes are treated as
// immutable by the engine.
type Node struct {
	Op       Op      `json:"op"`
	Children []*Node `json:"children,omitempty"`

	// table_scan
	Table   string   `json:"table,omitempty"`
	Columns []string `json:"columns,omitempty"`

	// filter
	Predicate *Predicate `json:"predicate,omitempty"`

	// join
	JoinType string         `json:"join_type,omitempty"` // hash|merge|index|partitioned_hash; empty = nested loop
	JoinCond *JoinCondition `json:"join_condition,omitempty"`

	// aggregate
	GroupBy    []string        `json:"group_by,omitempty"`
	Aggregates []AggregateSpec `json:"aggregates,omitempty"`

	// window
	PartitionBy []string     `json:"partition_by,omitempty"`
	OrderBy     []string     `json:"order_by,omitempty"`
	Windows     []WindowSpec `json:"window_functions,omitempty"`
}

// Tables returns every table name referenced by the subtree rooted at n,
// deduplicated, in first-seen order. Used for cache dependency tracking and
// access control checks.
func (n *Node) Tables() []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(*Node)
	walk = func(node *Node) {
		if node == nil {
			return
		}
		if node.Table != "" && !seen[node.Table] {
			seen[node.Table] = true
			out = append(out, node.Table)
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(n)
	return out
}

// QueryPlan wraps the root node of an optimized query tree.
type QueryPlan struct {
	Root *Node
}
