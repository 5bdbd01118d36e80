package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/tessera-db/tessera/engine/plan"
)

// NodeKey computes a structural cache key for a plan subtree. Two
// structurally identical subtrees always hash to the same key regardless of
// object identity; any field or child difference changes the key.
//
// The key is the SHA-256 of a deterministic JSON serialization: json.Marshal
// sorts map keys, and child subtrees contribute their own keys recursively,
// so the serialization of a node never depends on pointer values or field
// ordering.
func NodeKey(n *plan.Node) string {
	h := sha256.Sum256([]byte(nodeSignature(n)))
	return hex.EncodeToString(h[:])
}

func nodeSignature(n *plan.Node) string {
	if n == nil {
		return "nil"
	}

	fields := map[string]interface{}{
		"op": string(n.Op),
	}
	if n.Table != "" {
		fields["table"] = n.Table
	}
	if len(n.Columns) > 0 {
		fields["columns"] = n.Columns
	}
	if n.Predicate != nil {
		fields["predicate"] = n.Predicate
	}
	if n.JoinType != "" {
		fields["join_type"] = n.JoinType
	}
	if n.JoinCond != nil {
		fields["join_condition"] = n.JoinCond
	}
	if len(n.GroupBy) > 0 {
		fields["group_by"] = n.GroupBy
	}
	if len(n.Aggregates) > 0 {
		fields["aggregates"] = n.Aggregates
	}
	if len(n.PartitionBy) > 0 {
		fields["partition_by"] = n.PartitionBy
	}
	if len(n.OrderBy) > 0 {
		fields["order_by"] = n.OrderBy
	}
	if len(n.Windows) > 0 {
		fields["window_functions"] = n.Windows
	}
	if len(n.Children) > 0 {
		childKeys := make([]string, len(n.Children))
		for i, child := range n.Children {
			childKeys[i] = NodeKey(child)
		}
		fields["children"] = childKeys
	}

	// Marshal cannot fail here: every value above is a plain string, slice,
	// or JSON-tagged struct.
	data, err := json.Marshal(fields)
	if err != nil {
		panic("cache: unserializable plan node: " + err.Error())
	}
	return string(data)
}
