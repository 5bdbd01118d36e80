package executor

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/tessera-db/tessera/engine/plan"
)

// PartitionedHashJoinOperator splits both sides into N buckets by
// xxhash(key) % N, then hash-joins each co-partitioned bucket pair. Matching
// keys always land in the same bucket because both sides use the same hash,
// so per-partition memory is bounded without losing any matches. This is
// also the basis for the parallel join variant.
type PartitionedHashJoinOperator struct {
	baseOperator
	partitions int
}

// NewPartitionedHashJoin creates a partitioned hash join of left and right
// on node.JoinCond with the given partition count (<=0 falls back to the
// default of 16).
func NewPartitionedHashJoin(node *plan.Node, ctx *Context, left, right Operator, partitions int) (*PartitionedHashJoinOperator, error) {
	if node.JoinCond == nil {
		return nil, configErrorf("join node has no join condition")
	}
	if partitions <= 0 {
		partitions = 16
	}
	return &PartitionedHashJoinOperator{
		baseOperator: newBaseOperator(node, ctx, left, right),
		partitions:   partitions,
	}, nil
}

func (o *PartitionedHashJoinOperator) Open() (RowIterator, error) {
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

	o.ctx.debugf("partitioned_hash_join: %d partitions, %d left, %d right rows",
		o.partitions, len(leftRows), len(rightRows))

	part := 0
	var pendingIt RowIterator

	return &funcIterator{fn: func() (Row, error) {
		for {
			if pendingIt != nil {
				if pendingIt.Next() {
					o.ctx.Stats.RecordRows(o.id, 1)
					return pendingIt.Row(), nil
				}
				pendingIt = nil
			}

			if part >= o.partitions {
				return nil, nil
			}
			lp, rp := leftParts[part], rightParts[part]
			part++
			if len(lp) == 0 || len(rp) == 0 {
				continue
			}
			pendingIt = newSliceIterator(joinPartition(lp, rp, cond))
		}
	}}, nil
}

// joinPartition hash-joins one co-partitioned bucket pair, right side as
// build.
func joinPartition(left, right []Row, cond *plan.JoinCondition) []Row {
	table := buildHashTable(right, cond.Right)
	var out []Row
	for _, l := range left {
		key, ok := l[cond.Left]
		if !ok || key == nil {
			continue
		}
		for _, r := range table[joinKey(key)] {
			out = append(out, mergeRows(l, r))
		}
	}
	return out
}

// partitionByKey buckets rows by the hash of their canonicalized key value.
// Rows with null or missing keys are dropped; they can never match.
func partitionByKey(rows []Row, column string, n int) [][]Row {
	parts := make([][]Row, n)
	for _, row := range rows {
		v, ok := row[column]
		if !ok || v == nil {
			continue
		}
		bucket := keyHash(v) % uint64(n)
		parts[bucket] = append(parts[bucket], row)
	}
	return parts
}

// keyHash hashes a join key value. Canonicalization through joinKey keeps
// int 3 and float64 3 in the same bucket, matching join equality semantics.
func keyHash(v interface{}) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%T:%v", joinKey(v), joinKey(v)))
}
