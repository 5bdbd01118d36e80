package executor

import (
	"github.com/tessera-db/tessera/engine/cache"

	"github.com/tessera-db/tessera/engine/plan"
)

// CachedOperator wraps any operator with subtree-result caching. On a miss
// it fully materializes the wrapped output (cached subtrees trade lazy
// iteration and memory for replayability), stores
// it under the subtree's structural key with the tables the subtree
// transitively references, then replays it. On a hit it replays the cached
// rows without opening the wrapped operator at all.
type CachedOperator struct {
	baseOperator
	inner Operator
	key   string
}

// NewCached wraps inner with result caching through ctx.Cache.
func NewCached(node *plan.Node, ctx *Context, inner Operator) *CachedOperator {
	return &CachedOperator{
		baseOperator: newBaseOperator(node, ctx, inner),
		inner:        inner,
		key:          cache.NodeKey(node),
	}
}

// Key returns the operator's structural cache key.
func (o *CachedOperator) Key() string {
	return o.key
}

func (o *CachedOperator) Open() (RowIterator, error) {
	if rows, ok := o.ctx.Cache.Get(o.key); ok {
		if o.ctx.Monitor != nil {
			o.ctx.Monitor.RecordCacheHit()
		}
		o.ctx.debugf("cache hit for %s (%d rows)", o.node.Op, len(rows))
		return newSliceIterator(rows), nil
	}
	if o.ctx.Monitor != nil {
		o.ctx.Monitor.RecordCacheMiss()
	}

	rows, err := openAndCollect(o.inner)
	if err != nil {
		return nil, err
	}

	o.ctx.Cache.Set(o.key, rows, o.node.Tables())
	o.ctx.debugf("cache store for %s (%d rows, tables %v)", o.node.Op, len(rows), o.node.Tables())
	return newSliceIterator(rows), nil
}
