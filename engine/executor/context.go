package executor

import (
	"github.com/tessera-db/tessera/engine/cache"
	"github.com/tessera-db/tessera/engine/checkpoint"
	"github.com/tessera-db/tessera/engine/monitor"
	"github.com/tessera-db/tessera/engine/security"
)

// TableProvider sources base table rows for scans. This is the engine's only
// path to stored data; scans never touch a storage engine directly.
type TableProvider interface {
	// Get returns the rows of a named table, or ok=false when the provider
	// cannot supply it.
	Get(table string) (rows []Row, ok bool)
}

// JoinIndex is a precomputed key-to-rows index supplied by a caller, used by
// the index nested-loop join (e.g. built from a prior cached result).
type JoinIndex map[interface{}][]Row

// Context is the process-local state scoped to one query execution: the
// engine options, a statistics sink, and optional capability collaborators.
// A capability left nil simply disables its concern; the builder wraps
// operators only for the capabilities present, so concerns combine freely
// without parallel type hierarchies.
//
// A Context must not be shared across concurrently executing independent
// queries. The one deliberate exception is Cache: a QueryCache outlives
// queries and is safe to share.
type Context struct {
	Options Options
	Stats   *Statistics

	// Tables sources base data for table scans.
	Tables TableProvider

	// Indexes supplies precomputed join indexes keyed by right-side table
	// name, for join_type "index".
	Indexes map[string]JoinIndex

	// Cache enables the caching decorator. Shared across queries.
	Cache *cache.QueryCache

	// Checkpoints and Failures together enable the fault-tolerant decorator.
	Checkpoints *checkpoint.Manager
	Failures    *checkpoint.FailureDetector

	// Pools enables the parallel scan/join/aggregation operators.
	Pools *PoolSet

	// Monitor enables the monitoring decorator.
	Monitor *monitor.PerformanceMonitor

	// Security enables the access-control decorator.
	Security *security.Manager
}

// NewContext creates a context with the given options and an empty
// statistics sink. Capabilities are attached by the caller.
func NewContext(opts Options) *Context {
	return &Context{
		Options: opts,
		Stats:   NewStatistics(),
	}
}

// Close releases resources owned by the context. Today that is the parallel
// pool set; the cache deliberately survives because it is shared.
func (c *Context) Close() error {
	if c.Pools != nil {
		c.Pools.Release()
	}
	return nil
}

func (c *Context) debugf(format string, args ...interface{}) {
	if c.Options.EnableDebugLogging {
		debugPrintf(format, args...)
	}
}
