package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-db/tessera/engine/plan"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	rows := []Row{
		{"dept": "HR", "total": 110000.0},
		{"dept": "IT", "total": 70000.0},
	}
	c.Set("k1", rows, []string{"employees"})

	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, rows, got)

	hits, misses, size := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(0), misses)
	assert.Equal(t, 1, size)
}

func TestTTLExpiry(t *testing.T) {
	c := NewQueryCache(10, 20*time.Millisecond)
	c.Set("k1", []Row{{"a": 1}}, nil)

	_, ok := c.Get("k1")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	_, ok = c.Get("k1")
	assert.False(t, ok)

	// Expired entry is cleared, not just hidden
	_, _, size := c.Stats()
	assert.Equal(t, 0, size)
}

func TestLRUEvictsLeastRecentlyAccessed(t *testing.T) {
	c := NewQueryCache(2, time.Minute)

	c.Set("a", []Row{{"v": "a"}}, nil)
	time.Sleep(time.Millisecond)
	c.Set("b", []Row{{"v": "b"}}, nil)
	time.Sleep(time.Millisecond)

	// Touch "a" so "b" becomes the LRU victim
	_, ok := c.Get("a")
	require.True(t, ok)
	time.Sleep(time.Millisecond)

	c.Set("c", []Row{{"v": "c"}}, nil)

	_, ok = c.Get("a")
	assert.True(t, ok, "recently accessed entry must survive")
	_, ok = c.Get("b")
	assert.False(t, ok, "least recently accessed entry must be evicted")
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestInvalidateByTable(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	c.Set("emp", []Row{{"a": 1}}, []string{"employees"})
	c.Set("emp-dept", []Row{{"a": 2}}, []string{"employees", "departments"})
	c.Set("orders", []Row{{"a": 3}}, []string{"orders"})

	removed := c.Invalidate("employees")
	assert.Equal(t, 2, removed)

	_, ok := c.Get("emp")
	assert.False(t, ok)
	_, ok = c.Get("emp-dept")
	assert.False(t, ok)
	_, ok = c.Get("orders")
	assert.True(t, ok)
}

func TestStructuralKeys(t *testing.T) {
	scan := func(table string) *plan.Node {
		return &plan.Node{Op: plan.OpTableScan, Table: table, Columns: []string{"a", "b"}}
	}
	filter := func(value interface{}, child *plan.Node) *plan.Node {
		return &plan.Node{
			Op:        plan.OpFilter,
			Predicate: &plan.Predicate{Column: "a", Op: ">", Value: value},
			Children:  []*plan.Node{child},
		}
	}

	// Structurally identical trees hash identically regardless of identity
	k1 := NodeKey(filter(10, scan("employees")))
	k2 := NodeKey(filter(10, scan("employees")))
	assert.Equal(t, k1, k2)

	// Any field difference changes the key
	assert.NotEqual(t, k1, NodeKey(filter(11, scan("employees"))))

	// Any child difference changes the key
	assert.NotEqual(t, k1, NodeKey(filter(10, scan("departments"))))

	// Different shapes differ
	assert.NotEqual(t, NodeKey(scan("employees")), k1)
}
