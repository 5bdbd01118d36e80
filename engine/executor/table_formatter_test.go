package executor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRowsEmpty(t *testing.T) {
	assert.Equal(t, "_No rows_", NewTableFormatter().FormatRows(nil))
}

func TestFormatRowsColumnsAndValues(t *testing.T) {
	out := NewTableFormatter().FormatRows([]Row{
		{"dept": "HR", "total": 110000.0},
		{"dept": "IT", "missing": nil},
	})

	// Columns are the union of keys, sorted
	assert.Contains(t, out, "dept")
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "total")
	assert.Less(t, strings.Index(out, "dept"), strings.Index(out, "total"))

	assert.Contains(t, out, "110000.00", "floats render with two decimals")
	assert.Contains(t, out, "_2 rows_")
}

func TestFormatValueTruncation(t *testing.T) {
	tf := &TableFormatter{MaxWidth: 5, TruncateString: "..."}
	out := tf.FormatRows([]Row{{"v": "abcdefghij"}})
	assert.Contains(t, out, "abcde...")
	assert.NotContains(t, out, "abcdefghij")
}
