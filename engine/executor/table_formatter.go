package executor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// TableFormatter renders result rows as markdown tables for CLI and debug
// output.
type TableFormatter struct {
	// MaxWidth is the maximum width for a column value
	MaxWidth int
	// TruncateString is the string appended when truncating
	TruncateString string
}

// NewTableFormatter creates a formatter with default settings.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		MaxWidth:       50,
		TruncateString: "...",
	}
}

// FormatRows formats rows as a markdown table. Columns are the union of row
// keys in sorted order, since rows carry no fixed schema.
func (tf *TableFormatter) FormatRows(rows []Row) string {
	if len(rows) == 0 {
		return "_No rows_"
	}

	colSet := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			colSet[col] = true
		}
	}
	columns := make([]string, 0, len(colSet))
	for col := range colSet {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	tableString := &strings.Builder{}

	alignment := make([]tw.Align, len(columns))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(columns)

	for _, row := range rows {
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = tf.formatValue(row[col])
		}
		table.Append(cells)
	}
	table.Render()

	tableString.WriteString(fmt.Sprintf("\n_%d rows_\n", len(rows)))
	return tableString.String()
}

func (tf *TableFormatter) formatValue(val interface{}) string {
	var s string
	switch v := val.(type) {
	case nil:
		s = "nil"
	case string:
		s = v
	case float64:
		s = fmt.Sprintf("%.2f", v)
	case time.Time:
		s = v.Format("2006-01-02 15:04:05")
	default:
		s = fmt.Sprintf("%v", v)
	}
	if tf.MaxWidth > 0 && len(s) > tf.MaxWidth {
		s = s[:tf.MaxWidth] + tf.TruncateString
	}
	return s
}

// PrintRows prints rows to stdout as a table.
func PrintRows(rows []Row) {
	fmt.Println(NewTableFormatter().FormatRows(rows))
}
