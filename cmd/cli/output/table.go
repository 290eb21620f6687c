package output

import (
	"encoding/json"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderTable writes a table to w. A non-nil footer is printed under the rows.
func RenderTable(w io.Writer, headers []string, rows [][]any, footer table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := table.Row{}
	for _, h := range headers {
		headerRow = append(headerRow, h)
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}
	if footer != nil {
		t.AppendFooter(footer)
	}
	// amounts line up on the decimal point when right-aligned
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "AMOUNT", Align: text.AlignRight}})

	t.Render()
}

// RenderJSON writes v as indented JSON.
func RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
