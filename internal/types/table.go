package types

import "strings"

// Table is a grid of cell text plus its markdown rendering.
// Markdown is derived from Cells and never edited on its own.
type Table struct {
	Cells      [][]string `json:"cells"`
	Markdown   string     `json:"markdown"`
	PageNumber int        `json:"page_number"`
}

// NewTable builds a table and renders its markdown
func NewTable(cells [][]string, pageNumber int) Table {
	return Table{
		Cells:      cells,
		Markdown:   RenderMarkdown(cells),
		PageNumber: pageNumber,
	}
}

// Rows returns the number of rows
func (t Table) Rows() int {
	return len(t.Cells)
}

// Columns returns the widest row's cell count
func (t Table) Columns() int {
	n := 0
	for _, row := range t.Cells {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// RenderMarkdown renders rows as pipe tables. When there is more than one row
// the first is treated as the header and followed by a separator sized to it.
func RenderMarkdown(cells [][]string) string {
	if len(cells) == 0 {
		return ""
	}

	var b strings.Builder
	for i, row := range cells {
		b.WriteString("|")
		for _, cell := range row {
			b.WriteString(" ")
			b.WriteString(escapeCell(cell))
			b.WriteString(" |")
		}
		b.WriteString("\n")

		if i == 0 && len(cells) > 1 {
			b.WriteString("|")
			for range row {
				b.WriteString("---|")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func escapeCell(cell string) string {
	cell = strings.TrimSpace(cell)
	cell = strings.ReplaceAll(cell, "\n", " ")
	return strings.ReplaceAll(cell, "|", "\\|")
}
