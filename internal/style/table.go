package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Column is a left-aligned table column. A zero Width fits the widest
// cell; a positive Width truncates longer cells with "...".
type Column struct {
	Name  string
	Width int
	Style lipgloss.Style
}

// Table renders rows under a bold header.
type Table struct {
	columns []Column
	rows    [][]string
	rule    bool
	indent  string
}

func NewTable(columns ...Column) *Table {
	return &Table{columns: columns, rule: true, indent: "  "}
}

func (t *Table) SetIndent(indent string) *Table {
	t.indent = indent
	return t
}

func (t *Table) SetHeaderSeparator(enabled bool) *Table {
	t.rule = enabled
	return t
}

// AddRow appends a row. Missing trailing cells render empty.
func (t *Table) AddRow(values ...string) *Table {
	t.rows = append(t.rows, values)
	return t
}

func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}
	widths := t.widths()

	var sb strings.Builder
	header := make([]string, len(t.columns))
	for i, col := range t.columns {
		header[i] = pad(Bold.Render(col.Name), col.Name, widths[i])
	}
	t.writeLine(&sb, header)

	if t.rule {
		total := len(widths) - 1
		for _, w := range widths {
			total += w
		}
		sb.WriteString(t.indent + Dim.Render(strings.Repeat("─", total)) + "\n")
	}

	for _, row := range t.rows {
		cells := make([]string, len(t.columns))
		for i, col := range t.columns {
			plain := ""
			if i < len(row) {
				plain = ansi.Strip(row[i])
			}
			if ansi.StringWidth(plain) > widths[i] {
				plain = ansi.Truncate(plain, widths[i], "...")
			}
			styled := plain
			if col.Style.Value() != "" {
				styled = col.Style.Render(plain)
			}
			cells[i] = pad(styled, plain, widths[i])
		}
		t.writeLine(&sb, cells)
	}
	return sb.String()
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.columns))
	for i, col := range t.columns {
		if col.Width > 0 {
			widths[i] = col.Width
			continue
		}
		widths[i] = ansi.StringWidth(col.Name)
		for _, row := range t.rows {
			if i < len(row) {
				widths[i] = max(widths[i], ansi.StringWidth(ansi.Strip(row[i])))
			}
		}
	}
	return widths
}

// writeLine joins cells with one space and drops trailing padding.
func (t *Table) writeLine(sb *strings.Builder, cells []string) {
	sb.WriteString(strings.TrimRight(t.indent+strings.Join(cells, " "), " "))
	sb.WriteString("\n")
}

// pad right-pads styled to width, measuring plain.
func pad(styled, plain string, width int) string {
	if n := ansi.StringWidth(plain); n < width {
		return styled + strings.Repeat(" ", width-n)
	}
	return styled
}
