package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a Bubbles table with the hostwatch styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Nothing is focused in CLI output, so the selected row looks like any other.
	s.Selected = s.Cell

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	return NewTable(columns, tableRows).View()
}

// MetricRow is one resource line of a check report.
type MetricRow struct {
	Name      string
	Percent   float64
	Threshold float64
}

// RenderMetrics renders one bar per resource, flagging values at or above threshold.
func RenderMetrics(rows []MetricRow, barWidth int) string {
	nameWidth := 0
	for _, r := range rows {
		if w := lipgloss.Width(r.Name); w > nameWidth {
			nameWidth = w
		}
	}

	var sb strings.Builder
	for _, r := range rows {
		icon := SuccessStyle().Render(SymbolComplete)
		if r.Threshold > 0 && r.Percent >= r.Threshold {
			icon = ErrorStyle().Render(SymbolFail)
		}
		sb.WriteString("  " + icon + " " + padRight(r.Name, nameWidth+2) + RenderBar(r.Percent, barWidth, r.Threshold) + "\n")
	}
	return sb.String()
}

// SessionRow is one line of the active session listing.
type SessionRow struct {
	User     string
	Target   string
	Load     string
	Interval string
	Since    string
}

// RenderSessionsTable renders the active sessions.
func RenderSessionsTable(rows []SessionRow) string {
	if len(rows) == 0 {
		return MutedStyle().Render("No active sessions") + "\n"
	}

	columns := []TableColumn{
		{Title: "USER", Width: 14},
		{Title: "TARGET", Width: 32},
		{Title: "LOAD", Width: 34},
		{Title: "NEXT", Width: 8},
		{Title: "SINCE", Width: 10},
	}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{r.User, r.Target, r.Load, r.Interval, r.Since}
	}
	return RenderSimpleTable(columns, cells)
}

// padRight pads s to width visible cells, ignoring ANSI codes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}
