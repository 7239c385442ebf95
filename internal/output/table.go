package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vulnverified/cubamap/internal/engine"
)

var tableHeaders = []string{"Host", "URLs", "Status", "Title"}

// WriteTable renders per-host probe results as a styled terminal table,
// most productive host first.
func WriteTable(w io.Writer, result *engine.RunResult, noColor bool) {
	if len(result.Results) == 0 {
		fmt.Fprintln(w, "\nNo URLs discovered.")
		return
	}

	// Group URLs by host for compact display.
	type hostRow struct {
		statuses []string
		title    string
	}

	agg := make(map[string]*hostRow)
	for _, res := range result.Results {
		row, exists := agg[res.Host]
		if !exists {
			row = &hostRow{}
			agg[res.Host] = row
		}
		status := strconv.Itoa(res.StatusCode)
		if !containsStr(row.statuses, status) {
			row.statuses = append(row.statuses, status)
		}
		if row.title == "" && res.Title != "" {
			row.title = res.Title
		}
	}

	var rows [][]string
	for _, hc := range engine.SortedHostCounts(result.HostCounts) {
		row := agg[hc.Host]
		if row == nil {
			continue
		}
		sort.Strings(row.statuses)
		rows = append(rows, []string{
			hc.Host,
			strconv.Itoa(hc.Count),
			strings.Join(row.statuses, ","),
			truncate(row.title, 40),
		})
	}

	fmt.Fprintln(w)

	if noColor {
		writeSimpleTable(w, rows)
		return
	}

	t := table.New().
		Headers(tableHeaders...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
			}
			return lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
		})

	for _, row := range rows {
		t.Row(row...)
	}

	fmt.Fprintln(w, t.Render())
}

func writeSimpleTable(w io.Writer, rows [][]string) {
	// Calculate column widths.
	widths := make([]int, len(tableHeaders))
	for i, h := range tableHeaders {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Print header.
	for i, h := range tableHeaders {
		if i > 0 {
			fmt.Fprint(w, " | ")
		}
		fmt.Fprintf(w, "%-*s", widths[i], h)
	}
	fmt.Fprintln(w)

	// Separator.
	for i, width := range widths {
		if i > 0 {
			fmt.Fprint(w, "-+-")
		}
		fmt.Fprint(w, strings.Repeat("-", width))
	}
	fmt.Fprintln(w)

	// Rows.
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprintf(w, "%-*s", widths[i], cell)
		}
		fmt.Fprintln(w)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func containsStr(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
