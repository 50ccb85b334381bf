package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/history"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/pipeline"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/raster"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)

	statusColors = map[string]lipgloss.Color{
		history.StatusBuilt:   lipgloss.Color("2"),
		history.StatusFailed:  lipgloss.Color("1"),
		history.StatusSkipped: lipgloss.Color("3"),
	}
)

// renderReport prints one row per variant followed by the totals.
func renderReport(w io.Writer, snap pipeline.JobSnapshot, stats raster.StatsSnapshot) {
	rows := make([][]string, 0, len(snap.Results))
	for _, r := range snap.Results {
		outputs := make([]string, len(r.Outputs))
		for i, o := range r.Outputs {
			outputs[i] = filepath.Base(o)
		}
		detail := strings.Join(outputs, ", ")
		if r.Error != "" {
			detail = r.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Group),
			r.Variant,
			r.Status,
			(time.Duration(r.DurationMs) * time.Millisecond).String(),
			detail,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("GROUP", "VARIANT", "STATUS", "TIME", "OUTPUT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(rows) {
				if c, ok := statusColors[rows[row][2]]; ok {
					return cellStyle.Foreground(c)
				}
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())

	p := snap.Progress
	fmt.Fprintf(w, "%s: %d built, %d failed, %d skipped of %d variants in %d groups\n",
		snap.Filename, p.Built, p.Failed, p.Skipped, p.Variants, p.Groups)
	for _, e := range p.Errors {
		fmt.Fprintln(w, "  error:", e)
	}
	if stats.Count > 0 {
		fmt.Fprintf(w, "png: %d converted, avg %.0fms, p95 %.0fms\n", stats.Count, stats.AvgMs, stats.P95Ms)
	}
}
