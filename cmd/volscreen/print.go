package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/newthinker/volscreen/internal/core"
	"github.com/newthinker/volscreen/internal/notifier"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	upStyle   = cellStyle.Foreground(lipgloss.Color("#10B981"))
	downStyle = cellStyle.Foreground(lipgloss.Color("#EF4444"))

	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

const changeCol = 2

// renderReport draws the results as a terminal table.
func renderReport(r *core.Report) string {
	if len(r.Results) == 0 {
		return titleStyle.Render(notifier.NoResultsMessage(r.Threshold)) + "\n" + footer(r)
	}

	rows := make([][]string, 0, len(r.Results))
	for _, res := range r.Results {
		rows = append(rows, []string{
			string(res.Ticker),
			fmt.Sprintf("$%.2f", res.Price),
			fmt.Sprintf("%+.2f%%", res.ChangePct),
			humanize.Comma(res.VolumeToday),
			fmt.Sprintf("x%.2f", res.RelVolume),
			humanize.Comma(res.AvgVolume),
			pct(res.DistToHighPct),
			marketCap(res.MarketCap),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))).
		Headers("Ticker", "Price", "Chg", "Volume", "RelVol", "Avg", "To High", "Mkt Cap").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == changeCol && row >= 0 && row < len(r.Results) {
				if r.Results[row].ChangePct < 0 {
					return downStyle
				}
				return upStyle
			}
			return cellStyle
		})

	return titleStyle.Render(notifier.Title(r.Threshold)) + "\n" + t.Render() + "\n" + footer(r)
}

func footer(r *core.Report) string {
	return footerStyle.Render(fmt.Sprintf("run %s | universe %d | filtered %d | screened %d | skipped %d",
		r.RunID, r.Universe, r.Filtered, r.Screened, len(r.Failures)))
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

func marketCap(v *float64) string {
	if v == nil {
		return "n/a"
	}
	value, unit := humanize.ComputeSI(*v)
	return "$" + strconv.FormatFloat(value, 'f', 1, 64) + unit
}
