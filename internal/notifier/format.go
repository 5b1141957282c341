package notifier

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/newthinker/volscreen/internal/core"
)

// Title is the header line of a report with results.
func Title(threshold float64) string {
	return fmt.Sprintf("📈 *Volume spike (≥%s×, vs 3-month average) screener*", multiple(threshold))
}

// NoResultsMessage is sent when no ticker qualified.
func NoResultsMessage(threshold float64) string {
	return fmt.Sprintf("No tickers met today's condition (≥%s× the 3-month average volume).", multiple(threshold))
}

// SmokeMessage is the connectivity check text.
const SmokeMessage = "Telegram connection OK (volscreen smoke test)"

// Format renders a report as a single chat message: the title followed by
// one line per result, or the no-results sentinel.
func Format(report *core.Report) string {
	if report == nil || len(report.Results) == 0 {
		threshold := 0.0
		if report != nil {
			threshold = report.Threshold
		}
		return NoResultsMessage(threshold)
	}

	lines := make([]string, 0, len(report.Results)+1)
	lines = append(lines, Title(report.Threshold))
	for _, r := range report.Results {
		lines = append(lines, FormatLine(r))
	}
	return strings.Join(lines, "\n")
}

// FormatLine renders one result:
//
//   - TICKER: $PRICE (±CHG%) | Vol N (xREL) | Avg90 N | 52w LO-HI | to High ±D%
//
// REL is the stored, already rounded multiple with trailing zeros dropped
// (x6.1, x9.0).
func FormatLine(r core.ScreenResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- %s: $%.2f (%+.2f%%) | Vol %s (x%s) | Avg90 %s | 52w %s",
		r.Ticker, r.Price, r.ChangePct,
		humanize.Comma(r.VolumeToday), relVolume(r.RelVolume),
		humanize.Comma(r.AvgVolume), yearRange(r.Low52W, r.High52W))
	if r.DistToHighPct != nil {
		fmt.Fprintf(&sb, " | to High %+.2f%%", *r.DistToHighPct)
	}
	return sb.String()
}

func yearRange(lo, hi *float64) string {
	return optional(lo) + "-" + optional(hi)
}

func optional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func relVolume(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

func multiple(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
