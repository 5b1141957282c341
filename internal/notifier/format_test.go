package notifier

import (
	"strings"
	"testing"

	"github.com/newthinker/volscreen/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_NoResults(t *testing.T) {
	got := Format(&core.Report{Threshold: 5})
	assert.Equal(t, "No tickers met today's condition (≥5× the 3-month average volume).", got)
	assert.Equal(t, got, NoResultsMessage(5))
}

func TestFormat_Results(t *testing.T) {
	report := &core.Report{
		Threshold: 5,
		Results: []core.ScreenResult{
			{
				Ticker:        "NVDA",
				Price:         123.456,
				ChangePct:     4.1,
				VolumeToday:   12345678,
				AvgVolume:     2000000,
				RelVolume:     6.17,
				High52W:       core.Float(150),
				Low52W:        core.Float(80.5),
				DistToHighPct: core.Float(-17.7),
			},
			{
				Ticker:      "BRK-B",
				Price:       400,
				ChangePct:   -1.25,
				VolumeToday: 5000,
				AvgVolume:   900,
				RelVolume:   5.56,
			},
		},
	}

	lines := strings.Split(Format(report), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "📈 *Volume spike (≥5×, vs 3-month average) screener*", lines[0])
	assert.Equal(t,
		"- NVDA: $123.46 (+4.10%) | Vol 12,345,678 (x6.17) | Avg90 2,000,000 | 52w 80.50-150.00 | to High -17.70%",
		lines[1])
	assert.Equal(t,
		"- BRK-B: $400.00 (-1.25%) | Vol 5,000 (x5.56) | Avg90 900 | 52w n/a-n/a",
		lines[2])
}

func TestTitle_Threshold(t *testing.T) {
	assert.Contains(t, Title(3.5), "≥3.5×")
	assert.Contains(t, NoResultsMessage(10), "≥10×")
}

func TestFormatLine_RelVolumeAsStored(t *testing.T) {
	tests := []struct {
		rel  float64
		want string
	}{
		{6.1, "(x6.1)"},
		{6.17, "(x6.17)"},
		{9, "(x9.0)"},
		{12.5, "(x12.5)"},
	}

	for _, tt := range tests {
		line := FormatLine(core.ScreenResult{Ticker: "AAA", Price: 10, VolumeToday: 100, AvgVolume: 10, RelVolume: tt.rel})
		assert.Contains(t, line, tt.want)
	}
}
