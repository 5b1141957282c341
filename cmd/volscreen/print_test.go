package main

import (
	"testing"

	"github.com/newthinker/volscreen/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestRenderReport(t *testing.T) {
	r := &core.Report{
		RunID:     "run-1",
		Threshold: 5,
		Universe:  600,
		Filtered:  590,
		Screened:  580,
		Results: []core.ScreenResult{
			{Ticker: "NVDA", Price: 120, ChangePct: 3.5, VolumeToday: 1234567, AvgVolume: 200000, RelVolume: 6.17, MarketCap: core.Float(3.2e12)},
			{Ticker: "XYZ", Price: 8, ChangePct: -2, VolumeToday: 900, AvgVolume: 100, RelVolume: 9, DistToHighPct: core.Float(-40)},
		},
	}

	out := renderReport(r)
	assert.Contains(t, out, "NVDA")
	assert.Contains(t, out, "1,234,567")
	assert.Contains(t, out, "x6.17")
	assert.Contains(t, out, "-40.00%")
	assert.Contains(t, out, "$3.2T")
	assert.Contains(t, out, "universe 600")
}

func TestRenderReport_Empty(t *testing.T) {
	out := renderReport(&core.Report{Threshold: 5})
	assert.Contains(t, out, "No tickers met today's condition")
}
