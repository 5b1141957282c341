// Package screener flags tickers whose volume today is an outlier against
// a trailing baseline and ranks them by relative volume.
package screener

import (
	"fmt"
	"math"
	"sort"

	"github.com/newthinker/volscreen/internal/batch"
	"github.com/newthinker/volscreen/internal/core"
	"github.com/newthinker/volscreen/internal/indicator"
	"github.com/shopspring/decimal"
)

// Params controls the spike computation.
type Params struct {
	MinRelVol  float64
	Lookback   int
	TopN       int
	YearWindow int

	// ExcludeToday computes the baseline from the Lookback days before
	// the latest bar instead of the Lookback days ending on it.
	ExcludeToday bool
}

// DefaultParams returns a 5x threshold over a 63 trading day baseline,
// keeping the top 20.
func DefaultParams() Params {
	return Params{
		MinRelVol:  5.0,
		Lookback:   63,
		TopN:       20,
		YearWindow: 252,
	}
}

// MinBars is the number of valid bars a ticker needs to be evaluated.
func (p Params) MinBars() int {
	return p.Lookback + 2
}

// Evaluate computes the spike metrics for one ticker. It reports false
// when the ticker is valid but below threshold, and an error when it
// cannot be evaluated.
func Evaluate(ticker core.Ticker, bars []core.DailyBar, summary core.TickerSummary, p Params) (core.ScreenResult, bool, error) {
	valid := validBars(bars)
	if len(valid) < p.MinBars() {
		return core.ScreenResult{}, false, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("%s: %d valid bars, need %d", ticker, len(valid), p.MinBars()))
	}

	volumes := make([]float64, len(valid))
	closes := make([]float64, len(valid))
	for i, b := range valid {
		volumes[i] = float64(b.Volume)
		closes[i] = b.Close
	}

	baseline := volumes
	if p.ExcludeToday {
		baseline = volumes[:len(volumes)-1]
	}
	avgVol := indicator.Mean(indicator.Tail(baseline, p.Lookback))
	if avgVol == 0 || math.IsNaN(avgVol) {
		return core.ScreenResult{}, false, core.WrapError(core.ErrDegenerateAverage, fmt.Errorf("%s", ticker))
	}

	today := valid[len(valid)-1]
	prev := valid[len(valid)-2]

	relVol := float64(today.Volume) / avgVol
	if relVol < p.MinRelVol {
		return core.ScreenResult{}, false, nil
	}

	year := indicator.Tail(closes, p.YearWindow)
	hi, _ := indicator.Highest(year)
	lo, _ := indicator.Lowest(year)

	px := today.Close
	chg := (px/prev.Close - 1.0) * 100.0

	result := core.ScreenResult{
		Ticker:      ticker,
		Price:       round(px, 4),
		ChangePct:   round(chg, 2),
		VolumeToday: today.Volume,
		AvgVolume:   int64(avgVol),
		RelVolume:   round(relVol, 2),
		MarketCap:   summary.MarketCap,
	}
	if hi != 0 {
		result.High52W = core.Float(round(hi, 4))
	}
	if lo != 0 {
		result.Low52W = core.Float(round(lo, 4))
	}
	if dist, ok := DistanceToHigh(px, hi); ok {
		result.DistToHighPct = core.Float(round(dist, 2))
	}

	return result, true, nil
}

// DistanceToHigh returns the percent gap between price and a positive
// 52-week high.
func DistanceToHigh(price, high float64) (float64, bool) {
	if high <= 0 || math.IsNaN(high) {
		return 0, false
	}
	return (price/high - 1.0) * 100.0, true
}

// validBars drops bars without a usable close or volume.
func validBars(bars []core.DailyBar) []core.DailyBar {
	out := make([]core.DailyBar, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Volume < 0 {
			continue
		}
		out = append(out, b)
	}
	return out
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Outcome is the result of screening every fetched ticker.
type Outcome struct {
	Results   []core.ScreenResult
	Evaluated int
	Qualified int
	Skipped   []batch.Failure[core.Ticker]
}

type evaluation struct {
	result    core.ScreenResult
	qualified bool
}

// Screen evaluates every ticker in histories and returns the top
// p.TopN qualifying results by relative volume. Tickers that cannot be
// evaluated are reported in Skipped.
func Screen(histories map[core.Ticker][]core.DailyBar, summaries map[core.Ticker]core.TickerSummary, p Params) Outcome {
	tickers := make([]core.Ticker, 0, len(histories))
	for t := range histories {
		tickers = append(tickers, t)
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i] < tickers[j] })

	out := batch.Map(tickers, func(t core.Ticker) (evaluation, error) {
		r, ok, err := Evaluate(t, histories[t], summaries[t], p)
		return evaluation{result: r, qualified: ok}, err
	})

	var qualified []core.ScreenResult
	for _, e := range out.Successes {
		if e.qualified {
			qualified = append(qualified, e.result)
		}
	}

	return Outcome{
		Results:   Rank(qualified, p.TopN),
		Evaluated: len(out.Successes),
		Qualified: len(qualified),
		Skipped:   out.Failures,
	}
}

// Rank stable-sorts results by relative volume, highest first, and keeps
// at most topN. A non-positive topN keeps everything.
func Rank(results []core.ScreenResult, topN int) []core.ScreenResult {
	ranked := make([]core.ScreenResult, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelVolume > ranked[j].RelVolume
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
