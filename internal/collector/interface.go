package collector

import (
	"context"

	"github.com/newthinker/volscreen/internal/core"
)

// SummaryProvider reports the snapshot fields used for pre-filtering.
type SummaryProvider interface {
	Name() string
	FetchSummary(ctx context.Context, ticker core.Ticker) (core.TickerSummary, error)
}

// HistoryProvider returns daily bars for a group of tickers in one call.
// Tickers the provider could not serve are simply absent from the map; an
// error means the whole call failed.
type HistoryProvider interface {
	Name() string
	FetchHistory(ctx context.Context, tickers []core.Ticker, days int) (map[core.Ticker][]core.DailyBar, error)
}
