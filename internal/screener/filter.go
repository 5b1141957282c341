package screener

import "github.com/newthinker/volscreen/internal/core"

// Filter keeps tickers whose known last price and market cap meet the
// minimums. Unknown fields, including tickers without a summary, pass.
func Filter(tickers []core.Ticker, summaries map[core.Ticker]core.TickerSummary, minPrice, minMarketCap float64) []core.Ticker {
	out := make([]core.Ticker, 0, len(tickers))
	for _, t := range tickers {
		s := summaries[t]
		if s.LastPrice != nil && *s.LastPrice < minPrice {
			continue
		}
		if s.MarketCap != nil && *s.MarketCap < minMarketCap {
			continue
		}
		out = append(out, t)
	}
	return out
}
