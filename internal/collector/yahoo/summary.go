package yahoo

import (
	"context"
	"fmt"

	"github.com/newthinker/volscreen/internal/core"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
)

// Summary reads last price and market capitalization from the Yahoo
// quote endpoint.
type Summary struct {
	get func(symbol string) (*finance.Equity, error)
}

// NewSummary creates a quote-backed summary provider.
func NewSummary() *Summary {
	return &Summary{get: equity.Get}
}

func (s *Summary) Name() string {
	return "yahoo"
}

// FetchSummary returns the ticker's snapshot. Fields the quote does not
// carry stay nil.
func (s *Summary) FetchSummary(ctx context.Context, ticker core.Ticker) (core.TickerSummary, error) {
	if err := ctx.Err(); err != nil {
		return core.UnknownSummary, err
	}
	if err := validateSymbol(string(ticker)); err != nil {
		return core.UnknownSummary, err
	}

	eq, err := s.get(string(ticker))
	if err != nil {
		return core.UnknownSummary, fmt.Errorf("fetching quote: %w", err)
	}
	if eq == nil {
		return core.UnknownSummary, core.ErrTickerNotFound
	}

	var out core.TickerSummary
	if eq.RegularMarketPrice > 0 {
		out.LastPrice = core.Float(eq.RegularMarketPrice)
	}
	if eq.MarketCap > 0 {
		out.MarketCap = core.Float(float64(eq.MarketCap))
	}
	return out, nil
}
