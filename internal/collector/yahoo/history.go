package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/newthinker/volscreen/internal/core"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	userAgent       = "Mozilla/5.0"
)

// validSymbol matches provider symbols like AAPL, BRK-B, RDS-A
var validSymbol = regexp.MustCompile(`^[A-Z0-9][A-Z0-9\-\^=]{0,14}$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// History fetches daily bars from the Yahoo chart API. A batch call fans
// out one request per ticker, bounded by the configured concurrency.
type History struct {
	client      *resty.Client
	baseURL     string
	concurrency int
	now         func() time.Time
}

// NewHistory creates a chart client. An empty baseURL uses DefaultChartURL.
func NewHistory(baseURL string, timeout time.Duration, concurrency int) *History {
	if baseURL == "" {
		baseURL = DefaultChartURL
	}
	if concurrency < 1 {
		concurrency = 1
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)

	return &History{
		client:      client,
		baseURL:     baseURL,
		concurrency: concurrency,
		now:         time.Now,
	}
}

func (h *History) Name() string {
	return "yahoo"
}

// FetchHistory returns up to days calendar days of bars for each ticker.
// Tickers that fail individually are left out; the call errors only when
// every ticker failed.
func (h *History) FetchHistory(ctx context.Context, tickers []core.Ticker, days int) (map[core.Ticker][]core.DailyBar, error) {
	end := h.now()
	start := end.AddDate(0, 0, -days)

	var (
		mu       sync.Mutex
		result   = make(map[core.Ticker][]core.DailyBar, len(tickers))
		failures int
		firstErr error
	)

	var g errgroup.Group
	g.SetLimit(h.concurrency)

	for _, t := range tickers {
		g.Go(func() error {
			bars, err := h.fetchOne(ctx, t, start, end)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", t, err)
				}
				return nil
			}
			result[t] = bars
			return nil
		})
	}
	_ = g.Wait()

	if len(tickers) > 0 && failures == len(tickers) {
		return nil, fmt.Errorf("all %d tickers failed, first: %w", failures, firstErr)
	}
	return result, nil
}

func (h *History) fetchOne(ctx context.Context, ticker core.Ticker, start, end time.Time) ([]core.DailyBar, error) {
	symbol := string(ticker)
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"period1":  fmt.Sprintf("%d", start.Unix()),
			"period2":  fmt.Sprintf("%d", end.Unix()),
			"events":   "history",
		}).
		Get(h.baseURL + "/" + url.PathEscape(symbol))
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}

	var result chartResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return parseBars(result)
}

// parseBars converts a chart response into chronological bars, dropping
// rows without a close or volume.
func parseBars(result chartResponse) ([]core.DailyBar, error) {
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}

	if len(result.Chart.Result) == 0 {
		return nil, core.ErrTickerNotFound
	}

	r := result.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, core.ErrTickerNotFound
	}
	q := r.Indicators.Quote[0]

	bars := make([]core.DailyBar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePrice, ok := at(q.Close, i)
		if !ok {
			continue
		}
		volume, ok := at(q.Volume, i)
		if !ok {
			continue
		}
		openPrice, _ := at(q.Open, i)
		high, _ := at(q.High, i)
		low, _ := at(q.Low, i)

		bars = append(bars, core.DailyBar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   openPrice,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: int64(volume),
		})
	}

	return bars, nil
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol             string  `json:"symbol"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}
