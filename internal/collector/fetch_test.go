package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/newthinker/volscreen/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSummaries struct {
	data  map[core.Ticker]core.TickerSummary
	calls int
}

func (m *mockSummaries) Name() string { return "mock" }
func (m *mockSummaries) FetchSummary(ctx context.Context, t core.Ticker) (core.TickerSummary, error) {
	m.calls++
	s, ok := m.data[t]
	if !ok {
		return core.TickerSummary{}, fmt.Errorf("no quote for %s", t)
	}
	return s, nil
}

type mockHistory struct {
	failBatch int
	omit      map[core.Ticker]bool
	calls     int
	sizes     []int
}

func (m *mockHistory) Name() string { return "mock" }
func (m *mockHistory) FetchHistory(ctx context.Context, tickers []core.Ticker, days int) (map[core.Ticker][]core.DailyBar, error) {
	m.calls++
	m.sizes = append(m.sizes, len(tickers))
	if m.calls == m.failBatch {
		return nil, errors.New("provider timeout")
	}
	out := make(map[core.Ticker][]core.DailyBar, len(tickers))
	for _, t := range tickers {
		if m.omit[t] {
			continue
		}
		out[t] = []core.DailyBar{{Close: 1, Volume: 1}}
	}
	return out, nil
}

func tickers(n int) []core.Ticker {
	out := make([]core.Ticker, n)
	for i := range out {
		out[i] = core.Ticker(fmt.Sprintf("T%03d", i))
	}
	return out
}

func TestFetchSummaries_UnknownOnError(t *testing.T) {
	p := &mockSummaries{data: map[core.Ticker]core.TickerSummary{
		"AAPL": {LastPrice: core.Float(190), MarketCap: core.Float(3e12)},
	}}

	res := FetchSummaries(context.Background(), p, []core.Ticker{"AAPL", "BAD"}, nil, zap.NewNop())

	require.Len(t, res.Summaries, 2)
	assert.Equal(t, 190.0, *res.Summaries["AAPL"].LastPrice)
	assert.Nil(t, res.Summaries["BAD"].LastPrice)
	assert.Nil(t, res.Summaries["BAD"].MarketCap)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, core.Ticker("BAD"), res.Failures[0].Item)
	assert.ErrorIs(t, res.Failures[0].Err, core.ErrSummaryFailed)
}

func TestFetchSummaries_Throttled(t *testing.T) {
	p := &mockSummaries{data: map[core.Ticker]core.TickerSummary{}}
	throttle := NewThrottle(10 * time.Millisecond)

	start := time.Now()
	FetchSummaries(context.Background(), p, tickers(5), throttle, zap.NewNop())

	assert.Equal(t, 5, p.calls)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestNewThrottle_Disabled(t *testing.T) {
	throttle := NewThrottle(0)
	for i := 0; i < 100; i++ {
		require.True(t, throttle.Allow())
	}
}

func TestFetchHistories_BatchFailureIsolated(t *testing.T) {
	p := &mockHistory{failBatch: 2}
	all := tickers(170)

	res := FetchHistories(context.Background(), p, all, 80, 200, zap.NewNop())

	assert.Equal(t, []int{80, 80, 10}, p.sizes)
	assert.Len(t, res.Bars, 90)
	require.Len(t, res.FailedBatches, 1)
	assert.Len(t, res.FailedBatches[0].Item, 80)
	assert.ErrorIs(t, res.FailedBatches[0].Err, core.ErrBatchFailed)

	// Batch 1 and batch 3 tickers survive
	assert.Contains(t, res.Bars, core.Ticker("T000"))
	assert.Contains(t, res.Bars, core.Ticker("T169"))
	assert.NotContains(t, res.Bars, core.Ticker("T080"))
	assert.Empty(t, res.Missing)
}

func TestFetchHistories_MissingTickerSkipped(t *testing.T) {
	p := &mockHistory{omit: map[core.Ticker]bool{"T001": true}}

	res := FetchHistories(context.Background(), p, tickers(3), 80, 200, zap.NewNop())

	assert.Len(t, res.Bars, 2)
	assert.Equal(t, []core.Ticker{"T001"}, res.Missing)
	assert.Empty(t, res.FailedBatches)
}
