package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/volscreen/internal/batch"
	"github.com/newthinker/volscreen/internal/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewThrottle returns a limiter admitting one request per delay. A
// non-positive delay disables throttling.
func NewThrottle(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

type summaryEntry struct {
	ticker  core.Ticker
	summary core.TickerSummary
}

// SummaryResult holds the read-only summary map of a run.
type SummaryResult struct {
	Summaries map[core.Ticker]core.TickerSummary
	Failures  []batch.Failure[core.Ticker]
}

// FetchSummaries asks p for every ticker in turn. A failed ticker is
// recorded as unknown and never aborts the walk.
func FetchSummaries(ctx context.Context, p SummaryProvider, tickers []core.Ticker, throttle *rate.Limiter, logger *zap.Logger) SummaryResult {
	out := batch.Map(tickers, func(t core.Ticker) (summaryEntry, error) {
		if throttle != nil {
			if err := throttle.Wait(ctx); err != nil {
				return summaryEntry{}, err
			}
		}
		s, err := p.FetchSummary(ctx, t)
		if err != nil {
			return summaryEntry{}, core.WrapError(core.ErrSummaryFailed, err)
		}
		return summaryEntry{ticker: t, summary: s}, nil
	})

	summaries := make(map[core.Ticker]core.TickerSummary, len(tickers))
	for _, e := range out.Successes {
		summaries[e.ticker] = e.summary
	}
	for _, f := range out.Failures {
		summaries[f.Item] = core.UnknownSummary
		logger.Debug("summary unavailable", zap.String("ticker", string(f.Item)), zap.Error(f.Err))
	}

	logger.Info("summaries fetched",
		zap.String("provider", p.Name()),
		zap.Int("ok", len(out.Successes)),
		zap.Int("unknown", len(out.Failures)),
	)

	return SummaryResult{Summaries: summaries, Failures: out.Failures}
}

// HistoryResult is the merged outcome of every history batch.
type HistoryResult struct {
	Bars          map[core.Ticker][]core.DailyBar
	FailedBatches []batch.Failure[[]core.Ticker]
	Missing       []core.Ticker
}

// FetchHistories splits tickers into batches of batchSize and requests
// days calendar days of bars per batch. A failed batch is skipped whole;
// a ticker missing from a batch result is skipped alone.
func FetchHistories(ctx context.Context, p HistoryProvider, tickers []core.Ticker, batchSize, days int, logger *zap.Logger) HistoryResult {
	chunks := batch.Chunk(tickers, batchSize)

	n := 0
	out := batch.Map(chunks, func(chunk []core.Ticker) (map[core.Ticker][]core.DailyBar, error) {
		n++
		bars, err := p.FetchHistory(ctx, chunk, days)
		if err != nil {
			logger.Warn("history batch failed, skipping",
				zap.Int("batch", n),
				zap.Int("size", len(chunk)),
				zap.Error(err),
			)
			return nil, core.WrapError(core.ErrBatchFailed, fmt.Errorf("batch %d: %w", n, err))
		}
		logger.Debug("history batch fetched",
			zap.Int("batch", n),
			zap.Int("size", len(chunk)),
			zap.Int("returned", len(bars)),
		)
		return bars, nil
	})

	res := HistoryResult{
		Bars:          make(map[core.Ticker][]core.DailyBar, len(tickers)),
		FailedBatches: out.Failures,
	}
	for _, bars := range out.Successes {
		for t, b := range bars {
			res.Bars[t] = b
		}
	}

	failed := make(map[core.Ticker]struct{})
	for _, f := range out.Failures {
		for _, t := range f.Item {
			failed[t] = struct{}{}
		}
	}
	for _, t := range tickers {
		if _, ok := res.Bars[t]; ok {
			continue
		}
		if _, ok := failed[t]; ok {
			continue
		}
		res.Missing = append(res.Missing, t)
	}

	logger.Info("histories fetched",
		zap.String("provider", p.Name()),
		zap.Int("batches", len(chunks)),
		zap.Int("failed_batches", len(out.Failures)),
		zap.Int("tickers", len(res.Bars)),
		zap.Int("missing", len(res.Missing)),
	)

	return res
}
