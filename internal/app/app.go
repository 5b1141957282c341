package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/volscreen/internal/collector"
	"github.com/newthinker/volscreen/internal/config"
	"github.com/newthinker/volscreen/internal/core"
	"github.com/newthinker/volscreen/internal/metrics"
	"github.com/newthinker/volscreen/internal/notifier"
	"github.com/newthinker/volscreen/internal/screener"
	"github.com/newthinker/volscreen/internal/storage/archive"
	"go.uber.org/zap"
)

// Failure stages recorded in a report.
const (
	StageSummary = "summary"
	StageHistory = "history"
	StageScreen  = "screen"
)

// UniverseBuilder produces the deduplicated ticker universe.
type UniverseBuilder interface {
	Build(ctx context.Context, includeBroad bool) ([]core.Ticker, error)
}

// App runs the screening pipeline: universe, summaries, price filter,
// histories, screen, notify, archive.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	universe  UniverseBuilder
	history   collector.HistoryProvider
	summaries collector.SummaryProvider
	notifiers *notifier.Registry
	store     archive.Storage
	metrics   *metrics.Registry

	now   func() time.Time
	newID func() string

	mu   sync.Mutex
	last *core.Report
}

// New creates a new App instance
func New(cfg *config.Config, logger *zap.Logger, universe UniverseBuilder, history collector.HistoryProvider) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Defaults()
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		universe:  universe,
		history:   history,
		notifiers: notifier.NewRegistry(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SetSummaryProvider enables the per-ticker price and market cap lookup.
func (a *App) SetSummaryProvider(p collector.SummaryProvider) {
	a.summaries = p
}

// RegisterNotifier adds a notifier to the app
func (a *App) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

// SetArchive stores every report under runs/.
func (a *App) SetArchive(s archive.Storage) {
	a.store = s
}

// SetMetrics records run metrics in m.
func (a *App) SetMetrics(m *metrics.Registry) {
	a.metrics = m
}

// Params returns the screener parameters taken from config.
func (a *App) Params() screener.Params {
	s := a.cfg.Screener
	return screener.Params{
		MinRelVol:    s.MinRelVol,
		Lookback:     s.Lookback,
		TopN:         s.TopN,
		YearWindow:   s.YearWindow,
		ExcludeToday: s.ExcludeToday,
	}
}

// RunOnce screens the universe and delivers the report to every
// registered notifier. Only a universe failure is returned as an error;
// per-ticker, per-batch and delivery failures are logged and recorded in
// the report.
func (a *App) RunOnce(ctx context.Context) (*core.Report, error) {
	return a.run(ctx, true)
}

// Screen runs the pipeline without notifying.
func (a *App) Screen(ctx context.Context) (*core.Report, error) {
	return a.run(ctx, false)
}

// Last returns the report of the most recent successful run, if any.
func (a *App) Last() *core.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *App) run(ctx context.Context, notify bool) (*core.Report, error) {
	start := a.now()
	params := a.Params()
	report := &core.Report{
		RunID:       a.newID(),
		GeneratedAt: start.UTC(),
		Threshold:   params.MinRelVol,
		Lookback:    params.Lookback,
	}
	logger := a.logger.With(zap.String("run_id", report.RunID))
	stats := metrics.RunStats{}

	tickers, err := a.universe.Build(ctx, a.cfg.Universe.IncludeBroad)
	if err != nil {
		logger.Error("universe build failed", zap.Error(err))
		stats.Failed = true
		a.recordRun(stats, start)
		return nil, err
	}
	report.Universe = len(tickers)
	stats.UniverseSize = len(tickers)
	logger.Info("universe built", zap.Int("tickers", len(tickers)))

	summaries := map[core.Ticker]core.TickerSummary{}
	if a.summaries != nil && a.cfg.Fetcher.Summaries {
		res := collector.FetchSummaries(ctx, a.summaries, tickers,
			collector.NewThrottle(a.cfg.Fetcher.SummaryDelay), logger)
		summaries = res.Summaries
		stats.SummariesFailed = len(res.Failures)
		for _, f := range res.Failures {
			report.Failures = append(report.Failures, failure(StageSummary, string(f.Item), f.Err))
		}
	}

	filtered := screener.Filter(tickers, summaries, a.cfg.Screener.MinPrice, a.cfg.Screener.MinMarketCap)
	report.Filtered = len(filtered)
	logger.Info("price filter applied",
		zap.Int("kept", len(filtered)),
		zap.Int("dropped", len(tickers)-len(filtered)),
	)

	hist := collector.FetchHistories(ctx, a.history, filtered,
		a.cfg.Fetcher.BatchSize, a.cfg.Fetcher.HistoryDays, logger)
	stats.BatchesFailed = len(hist.FailedBatches)
	for _, f := range hist.FailedBatches {
		report.Failures = append(report.Failures, failure(StageHistory, batchLabel(f.Item), f.Err))
	}
	for _, t := range hist.Missing {
		report.Failures = append(report.Failures, failure(StageHistory, string(t), core.ErrTickerNotFound))
	}

	if err := ctx.Err(); err != nil {
		stats.Failed = true
		a.recordRun(stats, start)
		return nil, err
	}

	out := screener.Screen(hist.Bars, summaries, params)
	report.Screened = out.Evaluated
	report.Results = out.Results
	stats.Screened = out.Evaluated
	stats.Results = len(out.Results)
	for _, f := range out.Skipped {
		logger.Debug("ticker skipped", zap.String("ticker", string(f.Item)), zap.Error(f.Err))
		report.Failures = append(report.Failures, failure(StageScreen, string(f.Item), f.Err))
	}

	logger.Info("screen complete",
		zap.Int("evaluated", out.Evaluated),
		zap.Int("qualified", out.Qualified),
		zap.Int("reported", len(out.Results)),
		zap.Int("skipped", len(out.Skipped)),
	)

	if notify {
		a.notify(ctx, logger, report)
	}

	a.archiveReport(ctx, logger, report)
	a.recordRun(stats, start)

	a.mu.Lock()
	a.last = report
	a.mu.Unlock()

	return report, nil
}

func (a *App) notify(ctx context.Context, logger *zap.Logger, report *core.Report) {
	if a.notifiers.Len() == 0 {
		logger.Warn("no notifiers configured, report not delivered")
		return
	}

	msg := notifier.Message{Text: notifier.Format(report), Results: report.Results}
	for _, res := range a.notifiers.NotifyAll(ctx, msg) {
		n := core.Notification{
			Notifier:   res.Name,
			OK:         res.Err == nil,
			StatusCode: res.Delivery.StatusCode,
			Body:       res.Delivery.Body,
		}
		if res.Err != nil {
			n.Error = res.Err.Error()
		}
		report.Notifications = append(report.Notifications, n)

		if a.metrics != nil {
			a.metrics.RecordNotification(res.Name, res.Err == nil)
		}
		if res.Err != nil {
			logger.Error("notification failed",
				zap.String("notifier", res.Name),
				zap.Int("status", res.Delivery.StatusCode),
				zap.String("body", res.Delivery.Body),
				zap.Error(res.Err),
			)
			continue
		}
		logger.Info("notification sent",
			zap.String("notifier", res.Name),
			zap.Int("status", res.Delivery.StatusCode),
		)
	}
}

func (a *App) archiveReport(ctx context.Context, logger *zap.Logger, report *core.Report) {
	if a.store == nil {
		return
	}
	path := RunPath(report)
	if err := archive.WriteJSON(ctx, a.store, path, report); err != nil {
		logger.Error("archiving report failed", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Debug("report archived", zap.String("path", path))
}

func (a *App) recordRun(stats metrics.RunStats, start time.Time) {
	if a.metrics == nil {
		return
	}
	end := a.now()
	stats.Duration = end.Sub(start)
	stats.FinishedAt = end
	a.metrics.RecordRun(stats)
}

// RunPath is where a report is archived: runs/<date>/<run_id>.json.
func RunPath(r *core.Report) string {
	return fmt.Sprintf("runs/%s/%s.json", r.GeneratedAt.Format("2006-01-02"), r.RunID)
}

func failure(stage, item string, err error) core.Failure {
	f := core.Failure{Stage: stage, Item: item}
	if err != nil {
		f.Error = err.Error()
	}
	return f
}

func batchLabel(tickers []core.Ticker) string {
	switch len(tickers) {
	case 0:
		return "empty batch"
	case 1:
		return string(tickers[0])
	default:
		return fmt.Sprintf("%s..%s (%d tickers)", tickers[0], tickers[len(tickers)-1], len(tickers))
	}
}
