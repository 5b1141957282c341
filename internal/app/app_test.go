package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/volscreen/internal/config"
	"github.com/newthinker/volscreen/internal/core"
	"github.com/newthinker/volscreen/internal/metrics"
	"github.com/newthinker/volscreen/internal/notifier"
	"github.com/newthinker/volscreen/internal/storage/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockUniverse struct {
	tickers []core.Ticker
	err     error
}

func (m *mockUniverse) Build(ctx context.Context, includeBroad bool) ([]core.Ticker, error) {
	return m.tickers, m.err
}

type mockHistory struct {
	bars map[core.Ticker][]core.DailyBar
	fail map[core.Ticker]bool

	mu    sync.Mutex
	calls [][]core.Ticker
}

func (m *mockHistory) Name() string { return "mock" }

func (m *mockHistory) FetchHistory(ctx context.Context, tickers []core.Ticker, days int) (map[core.Ticker][]core.DailyBar, error) {
	m.mu.Lock()
	m.calls = append(m.calls, tickers)
	m.mu.Unlock()

	out := make(map[core.Ticker][]core.DailyBar)
	for _, t := range tickers {
		if m.fail[t] {
			return nil, errors.New("upstream 500")
		}
		if b, ok := m.bars[t]; ok {
			out[t] = b
		}
	}
	return out, nil
}

func (m *mockHistory) requested() []core.Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []core.Ticker
	for _, c := range m.calls {
		all = append(all, c...)
	}
	return all
}

type mockSummary struct {
	summaries map[core.Ticker]core.TickerSummary
}

func (m *mockSummary) Name() string { return "mock" }

func (m *mockSummary) FetchSummary(ctx context.Context, t core.Ticker) (core.TickerSummary, error) {
	s, ok := m.summaries[t]
	if !ok {
		return core.TickerSummary{}, errors.New("no quote")
	}
	return s, nil
}

type mockNotifier struct {
	name     string
	fail     bool
	received []string
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Send(ctx context.Context, text string) (notifier.Delivery, error) {
	m.received = append(m.received, text)
	if m.fail {
		return notifier.Delivery{StatusCode: 400, Body: `{"ok":false}`}, core.ErrNotifierFailed
	}
	return notifier.Delivery{StatusCode: 200, Body: `{"ok":true}`}, nil
}

// spike builds 80 flat bars at 1000 shares followed by a bar at todayVol.
func spike(todayVol int64) []core.DailyBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.DailyBar, 0, 81)
	for i := 0; i < 80; i++ {
		bars = append(bars, core.DailyBar{Date: start.AddDate(0, 0, i), Close: 50, Volume: 1000})
	}
	return append(bars, core.DailyBar{Date: start.AddDate(0, 0, 80), Close: 52, Volume: todayVol})
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Fetcher.SummaryDelay = 0
	cfg.Screener.ExcludeToday = true
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, u UniverseBuilder, h *mockHistory) *App {
	t.Helper()
	a := New(cfg, zap.NewNop(), u, h)
	a.now = func() time.Time { return time.Date(2024, 3, 15, 21, 30, 0, 0, time.UTC) }
	a.newID = func() string { return "run-1" }
	return a
}

func TestApp_RunOnce(t *testing.T) {
	hist := &mockHistory{bars: map[core.Ticker][]core.DailyBar{
		"AAA":   spike(9000),
		"BBB":   spike(6000),
		"CCC":   spike(1000),
		"PENNY": spike(50000),
	}}
	universe := &mockUniverse{tickers: []core.Ticker{"AAA", "BBB", "CCC", "PENNY"}}

	a := newTestApp(t, testConfig(), universe, hist)
	a.SetSummaryProvider(&mockSummary{summaries: map[core.Ticker]core.TickerSummary{
		"AAA":   {LastPrice: core.Float(52), MarketCap: core.Float(2e9)},
		"BBB":   {LastPrice: core.Float(52)},
		"PENNY": {LastPrice: core.Float(0.5)},
	}})

	store, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	a.SetArchive(store)

	reg := metrics.NewRegistry()
	a.SetMetrics(reg)

	tg := &mockNotifier{name: "telegram"}
	require.NoError(t, a.RegisterNotifier(tg))

	report, err := a.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 4, report.Universe)
	assert.Equal(t, 3, report.Filtered)
	assert.Equal(t, 3, report.Screened)
	assert.NotContains(t, hist.requested(), core.Ticker("PENNY"))

	require.Len(t, report.Results, 2)
	assert.Equal(t, core.Ticker("AAA"), report.Results[0].Ticker)
	assert.Equal(t, 9.0, report.Results[0].RelVolume)
	assert.Equal(t, 2e9, *report.Results[0].MarketCap)
	assert.Equal(t, core.Ticker("BBB"), report.Results[1].Ticker)

	// CCC had no summary; it is unknown, not dropped
	require.Len(t, report.Failures, 1)
	assert.Equal(t, StageSummary, report.Failures[0].Stage)
	assert.Equal(t, "CCC", report.Failures[0].Item)

	require.Len(t, tg.received, 1)
	assert.Equal(t, []core.Notification{{Notifier: "telegram", OK: true, StatusCode: 200, Body: `{"ok":true}`}},
		report.Notifications)
	lines := strings.Split(tg.received[0], "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, notifier.Title(5), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "- AAA: $52.00 (+4.00%) | Vol 9,000 (x9.0)"), lines[1])

	var archived core.Report
	require.NoError(t, archive.ReadJSON(context.Background(), store, "runs/2024-03-15/run-1.json", &archived))
	assert.Equal(t, report.Results, archived.Results)
	assert.Same(t, report, a.Last())
}

func TestApp_RunOnce_UniverseFailure(t *testing.T) {
	hist := &mockHistory{}
	a := newTestApp(t, testConfig(), &mockUniverse{err: core.ErrUniverseSource}, hist)

	tg := &mockNotifier{name: "telegram"}
	require.NoError(t, a.RegisterNotifier(tg))
	reg := metrics.NewRegistry()
	a.SetMetrics(reg)

	report, err := a.RunOnce(context.Background())

	assert.Nil(t, report)
	assert.ErrorIs(t, err, core.ErrUniverseSource)
	assert.Empty(t, tg.received)
	assert.Empty(t, hist.requested())
	assert.Nil(t, a.Last())
}

func TestApp_RunOnce_NoResultsSendsSentinel(t *testing.T) {
	hist := &mockHistory{bars: map[core.Ticker][]core.DailyBar{"AAA": spike(1200)}}
	a := newTestApp(t, testConfig(), &mockUniverse{tickers: []core.Ticker{"AAA"}}, hist)

	tg := &mockNotifier{name: "telegram"}
	require.NoError(t, a.RegisterNotifier(tg))

	report, err := a.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	require.Len(t, tg.received, 1)
	assert.Equal(t, notifier.NoResultsMessage(5), tg.received[0])
}

func TestApp_RunOnce_DeliveryFailureIsNotAnError(t *testing.T) {
	hist := &mockHistory{bars: map[core.Ticker][]core.DailyBar{"AAA": spike(9000)}}
	a := newTestApp(t, testConfig(), &mockUniverse{tickers: []core.Ticker{"AAA"}}, hist)

	bad := &mockNotifier{name: "telegram", fail: true}
	good := &mockNotifier{name: "webhook"}
	require.NoError(t, a.RegisterNotifier(bad))
	require.NoError(t, a.RegisterNotifier(good))

	report, err := a.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Results, 1)
	assert.Len(t, bad.received, 1, "no retry")
	assert.Len(t, good.received, 1)

	require.Len(t, report.Notifications, 2)
	tg, wh := report.Notifications[0], report.Notifications[1]
	assert.Equal(t, "telegram", tg.Notifier)
	assert.False(t, tg.OK)
	assert.Equal(t, 400, tg.StatusCode)
	assert.Equal(t, `{"ok":false}`, tg.Body)
	assert.NotEmpty(t, tg.Error)
	assert.Equal(t, core.Notification{Notifier: "webhook", OK: true, StatusCode: 200, Body: `{"ok":true}`}, wh)
}

func TestApp_RunOnce_DefaultBaselineIncludesToday(t *testing.T) {
	hist := &mockHistory{bars: map[core.Ticker][]core.DailyBar{
		"AAA": spike(9000),
		"BBB": spike(6000),
		"DDD": spike(5200),
	}}
	cfg := config.Defaults()
	cfg.Fetcher.SummaryDelay = 0
	require.False(t, cfg.Screener.ExcludeToday)

	a := newTestApp(t, cfg, &mockUniverse{tickers: []core.Ticker{"AAA", "BBB", "DDD"}}, hist)
	tg := &mockNotifier{name: "telegram"}
	require.NoError(t, a.RegisterNotifier(tg))

	report, err := a.RunOnce(context.Background())
	require.NoError(t, err)

	// baseline is the 63 bars ending today: (62*1000 + today) / 63
	require.Len(t, report.Results, 2)
	assert.Equal(t, core.Ticker("AAA"), report.Results[0].Ticker)
	assert.Equal(t, int64(1126), report.Results[0].AvgVolume)
	assert.Equal(t, 7.99, report.Results[0].RelVolume)
	assert.Equal(t, core.Ticker("BBB"), report.Results[1].Ticker)
	assert.Equal(t, 5.56, report.Results[1].RelVolume)

	// 5200 clears 5x of the prior days alone but not once today is averaged in
	require.Len(t, tg.received, 1)
	assert.NotContains(t, tg.received[0], "DDD")
	assert.Contains(t, tg.received[0], "| Vol 9,000 (x7.99) | Avg90 1,126 |")
}

func TestApp_RunOnce_FailedBatchIsSkipped(t *testing.T) {
	cfg := testConfig()
	cfg.Fetcher.BatchSize = 2

	hist := &mockHistory{
		bars: map[core.Ticker][]core.DailyBar{
			"AAA": spike(9000),
			"BBB": spike(7000),
			"EEE": spike(8000),
		},
		fail: map[core.Ticker]bool{"CCC": true},
	}
	tickers := []core.Ticker{"AAA", "BBB", "CCC", "DDD", "EEE"}
	a := newTestApp(t, cfg, &mockUniverse{tickers: tickers}, hist)

	report, err := a.Screen(context.Background())
	require.NoError(t, err)

	var got []core.Ticker
	for _, r := range report.Results {
		got = append(got, r.Ticker)
	}
	assert.Equal(t, []core.Ticker{"AAA", "EEE", "BBB"}, got)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, StageHistory, report.Failures[0].Stage)
	assert.Equal(t, "CCC..DDD (2 tickers)", report.Failures[0].Item)
}

func TestApp_RunOnce_MissingTickerRecorded(t *testing.T) {
	hist := &mockHistory{bars: map[core.Ticker][]core.DailyBar{"AAA": spike(9000)}}
	a := newTestApp(t, testConfig(), &mockUniverse{tickers: []core.Ticker{"AAA", "GONE"}}, hist)

	report, err := a.Screen(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "GONE", report.Failures[0].Item)
	assert.Contains(t, report.Failures[0].Error, "TICKER_NOT_FOUND")
}

func TestApp_Screen_DoesNotNotify(t *testing.T) {
	hist := &mockHistory{bars: map[core.Ticker][]core.DailyBar{"AAA": spike(9000)}}
	a := newTestApp(t, testConfig(), &mockUniverse{tickers: []core.Ticker{"AAA"}}, hist)

	tg := &mockNotifier{name: "telegram"}
	require.NoError(t, a.RegisterNotifier(tg))

	report, err := a.Screen(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tg.received)
	assert.Empty(t, report.Notifications)
}

func TestApp_Params(t *testing.T) {
	cfg := config.Defaults()
	cfg.Screener.MinRelVol = 3
	cfg.Screener.TopN = 5

	p := New(cfg, nil, nil, nil).Params()
	assert.Equal(t, 3.0, p.MinRelVol)
	assert.Equal(t, 5, p.TopN)
	assert.Equal(t, 63, p.Lookback)
	assert.Equal(t, 252, p.YearWindow)
}

func TestRunPath(t *testing.T) {
	r := &core.Report{RunID: "abc", GeneratedAt: time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)}
	assert.Equal(t, "runs/2024-12-31/abc.json", RunPath(r))
}
