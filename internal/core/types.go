package core

import "time"

// Ticker is a provider-normalized equity symbol.
type Ticker string

// TickerSummary holds the optional snapshot fields used for pre-filtering.
// A nil field means the provider did not report it.
type TickerSummary struct {
	LastPrice *float64
	MarketCap *float64
}

// UnknownSummary is recorded for tickers whose summary fetch failed.
var UnknownSummary = TickerSummary{}

// DailyBar is one trading day of OHLCV data
type DailyBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// ScreenResult is a ticker whose volume today is an outlier against its
// trailing baseline. Optional fields are nil when undefined.
type ScreenResult struct {
	Ticker        Ticker   `json:"ticker"`
	Price         float64  `json:"price"`
	ChangePct     float64  `json:"change_pct"`
	VolumeToday   int64    `json:"volume_today"`
	AvgVolume     int64    `json:"avg_volume"`
	RelVolume     float64  `json:"rel_volume"`
	High52W       *float64 `json:"high_52w,omitempty"`
	Low52W        *float64 `json:"low_52w,omitempty"`
	DistToHighPct *float64 `json:"dist_to_high_pct,omitempty"`
	MarketCap     *float64 `json:"market_cap,omitempty"`
}

// Failure records an item that was skipped during a run
type Failure struct {
	Stage string `json:"stage"`
	Item  string `json:"item"`
	Error string `json:"error"`
}

// Report is the outcome of a single screening run.
type Report struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Threshold   float64        `json:"threshold"`
	Lookback    int            `json:"lookback"`
	Universe    int            `json:"universe"`
	Filtered    int            `json:"filtered"`
	Screened    int            `json:"screened"`
	Results     []ScreenResult `json:"results"`
	Failures    []Failure      `json:"failures,omitempty"`

	Notifications []Notification `json:"notifications,omitempty"`
}

// Notification is the delivery outcome of one notifier for a run.
type Notification struct {
	Notifier   string `json:"notifier"`
	OK         bool   `json:"ok"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
