package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "volscreen"

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	// Run metrics
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	lastRun         prometheus.Gauge
	universeSize    prometheus.Gauge
	summariesFailed prometheus.Gauge
	batchesFailed   prometheus.Gauge
	tickersScreened prometheus.Gauge
	results         prometheus.Gauge
	notifications   *prometheus.CounterVec
}

// Option configures a Registry.
type Option func(*prometheus.Registry)

// WithRuntimeMetrics adds the Go runtime and process collectors. Leave it
// off for textfile output, where the node exporter reports its own.
func WithRuntimeMetrics() Option {
	return func(reg *prometheus.Registry) {
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry(opts ...Option) *Registry {
	reg := prometheus.NewRegistry()
	for _, opt := range opts {
		opt(reg)
	}

	r := &Registry{Registry: reg}

	// Scrape endpoint traffic, labelled by the mux route that served it.
	// Requests that match no route share the "other" label so stray paths
	// cannot grow the series count.
	r.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route and status class",
		},
		[]string{"route", "method", "code"},
	)
	r.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"route"},
	)
	r.httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served",
		},
	)

	reg.MustRegister(r.httpRequests, r.httpDuration, r.httpInFlight)

	r.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of screener runs",
		},
		[]string{"status"},
	)
	r.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Screener run duration in seconds",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200},
		},
	)
	r.lastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		},
	)
	r.universeSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "universe_size",
			Help:      "Number of tickers in the last built universe",
		},
	)
	r.summariesFailed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "summaries_failed",
			Help:      "Tickers whose summary lookup failed in the last run",
		},
	)
	r.batchesFailed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_batches_failed",
			Help:      "History batches that failed in the last run",
		},
	)
	r.tickersScreened = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tickers_screened",
			Help:      "Tickers evaluated by the screener in the last run",
		},
	)
	r.results = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "results",
			Help:      "Tickers reported in the last run",
		},
	)
	r.notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by notifier and outcome",
		},
		[]string{"notifier", "status"},
	)

	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.runDuration)
	reg.MustRegister(r.lastRun)
	reg.MustRegister(r.universeSize)
	reg.MustRegister(r.summariesFailed)
	reg.MustRegister(r.batchesFailed)
	reg.MustRegister(r.tickersScreened)
	reg.MustRegister(r.results)
	reg.MustRegister(r.notifications)

	return r
}

// RunStats summarises one screener run.
type RunStats struct {
	UniverseSize    int
	SummariesFailed int
	BatchesFailed   int
	Screened        int
	Results         int
	Duration        time.Duration
	Failed          bool
	FinishedAt      time.Time
}

// RecordRun records the outcome of a screener run.
func (r *Registry) RecordRun(s RunStats) {
	status := "ok"
	if s.Failed {
		status = "failed"
	}
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(s.Duration.Seconds())
	if !s.FinishedAt.IsZero() {
		r.lastRun.Set(float64(s.FinishedAt.Unix()))
	}
	r.universeSize.Set(float64(s.UniverseSize))
	r.summariesFailed.Set(float64(s.SummariesFailed))
	r.batchesFailed.Set(float64(s.BatchesFailed))
	r.tickersScreened.Set(float64(s.Screened))
	r.results.Set(float64(s.Results))
}

// RecordNotification records one delivery attempt.
func (r *Registry) RecordNotification(notifier string, ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	r.notifications.WithLabelValues(notifier, status).Inc()
}

// ObserveRequest records one served request under its route label.
func (r *Registry) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(route, method, statusClass(status)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

// WriteTextfile writes the registry for the node exporter textfile
// collector. The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
