package universe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/newthinker/volscreen/internal/core"
	"github.com/newthinker/volscreen/internal/storage/archive"
	"go.uber.org/zap"
)

// SnapshotPath is where the last good universe is archived.
const SnapshotPath = "universe/latest.json"

// Snapshot is the archived form of a built universe.
type Snapshot struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Tickers     []core.Ticker `json:"tickers"`
}

// Builder assembles the screening universe from constituent pages.
type Builder struct {
	client     *resty.Client
	logger     *zap.Logger
	sourcesFor func(includeBroad bool) []Source
	store      archive.Storage
	fallback   bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithSources replaces the built-in index pages.
func WithSources(srcs ...Source) Option {
	return func(b *Builder) {
		b.sourcesFor = func(bool) []Source { return srcs }
	}
}

// WithSnapshots archives every successful build to store. With fallback
// set, a failed build returns the last archived universe instead.
func WithSnapshots(store archive.Storage, fallback bool) Option {
	return func(b *Builder) {
		b.store = store
		b.fallback = fallback
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder creates a Builder fetching pages with the given User-Agent
// and per-request timeout.
func NewBuilder(userAgent string, timeout time.Duration, opts ...Option) *Builder {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)

	b := &Builder{
		client:     client,
		logger:     zap.NewNop(),
		sourcesFor: Sources,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build fetches every source and returns the deduplicated, normalized,
// sorted universe. Any unreachable or unparsable source fails the build.
func (b *Builder) Build(ctx context.Context, includeBroad bool) ([]core.Ticker, error) {
	tickers, err := b.build(ctx, includeBroad)
	if err != nil {
		if b.fallback && b.store != nil {
			snap, snapErr := b.loadSnapshot(ctx)
			if snapErr == nil && len(snap.Tickers) > 0 {
				b.logger.Warn("universe build failed, using archived snapshot",
					zap.Error(err),
					zap.Time("snapshot_at", snap.GeneratedAt),
					zap.Int("tickers", len(snap.Tickers)),
				)
				return snap.Tickers, nil
			}
			b.logger.Error("no usable universe snapshot", zap.Error(snapErr))
		}
		return nil, err
	}

	if b.store != nil {
		snap := Snapshot{GeneratedAt: time.Now().UTC(), Tickers: tickers}
		if err := archive.WriteJSON(ctx, b.store, SnapshotPath, snap); err != nil {
			b.logger.Warn("failed to archive universe", zap.Error(err))
		}
	}

	return tickers, nil
}

func (b *Builder) build(ctx context.Context, includeBroad bool) ([]core.Ticker, error) {
	var symbols []string
	for _, src := range b.sourcesFor(includeBroad) {
		got, err := b.fetchSource(ctx, src)
		if err != nil {
			return nil, core.WrapError(core.ErrUniverseSource, fmt.Errorf("%s: %w", src.Name, err))
		}
		b.logger.Debug("constituents fetched",
			zap.String("source", src.Name),
			zap.Int("symbols", len(got)),
		)
		symbols = append(symbols, got...)
	}

	tickers := NormalizeAll(symbols)
	if len(tickers) == 0 {
		return nil, core.ErrUniverseEmpty
	}
	return tickers, nil
}

func (b *Builder) fetchSource(ctx context.Context, src Source) ([]string, error) {
	resp, err := b.client.R().SetContext(ctx).Get(src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src.URL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", src.URL, resp.StatusCode())
	}
	return Extract(bytes.NewReader(resp.Body()), src)
}

// Extract reads a constituent page and returns the raw symbols of the
// table src.Policy selects.
func Extract(r io.Reader, src Source) ([]string, error) {
	tables, err := ParseTables(r)
	if err != nil {
		return nil, err
	}

	policy := src.Policy
	if policy == nil {
		policy = Largest
	}
	table, err := policy(tables)
	if err != nil {
		return nil, err
	}

	labels := src.Labels
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	col, err := SymbolColumn(table, labels...)
	if err != nil {
		return nil, err
	}
	return table.Column(col), nil
}

func (b *Builder) loadSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := archive.ReadJSON(ctx, b.store, SnapshotPath, &snap); err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return snap, fmt.Errorf("no snapshot archived yet: %w", err)
		}
		return snap, err
	}
	return snap, nil
}
