package main

import (
	"fmt"

	"github.com/newthinker/volscreen/internal/app"
	"github.com/newthinker/volscreen/internal/collector/yahoo"
	"github.com/newthinker/volscreen/internal/config"
	"github.com/newthinker/volscreen/internal/logger"
	"github.com/newthinker/volscreen/internal/metrics"
	"github.com/newthinker/volscreen/internal/notifier/telegram"
	"github.com/newthinker/volscreen/internal/notifier/webhook"
	"github.com/newthinker/volscreen/internal/storage/archive"
	"github.com/newthinker/volscreen/internal/universe"
	"go.uber.org/zap"
)

// loadConfig reads and validates configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if debug {
		cfg.Log.Debug = true
	}

	log, err := logger.New(logger.Options{Debug: cfg.Log.Debug, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, log, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, log, nil
}

func openArchive(cfg *config.Config) (archive.Storage, error) {
	s3 := cfg.Storage.S3
	return archive.Open(cfg.Storage.Type, cfg.Storage.Path, archive.S3Config{
		Bucket:    s3.Bucket,
		Endpoint:  s3.Endpoint,
		Region:    s3.Region,
		AccessKey: s3.AccessKey,
		SecretKey: s3.SecretKey,
		Prefix:    s3.Prefix,
	})
}

func newUniverse(cfg *config.Config, store archive.Storage, log *zap.Logger) *universe.Builder {
	opts := []universe.Option{universe.WithLogger(log)}
	if store != nil {
		opts = append(opts, universe.WithSnapshots(store, cfg.Universe.FallbackToSnapshot))
	}
	return universe.NewBuilder(cfg.Universe.UserAgent, cfg.Universe.Timeout, opts...)
}

func newTelegram(cfg *config.Config, opts ...telegram.Option) *telegram.Telegram {
	tc := cfg.Telegram
	base := []telegram.Option{
		telegram.WithBaseURL(tc.BaseURL),
		telegram.WithParseMode(tc.ParseMode),
		telegram.WithTimeout(tc.Timeout),
	}
	return telegram.New(tc.BotToken, tc.ChatID, append(base, opts...)...)
}

// buildApp wires the pipeline from config. withNotifiers is false for
// dry runs.
func buildApp(cfg *config.Config, log *zap.Logger, reg *metrics.Registry, withNotifiers bool) (*app.App, error) {
	store, err := openArchive(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	history := yahoo.NewHistory(cfg.Fetcher.ChartBaseURL, cfg.Fetcher.Timeout, cfg.Fetcher.Concurrency)
	a := app.New(cfg, log, newUniverse(cfg, store, log), history)
	a.SetSummaryProvider(yahoo.NewSummary())
	if store != nil {
		a.SetArchive(store)
	}
	if reg != nil {
		a.SetMetrics(reg)
	}

	if !withNotifiers {
		return a, nil
	}

	if err := cfg.ValidateTelegram(); err != nil {
		log.Warn("telegram disabled", zap.Error(err))
	} else if err := a.RegisterNotifier(newTelegram(cfg)); err != nil {
		return nil, err
	}

	if cfg.Webhook.URL != "" {
		if err := a.RegisterNotifier(webhook.New(cfg.Webhook.URL, cfg.Webhook.Headers)); err != nil {
			return nil, err
		}
	}

	return a, nil
}
