package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/newthinker/volscreen/internal/core"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// VOLSCREEN_SCREENER_MIN_REL_VOL.
const EnvPrefix = "VOLSCREEN"

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Universe UniverseConfig `mapstructure:"universe"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"`
	Screener ScreenerConfig `mapstructure:"screener"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	BotToken  string        `mapstructure:"bot_token"`
	ChatID    string        `mapstructure:"chat_id"`
	ParseMode string        `mapstructure:"parse_mode"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type UniverseConfig struct {
	IncludeBroad       bool          `mapstructure:"include_broad"`
	FallbackToSnapshot bool          `mapstructure:"fallback_to_snapshot"`
	UserAgent          string        `mapstructure:"user_agent"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type FetcherConfig struct {
	BatchSize    int           `mapstructure:"batch_size"`
	HistoryDays  int           `mapstructure:"history_days"`
	Concurrency  int           `mapstructure:"concurrency"`
	Summaries    bool          `mapstructure:"summaries"`
	SummaryDelay time.Duration `mapstructure:"summary_delay"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ChartBaseURL string        `mapstructure:"chart_base_url"`
}

type ScreenerConfig struct {
	MinRelVol    float64 `mapstructure:"min_rel_vol"`
	Lookback     int     `mapstructure:"lookback_days"`
	TopN         int     `mapstructure:"top_n"`
	YearWindow   int     `mapstructure:"year_window"`
	MinPrice     float64 `mapstructure:"min_price"`
	MinMarketCap float64 `mapstructure:"min_market_cap"`
	ExcludeToday bool    `mapstructure:"exclude_today"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type"` // "", "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
	Listen   string `mapstructure:"listen"`
}

// ScheduleConfig holds the cron settings used by the schedule command.
type ScheduleConfig struct {
	Cron       string `mapstructure:"cron"`
	Timezone   string `mapstructure:"timezone"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

type LogConfig struct {
	Debug  bool   `mapstructure:"debug"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional file, a .env file in the
// working directory and the environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Variables understood by the original deployment scripts
	_ = v.BindEnv("telegram.bot_token", EnvPrefix+"_TELEGRAM_BOT_TOKEN", "TG_BOT_TOKEN")
	_ = v.BindEnv("telegram.chat_id", EnvPrefix+"_TELEGRAM_CHAT_ID", "TG_CHAT_ID")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("telegram.bot_token", d.Telegram.BotToken)
	v.SetDefault("telegram.chat_id", d.Telegram.ChatID)
	v.SetDefault("telegram.parse_mode", d.Telegram.ParseMode)
	v.SetDefault("telegram.base_url", d.Telegram.BaseURL)
	v.SetDefault("telegram.timeout", d.Telegram.Timeout)

	v.SetDefault("webhook.url", d.Webhook.URL)

	v.SetDefault("universe.include_broad", d.Universe.IncludeBroad)
	v.SetDefault("universe.fallback_to_snapshot", d.Universe.FallbackToSnapshot)
	v.SetDefault("universe.user_agent", d.Universe.UserAgent)
	v.SetDefault("universe.timeout", d.Universe.Timeout)

	v.SetDefault("fetcher.batch_size", d.Fetcher.BatchSize)
	v.SetDefault("fetcher.history_days", d.Fetcher.HistoryDays)
	v.SetDefault("fetcher.concurrency", d.Fetcher.Concurrency)
	v.SetDefault("fetcher.summaries", d.Fetcher.Summaries)
	v.SetDefault("fetcher.summary_delay", d.Fetcher.SummaryDelay)
	v.SetDefault("fetcher.timeout", d.Fetcher.Timeout)
	v.SetDefault("fetcher.chart_base_url", d.Fetcher.ChartBaseURL)

	v.SetDefault("screener.min_rel_vol", d.Screener.MinRelVol)
	v.SetDefault("screener.lookback_days", d.Screener.Lookback)
	v.SetDefault("screener.top_n", d.Screener.TopN)
	v.SetDefault("screener.year_window", d.Screener.YearWindow)
	v.SetDefault("screener.min_price", d.Screener.MinPrice)
	v.SetDefault("screener.min_market_cap", d.Screener.MinMarketCap)
	v.SetDefault("screener.exclude_today", d.Screener.ExcludeToday)

	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.prefix", "")

	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("metrics.listen", d.Metrics.Listen)

	v.SetDefault("schedule.cron", d.Schedule.Cron)
	v.SetDefault("schedule.timezone", d.Schedule.Timezone)
	v.SetDefault("schedule.run_on_start", d.Schedule.RunOnStart)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.format", d.Log.Format)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{
			ParseMode: "Markdown",
			BaseURL:   "https://api.telegram.org",
			Timeout:   30 * time.Second,
		},
		Universe: UniverseConfig{
			UserAgent: "Mozilla/5.0 (compatible; volscreen/1.0)",
			Timeout:   30 * time.Second,
		},
		Fetcher: FetcherConfig{
			BatchSize:    80,
			HistoryDays:  200,
			Concurrency:  8,
			Summaries:    true,
			SummaryDelay: 20 * time.Millisecond,
			Timeout:      30 * time.Second,
			ChartBaseURL: "https://query1.finance.yahoo.com/v8/finance/chart",
		},
		Screener: ScreenerConfig{
			MinRelVol:    5.0,
			Lookback:     63,
			TopN:         20,
			YearWindow:   252,
			MinPrice:     1.0,
			MinMarketCap: 0,
		},
		Storage: StorageConfig{
			Path: "data/archive",
		},
		Metrics: MetricsConfig{
			Listen: ":9108",
		},
		Schedule: ScheduleConfig{
			Cron:     "0 30 21 * * 1-5",
			Timezone: "America/New_York",
		},
		Log: LogConfig{
			Format: "console",
		},
	}
}

// Validate checks the screening parameters for errors.
func (c *Config) Validate() error {
	if c.Screener.MinRelVol < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_rel_vol cannot be negative, got %f", c.Screener.MinRelVol))
	}
	if c.Screener.Lookback < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookback_days must be positive, got %d", c.Screener.Lookback))
	}
	if c.Screener.TopN < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("top_n must be positive, got %d", c.Screener.TopN))
	}
	if c.Screener.YearWindow < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("year_window must be positive, got %d", c.Screener.YearWindow))
	}
	if c.Fetcher.BatchSize < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("batch_size must be positive, got %d", c.Fetcher.BatchSize))
	}
	if c.Fetcher.HistoryDays < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("history_days must be positive, got %d", c.Fetcher.HistoryDays))
	}

	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("schedule timezone %q: %w", c.Schedule.Timezone, err))
		}
	}

	switch c.Storage.Type {
	case "", "localfs":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when storage type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	return nil
}

// ValidateTelegram checks that real bot credentials are present.
func (c *Config) ValidateTelegram() error {
	if isPlaceholder(c.Telegram.BotToken) {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("telegram bot_token required (set TG_BOT_TOKEN)"))
	}
	if isPlaceholder(c.Telegram.ChatID) {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("telegram chat_id required (set TG_CHAT_ID)"))
	}
	return nil
}

func isPlaceholder(v string) bool {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return true
	}
	for _, marker := range []string{"YOUR_", "PASTE", "CHANGEME", "<"} {
		if strings.Contains(v, marker) {
			return true
		}
	}
	return false
}
