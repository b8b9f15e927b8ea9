package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"riven-sniper/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Deals    DealsConfig    `mapstructure:"deals"`
	Dedupe   DedupeConfig   `mapstructure:"dedupe"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates optional PostgreSQL persistence. An empty DSN
// disables checkpointing entirely.
type DatabaseConfig struct {
	DSN                string        `mapstructure:"dsn"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	CheckpointInterval time.Duration `mapstructure:"checkpoint_interval"`
}

// PollerConfig governs fetch cadence and failure backoff, per source.
type PollerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	Jitter        time.Duration `mapstructure:"jitter"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	BackoffBase   time.Duration `mapstructure:"backoff_base"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
	BackoffCap    time.Duration `mapstructure:"backoff_cap"`
}

// StatsConfig tunes the price-history aggregator.
type StatsConfig struct {
	HistoryCap int     `mapstructure:"history_cap"`
	MinSamples int     `mapstructure:"min_samples"`
	Percentile float64 `mapstructure:"percentile"`
	MaxPrice   float64 `mapstructure:"max_price"`
}

// DealsConfig tunes deal classification.
type DealsConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

// DedupeConfig governs the seen-listing store.
type DedupeConfig struct {
	Retention time.Duration `mapstructure:"retention"`
	Backend   string        `mapstructure:"backend"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
}

// SourcesConfig captures marketplace connectivity.
type SourcesConfig struct {
	RivenMarket    RivenMarketConfig    `mapstructure:"riven_market"`
	WarframeMarket WarframeMarketConfig `mapstructure:"warframe_market"`
}

// RivenMarketConfig 描述 riven.market 抓取参数。
type RivenMarketConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	PageLimit int           `mapstructure:"page_limit"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// WarframeMarketConfig 描述 warframe.market API 参数。
type WarframeMarketConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	Platform  string        `mapstructure:"platform"`
	Language  string        `mapstructure:"language"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	Pushover PushoverConfig `mapstructure:"pushover"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// PushoverConfig 描述 Pushover 告警参数。
type PushoverConfig struct {
	Token   string `mapstructure:"token"`
	UserKey string `mapstructure:"user_key"`
	APIBase string `mapstructure:"api_base"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RIVENSNIPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rivensniper")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.checkpoint_interval", "5m")

	v.SetDefault("poller.interval", "10s")
	v.SetDefault("poller.jitter", "2s")
	v.SetDefault("poller.fetch_timeout", "30s")
	v.SetDefault("poller.backoff_base", "1s")
	v.SetDefault("poller.backoff_factor", 2.0)
	v.SetDefault("poller.backoff_cap", "60s")

	v.SetDefault("stats.history_cap", 200)
	v.SetDefault("stats.min_samples", 5)
	v.SetDefault("stats.percentile", 0.25)
	v.SetDefault("stats.max_price", 50000.0)

	v.SetDefault("deals.threshold", 0.30)

	v.SetDefault("dedupe.retention", "24h")
	v.SetDefault("dedupe.backend", "memory")
	v.SetDefault("dedupe.redis_db", 0)

	v.SetDefault("sources.riven_market.enabled", true)
	v.SetDefault("sources.riven_market.base_url", "https://riven.market")
	v.SetDefault("sources.riven_market.page_limit", 200)
	v.SetDefault("sources.riven_market.timeout", "10s")

	v.SetDefault("sources.warframe_market.enabled", true)
	v.SetDefault("sources.warframe_market.base_url", "https://api.warframe.market")
	v.SetDefault("sources.warframe_market.platform", "pc")
	v.SetDefault("sources.warframe_market.language", "en")
	v.SetDefault("sources.warframe_market.timeout", "10s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"pushover"})
	v.SetDefault("alerting.timeout", "10s")
	v.SetDefault("alerting.pushover.api_base", "https://api.pushover.net")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs sanity checks on configuration values. Violations here
// are fatal at startup, never recovered at runtime.
func (c *Config) Validate() error {
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be greater than zero")
	}
	if c.Poller.BackoffBase <= 0 {
		return fmt.Errorf("poller.backoff_base must be greater than zero")
	}
	if c.Poller.BackoffFactor < 1 {
		return fmt.Errorf("poller.backoff_factor must be at least 1")
	}
	if c.Poller.BackoffCap < c.Poller.BackoffBase {
		return fmt.Errorf("poller.backoff_cap must not be below poller.backoff_base")
	}
	if c.Stats.HistoryCap <= 0 {
		return fmt.Errorf("stats.history_cap must be greater than zero")
	}
	if c.Stats.MinSamples <= 0 {
		return fmt.Errorf("stats.min_samples must be greater than zero")
	}
	if c.Stats.Percentile <= 0 || c.Stats.Percentile > 1 {
		return fmt.Errorf("stats.percentile must be within (0, 1]")
	}
	if c.Deals.Threshold <= 0 || c.Deals.Threshold > 1 {
		return fmt.Errorf("deals.threshold must be within (0, 1]")
	}
	if c.Dedupe.Retention <= 0 {
		return fmt.Errorf("dedupe.retention must be greater than zero")
	}
	switch c.Dedupe.Backend {
	case "memory":
	case "redis":
		if c.Dedupe.RedisAddr == "" {
			return fmt.Errorf("dedupe.redis_addr 必须配置")
		}
	default:
		return fmt.Errorf("dedupe.backend must be memory or redis")
	}
	if !c.Sources.RivenMarket.Enabled && !c.Sources.WarframeMarket.Enabled {
		return fmt.Errorf("at least one marketplace source must be enabled")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Enabled {
		for _, channel := range c.Alerting.Channels {
			switch channel {
			case "pushover":
				if c.Alerting.Pushover.Token == "" || c.Alerting.Pushover.UserKey == "" {
					return fmt.Errorf("alerting.pushover.token 和 user_key 必须配置")
				}
			case "telegram":
				if c.Alerting.Telegram.BotToken == "" || c.Alerting.Telegram.ChatID == "" {
					return fmt.Errorf("alerting.telegram.bot_token 和 chat_id 必须配置")
				}
			default:
				return fmt.Errorf("unknown alerting channel %q", channel)
			}
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
