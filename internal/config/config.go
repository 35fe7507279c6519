package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"crypto-price-tracker/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Retention RetentionConfig `mapstructure:"retention"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN selects
// the in-memory store.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig covers the optional Redis latest-price cache.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// SchedulerConfig governs fetch cadence.
type SchedulerConfig struct {
	Interval             time.Duration `mapstructure:"interval"`
	AlignToInterval      bool          `mapstructure:"align_to_interval"`
	StartupDelay         time.Duration `mapstructure:"startup_delay"`
	HousekeepingInterval time.Duration `mapstructure:"housekeeping_interval"`
}

// ProviderConfig captures CoinGecko-compatible API connectivity. An empty
// api_key, or the placeholder value "demo", selects unauthenticated access.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	VsCurrency     string        `mapstructure:"vs_currency"`
	Order          string        `mapstructure:"order"`
	PerPage        int           `mapstructure:"per_page"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AlertingConfig defines threshold seeding and alert routing.
type AlertingConfig struct {
	Enabled    bool               `mapstructure:"enabled"`
	Thresholds map[string]float64 `mapstructure:"thresholds"`
	Telegram   TelegramConfig     `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram delivery channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	Backend   string `mapstructure:"backend"`
	Namespace string `mapstructure:"namespace"`
	Region    string `mapstructure:"region"`
}

// RetentionConfig controls housekeeping pruning. Zero max_age disables it.
type RetentionConfig struct {
	MaxAge time.Duration `mapstructure:"max_age"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COINWATCHER")
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
	v.SetDefault("app.name", "coinwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "30s")
	v.SetDefault("scheduler.align_to_interval", false)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.housekeeping_interval", "1h")

	v.SetDefault("provider.base_url", "https://api.coingecko.com/api/v3/coins/markets")
	v.SetDefault("provider.vs_currency", "usd")
	v.SetDefault("provider.order", "market_cap_desc")
	v.SetDefault("provider.per_page", 10)
	v.SetDefault("provider.request_timeout", "10s")
	v.SetDefault("provider.user_agent", "coinwatcher/1.0")

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("metrics.backend", "log")
	v.SetDefault("metrics.namespace", "CryptoTracker/Application")

	v.SetDefault("retention.max_age", "0s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
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

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Scheduler.HousekeepingInterval <= 0 {
		return fmt.Errorf("scheduler.housekeeping_interval must be greater than zero")
	}
	if c.Provider.PerPage <= 0 {
		return fmt.Errorf("provider.per_page must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	for symbol, threshold := range c.Alerting.Thresholds {
		if threshold <= 0 {
			return fmt.Errorf("alerting.thresholds[%s] must be greater than zero", symbol)
		}
	}
	switch c.Metrics.Backend {
	case "", "none", "log", "cloudwatch":
	default:
		return fmt.Errorf("metrics.backend must be one of none, log, cloudwatch")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
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
