package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PRICES"

type Config struct {
	CoinGecko CoinGeckoConfig `mapstructure:"coingecko"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
}

type CoinGeckoConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"` // 0 keeps the http.Client default (no timeout)
	UserAgent string        `mapstructure:"user_agent"`
}

// StorageConfig selects the relational backend for the prices and mapping tables.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	// URL is a SQLite file path or a Postgres DSN. Bound to DATABASE_URL.
	URL string `mapstructure:"url"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// CreateDatabase creates the Postgres database before migrating when it is missing.
	CreateDatabase bool           `mapstructure:"create_database"`
	Postgres       PostgresConfig `mapstructure:"postgres"`
}

type ScheduleConfig struct {
	HistoricalEvery time.Duration `mapstructure:"historical_every"`
	LatestEvery     time.Duration `mapstructure:"latest_every"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
}

type IngestConfig struct {
	// CacheMappings loads the whole mapping table once per run instead of querying per symbol.
	CacheMappings bool `mapstructure:"cache_mappings"`
}

// RedisConfig configures the optional latest-price mirror. Empty Addr disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Key      string        `mapstructure:"key"`
	Channel  string        `mapstructure:"channel"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // optional rotated file sink
	Environment string `mapstructure:"environment"` // "dev" or "prod"

	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko.timeout", 0)
	v.SetDefault("coingecko.user_agent", "coinprices/1.0")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.url", "prices.db")
	v.SetDefault("storage.max_open_conns", 10)
	v.SetDefault("storage.max_idle_conns", 5)
	v.SetDefault("storage.conn_max_lifetime", time.Hour)
	v.SetDefault("storage.create_database", false)
	v.SetDefault("storage.postgres.host", "")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.dbname", "")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.timezone", "UTC")
	v.SetDefault("storage.postgres.parameter_store.enabled", false)
	v.SetDefault("storage.postgres.parameter_store.host_param", "")
	v.SetDefault("storage.postgres.parameter_store.user_param", "")
	v.SetDefault("storage.postgres.parameter_store.password_param", "")

	v.SetDefault("schedule.historical_every", time.Hour)
	v.SetDefault("schedule.latest_every", time.Minute)
	v.SetDefault("schedule.run_on_start", false)

	v.SetDefault("ingest.cache_mappings", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "prices:latest")
	v.SetDefault("redis.channel", "prices:latest:pub")
	v.SetDefault("redis.ttl", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", true)
}

// Load reads configuration with Viper.
// A .env file is applied to the process environment first, then config.yaml
// (explicit path, or searched in ., ./config and $HOME/.coinprices) is read
// and finally overridden by PRICES_* environment variables. DATABASE_URL
// always maps to storage.url.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".coinprices"))
		}
	}

	// e.g. PRICES_STORAGE_DRIVER, PRICES_LOG_LEVEL
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("storage.url", envPrefix+"_STORAGE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind DATABASE_URL: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.URL == "" {
			errs = append(errs, "storage.url (DATABASE_URL) is required for sqlite")
		}
	case "postgres":
	default:
		errs = append(errs, fmt.Sprintf("unsupported storage.driver %q", c.Storage.Driver))
	}
	if c.CoinGecko.BaseURL == "" {
		errs = append(errs, "coingecko.base_url is required")
	}
	if c.Schedule.HistoricalEvery <= 0 {
		errs = append(errs, "schedule.historical_every must be positive")
	}
	if c.Schedule.LatestEvery <= 0 {
		errs = append(errs, "schedule.latest_every must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
