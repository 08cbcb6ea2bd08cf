package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	CoinGecko CoinGeckoConfig `mapstructure:"coingecko"`
	Poll      PollConfig      `mapstructure:"poll"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Chart     ChartConfig     `mapstructure:"chart"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

type CoinGeckoConfig struct {
	REST    RESTConfig    `mapstructure:"rest"`
	Markets MarketsConfig `mapstructure:"markets"`
}

type RESTConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	APIKey         string        `mapstructure:"api_key"`
	APIKeyHeader   string        `mapstructure:"api_key_header"`    // "x-cg-demo-api-key" or "x-cg-pro-api-key"
	APIKeySSMParam string        `mapstructure:"api_key_ssm_param"` // prod only
}

// MarketsConfig fixes the coins/markets request parameters.
type MarketsConfig struct {
	VsCurrency string `mapstructure:"vs_currency"`
	Order      string `mapstructure:"order"`
	PerPage    int    `mapstructure:"per_page"`
}

// PollConfig controls the refetch timer and the fresh window of the query cache.
type PollConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	StaleTime time.Duration `mapstructure:"stale_time"`
}

type CacheConfig struct {
	Backend string      `mapstructure:"backend"` // "memory" or "redis"
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr             string        `mapstructure:"addr"`
	Password         string        `mapstructure:"password"`
	PasswordSSMParam string        `mapstructure:"password_ssm_param"`
	DB               int           `mapstructure:"db"`
	TTL              time.Duration `mapstructure:"ttl"` // lifetime of a cached collection
}

type ChartConfig struct {
	Width        int  `mapstructure:"width"`
	Height       int  `mapstructure:"height"`
	StableColors bool `mapstructure:"stable_colors"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

// Load loads application configuration using Viper and exits on failure.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	cfg, err := LoadFrom(searchPaths()...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom reads config.yaml from the first of the given directories that has one.
// A missing file is not an error: defaults and environment variables still apply.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	// Support environment variables with dot notation (e.g., POLL_INTERVAL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the poller and query cache cannot run with.
func (c *Config) Validate() error {
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.StaleTime < 0 || c.Poll.StaleTime > c.Poll.Interval {
		return fmt.Errorf("poll.stale_time must be within [0, poll.interval], got %s", c.Poll.StaleTime)
	}
	if c.CoinGecko.Markets.PerPage <= 0 {
		return fmt.Errorf("coingecko.markets.per_page must be positive, got %d", c.CoinGecko.Markets.PerPage)
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Redis.TTL <= c.Poll.Interval {
			return fmt.Errorf("cache.redis.ttl must exceed poll.interval, got %s", c.Cache.Redis.TTL)
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("coingecko.rest.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko.rest.timeout", 10*time.Second)
	v.SetDefault("coingecko.rest.api_key", "")
	v.SetDefault("coingecko.rest.api_key_header", "x-cg-demo-api-key")
	v.SetDefault("coingecko.rest.api_key_ssm_param", "")
	v.SetDefault("coingecko.markets.vs_currency", "usd")
	v.SetDefault("coingecko.markets.order", "market_cap_desc")
	v.SetDefault("coingecko.markets.per_page", 12)

	v.SetDefault("poll.interval", 30*time.Second)
	v.SetDefault("poll.stale_time", 25*time.Second)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.password_ssm_param", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.ttl", time.Hour)

	v.SetDefault("chart.width", 960)
	v.SetDefault("chart.height", 384)
	v.SetDefault("chart.stable_colors", false)

	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.read_header_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 7)
}

func searchPaths() []string {
	var paths []string
	if dir := os.Getenv("CRYPTODASH_CONFIG"); dir != "" {
		paths = append(paths, dir)
	}

	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		paths = append(paths, filepath.Join(pwd, "config"), filepath.Join(pwd, "../../config"))
	} else {
		paths = append(paths, filepath.Join(filepath.Dir(ex), "../config"))
	}
	return paths
}
