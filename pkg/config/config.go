// Package config loads the feed configuration from an optional YAML file,
// PEXELS_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/Sternrassler/pexels-feed/pkg/client"
	"github.com/Sternrassler/pexels-feed/pkg/logging"
	"github.com/Sternrassler/pexels-feed/pkg/model"
)

// EnvPrefix is the prefix of environment variable overrides (PEXELS_API_KEY, ...).
const EnvPrefix = "PEXELS"

// Config is the complete feed configuration.
type Config struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	PerPage   int           `mapstructure:"per_page"`
	Timeout   time.Duration `mapstructure:"timeout"`

	// Debounce is the quiet period before a typed query is searched
	Debounce time.Duration `mapstructure:"debounce"`

	Redis  RedisConfig  `mapstructure:"redis"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Retry  RetryConfig  `mapstructure:"retry"`
	Status StatusConfig `mapstructure:"status"`
	Log    LogConfig    `mapstructure:"log"`
}

// RedisConfig configures the optional shared Redis. Empty Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig configures the in-memory response cache.
type CacheConfig struct {
	MemorySize int           `mapstructure:"memory_size"`
	MemoryTTL  time.Duration `mapstructure:"memory_ttl"`
}

// RetryConfig configures request retries.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// StatusConfig configures the status HTTP server. Empty Addr disables it.
type StatusConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	cc := client.DefaultConfig("")
	return &Config{
		BaseURL:   cc.BaseURL,
		UserAgent: cc.UserAgent,
		PerPage:   cc.PerPage,
		Timeout:   cc.Timeout,
		Debounce:  300 * time.Millisecond,
		Cache: CacheConfig{
			MemorySize: cc.MemoryCacheSize,
			MemoryTTL:  cc.MemoryCacheTTL,
		},
		Retry: RetryConfig{
			MaxAttempts:    cc.MaxAttempts,
			InitialBackoff: cc.InitialBackoff,
			MaxBackoff:     cc.MaxBackoff,
		},
		Status: StatusConfig{Addr: "127.0.0.1:8089"},
		Log:    LogConfig{Level: string(logging.LevelInfo)},
	}
}

// NewViper returns a viper instance with defaults and environment overrides
// registered. Flags may be bound to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()

	d := Default()
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("per_page", d.PerPage)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("debounce", d.Debounce)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("cache.memory_size", d.Cache.MemorySize)
	v.SetDefault("cache.memory_ttl", d.Cache.MemoryTTL)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial_backoff", d.Retry.InitialBackoff)
	v.SetDefault("retry.max_backoff", d.Retry.MaxBackoff)
	v.SetDefault("status.addr", d.Status.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the configuration. An explicit path must exist; without one,
// pexels-feed.yaml is looked up in the working directory and the user
// config directory and silently skipped when absent.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pexels-feed")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "pexels-feed"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the feed cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, fmt.Errorf("api_key is required (set %s_API_KEY or --api-key)", EnvPrefix))
	}
	if c.PerPage < 1 || c.PerPage > model.MaxPerPage {
		errs = append(errs, fmt.Errorf("per_page must be between 1 and %d (got %d)", model.MaxPerPage, c.PerPage))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be > 0 (got %v)", c.Timeout))
	}
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce must be >= 0 (got %v)", c.Debounce))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be >= 1 (got %d)", c.Retry.MaxAttempts))
	}
	if c.Retry.InitialBackoff <= 0 || c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		errs = append(errs, fmt.Errorf("retry backoff range %v..%v is invalid", c.Retry.InitialBackoff, c.Retry.MaxBackoff))
	}
	if c.Cache.MemorySize < 1 {
		errs = append(errs, fmt.Errorf("cache.memory_size must be >= 1 (got %d)", c.Cache.MemorySize))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// RedisOptions returns the Redis connection options, or nil when Redis is
// not configured.
func (c *Config) RedisOptions() *redis.Options {
	if c.Redis.Addr == "" {
		return nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// ClientConfig converts the configuration into the Pexels client settings.
func (c *Config) ClientConfig(redisClient *redis.Client) client.Config {
	return client.Config{
		APIKey:          c.APIKey,
		BaseURL:         c.BaseURL,
		UserAgent:       c.UserAgent,
		PerPage:         c.PerPage,
		Timeout:         c.Timeout,
		Redis:           redisClient,
		MemoryCacheSize: c.Cache.MemorySize,
		MemoryCacheTTL:  c.Cache.MemoryTTL,
		MaxAttempts:     c.Retry.MaxAttempts,
		InitialBackoff:  c.Retry.InitialBackoff,
		MaxBackoff:      c.Retry.MaxBackoff,
	}
}

// LoggingConfig converts the configuration into logger settings.
func (c *Config) LoggingConfig() logging.Config {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.Log.Pretty
	return cfg
}
