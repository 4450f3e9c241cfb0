package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"habitflow/pkg/config"
)

type AnalyticsConfig struct {
	// CacheTTL bounds how long a cached report may serve stale data when
	// an invalidation event is lost.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// RateLimitConfig throttles the unauthenticated auth endpoints per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type WorkerConfig struct {
	Queue    string        `yaml:"queue"`
	DedupTTL time.Duration `yaml:"dedup_ttl"`
	RetryTTL time.Duration `yaml:"retry_ttl"`
}

const (
	StoragePostgres = "postgres"
	// StorageMemory keeps everything in process; for demos and tests.
	StorageMemory = "memory"
)

// OutboxConfig routes events through the outbox_events table. Only
// honoured with postgres storage.
type OutboxConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

type Config struct {
	Env       string              `yaml:"-"`
	LogLevel  string              `yaml:"log_level"`
	Storage   string              `yaml:"storage"`
	DB        config.DBConfig     `yaml:"db"`
	Redis     config.RedisConfig  `yaml:"redis"`
	MQ        config.MQConfig     `yaml:"mq"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	Server    config.ServerConfig `yaml:"server"`
	Analytics AnalyticsConfig     `yaml:"analytics"`
	RateLimit RateLimitConfig     `yaml:"rate_limit"`
	Worker    WorkerConfig        `yaml:"worker"`
	Outbox    OutboxConfig        `yaml:"outbox"`
}

// Load reads CONFIG_ENV / CONFIG_DIR and builds the service config.
func Load() (*Config, error) {
	return LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
}

// LoadFrom merges the yaml layers for env in dir, then applies environment
// overrides and defaults.
func LoadFrom(env, dir string) (*Config, error) {
	tree, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := config.Decode(tree, cfg); err != nil {
		return nil, err
	}
	cfg.Env = env

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	if storage := os.Getenv("STORAGE"); storage != "" {
		cfg.Storage = storage
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if ttl := os.Getenv("ANALYTICS_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.Analytics.CacheTTL = d
		}
	}
	if rps := os.Getenv("RATE_LIMIT_RPS"); rps != "" {
		if f, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = f
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage == "" {
		c.Storage = StoragePostgres
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Analytics.CacheTTL == 0 {
		c.Analytics.CacheTTL = 10 * time.Minute
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 1
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 5
	}
	if c.MQ.MaxRetries == 0 {
		c.MQ.MaxRetries = 3
	}
	if c.Worker.Queue == "" {
		c.Worker.Queue = "analytics.refresh"
	}
	if c.Worker.DedupTTL == 0 {
		c.Worker.DedupTTL = 24 * time.Hour
	}
	if c.Worker.RetryTTL == 0 {
		c.Worker.RetryTTL = time.Hour
	}
	if c.Outbox.Interval == 0 {
		c.Outbox.Interval = time.Second
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 100
	}
	if c.Outbox.MaxRetries == 0 {
		c.Outbox.MaxRetries = 5
	}
}

// Validate rejects configurations the API cannot start with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Env == "production" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt.secret must be at least 32 characters in production")
	}
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DB.Host == "" || c.DB.Name == "" {
			return fmt.Errorf("db.host and db.name are required")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	return nil
}
