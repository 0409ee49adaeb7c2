// Package config loads gearsel configuration from YAML, an optional .env file
// and GEARSEL_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gearsel/internal/catalog"
	"gearsel/internal/observability"
	"gearsel/internal/pricing"
)

// Config holds all configuration for gearsel binaries.
type Config struct {
	Log       observability.LogConfig `yaml:"log"`
	Pricing   pricing.Config          `yaml:"pricing"`
	Defaults  catalog.Defaults        `yaml:"defaults"`
	Selection SelectionConfig         `yaml:"selection"`
	Store     StoreConfig             `yaml:"store"`
	Snapshot  SnapshotConfig          `yaml:"snapshot"`
	Changelog ChangelogConfig         `yaml:"changelog"`
	Manifest  ManifestConfig          `yaml:"manifest"`
	Kafka     KafkaConfig             `yaml:"kafka"`
	Redis     RedisConfig             `yaml:"redis"`
	Metrics   MetricsConfig           `yaml:"metrics"`
}

// SelectionConfig holds selection defaults.
type SelectionConfig struct {
	TopN          int     `yaml:"top_n"`
	WorkCondition string  `yaml:"work_condition"`
	Temperature   float64 `yaml:"temperature"`
}

// StoreConfig selects the catalog store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // memory|pebble|badger
	Dir     string `yaml:"dir"`
}

type SnapshotConfig struct {
	Dir string `yaml:"dir"`
}

// ChangelogConfig controls where catalog changes are appended.
type ChangelogConfig struct {
	Sink  string `yaml:"sink"` // file|kafka|both|none
	Dir   string `yaml:"dir"`
	File  string `yaml:"file"`
	Topic string `yaml:"topic"`
}

// ManifestConfig controls where the latest snapshot pointer is published.
type ManifestConfig struct {
	Sink   string `yaml:"sink"`   // file|kafka|both
	Source string `yaml:"source"` // file|kafka
	Topic  string `yaml:"topic"`
	Key    string `yaml:"key"`
}

type KafkaConfig struct {
	Bootstrap string `yaml:"bootstrap"`
	GroupID   string `yaml:"group_id"`
	TopicRaw  string `yaml:"topic_raw"`
	TopicOut  string `yaml:"topic_out"`
	TxID      string `yaml:"tx_id"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads configuration from a YAML file and applies .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration suitable for local runs.
func DefaultConfig() *Config {
	return &Config{
		Log: observability.LogConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "gearsel",
		},
		Pricing:  pricing.DefaultConfig(),
		Defaults: catalog.DefaultDefaults(),
		Selection: SelectionConfig{
			TopN:          5,
			WorkCondition: "III类:扭矩变化中等",
			Temperature:   30,
		},
		Store: StoreConfig{
			Backend: "memory",
			Dir:     "./data/catalog",
		},
		Snapshot: SnapshotConfig{Dir: "./snapshots"},
		Changelog: ChangelogConfig{
			Sink:  "file",
			Dir:   "./changelog",
			File:  "catalog.jsonl",
			Topic: "gearsel.catalog-changelog",
		},
		Manifest: ManifestConfig{
			Sink:   "file",
			Source: "file",
			Topic:  "gearsel.catalog-snapshots",
			Key:    "catalog-manifest-latest",
		},
		Kafka: KafkaConfig{
			Bootstrap: "localhost:19092",
			GroupID:   "gearsel-importer",
			TopicRaw:  "gearsel.catalog-raw",
			TopicOut:  "gearsel.catalog-canonical",
			TxID:      "gearsel-importer-1",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "gearsel:",
			TTL:    10 * time.Minute,
		},
		Metrics: MetricsConfig{Addr: ":9090"},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Pricing.MarketMultiplier < 1 {
		return fmt.Errorf("market_multiplier must be >= 1, got %v", c.Pricing.MarketMultiplier)
	}
	if c.Pricing.MaxDiscountRate < 0 || c.Pricing.MaxDiscountRate > 1 {
		return fmt.Errorf("max_discount_rate must be within [0,1], got %v", c.Pricing.MaxDiscountRate)
	}
	if d := c.Pricing.Discounts.Default; d < 0 || d > 1 {
		return fmt.Errorf("default discount must be within [0,1], got %v", d)
	}
	if !oneOf(c.Store.Backend, "memory", "pebble", "badger") {
		return fmt.Errorf("invalid store backend: %s", c.Store.Backend)
	}
	if !oneOf(c.Changelog.Sink, "file", "kafka", "both", "none") {
		return fmt.Errorf("invalid changelog sink: %s", c.Changelog.Sink)
	}
	if !oneOf(c.Manifest.Sink, "file", "kafka", "both") {
		return fmt.Errorf("invalid manifest sink: %s", c.Manifest.Sink)
	}
	if !oneOf(c.Manifest.Source, "file", "kafka") {
		return fmt.Errorf("invalid manifest source: %s", c.Manifest.Source)
	}
	if c.Selection.TopN < 1 {
		return fmt.Errorf("selection top_n must be >= 1")
	}
	r := c.Defaults.InputSpeedRange
	if r[0] > r[1] {
		return fmt.Errorf("defaults input_speed_range must be ordered, got %v", r)
	}
	return nil
}

// UsesKafka reports whether any sink or source needs a broker.
func (c *Config) UsesKafka() bool {
	return c.Changelog.Sink == "kafka" || c.Changelog.Sink == "both" ||
		c.Manifest.Sink == "kafka" || c.Manifest.Sink == "both" ||
		c.Manifest.Source == "kafka"
}

func oneOf(v string, opts ...string) bool {
	for _, o := range opts {
		if v == o {
			return true
		}
	}
	return false
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GEARSEL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("GEARSEL_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("GEARSEL_MARKET_MULTIPLIER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pricing.MarketMultiplier = f
		}
	}
	if v := os.Getenv("GEARSEL_FIXED_PRICE_SERIES"); v != "" {
		var series []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				series = append(series, s)
			}
		}
		cfg.Pricing.FixedPriceSeries = series
	}
	if v := os.Getenv("GEARSEL_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("GEARSEL_STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
	if v := os.Getenv("GEARSEL_SNAPSHOT_DIR"); v != "" {
		cfg.Snapshot.Dir = v
	}
	if v := os.Getenv("GEARSEL_CHANGELOG_SINK"); v != "" {
		cfg.Changelog.Sink = v
	}
	if v := os.Getenv("GEARSEL_MANIFEST_SINK"); v != "" {
		cfg.Manifest.Sink = v
	}
	if v := os.Getenv("KAFKA_BOOTSTRAP"); v != "" {
		cfg.Kafka.Bootstrap = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("GEARSEL_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}
