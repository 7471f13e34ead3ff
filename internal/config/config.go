// Package config loads and validates snapshot service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Workers  WorkersConfig  `mapstructure:"workers"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	Sitemap  SitemapConfig  `mapstructure:"sitemap"`
	Events   EventsConfig   `mapstructure:"events"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// WorkersConfig governs the job worker pool.
type WorkersConfig struct {
	Count      int `mapstructure:"count"`
	QueueDepth int `mapstructure:"queue_depth"`
}

// RendererConfig configures the headless rendering subsystem.
type RendererConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	NavTimeoutSec  int    `mapstructure:"nav_timeout_seconds"`
	SettleMs       int    `mapstructure:"settle_ms"`
	ScrollStepPx   int    `mapstructure:"scroll_step_px"`
	ScrollDelayMs  int    `mapstructure:"scroll_delay_ms"`
	ViewportWidth  int    `mapstructure:"viewport_width"`
	ViewportHeight int    `mapstructure:"viewport_height"`
}

// StorageConfig sets the root directory for snapshot artifacts.
type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// DBConfig controls the job store backend. An empty DSN selects the
// in-memory store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// SitemapConfig tunes the sitemap resolver.
type SitemapConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// EventsConfig names the topic for job completion events. An empty topic
// disables publishing.
type EventsConfig struct {
	CompletedTopic string `mapstructure:"completed_topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SNAPSHOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("workers.count", 2)
	v.SetDefault("workers.queue_depth", 64)
	v.SetDefault("renderer.user_agent", "web-snapshot-bot/0.1")
	v.SetDefault("renderer.nav_timeout_seconds", 60)
	v.SetDefault("renderer.settle_ms", 1000)
	v.SetDefault("renderer.scroll_step_px", 100)
	v.SetDefault("renderer.scroll_delay_ms", 100)
	v.SetDefault("renderer.viewport_width", 1920)
	v.SetDefault("renderer.viewport_height", 1080)
	v.SetDefault("storage.base_dir", "data/snapshots")
	v.SetDefault("db.table", "snapshot_jobs")
	v.SetDefault("sitemap.timeout_seconds", 10)
	v.SetDefault("sitemap.user_agent", "web-snapshot-sitemap/1.0")
	v.SetDefault("events.completed_topic", "snapshots.completed")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Workers.Count <= 0 {
		return fmt.Errorf("workers.count must be > 0")
	}
	if c.Workers.QueueDepth <= 0 {
		return fmt.Errorf("workers.queue_depth must be > 0")
	}
	if c.Renderer.NavTimeoutSec <= 0 {
		return fmt.Errorf("renderer.nav_timeout_seconds must be > 0")
	}
	if c.Renderer.ScrollStepPx <= 0 {
		return fmt.Errorf("renderer.scroll_step_px must be > 0")
	}
	if strings.TrimSpace(c.Storage.BaseDir) == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if c.Sitemap.TimeoutSeconds <= 0 {
		return fmt.Errorf("sitemap.timeout_seconds must be > 0")
	}
	return nil
}

// NavTimeout returns the renderer navigation timeout as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Renderer.NavTimeoutSec) * time.Second
}

// SitemapTimeout returns the sitemap fetch timeout as a duration.
func (c Config) SitemapTimeout() time.Duration {
	return time.Duration(c.Sitemap.TimeoutSeconds) * time.Second
}
