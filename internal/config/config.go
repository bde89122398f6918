package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Queue full-queue policies.
const (
	PolicyReject     = "reject"
	PolicyDropOldest = "drop_oldest"
)

// Config is the root configuration for the bot service.
// Values come from Default(), then an optional JSON5 config file,
// then RUBIKA_* environment variables (env wins).
type Config struct {
	BotToken      string `json:"bot_token"`
	OwnerID       string `json:"owner_id"`
	WebhookSecret string `json:"webhook_secret"`
	DatabaseURL   string `json:"database_url"`
	LogLevel      string `json:"log_level"`
	HTTPAddr      string `json:"http_addr"`

	API       APIConfig      `json:"api"`
	Webhook   WebhookConfig  `json:"webhook"`
	Queue     QueueConfig    `json:"queue"`
	Ingress   IngressConfig  `json:"ingress"`
	Cache     CacheConfig    `json:"cache"`
	Snapshots SnapshotConfig `json:"snapshots"`
	Janitor   JanitorConfig  `json:"janitor"`
	Plugins   PluginConfig   `json:"plugins"`
	Tracing   TracingConfig  `json:"tracing"`
}

// APIConfig shapes the outbound Rubika Bot API client.
type APIConfig struct {
	BaseURL            string  `json:"base_url"`
	TimeoutSeconds     float64 `json:"timeout_seconds"`
	RetryAttempts      int     `json:"retry_attempts"`
	RetryBackoff       float64 `json:"retry_backoff"`
	RateLimitPerSecond int     `json:"rate_limit_per_second"`
}

// WebhookConfig controls endpoint registration with the upstream platform.
type WebhookConfig struct {
	BaseURL  string `json:"base_url"`
	Register bool   `json:"register"`
}

// QueueConfig shapes the in-memory job queue and its workers.
type QueueConfig struct {
	MaxSize           int    `json:"max_size"`
	FullPolicy        string `json:"full_policy"`
	WorkerConcurrency int    `json:"worker_concurrency"`
	DedupTTLSeconds   int    `json:"dedup_ttl_seconds"`
}

// IngressConfig guards the webhook endpoints as a whole (not per client).
type IngressConfig struct {
	RateLimitPerMinute int `json:"rate_limit_per_minute"`
}

// CacheConfig shapes the group-settings read-through cache.
type CacheConfig struct {
	TTLSeconds int `json:"ttl_seconds"`
	Size       int `json:"size"`
}

// SnapshotConfig controls per-job incoming_updates persistence.
type SnapshotConfig struct {
	Enabled        bool `json:"enabled"`
	StoreRaw       bool `json:"store_raw"`
	RetentionHours int  `json:"retention_hours"`
}

// JanitorConfig controls the background retention loop.
// Cron, when set, overrides the fixed interval.
type JanitorConfig struct {
	IntervalSeconds     int    `json:"interval_seconds"`
	Cron                string `json:"cron"`
	MessagesKeepPerChat int    `json:"messages_keep_per_chat"`
}

// PluginConfig tunes individual plugins.
type PluginConfig struct {
	PanelEnabled           bool `json:"panel_enabled"`
	AntiFloodWindowSeconds int  `json:"anti_flood_window_seconds"`
	ReportAntiActions      bool `json:"report_anti_actions"`
}

// TracingConfig enables OTLP trace export when an endpoint is set.
type TracingConfig struct {
	OTLPEndpoint string `json:"otlp_endpoint"`
}

// Default returns a Config with the documented defaults.
func Default() *Config {
	return &Config{
		DatabaseURL: "sqlite:///data/bot.db",
		LogLevel:    "INFO",
		HTTPAddr:    ":8080",
		API: APIConfig{
			BaseURL:            "https://botapi.rubika.ir/v3",
			TimeoutSeconds:     10,
			RetryAttempts:      3,
			RetryBackoff:       0.5,
			RateLimitPerSecond: 20,
		},
		Webhook: WebhookConfig{Register: true},
		Queue: QueueConfig{
			MaxSize:           1000,
			FullPolicy:        PolicyReject,
			WorkerConcurrency: 4,
			DedupTTLSeconds:   120,
		},
		Ingress: IngressConfig{RateLimitPerMinute: 120},
		Cache:   CacheConfig{TTLSeconds: 90, Size: 1024},
		Snapshots: SnapshotConfig{
			Enabled:        true,
			RetentionHours: 48,
		},
		Janitor: JanitorConfig{
			IntervalSeconds:     600,
			MessagesKeepPerChat: 10000,
		},
		Plugins: PluginConfig{
			PanelEnabled:           true,
			AntiFloodWindowSeconds: 8,
			ReportAntiActions:      true,
		},
	}
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("RUBIKA_BOT_TOKEN is required")
	}
	switch c.Queue.FullPolicy {
	case PolicyReject, PolicyDropOldest:
	default:
		return fmt.Errorf("invalid queue full policy %q (want %q or %q)", c.Queue.FullPolicy, PolicyReject, PolicyDropOldest)
	}
	if c.Queue.MaxSize < 1 {
		return fmt.Errorf("queue max size must be >= 1, got %d", c.Queue.MaxSize)
	}
	if c.Queue.WorkerConcurrency < 1 {
		return fmt.Errorf("worker concurrency must be >= 1, got %d", c.Queue.WorkerConcurrency)
	}
	return nil
}

// SlogLevel maps the configured log level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DBPath strips the sqlite:/// prefix from the database URL.
// Non-sqlite URLs pass through unchanged.
func (c *Config) DBPath() string {
	return strings.TrimPrefix(c.DatabaseURL, "sqlite:///")
}

// IsPostgres reports whether the database URL selects the postgres backend.
func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}
