package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Load reads config from an optional JSON5 file, then overlays env vars.
// A missing file is not an error; env vars alone are a valid configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays RUBIKA_* env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr("RUBIKA_BOT_TOKEN", &c.BotToken)
	envStr("RUBIKA_OWNER_ID", &c.OwnerID)
	envStr("RUBIKA_WEBHOOK_SECRET", &c.WebhookSecret)
	envStr("RUBIKA_DB_URL", &c.DatabaseURL)
	envStr("RUBIKA_LOG_LEVEL", &c.LogLevel)
	envStr("RUBIKA_HTTP_ADDR", &c.HTTPAddr)

	envStr("RUBIKA_API_BASE_URL", &c.API.BaseURL)
	envFloat("RUBIKA_API_TIMEOUT_SECONDS", &c.API.TimeoutSeconds)
	envInt("RUBIKA_API_RETRY_ATTEMPTS", &c.API.RetryAttempts)
	envFloat("RUBIKA_API_RETRY_BACKOFF", &c.API.RetryBackoff)
	envInt("RUBIKA_API_RATE_LIMIT_PER_SECOND", &c.API.RateLimitPerSecond)

	envStr("RUBIKA_WEBHOOK_BASE_URL", &c.Webhook.BaseURL)
	envBool("RUBIKA_REGISTER_WEBHOOK", &c.Webhook.Register)

	envInt("RUBIKA_QUEUE_MAX_SIZE", &c.Queue.MaxSize)
	envStr("RUBIKA_QUEUE_FULL_POLICY", &c.Queue.FullPolicy)
	envInt("RUBIKA_WORKER_CONCURRENCY", &c.Queue.WorkerConcurrency)
	envInt("RUBIKA_DEDUP_TTL_SECONDS", &c.Queue.DedupTTLSeconds)

	envInt("RUBIKA_RATE_LIMIT_PER_MINUTE", &c.Ingress.RateLimitPerMinute)

	envInt("RUBIKA_SETTINGS_CACHE_TTL_SECONDS", &c.Cache.TTLSeconds)
	envInt("RUBIKA_SETTINGS_CACHE_SIZE", &c.Cache.Size)

	envBool("RUBIKA_INCOMING_UPDATES_ENABLED", &c.Snapshots.Enabled)
	envBool("RUBIKA_INCOMING_UPDATES_STORE_RAW", &c.Snapshots.StoreRaw)
	envInt("RUBIKA_INCOMING_UPDATES_RETENTION_HOURS", &c.Snapshots.RetentionHours)

	envInt("RUBIKA_JANITOR_INTERVAL_SECONDS", &c.Janitor.IntervalSeconds)
	envStr("RUBIKA_JANITOR_CRON", &c.Janitor.Cron)
	envInt("RUBIKA_MESSAGES_KEEP_PER_CHAT", &c.Janitor.MessagesKeepPerChat)

	envBool("RUBIKA_PANEL_ENABLED", &c.Plugins.PanelEnabled)
	envInt("RUBIKA_ANTIFLOOD_WINDOW_SECONDS", &c.Plugins.AntiFloodWindowSeconds)
	envBool("RUBIKA_REPORT_ANTI_ACTIONS", &c.Plugins.ReportAntiActions)

	envStr("RUBIKA_OTLP_ENDPOINT", &c.Tracing.OTLPEndpoint)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// envBool honors explicit "false"/"0" so env can switch defaults off.
func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
