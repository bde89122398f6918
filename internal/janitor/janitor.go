// Package janitor runs the background retention loop: expired update
// snapshots are deleted and the per-chat message log is trimmed.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"

	"github.com/Opselon/rubica-bot/internal/config"
	"github.com/Opselon/rubica-bot/internal/store"
)

// Janitor owns the periodic cleanup. Schedule is a fixed interval by
// default; a cron expression takes over when configured.
type Janitor struct {
	store *store.Store
	cfg   *config.Config
	gron  *gronx.Gronx
}

func New(s *store.Store, cfg *config.Config) *Janitor {
	return &Janitor{store: s, cfg: cfg, gron: gronx.New()}
}

// Run blocks until ctx is canceled. Failures inside a tick are logged and
// the loop keeps going.
func (j *Janitor) Run(ctx context.Context) error {
	if expr := j.cfg.Janitor.Cron; expr != "" {
		if !j.gron.IsValid(expr) {
			slog.Warn("invalid janitor cron, falling back to interval", "cron", expr)
		} else {
			return j.runCron(ctx, expr)
		}
	}

	interval := time.Duration(j.cfg.Janitor.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 600 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("janitor started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("janitor stopped")
			return ctx.Err()
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// runCron fires Sweep whenever the minute matches the expression.
func (j *Janitor) runCron(ctx context.Context, expr string) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	slog.Info("janitor started", "cron", expr)
	for {
		select {
		case <-ctx.Done():
			slog.Info("janitor stopped")
			return ctx.Err()
		case at := <-ticker.C:
			due, err := j.gron.IsDue(expr, at)
			if err != nil {
				slog.Error("cron evaluation failed", "cron", expr, "error", err)
				continue
			}
			if due {
				j.Sweep(ctx)
			}
		}
	}
}

// Sweep performs one cleanup pass. Exported for the db CLI command.
func (j *Janitor) Sweep(ctx context.Context) {
	start := time.Now()

	if j.cfg.Snapshots.Enabled {
		maxAge := time.Duration(j.cfg.Snapshots.RetentionHours) * time.Hour
		deleted, err := j.store.CleanupIncomingUpdates(ctx, maxAge)
		if err != nil {
			slog.Error("snapshot cleanup failed", "error", err)
		} else if deleted > 0 {
			slog.Info("snapshots cleaned", "deleted", deleted, "max_age", maxAge)
		}
	}

	trimmed, err := j.store.TrimMessagesPerChat(ctx, j.cfg.Janitor.MessagesKeepPerChat)
	if err != nil {
		slog.Error("message trim failed", "error", err)
	} else if trimmed > 0 {
		slog.Info("messages trimmed", "deleted", trimmed, "keep_per_chat", j.cfg.Janitor.MessagesKeepPerChat)
	}

	slog.Debug("janitor sweep done", "elapsed", time.Since(start))
}
