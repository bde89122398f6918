// Package app wires the service together and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Opselon/rubica-bot/internal/config"
	"github.com/Opselon/rubica-bot/internal/dedup"
	"github.com/Opselon/rubica-bot/internal/janitor"
	"github.com/Opselon/rubica-bot/internal/payload"
	"github.com/Opselon/rubica-bot/internal/plugins"
	"github.com/Opselon/rubica-bot/internal/queue"
	"github.com/Opselon/rubica-bot/internal/ratelimit"
	"github.com/Opselon/rubica-bot/internal/rubika"
	"github.com/Opselon/rubica-bot/internal/stats"
	"github.com/Opselon/rubica-bot/internal/store"
	"github.com/Opselon/rubica-bot/internal/tracing"
	"github.com/Opselon/rubica-bot/internal/webhook"
	"github.com/Opselon/rubica-bot/internal/worker"
)

// App owns every long-lived component of the bot service.
type App struct {
	cfg       *config.Config
	version   string
	store     *store.Store
	client    *rubika.Client
	collector *stats.Collector
	queue     *queue.JobQueue
	pool      *worker.Pool
	registry  *plugins.Registry
	commands  *plugins.CommandRegistry
	janitor   *janitor.Janitor
	handler   *webhook.Handler
	tracer    trace.Tracer
}

// New builds the full object graph and migrates the schema. Nothing is
// running yet when New returns.
func New(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.IsPostgres() {
		if dir := filepath.Dir(cfg.DBPath()); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	st, err := store.Open(cfg.DatabaseURL, cfg.Cache.Size, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	client := rubika.New(cfg.BotToken, rubika.Options{
		BaseURL:            cfg.API.BaseURL,
		Timeout:            time.Duration(cfg.API.TimeoutSeconds * float64(time.Second)),
		RetryAttempts:      cfg.API.RetryAttempts,
		RetryBackoff:       time.Duration(cfg.API.RetryBackoff * float64(time.Second)),
		RateLimitPerSecond: cfg.API.RateLimitPerSecond,
	})

	collector := stats.New()
	dedupSet := dedup.New(time.Duration(cfg.Queue.DedupTTLSeconds) * time.Second)
	jobQueue := queue.New(cfg.Queue.MaxSize, cfg.Queue.FullPolicy, dedupSet, collector)

	commands := plugins.DefaultCommandRegistry()
	registry := plugins.NewRegistry(
		plugins.Snapshot{},
		plugins.MessageLog{},
		plugins.AntiLink{},
		plugins.NewAntiFlood(time.Duration(cfg.Plugins.AntiFloodWindowSeconds)*time.Second),
		plugins.FilterWords{},
		plugins.NewCommands(commands),
		plugins.Panel{},
	)

	a := &App{
		cfg:       cfg,
		version:   version,
		store:     st,
		client:    client,
		collector: collector,
		queue:     jobQueue,
		registry:  registry,
		commands:  commands,
		janitor:   janitor.New(st, cfg),
		tracer:    otel.Tracer("app"),
	}
	a.pool = worker.NewPool(jobQueue, a.dispatch, cfg.Queue.WorkerConcurrency, collector)

	limiter := ratelimit.New(cfg.Ingress.RateLimitPerMinute, time.Minute)
	a.handler = webhook.NewHandler(jobQueue, limiter, collector, a.pool, cfg.WebhookSecret)
	return a, nil
}

// dispatch is the worker handler: one plugin-chain pass per job, traced.
func (a *App) dispatch(ctx context.Context, job *queue.Job) error {
	ctx, span := a.tracer.Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.priority", job.Priority.String()),
			attribute.String("job.update_type", job.UpdateType),
		))
	defer span.End()

	pctx := &plugins.Context{
		Repo:              a.store,
		Client:            a.client,
		Commands:          a.commands,
		Stats:             a.collector,
		Settings:          a.cfg,
		Job:               job,
		OwnerID:           a.cfg.OwnerID,
		Version:           a.version,
		ReportAntiActions: a.cfg.Plugins.ReportAntiActions,
	}
	var update payload.Update = job.Raw
	if update == nil {
		update = payload.Update{}
	}
	if err := a.registry.Dispatch(ctx, update, pctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Run starts workers, HTTP server and janitor, then blocks until ctx is
// canceled and everything has shut down.
func (a *App) Run(ctx context.Context) error {
	shutdownTracing, err := tracing.Setup(ctx, a.cfg.Tracing.OTLPEndpoint, "rubica-bot", a.version)
	if err != nil {
		return err
	}

	a.pool.Start(ctx)

	mux := http.NewServeMux()
	a.handler.RegisterRoutes(mux)
	server := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.janitor.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		return server.Shutdown(shutdownCtx)
	})

	a.registerWebhook(ctx)

	err = g.Wait()

	a.pool.Stop()
	if terr := shutdownTracing(context.Background()); terr != nil {
		slog.Error("tracing shutdown failed", "error", terr)
	}
	if cerr := a.store.Close(); cerr != nil {
		slog.Error("store close failed", "error", cerr)
	}
	slog.Info("shutdown complete")
	return err
}

// registerWebhook announces our endpoints and command menu upstream. Failures
// are logged, not fatal: the operator may have registered out of band.
func (a *App) registerWebhook(ctx context.Context) {
	if !a.cfg.Webhook.Register || a.cfg.Webhook.BaseURL == "" {
		return
	}
	base := a.cfg.Webhook.BaseURL
	endpoints := map[string]string{
		base + "/receiveUpdate":        "ReceiveUpdate",
		base + "/receiveInlineMessage": "ReceiveInlineMessage",
	}
	for url, kind := range endpoints {
		if res := a.client.UpdateBotEndpoints(ctx, url, kind); !res.OK() {
			slog.Error("webhook registration failed", "url", url, "error", res.ErrString())
		} else {
			slog.Info("webhook registered", "url", url, "type", kind)
		}
	}
	if res := a.client.SetCommands(ctx, a.commands.List()); !res.OK() {
		slog.Error("command registration failed", "error", res.ErrString())
	}
}

// Store exposes the store for operator CLI commands.
func (a *App) Store() *store.Store { return a.store }

// Client exposes the API client for operator CLI commands.
func (a *App) Client() *rubika.Client { return a.client }
