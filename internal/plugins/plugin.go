// Package plugins holds the per-update processing chain. Plugins run in a
// fixed order; the first one that reports handled stops the chain, and an
// error aborts the chain for that job.
package plugins

import (
	"context"

	"github.com/Opselon/rubica-bot/internal/config"
	"github.com/Opselon/rubica-bot/internal/payload"
	"github.com/Opselon/rubica-bot/internal/queue"
	"github.com/Opselon/rubica-bot/internal/rubika"
	"github.com/Opselon/rubica-bot/internal/stats"
	"github.com/Opselon/rubica-bot/internal/store"
)

// Repository is the slice of the store the chain depends on. *store.Store
// satisfies it; tests use lighter fakes.
type Repository interface {
	UpsertGroup(ctx context.Context, chatID, title string) (store.GroupSettings, error)
	GetGroup(ctx context.Context, chatID string) (store.GroupSettings, error)
	SetGroupFlag(ctx context.Context, chatID, flag string, value bool) error
	SetFloodLimit(ctx context.Context, chatID string, limit int) error
	IsAdmin(ctx context.Context, chatID, userID string) (bool, error)
	CountAdmins(ctx context.Context, chatID string) (int, error)
	AddFilter(ctx context.Context, chatID, word string, isWhitelist, regexEnabled bool) error
	RemoveFilter(ctx context.Context, chatID, word string) error
	ListFilters(ctx context.Context, chatID string) ([]store.Filter, error)
	SaveMessage(ctx context.Context, m store.Message) error
	FetchRecentMessageIDs(ctx context.Context, chatID string, limit int) ([]string, error)
	SaveIncomingUpdate(ctx context.Context, u store.IncomingUpdate) error
}

// Context is the typed bundle handed to every plugin alongside the update.
type Context struct {
	Repo              Repository
	Client            rubika.API
	Commands          *CommandRegistry
	Stats             *stats.Collector
	Settings          *config.Config
	Job               *queue.Job
	OwnerID           string
	Version           string
	ReportAntiActions bool
}

// Plugin is one step of the chain.
type Plugin interface {
	Name() string
	Handle(ctx context.Context, update payload.Update, pctx *Context) (handled bool, err error)
}

// Registry dispatches an update through the ordered chain.
type Registry struct {
	plugins []Plugin
}

func NewRegistry(plugins ...Plugin) *Registry {
	return &Registry{plugins: plugins}
}

// Dispatch runs the chain in order. Stops at the first handled update; a
// plugin error aborts the rest of the chain for this job.
func (r *Registry) Dispatch(ctx context.Context, update payload.Update, pctx *Context) error {
	for _, p := range r.plugins {
		handled, err := p.Handle(ctx, update, pctx)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}
	return nil
}

// Names lists the chain order; used by the doctor command.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p.Name())
	}
	return out
}
