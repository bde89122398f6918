package plugins

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Opselon/rubica-bot/internal/payload"
)

// AntiFlood counts messages per chat:sender over a sliding window and bans
// once the count strictly exceeds the group's flood limit. A limit of 6
// permits six messages in the window; the seventh triggers the ban.
type AntiFlood struct {
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	events map[string][]time.Time
}

func NewAntiFlood(window time.Duration) *AntiFlood {
	if window <= 0 {
		window = 8 * time.Second
	}
	return &AntiFlood{
		window: window,
		now:    time.Now,
		events: make(map[string][]time.Time),
	}
}

func (*AntiFlood) Name() string { return "anti_flood" }

func (a *AntiFlood) Handle(ctx context.Context, update payload.Update, pctx *Context) (bool, error) {
	message := payload.ExtractMessage(update)
	if message == nil {
		return false, nil
	}
	chatID := payload.ChatID(message)
	senderID := payload.SenderID(message)
	if chatID == "" || senderID == "" {
		return false, nil
	}

	settings, err := pctx.Repo.GetGroup(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("anti flood: %w", err)
	}
	if !settings.AntiFlood {
		return false, nil
	}
	admin, err := pctx.Repo.IsAdmin(ctx, chatID, senderID)
	if err != nil {
		return false, fmt.Errorf("anti flood: %w", err)
	}
	if admin {
		return false, nil
	}

	if a.record(chatID+":"+senderID) <= settings.FloodLimit {
		return false, nil
	}

	if messageID := payload.MessageID(message); messageID != "" {
		pctx.Client.DeleteMessage(ctx, chatID, messageID)
	}
	pctx.Client.BanChatMember(ctx, chatID, senderID)
	return true, nil
}

// record appends one event for the key, evicts everything older than the
// window and returns the live count.
func (a *AntiFlood) record(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	cutoff := now.Add(-a.window)
	events := a.events[key]
	keep := 0
	for _, at := range events {
		if at.After(cutoff) {
			events[keep] = at
			keep++
		}
	}
	events = append(events[:keep], now)
	a.events[key] = events
	return len(events)
}
