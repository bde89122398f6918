package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/Opselon/rubica-bot/internal/payload"
	"github.com/Opselon/rubica-bot/internal/store"
)

const (
	panelFiltersHelp = "مدیریت فیلتر کلمات:\n/filter add <کلمه>\n/filter del <کلمه>\n/filter list"
	panelDeleteHelp  = "حذف گروهی پیام‌ها:\n/del <تعداد>"
)

// Panel serves the /panel inline keypad and its callbacks: flag toggles
// refresh the keypad in place, the tool buttons reply with usage help.
type Panel struct{}

func (Panel) Name() string { return "panel" }

func (Panel) Handle(ctx context.Context, update payload.Update, pctx *Context) (bool, error) {
	if pctx.Settings != nil && !pctx.Settings.Plugins.PanelEnabled {
		return false, nil
	}

	message := payload.ExtractMessage(update)
	if message != nil && strings.HasPrefix(payload.Text(message), "/panel") {
		chatID := payload.ChatID(message)
		if chatID == "" {
			return true, nil
		}
		g, err := pctx.Repo.GetGroup(ctx, chatID)
		if err != nil {
			return true, fmt.Errorf("panel: %w", err)
		}
		pctx.Client.SendMessageWithKeypad(ctx, chatID, "پنل مدیریت", panelKeypad(g))
		return true, nil
	}

	callback, ok := update["callback_query"].(map[string]any)
	if !ok {
		return false, nil
	}
	chatID := payload.Str(callback, "chat_id")
	messageID := payload.Str(callback, "message_id")
	data := payload.Str(callback, "data")
	if chatID == "" || !strings.HasPrefix(data, "panel:") {
		return false, nil
	}

	switch data {
	case "panel:anti_link":
		return true, togglePanelFlag(ctx, pctx, chatID, messageID, "anti_link", "تنظیم Anti Link به‌روزرسانی شد.")
	case "panel:anti_flood":
		return true, togglePanelFlag(ctx, pctx, chatID, messageID, "anti_flood", "تنظیم Anti Flood به‌روزرسانی شد.")
	case "panel:filters":
		pctx.Client.SendMessage(ctx, chatID, panelFiltersHelp)
		return true, nil
	case "panel:delete":
		pctx.Client.SendMessage(ctx, chatID, panelDeleteHelp)
		return true, nil
	}
	return false, nil
}

// panelKeypad renders the inline keypad for the group's current flags.
func panelKeypad(g store.GroupSettings) map[string]any {
	return map[string]any{
		"rows": []any{
			map[string]any{"buttons": []any{
				map[string]any{"text": "Anti Link: " + onOff(g.AntiLink), "callback_data": "panel:anti_link"},
				map[string]any{"text": "Anti Flood: " + onOff(g.AntiFlood), "callback_data": "panel:anti_flood"},
			}},
			map[string]any{"buttons": []any{
				map[string]any{"text": "Filters", "callback_data": "panel:filters"},
				map[string]any{"text": "Delete Tools", "callback_data": "panel:delete"},
			}},
		},
	}
}

// togglePanelFlag flips the flag, refreshes the panel keypad on the originating
// message and posts a confirmation notice.
func togglePanelFlag(ctx context.Context, pctx *Context, chatID, messageID, flag, notice string) error {
	g, err := pctx.Repo.GetGroup(ctx, chatID)
	if err != nil {
		return fmt.Errorf("panel: %w", err)
	}
	current := g.AntiLink
	if flag == "anti_flood" {
		current = g.AntiFlood
	}
	if err := pctx.Repo.SetGroupFlag(ctx, chatID, flag, !current); err != nil {
		return fmt.Errorf("panel: %w", err)
	}
	if messageID != "" {
		updated, err := pctx.Repo.GetGroup(ctx, chatID)
		if err != nil {
			return fmt.Errorf("panel: %w", err)
		}
		pctx.Client.EditInlineKeypad(ctx, chatID, messageID, panelKeypad(updated))
	}
	pctx.Client.SendMessage(ctx, chatID, notice)
	return nil
}
