package plugins

import (
	"context"
	"fmt"

	"github.com/Opselon/rubica-bot/internal/payload"
	"github.com/Opselon/rubica-bot/internal/store"
)

// MessageLog keeps the group title fresh and appends every message to the
// log the /del command reads from. Never handles the update itself.
type MessageLog struct{}

func (MessageLog) Name() string { return "message_log" }

func (MessageLog) Handle(ctx context.Context, update payload.Update, pctx *Context) (bool, error) {
	message := payload.ExtractMessage(update)
	if message == nil {
		return false, nil
	}
	chatID := payload.ChatID(message)
	messageID := payload.MessageID(message)
	if chatID == "" || messageID == "" {
		return false, nil
	}

	title := ""
	if chat, ok := message["chat"].(map[string]any); ok {
		title = payload.Str(chat, "title")
	}
	if _, err := pctx.Repo.UpsertGroup(ctx, chatID, title); err != nil {
		return false, fmt.Errorf("message log: %w", err)
	}
	err := pctx.Repo.SaveMessage(ctx, store.Message{
		ChatID:    chatID,
		MessageID: messageID,
		SenderID:  payload.SenderID(message),
		Text:      payload.Text(message),
	})
	if err != nil {
		return false, fmt.Errorf("message log: %w", err)
	}
	return false, nil
}
