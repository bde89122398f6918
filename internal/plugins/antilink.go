package plugins

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Opselon/rubica-bot/internal/payload"
)

// linkPattern catches scheme/www links, platform invite links, known
// shorteners and bare domains on common TLDs.
var linkPattern = regexp.MustCompile(`(?i)(` +
	`(?:https?://|www\.)\S+` +
	`|` +
	`(?:t\.me|telegram\.me|rubika\.ir|rubika\.com|rbx\.ir|rbx\.im|s\.rubika\.ir)/\S+` +
	`|` +
	`\b(?:bit\.ly|t\.co|goo\.gl|is\.gd|tinyurl\.com|ow\.ly|cutt\.ly|rebrand\.ly|s\.id)\b/\S*` +
	`|` +
	`\b(?:[a-z0-9-]+\.)+(?:ir|com|net|org|io|me|co|app|dev|xyz|info|site|biz|tv|online|link|shop)\b(?:/\S*)?` +
	`)`)

// ContainsLink reports whether the text carries something the anti-link
// moderation should act on.
func ContainsLink(text string) bool {
	return text != "" && linkPattern.MatchString(text)
}

var moderatedChatTypes = map[string]bool{
	"Group":      true,
	"group":      true,
	"Supergroup": true,
	"Channel":    true,
	"channel":    true,
}

// AntiLink deletes link-bearing messages in moderated chats and bans the
// sender. Admins are exempt; direct chats are never touched.
type AntiLink struct{}

func (AntiLink) Name() string { return "anti_link" }

func (AntiLink) Handle(ctx context.Context, update payload.Update, pctx *Context) (bool, error) {
	message := payload.ExtractMessage(update)
	if message == nil {
		return false, nil
	}
	chatID := payload.ChatID(message)
	if chatID == "" || !moderatedChatTypes[payload.ChatType(message)] {
		return false, nil
	}

	settings, err := pctx.Repo.GetGroup(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("anti link: %w", err)
	}
	if !settings.AntiLink {
		return false, nil
	}

	senderID := payload.SenderID(message)
	if senderID != "" {
		admin, err := pctx.Repo.IsAdmin(ctx, chatID, senderID)
		if err != nil {
			return false, fmt.Errorf("anti link: %w", err)
		}
		if admin {
			return false, nil
		}
	}
	if !ContainsLink(payload.Text(message)) {
		return false, nil
	}

	if messageID := payload.MessageID(message); messageID != "" {
		pctx.Client.DeleteMessage(ctx, chatID, messageID)
	}
	if senderID != "" {
		pctx.Client.BanChatMember(ctx, chatID, senderID)
	}
	if pctx.ReportAntiActions {
		pctx.Client.SendMessage(ctx, chatID, "کاربر به دلیل ارسال لینک بن شد و پیام حذف شد.")
	}
	return true, nil
}
