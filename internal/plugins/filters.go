package plugins

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Opselon/rubica-bot/internal/payload"
)

// FilterWords enforces the per-group word rules when anti_badwords is on.
// A whitelist match exempts the message entirely; otherwise any blacklist
// match deletes it.
type FilterWords struct{}

func (FilterWords) Name() string { return "filters" }

func (FilterWords) Handle(ctx context.Context, update payload.Update, pctx *Context) (bool, error) {
	message := payload.ExtractMessage(update)
	if message == nil {
		return false, nil
	}
	chatID := payload.ChatID(message)
	if chatID == "" {
		return false, nil
	}

	settings, err := pctx.Repo.GetGroup(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("filters: %w", err)
	}
	if !settings.AntiBadwords {
		return false, nil
	}
	senderID := payload.SenderID(message)
	if senderID != "" {
		admin, err := pctx.Repo.IsAdmin(ctx, chatID, senderID)
		if err != nil {
			return false, fmt.Errorf("filters: %w", err)
		}
		if admin {
			return false, nil
		}
	}

	rules, err := pctx.Repo.ListFilters(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("filters: %w", err)
	}
	if len(rules) == 0 {
		return false, nil
	}

	text := payload.Text(message)
	matchedBlacklist := false
	for _, rule := range rules {
		if !matchRule(rule.Word, rule.RegexEnabled, text) {
			continue
		}
		if rule.IsWhitelist {
			return false, nil
		}
		matchedBlacklist = true
	}
	if !matchedBlacklist {
		return false, nil
	}

	if messageID := payload.MessageID(message); messageID != "" {
		pctx.Client.DeleteMessage(ctx, chatID, messageID)
	}
	return true, nil
}

func matchRule(word string, regexEnabled bool, text string) bool {
	if regexEnabled {
		re, err := regexp.Compile(word)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(word))
}
