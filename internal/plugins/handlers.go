package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/Opselon/rubica-bot/internal/payload"
)

// DefaultCommandRegistry wires the stock command set.
func DefaultCommandRegistry() *CommandRegistry {
	r := NewCommandRegistry()
	r.Register(Command{Name: "help", Description: "نمایش راهنما", Handler: helpHandler})
	r.Register(Command{Name: "setcmd", Description: "ثبت دستورات", Handler: setcmdHandler, AdminOnly: true})
	r.Register(Command{Name: "ping", Description: "تست سرعت", Handler: pingHandler})
	r.Register(Command{Name: "uptime", Description: "نمایش مدت زمان اجرا", Handler: uptimeHandler})
	r.Register(Command{Name: "stats", Description: "آمار پردازش", Handler: statsHandler})
	r.Register(Command{Name: "echo", Description: "تکرار متن", Handler: echoHandler})
	r.Register(Command{Name: "id", Description: "نمایش شناسه‌ها", Handler: idHandler})
	r.Register(Command{Name: "time", Description: "زمان سرور", Handler: timeHandler})
	r.Register(Command{Name: "calc", Description: "محاسبه ساده", Handler: calcHandler})
	r.Register(Command{Name: "coin", Description: "شیر یا خط", Handler: coinHandler})
	r.Register(Command{Name: "roll", Description: "تاس", Handler: rollHandler})
	r.Register(Command{Name: "joke", Description: "جوک کوتاه", Handler: jokeHandler})
	r.Register(Command{Name: "models", Description: "مدل ها", Handler: modelsHandler})
	r.Register(Command{Name: "about", Description: "نسخه بات", Handler: aboutHandler})
	r.Register(Command{Name: "settings", Description: "تنظیمات گروه", Handler: settingsHandler, AdminOnly: true})
	r.Register(Command{Name: "admins", Description: "تعداد ادمین‌ها", Handler: adminsHandler, AdminOnly: true})
	r.Register(Command{Name: "antilink", Description: "تنظیم ضد لینک", Handler: antilinkHandler, AdminOnly: true})
	r.Register(Command{Name: "filter", Description: "مدیریت فیلتر", Handler: filterHandler, AdminOnly: true})
	r.Register(Command{Name: "del", Description: "حذف انبوه", Handler: deleteHandler, AdminOnly: true})
	r.Register(Command{Name: "ban", Description: "بن کاربر", Handler: banHandler, AdminOnly: true})
	r.Register(Command{Name: "unban", Description: "رفع بن", Handler: unbanHandler, AdminOnly: true})
	return r
}

func helpHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	lines := []string{"راهنما:"}
	for _, cmd := range pctx.Commands.List() {
		lines = append(lines, fmt.Sprintf("/%s - %s", cmd.Command, cmd.Description))
	}
	pctx.Client.SendMessage(ctx, chatID, strings.Join(lines, "\n"))
	return nil
}

func setcmdHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	pctx.Client.SetCommands(ctx, pctx.Commands.List())
	return nil
}

func pingHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	if chatID := payload.ChatID(message); chatID != "" {
		pctx.Client.SendMessage(ctx, chatID, "pong")
	}
	return nil
}

func coinHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	if chatID := payload.ChatID(message); chatID != "" {
		sides := []string{"شیر", "خط"}
		pctx.Client.SendMessage(ctx, chatID, sides[rand.IntN(len(sides))])
	}
	return nil
}

func rollHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	if chatID := payload.ChatID(message); chatID != "" {
		pctx.Client.SendMessage(ctx, chatID, fmt.Sprintf("🎲 %d", 1+rand.IntN(6)))
	}
	return nil
}

var jokes = []string{
	"ربات: چرا کامپیوتر سردش بود؟ چون همیشه پنجره‌ها باز بود.",
	"برنامه‌نویس: قهوه بدون کد؟ هرگز!",
	"وقتی دیباگ می‌کنی، باگ هم زمان یاد می‌گیره!",
}

func jokeHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	if chatID := payload.ChatID(message); chatID != "" {
		pctx.Client.SendMessage(ctx, chatID, jokes[rand.IntN(len(jokes))])
	}
	return nil
}

func uptimeHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	if pctx.Stats == nil {
		pctx.Client.SendMessage(ctx, chatID, "آمار در دسترس نیست.")
		return nil
	}
	s := pctx.Stats.Snapshot()
	pctx.Client.SendMessage(ctx, chatID, "Uptime: "+formatDuration(s.UptimeSeconds))
	return nil
}

func statsHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	if pctx.Stats == nil {
		pctx.Client.SendMessage(ctx, chatID, "آمار در دسترس نیست.")
		return nil
	}
	s := pctx.Stats.Snapshot()
	text := fmt.Sprintf(
		"Updates: %d\nErrors: %d\nAvg dispatch: %.2fms\nLast dispatch: %.2fms\nLast queue size: %d\nUptime: %s",
		s.TotalUpdates, s.TotalErrors, s.AverageDispatchMS, s.LastDispatchMS,
		s.LastQueueSize, formatDuration(s.UptimeSeconds))
	pctx.Client.SendMessage(ctx, chatID, text)
	return nil
}

func echoHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	text := "متن ارسال نشده است."
	if len(args) > 0 {
		text = strings.Join(args, " ")
	}
	pctx.Client.SendMessage(ctx, chatID, text)
	return nil
}

func idHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	text := fmt.Sprintf("Chat ID: %s\nUser ID: %s\nMessage ID: %s",
		chatID, payload.SenderID(message), payload.MessageID(message))
	pctx.Client.SendMessage(ctx, chatID, text)
	return nil
}

func timeHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	if chatID := payload.ChatID(message); chatID != "" {
		pctx.Client.SendMessage(ctx, chatID, time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	return nil
}

func calcHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	if len(args) == 0 {
		pctx.Client.SendMessage(ctx, chatID, "استفاده: /calc 2+2")
		return nil
	}
	result, err := Eval(strings.Join(args, " "))
	if err != nil {
		pctx.Client.SendMessage(ctx, chatID, "خطا: "+err.Error())
		return nil
	}
	pctx.Client.SendMessage(ctx, chatID, fmt.Sprintf("= %g", result))
	return nil
}

func modelsHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	if chatID := payload.ChatID(message); chatID != "" {
		pctx.Client.SendMessage(ctx, chatID, modelsDoc)
	}
	return nil
}

func aboutHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	version := pctx.Version
	if version == "" {
		version = "unknown"
	}
	pctx.Client.SendMessage(ctx, chatID, "Rubika Bot API v"+version)
	return nil
}

func settingsHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	g, err := pctx.Repo.GetGroup(ctx, chatID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf(
		"Anti Link: %s\nAnti Flood: %s\nAnti Spam: %s\nAnti BadWords: %s\nAnti Forward: %s\nFlood Limit: %d",
		onOff(g.AntiLink), onOff(g.AntiFlood), onOff(g.AntiSpam),
		onOff(g.AntiBadwords), onOff(g.AntiForward), g.FloodLimit)
	pctx.Client.SendMessage(ctx, chatID, text)
	return nil
}

func adminsHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	n, err := pctx.Repo.CountAdmins(ctx, chatID)
	if err != nil {
		return err
	}
	pctx.Client.SendMessage(ctx, chatID, fmt.Sprintf("Admin count: %d", n))
	return nil
}

func antilinkHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" || len(args) == 0 {
		return nil
	}
	value := strings.EqualFold(args[0], "on")
	if err := pctx.Repo.SetGroupFlag(ctx, chatID, "anti_link", value); err != nil {
		return err
	}
	pctx.Client.SendMessage(ctx, chatID, "Anti Link "+onOff(value))
	return nil
}

func filterHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	if len(args) == 0 {
		pctx.Client.SendMessage(ctx, chatID, "استفاده: /filter add|del|list <word>")
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "list":
		rules, err := pctx.Repo.ListFilters(ctx, chatID)
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			pctx.Client.SendMessage(ctx, chatID, "فیلتر خالی است.")
			return nil
		}
		var lines []string
		for _, rule := range rules {
			kind := "blacklist"
			if rule.IsWhitelist {
				kind = "whitelist"
			}
			lines = append(lines, fmt.Sprintf("%s (%s)", rule.Word, kind))
		}
		pctx.Client.SendMessage(ctx, chatID, strings.Join(lines, "\n"))
	case "add":
		if len(args) < 2 {
			pctx.Client.SendMessage(ctx, chatID, "کلمه را وارد کنید.")
			return nil
		}
		if err := pctx.Repo.AddFilter(ctx, chatID, args[1], false, false); err != nil {
			return err
		}
		pctx.Client.SendMessage(ctx, chatID, args[1]+" به لیست سیاه اضافه شد.")
	case "del":
		if len(args) < 2 {
			pctx.Client.SendMessage(ctx, chatID, "کلمه را وارد کنید.")
			return nil
		}
		if err := pctx.Repo.RemoveFilter(ctx, chatID, args[1]); err != nil {
			return err
		}
		pctx.Client.SendMessage(ctx, chatID, args[1]+" حذف شد.")
	}
	return nil
}

// deleteHandler bulk-deletes recent messages, pausing every 20 deletions to
// stay under upstream limits.
func deleteHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	limit := 100
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 10000 {
		limit = 10000
	}
	ids, err := pctx.Repo.FetchRecentMessageIDs(ctx, chatID, limit)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if res := pctx.Client.DeleteMessage(ctx, chatID, id); !res.OK() {
			slog.Warn("bulk delete failed", "chat", chatID, "message", id, "error", res.ErrString())
		}
		if (i+1)%20 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(200 * time.Millisecond):
			}
		}
	}
	return nil
}

func banHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	var target string
	if len(args) > 0 {
		target = args[0]
	} else if reply, ok := message["reply_to_message"].(map[string]any); ok {
		target = payload.SenderID(reply)
	}
	if target != "" {
		pctx.Client.BanChatMember(ctx, chatID, target)
	}
	return nil
}

func unbanHandler(ctx context.Context, message map[string]any, pctx *Context, args []string) error {
	chatID := payload.ChatID(message)
	if chatID == "" {
		return nil
	}
	if len(args) > 0 {
		pctx.Client.UnbanChatMember(ctx, chatID, args[0])
	}
	return nil
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

// formatDuration renders seconds as "1d 2h 3m 4s", omitting leading zero
// units.
func formatDuration(seconds int64) string {
	remaining := seconds
	days := remaining / 86400
	remaining %= 86400
	hours := remaining / 3600
	remaining %= 3600
	minutes := remaining / 60
	remaining %= 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", remaining))
	return strings.Join(parts, " ")
}

// modelsDoc is a condensed index of the platform's payload models.
const modelsDoc = "مدل‌های بات روبیکا:\n" +
	"Chat, File, ForwardedFrom, MessageTextUpdate, Bot, BotCommand, Sticker,\n" +
	"ContactMessage, PollStatus, Poll, Location, ButtonSelection, ButtonCalendar,\n" +
	"ButtonNumberPicker, ButtonStringPicker, ButtonTextbox, ButtonLocation,\n" +
	"AuxData, Button, KeypadRow, Keypad, MessageKeypadUpdate, Message, Update\n" +
	"جزئیات: https://rubika.ir/botapi"
