package plugins

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Opselon/rubica-bot/internal/config"
	"github.com/Opselon/rubica-bot/internal/payload"
	"github.com/Opselon/rubica-bot/internal/queue"
	"github.com/Opselon/rubica-bot/internal/rubika"
	"github.com/Opselon/rubica-bot/internal/stats"
	"github.com/Opselon/rubica-bot/internal/store"
)

// fakeAPI records outbound calls instead of hitting the platform.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeAPI) record(format string, args ...any) rubika.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return rubika.Result{"ok": true}
}

func (f *fakeAPI) Call(ctx context.Context, method string, payload map[string]any) rubika.Result {
	return f.record("call:%s", method)
}
func (f *fakeAPI) SendMessage(ctx context.Context, chatID, text string) rubika.Result {
	return f.record("sendMessage:%s:%s", chatID, text)
}
func (f *fakeAPI) SendMessageWithKeypad(ctx context.Context, chatID, text string, kp map[string]any) rubika.Result {
	return f.record("sendMessageWithKeypad:%s:%s", chatID, text)
}
func (f *fakeAPI) EditMessageText(ctx context.Context, chatID, messageID, text string) rubika.Result {
	return f.record("editMessageText:%s:%s", chatID, messageID)
}
func (f *fakeAPI) EditInlineKeypad(ctx context.Context, chatID, messageID string, kp map[string]any) rubika.Result {
	return f.record("editInlineKeypad:%s:%s", chatID, messageID)
}
func (f *fakeAPI) DeleteMessage(ctx context.Context, chatID, messageID string) rubika.Result {
	return f.record("deleteMessage:%s:%s", chatID, messageID)
}
func (f *fakeAPI) BanChatMember(ctx context.Context, chatID, userID string) rubika.Result {
	return f.record("banChatMember:%s:%s", chatID, userID)
}
func (f *fakeAPI) UnbanChatMember(ctx context.Context, chatID, userID string) rubika.Result {
	return f.record("unbanChatMember:%s:%s", chatID, userID)
}
func (f *fakeAPI) SetCommands(ctx context.Context, commands []rubika.BotCommand) rubika.Result {
	return f.record("setCommands:%d", len(commands))
}

func (f *fakeAPI) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) has(prefix string) bool {
	for _, c := range f.sent() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func newTestContext(t *testing.T) (*Context, *fakeAPI, *store.Store) {
	t.Helper()
	s, err := store.Open("sqlite:///"+filepath.Join(t.TempDir(), "test.db"), 64, time.Minute)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	api := &fakeAPI{}
	cfg := config.Default()
	cfg.Snapshots.Enabled = true
	pctx := &Context{
		Repo:     s,
		Client:   api,
		Commands: DefaultCommandRegistry(),
		Stats:    stats.New(),
		Settings: cfg,
		OwnerID:  "owner1",
		Version:  "1.0.0",
	}
	return pctx, api, s
}

func groupMessage(chatID, messageID, senderID, text string) payload.Update {
	return payload.Update{
		"update_id": "u-" + messageID,
		"message": map[string]any{
			"message_id": messageID,
			"chat":       map[string]any{"id": chatID, "type": "Group", "title": "G"},
			"sender":     map[string]any{"id": senderID},
			"text":       text,
		},
	}
}

func TestPingCommand(t *testing.T) {
	pctx, api, _ := newTestContext(t)
	cmds := NewCommands(pctx.Commands)

	handled, err := cmds.Handle(context.Background(), groupMessage("c2", "m2", "u2", "/ping"), pctx)
	if err != nil || !handled {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	sent := api.sent()
	if len(sent) != 1 || sent[0] != "sendMessage:c2:pong" {
		t.Fatalf("calls = %v, want exactly one pong", sent)
	}
}

func TestAdminOnlyCommandRejected(t *testing.T) {
	pctx, api, _ := newTestContext(t)
	cmds := NewCommands(pctx.Commands)

	handled, err := cmds.Handle(context.Background(), groupMessage("g1", "m1", "u1", "/ban u9"), pctx)
	if err != nil || !handled {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	if !api.has("sendMessage:g1:این دستور فقط برای ادمین‌هاست.") {
		t.Fatalf("non-admin must get the rejection notice, calls = %v", api.sent())
	}
	if api.has("banChatMember") {
		t.Fatal("ban must not run for non-admins")
	}
}

func TestOwnerBypassesAdminCheck(t *testing.T) {
	pctx, api, _ := newTestContext(t)
	cmds := NewCommands(pctx.Commands)

	handled, err := cmds.Handle(context.Background(), groupMessage("g1", "m1", "owner1", "/ban u9"), pctx)
	if err != nil || !handled {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	if !api.has("banChatMember:g1:u9") {
		t.Fatalf("owner ban must run, calls = %v", api.sent())
	}
}

func TestUnknownCommandFallsThrough(t *testing.T) {
	pctx, _, _ := newTestContext(t)
	cmds := NewCommands(pctx.Commands)

	handled, err := cmds.Handle(context.Background(), groupMessage("c", "m", "u", "/nosuch"), pctx)
	if err != nil || handled {
		t.Fatalf("unknown command must not handle: handled=%v err=%v", handled, err)
	}
}

func TestAntiLinkBansAndDeletes(t *testing.T) {
	pctx, api, _ := newTestContext(t)

	handled, err := AntiLink{}.Handle(context.Background(),
		groupMessage("g1", "m10", "u10", "check https://example.com"), pctx)
	if err != nil || !handled {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	if !api.has("deleteMessage:g1:m10") || !api.has("banChatMember:g1:u10") {
		t.Fatalf("calls = %v", api.sent())
	}
}

func TestAntiLinkSkipsAdmins(t *testing.T) {
	pctx, api, s := newTestContext(t)
	if err := s.AddAdmin(context.Background(), "g1", "u10", ""); err != nil {
		t.Fatal(err)
	}

	handled, err := AntiLink{}.Handle(context.Background(),
		groupMessage("g1", "m10", "u10", "see https://example.com"), pctx)
	if err != nil || handled {
		t.Fatalf("admin links must pass: handled=%v err=%v", handled, err)
	}
	if len(api.sent()) != 0 {
		t.Fatalf("no outbound calls expected, got %v", api.sent())
	}
}

func TestAntiLinkIgnoresDirectChats(t *testing.T) {
	pctx, _, _ := newTestContext(t)
	update := groupMessage("u1", "m1", "u1", "https://example.com")
	update["message"].(map[string]any)["chat"].(map[string]any)["type"] = "User"

	handled, err := AntiLink{}.Handle(context.Background(), update, pctx)
	if err != nil || handled {
		t.Fatalf("direct chats are not moderated: handled=%v err=%v", handled, err)
	}
}

func TestContainsLink(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"https://example.com", true},
		{"www.example.com", true},
		{"join t.me/group", true},
		{"bit.ly/abc", true},
		{"rubika.ir/channel", true},
		{"example.com", true},
		{"example.internal", false},
		{"hello world", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			if got := ContainsLink(tc.text); got != tc.want {
				t.Fatalf("ContainsLink(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestAntiFloodStrictlyExceedsLimit(t *testing.T) {
	pctx, api, s := newTestContext(t)
	ctx := context.Background()
	if err := s.SetGroupFlag(ctx, "g2", "anti_flood", true); err != nil {
		t.Fatal(err)
	}

	flood := NewAntiFlood(8 * time.Second)
	// flood_limit defaults to 6: six messages pass, the seventh bans.
	for i := 1; i <= 6; i++ {
		handled, err := flood.Handle(ctx, groupMessage("g2", fmt.Sprintf("m%d", i), "u20", "hi"), pctx)
		if err != nil || handled {
			t.Fatalf("message %d must pass: handled=%v err=%v", i, handled, err)
		}
	}
	handled, err := flood.Handle(ctx, groupMessage("g2", "m7", "u20", "hi"), pctx)
	if err != nil || !handled {
		t.Fatalf("seventh message must trigger: handled=%v err=%v", handled, err)
	}
	if !api.has("banChatMember:g2:u20") || !api.has("deleteMessage:g2:m7") {
		t.Fatalf("calls = %v", api.sent())
	}
}

func TestAntiFloodWindowSlides(t *testing.T) {
	pctx, _, s := newTestContext(t)
	ctx := context.Background()
	if err := s.SetGroupFlag(ctx, "g2", "anti_flood", true); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	flood := NewAntiFlood(8 * time.Second)
	flood.now = func() time.Time { return now }

	for i := 0; i < 6; i++ {
		flood.Handle(ctx, groupMessage("g2", fmt.Sprintf("a%d", i), "u1", "hi"), pctx)
	}
	now = now.Add(9 * time.Second)
	handled, err := flood.Handle(ctx, groupMessage("g2", "late", "u1", "hi"), pctx)
	if err != nil || handled {
		t.Fatalf("events outside the window must not count: handled=%v err=%v", handled, err)
	}
}

func TestFilterWordsBlacklistDeletes(t *testing.T) {
	pctx, api, s := newTestContext(t)
	ctx := context.Background()
	if err := s.SetGroupFlag(ctx, "g3", "anti_badwords", true); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFilter(ctx, "g3", "spam", false, false); err != nil {
		t.Fatal(err)
	}

	handled, err := FilterWords{}.Handle(ctx, groupMessage("g3", "m1", "u1", "buy SPAM now"), pctx)
	if err != nil || !handled {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	if !api.has("deleteMessage:g3:m1") {
		t.Fatalf("calls = %v", api.sent())
	}
}

func TestFilterWordsWhitelistWins(t *testing.T) {
	pctx, api, s := newTestContext(t)
	ctx := context.Background()
	if err := s.SetGroupFlag(ctx, "g3", "anti_badwords", true); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFilter(ctx, "g3", "spam", false, false); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFilter(ctx, "g3", "allowed", true, false); err != nil {
		t.Fatal(err)
	}

	handled, err := FilterWords{}.Handle(ctx, groupMessage("g3", "m2", "u1", "allowed spam"), pctx)
	if err != nil || handled {
		t.Fatalf("whitelist match must exempt: handled=%v err=%v", handled, err)
	}
	if len(api.sent()) != 0 {
		t.Fatalf("no calls expected, got %v", api.sent())
	}
}

func TestFilterWordsRegexIsCaseSensitive(t *testing.T) {
	pctx, api, s := newTestContext(t)
	ctx := context.Background()
	if err := s.SetGroupFlag(ctx, "g3", "anti_badwords", true); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFilter(ctx, "g3", "[A-Z]{4,}", false, true); err != nil {
		t.Fatal(err)
	}

	handled, err := FilterWords{}.Handle(ctx, groupMessage("g3", "m3", "u1", "shouting SPAM here"), pctx)
	if err != nil || !handled {
		t.Fatalf("uppercase run must match: handled=%v err=%v", handled, err)
	}
	if !api.has("deleteMessage:g3:m3") {
		t.Fatalf("calls = %v", api.sent())
	}

	handled, err = FilterWords{}.Handle(ctx, groupMessage("g3", "m4", "u1", "quiet spam here"), pctx)
	if err != nil || handled {
		t.Fatalf("lowercase text must not match the pattern: handled=%v err=%v", handled, err)
	}
}

func TestMessageLogPersists(t *testing.T) {
	pctx, _, s := newTestContext(t)
	ctx := context.Background()

	handled, err := MessageLog{}.Handle(ctx, groupMessage("g4", "m1", "u1", "hello"), pctx)
	if err != nil || handled {
		t.Fatalf("logging never handles: handled=%v err=%v", handled, err)
	}
	ids, err := s.FetchRecentMessageIDs(ctx, "g4", 10)
	if err != nil || len(ids) != 1 || ids[0] != "m1" {
		t.Fatalf("ids = %v err = %v", ids, err)
	}
	g, _ := s.GetGroup(ctx, "g4")
	if g.Title != "G" {
		t.Fatalf("title = %q, want G", g.Title)
	}
}

func TestSnapshotPersistsJobFields(t *testing.T) {
	pctx, _, s := newTestContext(t)
	ctx := context.Background()
	pctx.Job = &queue.Job{
		ID:         "job-1",
		ReceivedAt: time.Now(),
		ChatID:     "g5",
		MessageID:  "m5",
		SenderID:   "u5",
		UpdateType: "NewMessage",
		Text:       "hi",
	}

	handled, err := Snapshot{}.Handle(ctx, groupMessage("g5", "m5", "u5", "hi"), pctx)
	if err != nil || handled {
		t.Fatalf("snapshot never handles: handled=%v err=%v", handled, err)
	}
	n, err := s.CountIncomingUpdates(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count = %d err = %v", n, err)
	}
}

func TestPanelKeypadAndToggle(t *testing.T) {
	pctx, api, s := newTestContext(t)
	ctx := context.Background()

	handled, err := Panel{}.Handle(ctx, groupMessage("g6", "m1", "u1", "/panel"), pctx)
	if err != nil || !handled {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	if !api.has("sendMessageWithKeypad:g6:پنل مدیریت") {
		t.Fatalf("calls = %v", api.sent())
	}

	toggle := payload.Update{"callback_query": map[string]any{
		"chat_id": "g6", "message_id": "m1", "data": "panel:anti_link",
	}}
	handled, err = Panel{}.Handle(ctx, toggle, pctx)
	if err != nil || !handled {
		t.Fatalf("toggle handled=%v err=%v", handled, err)
	}
	g, _ := s.GetGroup(ctx, "g6")
	if g.AntiLink {
		t.Fatal("anti_link must be toggled off")
	}
	if !api.has("editInlineKeypad:g6:m1") {
		t.Fatalf("toggle must refresh the keypad in place, calls = %v", api.sent())
	}
}

func TestPanelToolCallbacksReplyWithHelp(t *testing.T) {
	pctx, api, _ := newTestContext(t)
	ctx := context.Background()

	cases := []struct {
		data string
		want string
	}{
		{"panel:filters", "sendMessage:g6:مدیریت فیلتر کلمات"},
		{"panel:delete", "sendMessage:g6:حذف گروهی پیام‌ها"},
	}
	for _, tc := range cases {
		t.Run(tc.data, func(t *testing.T) {
			update := payload.Update{"callback_query": map[string]any{
				"chat_id": "g6", "message_id": "m1", "data": tc.data,
			}}
			handled, err := Panel{}.Handle(ctx, update, pctx)
			if err != nil || !handled {
				t.Fatalf("handled=%v err=%v", handled, err)
			}
			if !api.has(tc.want) {
				t.Fatalf("want a help reply %q, calls = %v", tc.want, api.sent())
			}
		})
	}
	if api.has("editInlineKeypad") {
		t.Fatalf("help replies must not touch the keypad, calls = %v", api.sent())
	}
}

func TestRegistryShortCircuit(t *testing.T) {
	pctx, api, _ := newTestContext(t)
	registry := NewRegistry(AntiLink{}, NewCommands(pctx.Commands))

	// The link is caught before the command plugin ever sees the text.
	err := registry.Dispatch(context.Background(),
		groupMessage("g7", "m1", "u1", "/ping https://example.com"), pctx)
	if err != nil {
		t.Fatal(err)
	}
	if api.has("sendMessage:g7:pong") {
		t.Fatal("chain must short-circuit before the command plugin")
	}
	if !api.has("deleteMessage:g7:m1") {
		t.Fatalf("calls = %v", api.sent())
	}
}

func TestEval(t *testing.T) {
	cases := []struct {
		expr string
		want float64
		ok   bool
	}{
		{"2+2", 4, true},
		{"2 + 3 * 4", 14, true},
		{"(2+3)*4", 20, true},
		{"-5 + 3", -2, true},
		{"2^10", 1024, true},
		{"2**10", 1024, true},
		{"7 // 2", 3, true},
		{"7 % 3", 1, true},
		{"10 / 4", 2.5, true},
		{"1/0", 0, false},
		{"2+abc", 0, false},
		{"__import__('os')", 0, false},
		{strings.Repeat("1+", 60) + "1", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Eval(tc.expr)
			if tc.ok != (err == nil) {
				t.Fatalf("Eval(%q) err = %v, want ok=%v", tc.expr, err, tc.ok)
			}
			if tc.ok && got != tc.want {
				t.Fatalf("Eval(%q) = %g, want %g", tc.expr, got, tc.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{5, "5s"},
		{65, "1m 5s"},
		{3665, "1h 1m 5s"},
		{90061, "1d 1h 1m 1s"},
		{0, "0s"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.seconds); got != tc.want {
			t.Fatalf("formatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
