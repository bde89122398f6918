package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/Opselon/rubica-bot/internal/payload"
	"github.com/Opselon/rubica-bot/internal/rubika"
)

// CommandHandler runs one chat command. args excludes the command word.
type CommandHandler func(ctx context.Context, message map[string]any, pctx *Context, args []string) error

// Command is one registered chat command.
type Command struct {
	Name        string
	Description string
	Handler     CommandHandler
	AdminOnly   bool
}

// CommandRegistry holds the command set in registration order.
type CommandRegistry struct {
	commands map[string]Command
	order    []string
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]Command)}
}

func (r *CommandRegistry) Register(cmd Command) {
	if _, exists := r.commands[cmd.Name]; !exists {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
}

func (r *CommandRegistry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// List returns the commands in registration order, for /help and setCommands.
func (r *CommandRegistry) List() []rubika.BotCommand {
	out := make([]rubika.BotCommand, 0, len(r.order))
	for _, name := range r.order {
		cmd := r.commands[name]
		out = append(out, rubika.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}
	return out
}

// Commands parses a leading /word and dispatches to the registry. Unknown
// commands fall through; admin-only commands reject non-admins in Persian.
type Commands struct {
	registry *CommandRegistry
}

func NewCommands(registry *CommandRegistry) *Commands {
	return &Commands{registry: registry}
}

func (*Commands) Name() string { return "commands" }

func (c *Commands) Handle(ctx context.Context, update payload.Update, pctx *Context) (bool, error) {
	message := payload.ExtractMessage(update)
	if message == nil {
		return false, nil
	}
	text := payload.Text(message)
	if !strings.HasPrefix(text, "/") {
		return false, nil
	}

	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return false, nil
	}
	name := strings.ToLower(strings.TrimLeft(parts[0], "/"))
	cmd, ok := c.registry.Get(name)
	if !ok {
		return false, nil
	}

	chatID := payload.ChatID(message)
	senderID := payload.SenderID(message)
	if cmd.AdminOnly && chatID != "" && senderID != "" {
		if senderID != pctx.OwnerID {
			admin, err := pctx.Repo.IsAdmin(ctx, chatID, senderID)
			if err != nil {
				return false, fmt.Errorf("command %s: %w", name, err)
			}
			if !admin {
				pctx.Client.SendMessage(ctx, chatID, "این دستور فقط برای ادمین‌هاست.")
				return true, nil
			}
		}
	}

	if err := cmd.Handler(ctx, message, pctx, parts[1:]); err != nil {
		return true, fmt.Errorf("command %s: %w", name, err)
	}
	return true, nil
}
