package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactive setup: write a starter config file",
		Run: func(cmd *cobra.Command, args []string) {
			runOnboard()
		},
	}
}

func runOnboard() {
	path := resolveConfigPath()
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("config %s already exists; delete it first to re-onboard\n", path)
		os.Exit(1)
	}

	var (
		token    string
		ownerID  string
		secret   string
		baseURL  string
		register = true
	)
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Bot token").
			Description("From @BotFather on Rubika").
			Value(&token).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("the bot token is required")
				}
				return nil
			}),
		huh.NewInput().
			Title("Owner user ID").
			Description("This user bypasses all admin checks").
			Value(&ownerID),
		huh.NewInput().
			Title("Webhook secret").
			Description("Shared HMAC secret; leave empty to accept unsigned requests").
			Value(&secret),
		huh.NewInput().
			Title("Public webhook base URL").
			Description("e.g. https://bot.example.com").
			Value(&baseURL),
		huh.NewConfirm().
			Title("Register webhook endpoints on startup?").
			Value(&register),
	))
	if err := form.Run(); err != nil {
		fail(err)
	}

	content := fmt.Sprintf(`// rubica-bot configuration. Environment variables (RUBIKA_*) override
// everything in this file.
{
  bot_token: %q,
  owner_id: %q,
  webhook_secret: %q,
  database_url: "sqlite:///data/bot.db",
  webhook: {
    base_url: %q,
    register: %t,
  },
}
`, token, ownerID, secret, baseURL, register)

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		fail(err)
	}
	fmt.Printf("wrote %s\nnext: rubica-bot db migrate && rubica-bot serve\n", path)
}
