package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/Opselon/rubica-bot/internal/config"
	"github.com/Opselon/rubica-bot/internal/rubika"
	"github.com/Opselon/rubica-bot/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, database and upstream API health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("rubica-bot doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults + env)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("  Config invalid: %s\n", err)
	} else {
		fmt.Println("  Config valid")
	}

	fmt.Println()
	fmt.Println("  Database:")
	backend := "sqlite"
	if cfg.IsPostgres() {
		backend = "postgres"
	}
	fmt.Printf("    %-10s %s\n", "Backend:", backend)
	fmt.Printf("    %-10s %s\n", "URL:", cfg.DatabaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := store.Open(cfg.DatabaseURL, cfg.Cache.Size, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	if err != nil {
		fmt.Printf("    Open:      FAILED (%s)\n", err)
	} else {
		defer s.Close()
		if err := s.Ping(ctx); err != nil {
			fmt.Printf("    Ping:      FAILED (%s)\n", err)
		} else {
			fmt.Println("    Ping:      OK")
			if v, err := s.Version(ctx); err != nil {
				fmt.Printf("    Schema:    unreadable (%s)\n", err)
			} else {
				status := "OK"
				if v < store.SchemaVersion {
					status = fmt.Sprintf("PENDING (run `rubica-bot db migrate` to reach %d)", store.SchemaVersion)
				}
				fmt.Printf("    Schema:    v%d %s\n", v, status)
			}
		}
	}

	fmt.Println()
	fmt.Println("  Upstream API:")
	fmt.Printf("    %-10s %s\n", "Base URL:", cfg.API.BaseURL)
	if cfg.BotToken == "" {
		fmt.Println("    getMe:     SKIPPED (no bot token)")
		return
	}
	client := rubika.New(cfg.BotToken, rubika.Options{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       time.Duration(cfg.API.TimeoutSeconds * float64(time.Second)),
		RetryAttempts: 0,
	})
	if res := client.GetMe(ctx); !res.OK() {
		fmt.Printf("    getMe:     FAILED (%s)\n", res.ErrString())
	} else {
		fmt.Println("    getMe:     OK")
	}
}
