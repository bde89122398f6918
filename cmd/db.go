package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Opselon/rubica-bot/internal/store"
)

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(dbMigrateCmd(), dbVersionCmd(), dbCleanupCmd(), dbTrimCmd())
	return cmd
}

// openStore loads config and returns a migrated-or-not store per the caller.
func openStore(migrate bool) (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(cfg.DatabaseURL, cfg.Cache.Size, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := s.Migrate(context.Background()); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func dbMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Run: func(cmd *cobra.Command, args []string) {
			s, err := openStore(true)
			if err != nil {
				fail(err)
			}
			defer s.Close()
			v, err := s.Version(context.Background())
			if err != nil {
				fail(err)
			}
			fmt.Printf("schema at version %d\n", v)
		},
	}
}

func dbVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the recorded schema version",
		Run: func(cmd *cobra.Command, args []string) {
			s, err := openStore(false)
			if err != nil {
				fail(err)
			}
			defer s.Close()
			v, err := s.Version(context.Background())
			if err != nil {
				fail(err)
			}
			fmt.Printf("schema version: %d (target %d)\n", v, store.SchemaVersion)
		},
	}
}

func dbCleanupCmd() *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete update snapshots older than the retention window",
		Run: func(cmd *cobra.Command, args []string) {
			s, err := openStore(true)
			if err != nil {
				fail(err)
			}
			defer s.Close()
			deleted, err := s.CleanupIncomingUpdates(context.Background(), time.Duration(hours)*time.Hour)
			if err != nil {
				fail(err)
			}
			fmt.Printf("deleted %d snapshot rows\n", deleted)
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 48, "maximum snapshot age in hours")
	return cmd
}

func dbTrimCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "trim",
		Short: "Trim the message log to N rows per chat",
		Run: func(cmd *cobra.Command, args []string) {
			s, err := openStore(true)
			if err != nil {
				fail(err)
			}
			defer s.Close()
			deleted, err := s.TrimMessagesPerChat(context.Background(), keep)
			if err != nil {
				fail(err)
			}
			fmt.Printf("deleted %d message rows\n", deleted)
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 10000, "messages to keep per chat")
	return cmd
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
