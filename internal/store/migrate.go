package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// SchemaVersion is the migration target. The recorded version lives in the
// single-row schema_version table.
const SchemaVersion = 3

// Migrate brings the database from the recorded version up to SchemaVersion.
// All statements use IF NOT EXISTS so a partial earlier run is harmless.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := s.currentVersion(ctx)
	if err != nil {
		return err
	}
	if current >= SchemaVersion {
		slog.Debug("schema up to date", "version", current)
		return nil
	}

	steps := []struct {
		version int
		apply   func(context.Context) error
	}{
		{1, s.migrateBase},
		{2, s.migrateAntiState},
		{3, s.migrateIncomingUpdates},
	}
	for _, step := range steps {
		if current >= step.version {
			continue
		}
		if err := step.apply(ctx); err != nil {
			return fmt.Errorf("migrate to v%d: %w", step.version, err)
		}
		if err := s.setVersion(ctx, step.version); err != nil {
			return err
		}
		slog.Info("schema migrated", "version", step.version)
	}
	return nil
}

func (s *Store) currentVersion(ctx context.Context) (int, error) {
	var v int
	err := s.queryRow(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func (s *Store) setVersion(ctx context.Context, v int) error {
	res, err := s.exec(ctx, `UPDATE schema_version SET version = ?`, v)
	if err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.exec(ctx, `INSERT INTO schema_version (version) VALUES (?)`, v); err != nil {
			return fmt.Errorf("insert schema version: %w", err)
		}
	}
	return nil
}

func (s *Store) migrateBase(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS groups (
			chat_id       TEXT PRIMARY KEY,
			title         TEXT NOT NULL DEFAULT '',
			anti_link     ` + s.dialect.boolCol(true) + `,
			anti_flood    ` + s.dialect.boolCol(false) + `,
			anti_spam     ` + s.dialect.boolCol(false) + `,
			anti_badwords ` + s.dialect.boolCol(false) + `,
			anti_forward  ` + s.dialect.boolCol(false) + `,
			flood_limit   INTEGER NOT NULL DEFAULT 6,
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS admins (
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role    TEXT NOT NULL DEFAULT 'admin',
			PRIMARY KEY (chat_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS filters (
			chat_id       TEXT NOT NULL,
			word          TEXT NOT NULL,
			is_whitelist  ` + s.dialect.boolCol(false) + `,
			regex_enabled ` + s.dialect.boolCol(false) + `,
			created_at    TIMESTAMP NOT NULL,
			PRIMARY KEY (chat_id, word)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id         ` + s.dialect.autoPK() + `,
			chat_id    TEXT NOT NULL,
			message_id TEXT NOT NULL,
			sender_id  TEXT NOT NULL DEFAULT '',
			text       TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_recent ON messages (chat_id, id DESC)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	return s.execAll(ctx, stmts)
}

func (s *Store) migrateAntiState(ctx context.Context) error {
	return s.execAll(ctx, []string{
		`CREATE TABLE IF NOT EXISTS anti_state (
			chat_id    TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (chat_id, key)
		)`,
	})
}

func (s *Store) migrateIncomingUpdates(ctx context.Context) error {
	return s.execAll(ctx, []string{
		`CREATE TABLE IF NOT EXISTS incoming_updates (
			id          ` + s.dialect.autoPK() + `,
			job_id      TEXT NOT NULL,
			received_at ` + s.dialect.realType() + ` NOT NULL,
			chat_id     TEXT NOT NULL DEFAULT '',
			message_id  TEXT NOT NULL DEFAULT '',
			sender_id   TEXT NOT NULL DEFAULT '',
			update_type TEXT NOT NULL DEFAULT '',
			text        TEXT NOT NULL DEFAULT '',
			raw_payload TEXT,
			created_at  TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_incoming_updates_job ON incoming_updates (job_id)`,
	})
}

func (s *Store) execAll(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := s.exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w (statement: %.60s)", err, stmt)
		}
	}
	return nil
}

// Version exposes the recorded schema version for the db CLI command.
func (s *Store) Version(ctx context.Context) (int, error) {
	return s.currentVersion(ctx)
}
