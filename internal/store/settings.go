package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SetSetting writes a key/value pair, replacing any previous value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.exec(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, nowUTC())
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// GetSetting returns the stored value; ok is false when the key is absent.
func (s *Store) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.queryRow(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetAntiState writes a per-chat moderation state value.
func (s *Store) SetAntiState(ctx context.Context, chatID, key, value string) error {
	_, err := s.exec(ctx, `
		INSERT INTO anti_state (chat_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (chat_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		chatID, key, value, nowUTC())
	if err != nil {
		return fmt.Errorf("set anti state %s@%s: %w", key, chatID, err)
	}
	return nil
}

// GetAntiState reads a per-chat moderation state value.
func (s *Store) GetAntiState(ctx context.Context, chatID, key string) (value string, ok bool, err error) {
	err = s.queryRow(ctx,
		`SELECT value FROM anti_state WHERE chat_id = ? AND key = ?`, chatID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get anti state %s@%s: %w", key, chatID, err)
	}
	return value, true, nil
}
