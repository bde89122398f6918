package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertGroup creates or refreshes a group row and returns the stored record.
func (s *Store) UpsertGroup(ctx context.Context, chatID, title string) (GroupSettings, error) {
	now := nowUTC()
	_, err := s.exec(ctx, `
		INSERT INTO groups (chat_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET
			title = CASE WHEN excluded.title = '' THEN groups.title ELSE excluded.title END,
			updated_at = excluded.updated_at`,
		chatID, title, now, now)
	if err != nil {
		return GroupSettings{}, fmt.Errorf("upsert group %s: %w", chatID, err)
	}
	s.groups.Invalidate(chatID)
	return s.GetGroup(ctx, chatID)
}

// GetGroup returns group settings through the LRU cache. A missing row yields
// the synthesized default record without writing it.
func (s *Store) GetGroup(ctx context.Context, chatID string) (GroupSettings, error) {
	if g, ok := s.groups.Get(chatID); ok {
		return g, nil
	}

	var g GroupSettings
	err := s.queryRow(ctx, `
		SELECT chat_id, title, anti_link, anti_flood, anti_spam, anti_badwords, anti_forward, flood_limit
		FROM groups WHERE chat_id = ?`, chatID).
		Scan(&g.ChatID, &g.Title, &g.AntiLink, &g.AntiFlood, &g.AntiSpam, &g.AntiBadwords, &g.AntiForward, &g.FloodLimit)
	if errors.Is(err, sql.ErrNoRows) {
		g = defaultGroup(chatID)
	} else if err != nil {
		return GroupSettings{}, fmt.Errorf("get group %s: %w", chatID, err)
	}
	s.groups.Set(chatID, g)
	return g, nil
}

// SetGroupFlag flips one moderation flag. The column name is whitelisted, the
// cache entry is invalidated so the next read observes the new value.
func (s *Store) SetGroupFlag(ctx context.Context, chatID, flag string, value bool) error {
	if !groupFlagColumns[flag] {
		return fmt.Errorf("unknown group flag %q", flag)
	}
	if _, err := s.UpsertGroup(ctx, chatID, ""); err != nil {
		return err
	}
	_, err := s.exec(ctx,
		`UPDATE groups SET `+flag+` = ?, updated_at = ? WHERE chat_id = ?`,
		value, nowUTC(), chatID)
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", flag, chatID, err)
	}
	s.groups.Invalidate(chatID)
	return nil
}

// SetFloodLimit updates the anti-flood threshold for a group.
func (s *Store) SetFloodLimit(ctx context.Context, chatID string, limit int) error {
	if limit < 1 {
		return fmt.Errorf("flood limit must be positive, got %d", limit)
	}
	if _, err := s.UpsertGroup(ctx, chatID, ""); err != nil {
		return err
	}
	_, err := s.exec(ctx,
		`UPDATE groups SET flood_limit = ?, updated_at = ? WHERE chat_id = ?`,
		limit, nowUTC(), chatID)
	if err != nil {
		return fmt.Errorf("set flood limit on %s: %w", chatID, err)
	}
	s.groups.Invalidate(chatID)
	return nil
}
