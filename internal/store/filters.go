package store

import (
	"context"
	"fmt"
	"strings"
)

// Filter is one word rule of a chat. Whitelist entries exempt a message from
// the blacklist check; regex entries are matched as patterns, not substrings.
type Filter struct {
	ChatID       string
	Word         string
	IsWhitelist  bool
	RegexEnabled bool
}

// AddFilter stores a word rule. Substring words are lowercased; regex
// patterns keep their case so character classes stay meaningful.
// Re-adding a word updates the flags.
func (s *Store) AddFilter(ctx context.Context, chatID, word string, isWhitelist, regexEnabled bool) error {
	word = strings.TrimSpace(word)
	if !regexEnabled {
		word = strings.ToLower(word)
	}
	if word == "" {
		return fmt.Errorf("empty filter word")
	}
	_, err := s.exec(ctx, `
		INSERT INTO filters (chat_id, word, is_whitelist, regex_enabled, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (chat_id, word) DO UPDATE SET
			is_whitelist = excluded.is_whitelist,
			regex_enabled = excluded.regex_enabled`,
		chatID, word, isWhitelist, regexEnabled, nowUTC())
	if err != nil {
		return fmt.Errorf("add filter %q@%s: %w", word, chatID, err)
	}
	return nil
}

// RemoveFilter deletes a word rule, matching either the stored regex
// pattern as given or the lowercased substring form.
func (s *Store) RemoveFilter(ctx context.Context, chatID, word string) error {
	word = strings.TrimSpace(word)
	_, err := s.exec(ctx, `DELETE FROM filters WHERE chat_id = ? AND word IN (?, ?)`,
		chatID, word, strings.ToLower(word))
	if err != nil {
		return fmt.Errorf("remove filter %q@%s: %w", word, chatID, err)
	}
	return nil
}

// ListFilters returns the chat's rules ordered by word.
func (s *Store) ListFilters(ctx context.Context, chatID string) ([]Filter, error) {
	rows, err := s.query(ctx, `
		SELECT chat_id, word, is_whitelist, regex_enabled
		FROM filters WHERE chat_id = ? ORDER BY word`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list filters %s: %w", chatID, err)
	}
	defer rows.Close()

	var out []Filter
	for rows.Next() {
		var f Filter
		if err := rows.Scan(&f.ChatID, &f.Word, &f.IsWhitelist, &f.RegexEnabled); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
