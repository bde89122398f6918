package store

import (
	"context"
	"fmt"
)

// AddAdmin records a user as admin of a chat. Idempotent.
func (s *Store) AddAdmin(ctx context.Context, chatID, userID, role string) error {
	if role == "" {
		role = "admin"
	}
	_, err := s.exec(ctx, `
		INSERT INTO admins (chat_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT (chat_id, user_id) DO UPDATE SET role = excluded.role`,
		chatID, userID, role)
	if err != nil {
		return fmt.Errorf("add admin %s@%s: %w", userID, chatID, err)
	}
	return nil
}

// RemoveAdmin deletes the membership row if present.
func (s *Store) RemoveAdmin(ctx context.Context, chatID, userID string) error {
	_, err := s.exec(ctx, `DELETE FROM admins WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return fmt.Errorf("remove admin %s@%s: %w", userID, chatID, err)
	}
	return nil
}

// IsAdmin reports whether the user is recorded as admin of the chat.
func (s *Store) IsAdmin(ctx context.Context, chatID, userID string) (bool, error) {
	var n int
	err := s.queryRow(ctx,
		`SELECT COUNT(*) FROM admins WHERE chat_id = ? AND user_id = ?`, chatID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is admin %s@%s: %w", userID, chatID, err)
	}
	return n > 0, nil
}

// ListAdmins returns the admin user ids of a chat, stable order.
func (s *Store) ListAdmins(ctx context.Context, chatID string) ([]string, error) {
	rows, err := s.query(ctx,
		`SELECT user_id FROM admins WHERE chat_id = ? ORDER BY user_id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list admins %s: %w", chatID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CountAdmins returns the number of admins of a chat.
func (s *Store) CountAdmins(ctx context.Context, chatID string) (int, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM admins WHERE chat_id = ?`, chatID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count admins %s: %w", chatID, err)
	}
	return n, nil
}

// HasAnyAdmin reports whether a chat has at least one recorded admin.
func (s *Store) HasAnyAdmin(ctx context.Context, chatID string) (bool, error) {
	n, err := s.CountAdmins(ctx, chatID)
	return n > 0, err
}
