package store

import (
	"context"
	"fmt"
)

// Message is one logged chat message, used by /del and retention trimming.
type Message struct {
	ChatID    string
	MessageID string
	SenderID  string
	Text      string
}

// SaveMessage appends one message to the log.
func (s *Store) SaveMessage(ctx context.Context, m Message) error {
	_, err := s.exec(ctx, `
		INSERT INTO messages (chat_id, message_id, sender_id, text, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ChatID, m.MessageID, m.SenderID, m.Text, nowUTC())
	if err != nil {
		return fmt.Errorf("save message %s@%s: %w", m.MessageID, m.ChatID, err)
	}
	return nil
}

// BulkInsertMessages appends many messages in one transaction.
func (s *Store) BulkInsertMessages(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bulk insert begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`
		INSERT INTO messages (chat_id, message_id, sender_id, text, created_at)
		VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("bulk insert prepare: %w", err)
	}
	defer stmt.Close()

	now := nowUTC()
	for _, m := range msgs {
		if _, err := stmt.ExecContext(ctx, m.ChatID, m.MessageID, m.SenderID, m.Text, now); err != nil {
			return fmt.Errorf("bulk insert %s@%s: %w", m.MessageID, m.ChatID, err)
		}
	}
	return tx.Commit()
}

// FetchRecentMessageIDs returns the last limit message ids of a chat, newest
// first.
func (s *Store) FetchRecentMessageIDs(ctx context.Context, chatID string, limit int) ([]string, error) {
	rows, err := s.query(ctx, `
		SELECT message_id FROM messages
		WHERE chat_id = ? ORDER BY id DESC LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch recent messages %s: %w", chatID, err)
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

// TrimMessagesPerChat keeps the newest limitPerChat rows per chat and deletes
// the rest, returning the number of deleted rows.
func (s *Store) TrimMessagesPerChat(ctx context.Context, limitPerChat int) (int64, error) {
	res, err := s.exec(ctx, `
		DELETE FROM messages WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY chat_id ORDER BY id DESC) AS rn
				FROM messages
			) ranked WHERE rn > ?
		)`, limitPerChat)
	if err != nil {
		return 0, fmt.Errorf("trim messages: %w", err)
	}
	return res.RowsAffected()
}
