package store

import (
	"context"
	"fmt"
	"time"
)

// IncomingUpdate is a snapshot row of one accepted webhook delivery.
type IncomingUpdate struct {
	JobID      string
	ReceivedAt float64
	ChatID     string
	MessageID  string
	SenderID   string
	UpdateType string
	Text       string
	RawPayload string
}

// SaveIncomingUpdate records one accepted update. RawPayload may be empty
// when raw storage is disabled.
func (s *Store) SaveIncomingUpdate(ctx context.Context, u IncomingUpdate) error {
	var raw any
	if u.RawPayload != "" {
		raw = u.RawPayload
	}
	_, err := s.exec(ctx, `
		INSERT INTO incoming_updates
			(job_id, received_at, chat_id, message_id, sender_id, update_type, text, raw_payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.JobID, u.ReceivedAt, u.ChatID, u.MessageID, u.SenderID, u.UpdateType, u.Text, raw, nowUTC())
	if err != nil {
		return fmt.Errorf("save incoming update %s: %w", u.JobID, err)
	}
	return nil
}

// CleanupIncomingUpdates deletes snapshots received more than maxAge ago and
// returns the deleted row count.
func (s *Store) CleanupIncomingUpdates(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := float64(time.Now().Add(-maxAge).UnixNano()) / float64(time.Second)
	res, err := s.exec(ctx, `DELETE FROM incoming_updates WHERE received_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup incoming updates: %w", err)
	}
	return res.RowsAffected()
}

// CountIncomingUpdates returns the snapshot row count; used by the db CLI.
func (s *Store) CountIncomingUpdates(ctx context.Context) (int64, error) {
	var n int64
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM incoming_updates`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count incoming updates: %w", err)
	}
	return n, nil
}
