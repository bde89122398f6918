package plugins

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Opselon/rubica-bot/internal/payload"
	"github.com/Opselon/rubica-bot/internal/store"
)

// Snapshot persists one row per accepted update for audit and replay. Always
// passes the update on; a failed write is logged, never fatal.
type Snapshot struct{}

func (Snapshot) Name() string { return "incoming_snapshot" }

func (Snapshot) Handle(ctx context.Context, update payload.Update, pctx *Context) (bool, error) {
	if pctx.Settings == nil || !pctx.Settings.Snapshots.Enabled || pctx.Job == nil {
		return false, nil
	}

	var raw string
	if pctx.Settings.Snapshots.StoreRaw {
		if b, err := json.Marshal(update); err == nil {
			raw = string(b)
		}
	}
	err := pctx.Repo.SaveIncomingUpdate(ctx, store.IncomingUpdate{
		JobID:      pctx.Job.ID,
		ReceivedAt: float64(pctx.Job.ReceivedAt.UnixNano()) / 1e9,
		ChatID:     pctx.Job.ChatID,
		MessageID:  pctx.Job.MessageID,
		SenderID:   pctx.Job.SenderID,
		UpdateType: pctx.Job.UpdateType,
		Text:       pctx.Job.Text,
		RawPayload: raw,
	})
	if err != nil {
		slog.Error("snapshot write failed", "job", pctx.Job.ID, "error", err)
	}
	return false, nil
}
