// Package webhook is the HTTP ingress: signature check, admission control,
// payload classification and enqueue. Handlers never wait for processing.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Opselon/rubica-bot/internal/payload"
	"github.com/Opselon/rubica-bot/internal/queue"
	"github.com/Opselon/rubica-bot/internal/ratelimit"
	"github.com/Opselon/rubica-bot/internal/stats"
	"github.com/Opselon/rubica-bot/internal/worker"
)

const signatureHeader = "X-Rubika-Signature"

// maxBodyBytes caps webhook payload reads.
const maxBodyBytes = 1 << 20

// adminCommands get high queue priority so moderation keeps working while
// the normal sub-queue is backed up.
var adminCommands = map[string]bool{
	"ban":      true,
	"unban":    true,
	"del":      true,
	"antilink": true,
	"filter":   true,
	"settings": true,
	"admins":   true,
	"setcmd":   true,
	"panel":    true,
}

// Handler serves the webhook and health endpoints.
type Handler struct {
	queue   *queue.JobQueue
	limiter *ratelimit.SlidingWindow
	stats   *stats.Collector
	pool    *worker.Pool
	secret  string
}

func NewHandler(q *queue.JobQueue, limiter *ratelimit.SlidingWindow, collector *stats.Collector, pool *worker.Pool, secret string) *Handler {
	return &Handler{queue: q, limiter: limiter, stats: collector, pool: pool, secret: secret}
}

// RegisterRoutes attaches all endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /receiveUpdate", h.handleReceive)
	mux.HandleFunc("POST /receiveInlineMessage", h.handleReceive)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /health/queue", h.handleQueueHealth)
	mux.HandleFunc("POST /health/queue/drain", h.handleDrain)
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if h.secret != "" && !verifySignature(body, r.Header.Get(signatureHeader), h.secret) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !h.limiter.Allow() {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	var update payload.Update
	if err := json.Unmarshal(body, &update); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	job := buildJob(update)
	decision := h.queue.Enqueue(job)
	slog.Debug("update received", "job", job.ID, "decision", decision.String(), "priority", job.Priority.String())

	if decision == queue.Dropped {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// verifySignature compares the hex HMAC-SHA256 of the body in constant time.
func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// buildJob classifies a parsed update into a queue job. Priority and dedup
// key are fixed here and never change downstream.
func buildJob(update payload.Update) *queue.Job {
	message := payload.ExtractMessage(update)

	jobID := payload.Str(update, "update_id")
	if jobID == "" {
		jobID = payload.Str(update, "message_id")
	}
	if jobID == "" {
		jobID = payload.MessageID(message)
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}

	chatID := payload.ChatID(message)
	messageID := payload.MessageID(message)
	updateType := payload.Str(update, "type")
	text := payload.Text(message)
	buttonID := payload.Str(update, "button_id")
	if buttonID == "" {
		buttonID = payload.Str(message, "button_id")
	}

	var parts []string
	for _, p := range []string{chatID, messageID, updateType, buttonID} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	dedupKey := strings.Join(parts, ":")
	if dedupKey == "" {
		dedupKey = jobID
	}

	return &queue.Job{
		ID:         jobID,
		ReceivedAt: time.Now(),
		ChatID:     chatID,
		MessageID:  messageID,
		SenderID:   payload.SenderID(message),
		UpdateType: updateType,
		Text:       text,
		Raw:        update,
		DedupKey:   dedupKey,
		Priority:   classify(text),
	}
}

// classify promotes admin commands and link-bearing messages so moderation
// outruns the flood it is moderating.
func classify(text string) queue.Priority {
	if text == "" {
		return queue.PriorityNormal
	}
	word := strings.TrimLeft(text, "/")
	if fields := strings.Fields(word); len(fields) > 0 {
		if adminCommands[strings.ToLower(fields[0])] {
			return queue.PriorityHigh
		}
	}
	if strings.Contains(text, "http") || strings.Contains(text, "t.me") || strings.Contains(text, "rubika.ir") {
		return queue.PriorityHigh
	}
	return queue.PriorityNormal
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleQueueHealth(w http.ResponseWriter, r *http.Request) {
	size, high, normal := h.queue.Sizes()
	s := h.stats.Snapshot()

	var workers []worker.StatusSnapshot
	if h.pool != nil {
		workers = h.pool.Statuses()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queue": map[string]any{
			"size":           size,
			"high_size":      high,
			"normal_size":    normal,
			"max_size":       h.queue.MaxSize(),
			"total_enqueued": s.TotalEnqueued,
			"total_dropped":  s.TotalDropped,
			"total_deduped":  s.TotalDeduped,
		},
		"workers": workers,
		"stats": map[string]any{
			"total_updates":    s.TotalUpdates,
			"total_errors":     s.TotalErrors,
			"avg_dispatch_ms":  s.AverageDispatchMS,
			"last_dispatch_ms": s.LastDispatchMS,
		},
	})
}

func (h *Handler) handleDrain(w http.ResponseWriter, r *http.Request) {
	high, normal := h.queue.Drain()
	slog.Info("queue drained", "high", high, "normal", normal)
	writeJSON(w, http.StatusOK, map[string]any{
		"drained": map[string]int{"high": high, "normal": normal},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}
