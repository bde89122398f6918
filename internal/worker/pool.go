// Package worker drains the job queue with a fixed set of goroutines and
// tracks per-worker health for the /health/queue endpoint.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Opselon/rubica-bot/internal/queue"
	"github.com/Opselon/rubica-bot/internal/stats"
)

// Handler processes one job. Errors are recorded, never retried: updates are
// at-most-once past the queue.
type Handler func(ctx context.Context, job *queue.Job) error

// Status is a per-worker mutable record, owned by the pool.
type Status struct {
	mu sync.Mutex

	WorkerID    int
	StartedAt   time.Time
	LastJobAt   time.Time
	LastErrorAt time.Time
	LastError   string
	Processed   int64
	Alive       bool
}

// StatusSnapshot is a copyable view of a worker's status.
type StatusSnapshot struct {
	WorkerID    int       `json:"id"`
	Alive       bool      `json:"alive"`
	Processed   int64     `json:"processed"`
	StartedAt   time.Time `json:"started_at"`
	LastJobAt   time.Time `json:"last_job_at,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitzero"`
}

func (s *Status) snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusSnapshot{
		WorkerID:    s.WorkerID,
		Alive:       s.Alive,
		Processed:   s.Processed,
		StartedAt:   s.StartedAt,
		LastJobAt:   s.LastJobAt,
		LastError:   s.LastError,
		LastErrorAt: s.LastErrorAt,
	}
}

// Pool runs concurrency worker loops over a shared queue.
type Pool struct {
	queue       *queue.JobQueue
	handler     Handler
	concurrency int
	stats       *stats.Collector

	statuses []*Status
	wg       sync.WaitGroup
	stopped  bool
	mu       sync.Mutex
}

// NewPool creates a pool; Start launches the loops.
func NewPool(q *queue.JobQueue, handler Handler, concurrency int, collector *stats.Collector) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{
		queue:       q,
		handler:     handler,
		concurrency: concurrency,
		stats:       collector,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.concurrency; i++ {
		status := &Status{WorkerID: i, StartedAt: time.Now(), Alive: true}
		p.statuses = append(p.statuses, status)
		p.wg.Add(1)
		go p.loop(ctx, status)
	}
	slog.Info("worker pool started", "concurrency", p.concurrency)
}

// Stop refuses new work, sends one sentinel per worker and waits for all
// loops to exit. In-flight jobs complete best-effort.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.queue.Close()
	for range p.statuses {
		p.queue.PutSentinel()
	}
	p.wg.Wait()
	slog.Info("worker pool stopped")
}

// Statuses returns a snapshot of every worker's status.
func (p *Pool) Statuses() []StatusSnapshot {
	out := make([]StatusSnapshot, 0, len(p.statuses))
	for _, s := range p.statuses {
		out = append(out, s.snapshot())
	}
	return out
}

func (p *Pool) loop(ctx context.Context, status *Status) {
	defer p.wg.Done()

	for {
		job, ok := p.queue.Get()
		if !ok {
			status.mu.Lock()
			status.Alive = false
			status.mu.Unlock()
			p.queue.TaskDone(nil)
			return
		}

		start := time.Now()
		err := p.dispatch(ctx, job)
		elapsedMS := float64(time.Since(start)) / float64(time.Millisecond)

		status.mu.Lock()
		status.Processed++
		status.LastJobAt = time.Now()
		if err != nil {
			status.LastError = err.Error()
			status.LastErrorAt = status.LastJobAt
		}
		status.mu.Unlock()

		if err != nil {
			slog.Error("job failed", "worker", status.WorkerID, "job", job.ID, "error", err)
		}
		p.stats.RecordDispatch(elapsedMS, err != nil)
		p.queue.TaskDone(job)
	}
}

// dispatch invokes the handler, converting panics into errors so a broken
// plugin cannot kill the worker.
func (p *Pool) dispatch(ctx context.Context, job *queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.handler(ctx, job)
}
