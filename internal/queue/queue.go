// Package queue implements the in-memory two-priority job queue between
// webhook ingress and the worker pool.
package queue

import (
	"sync"
	"time"

	"github.com/Opselon/rubica-bot/internal/config"
	"github.com/Opselon/rubica-bot/internal/dedup"
	"github.com/Opselon/rubica-bot/internal/stats"
)

// Priority classes. High is always dequeued before ready normal work.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

// Job is the internal envelope around an update after ingress classification.
// Immutable after construction; priority and dedup key are assigned once.
type Job struct {
	ID         string
	ReceivedAt time.Time
	ChatID     string
	MessageID  string
	SenderID   string
	UpdateType string
	Text       string
	Raw        map[string]any
	DedupKey   string
	Priority   Priority
}

// Decision is the outcome of an enqueue attempt.
type Decision int

const (
	Enqueued Decision = iota
	Duplicate
	Dropped
)

func (d Decision) String() string {
	switch d {
	case Duplicate:
		return "duplicate"
	case Dropped:
		return "dropped"
	default:
		return "enqueued"
	}
}

// item wraps a job; a nil job is the shutdown sentinel.
type item struct {
	job *Job
}

// JobQueue holds pending jobs in two FIFO sub-queues. A single mutex
// serializes enqueue, the size check and drop-oldest eviction, keeping
// size == len(high) + len(normal) at all times (sentinels excluded).
type JobQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	high   []item
	normal []item
	size   int

	maxSize    int
	fullPolicy string
	closed     bool
	dedup      *dedup.Set
	stats      *stats.Collector
	pending    sync.WaitGroup
}

// New creates a bounded queue with the given full-queue policy.
func New(maxSize int, fullPolicy string, dedupSet *dedup.Set, collector *stats.Collector) *JobQueue {
	q := &JobQueue{
		maxSize:    maxSize,
		fullPolicy: fullPolicy,
		dedup:      dedupSet,
		stats:      collector,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// MaxSize returns the configured capacity.
func (q *JobQueue) MaxSize() int { return q.maxSize }

// Enqueue admits a job, returning the decision. Duplicates and policy drops
// leave the queue untouched.
func (q *JobQueue) Enqueue(job *Job) Decision {
	if q.dedup.Seen(job.DedupKey) {
		q.stats.RecordDedup()
		return Duplicate
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.stats.RecordDrop()
		return Dropped
	}
	if q.size >= q.maxSize {
		if q.fullPolicy != config.PolicyDropOldest {
			q.stats.RecordDrop()
			return Dropped
		}
		q.evictOldestLocked()
	}

	if job.Priority == PriorityHigh {
		q.high = append(q.high, item{job: job})
	} else {
		q.normal = append(q.normal, item{job: job})
	}
	q.size++
	q.pending.Add(1)
	q.stats.RecordEnqueue(q.size)
	q.cond.Signal()
	return Enqueued
}

// evictOldestLocked removes one job to make room, preferring the normal
// sub-queue and dipping into high only when normal is empty.
func (q *JobQueue) evictOldestLocked() {
	switch {
	case len(q.normal) > 0:
		q.normal = q.normal[1:]
	case len(q.high) > 0:
		// Skip over any sentinels at the head; those are not jobs.
		for i, it := range q.high {
			if it.job != nil {
				q.high = append(q.high[:i], q.high[i+1:]...)
				break
			}
		}
	default:
		return
	}
	q.size--
	q.pending.Done()
	q.stats.RecordDrop()
}

// Get blocks until a job or sentinel is available. A ready high job is always
// chosen over a ready normal one. ok is false when a shutdown sentinel was
// received.
func (q *JobQueue) Get() (job *Job, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.high) == 0 && len(q.normal) == 0 {
		q.cond.Wait()
	}

	var it item
	if len(q.high) > 0 {
		it = q.high[0]
		q.high = q.high[1:]
	} else {
		it = q.normal[0]
		q.normal = q.normal[1:]
	}
	if it.job == nil {
		return nil, false
	}
	q.size--
	return it.job, true
}

// Close refuses all further enqueues. Jobs already admitted remain
// dequeueable so a stopping pool can finish them.
func (q *JobQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// PutSentinel enqueues one shutdown sentinel. Sentinels ride the high
// sub-queue, bypass dedup and do not count toward size.
func (q *JobQueue) PutSentinel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.high = append(q.high, item{})
	q.cond.Signal()
}

// TaskDone marks a previously dequeued job complete. Sentinels (nil) need no
// accounting.
func (q *JobQueue) TaskDone(job *Job) {
	if job != nil {
		q.pending.Done()
	}
}

// Join blocks until every enqueued job has been marked done.
func (q *JobQueue) Join() {
	q.pending.Wait()
}

// Drain removes all pending jobs without dispatching them and returns the
// count removed per priority. Sentinels stay queued.
func (q *JobQueue) Drain() (high, normal int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.high[:0]
	for _, it := range q.high {
		if it.job == nil {
			kept = append(kept, it)
			continue
		}
		high++
		q.pending.Done()
	}
	q.high = kept
	normal = len(q.normal)
	for range q.normal {
		q.pending.Done()
	}
	q.normal = nil
	q.size -= high + normal
	return high, normal
}

// Sizes returns the total, high and normal pending job counts.
func (q *JobQueue) Sizes() (size, high, normal int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	high = q.countLocked(q.high)
	normal = len(q.normal)
	return q.size, high, normal
}

func (q *JobQueue) countLocked(items []item) int {
	n := 0
	for _, it := range items {
		if it.job != nil {
			n++
		}
	}
	return n
}
