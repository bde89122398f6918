// Package stats collects process-global counters for queue transitions and
// worker dispatch, surfaced by /health/queue and the /stats chat command.
package stats

import (
	"sync"
	"time"
)

// Collector accumulates monotonic counters. Safe for concurrent use.
type Collector struct {
	mu sync.Mutex

	startedAt       time.Time
	totalUpdates    int64
	totalErrors     int64
	totalEnqueued   int64
	totalDropped    int64
	totalDeduped    int64
	totalDispatchMS float64
	lastDispatchMS  float64
	lastUpdateAt    time.Time
	lastEnqueueAt   time.Time
	lastErrorAt     time.Time
	lastQueueSize   int
}

// Snapshot is a point-in-time copy of the collected values.
type Snapshot struct {
	TotalUpdates      int64
	TotalErrors       int64
	TotalEnqueued     int64
	TotalDropped      int64
	TotalDeduped      int64
	AverageDispatchMS float64
	LastDispatchMS    float64
	LastQueueSize     int
	LastEnqueueAt     time.Time
	LastErrorAt       time.Time
	UptimeSeconds     int64
}

// New creates a Collector with its uptime basis set to now.
func New() *Collector {
	return &Collector{startedAt: time.Now()}
}

// RecordEnqueue notes a successful enqueue and the resulting queue size.
func (c *Collector) RecordEnqueue(queueSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalEnqueued++
	c.lastQueueSize = queueSize
	c.lastEnqueueAt = time.Now()
}

// RecordDrop notes a job refused or evicted by the full-queue policy.
func (c *Collector) RecordDrop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalDropped++
}

// RecordDedup notes a duplicate suppressed at ingress.
func (c *Collector) RecordDedup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalDeduped++
}

// RecordDispatch notes one completed handler invocation.
func (c *Collector) RecordDispatch(durationMS float64, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalUpdates++
	c.totalDispatchMS += durationMS
	c.lastDispatchMS = durationMS
	c.lastUpdateAt = time.Now()
	if failed {
		c.totalErrors++
		c.lastErrorAt = c.lastUpdateAt
	}
}

// Snapshot returns a consistent copy of all counters and derived values.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	avg := 0.0
	if c.totalUpdates > 0 {
		avg = c.totalDispatchMS / float64(c.totalUpdates)
	}
	return Snapshot{
		TotalUpdates:      c.totalUpdates,
		TotalErrors:       c.totalErrors,
		TotalEnqueued:     c.totalEnqueued,
		TotalDropped:      c.totalDropped,
		TotalDeduped:      c.totalDeduped,
		AverageDispatchMS: avg,
		LastDispatchMS:    c.lastDispatchMS,
		LastQueueSize:     c.lastQueueSize,
		LastEnqueueAt:     c.lastEnqueueAt,
		LastErrorAt:       c.lastErrorAt,
		UptimeSeconds:     int64(time.Since(c.startedAt).Seconds()),
	}
}
