package queue

import (
	"fmt"
	"testing"
	"time"

	"github.com/Opselon/rubica-bot/internal/config"
	"github.com/Opselon/rubica-bot/internal/dedup"
	"github.com/Opselon/rubica-bot/internal/stats"
)

func newQueue(maxSize int, policy string) (*JobQueue, *stats.Collector) {
	collector := stats.New()
	return New(maxSize, policy, dedup.New(2*time.Minute), collector), collector
}

func job(id string, p Priority) *Job {
	return &Job{ID: id, ReceivedAt: time.Now(), DedupKey: id, Priority: p}
}

func TestEnqueueGet(t *testing.T) {
	q, _ := newQueue(10, config.PolicyReject)

	if d := q.Enqueue(job("a", PriorityNormal)); d != Enqueued {
		t.Fatalf("decision = %v, want enqueued", d)
	}
	size, _, _ := q.Sizes()
	if size != 1 {
		t.Fatalf("size = %d, want 1", size)
	}

	got, ok := q.Get()
	if !ok || got.ID != "a" {
		t.Fatalf("Get = %v, %v", got, ok)
	}
	q.TaskDone(got)
	if size, _, _ := q.Sizes(); size != 0 {
		t.Fatalf("size after Get = %d, want 0", size)
	}
}

func TestDuplicateSuppression(t *testing.T) {
	q, collector := newQueue(10, config.PolicyReject)

	if d := q.Enqueue(job("same", PriorityNormal)); d != Enqueued {
		t.Fatalf("first = %v, want enqueued", d)
	}
	if d := q.Enqueue(job("same", PriorityNormal)); d != Duplicate {
		t.Fatalf("second = %v, want duplicate", d)
	}
	if s := collector.Snapshot(); s.TotalDeduped != 1 {
		t.Fatalf("TotalDeduped = %d, want 1", s.TotalDeduped)
	}
	if size, _, _ := q.Sizes(); size != 1 {
		t.Fatalf("size = %d, want 1", size)
	}
}

func TestEmptyDedupKeyNeverDeduplicated(t *testing.T) {
	q, _ := newQueue(10, config.PolicyReject)

	j1, j2 := job("1", PriorityNormal), job("2", PriorityNormal)
	j1.DedupKey, j2.DedupKey = "", ""
	if q.Enqueue(j1) != Enqueued || q.Enqueue(j2) != Enqueued {
		t.Fatal("jobs without a dedup key must both be admitted")
	}
}

func TestHighPreemptsNormal(t *testing.T) {
	q, _ := newQueue(10, config.PolicyReject)

	q.Enqueue(job("n1", PriorityNormal))
	q.Enqueue(job("n2", PriorityNormal))
	q.Enqueue(job("h1", PriorityHigh))

	got, _ := q.Get()
	if got.ID != "h1" {
		t.Fatalf("first dequeue = %s, want h1", got.ID)
	}
	q.TaskDone(got)
	got, _ = q.Get()
	if got.ID != "n1" {
		t.Fatalf("second dequeue = %s, want n1 (FIFO within priority)", got.ID)
	}
	q.TaskDone(got)
}

func TestRejectPolicy(t *testing.T) {
	q, collector := newQueue(2, config.PolicyReject)

	q.Enqueue(job("1", PriorityNormal))
	q.Enqueue(job("2", PriorityNormal))
	if d := q.Enqueue(job("3", PriorityNormal)); d != Dropped {
		t.Fatalf("decision = %v, want dropped", d)
	}
	if size, _, _ := q.Sizes(); size != 2 {
		t.Fatalf("size = %d, want unchanged 2", size)
	}
	if s := collector.Snapshot(); s.TotalDropped != 1 {
		t.Fatalf("TotalDropped = %d, want 1", s.TotalDropped)
	}
}

func TestDropOldestPrefersNormal(t *testing.T) {
	q, collector := newQueue(2, config.PolicyDropOldest)

	q.Enqueue(job("h1", PriorityHigh))
	q.Enqueue(job("n1", PriorityNormal))
	if d := q.Enqueue(job("n2", PriorityNormal)); d != Enqueued {
		t.Fatalf("decision = %v, want enqueued", d)
	}

	size, high, normal := q.Sizes()
	if size != 2 || high != 1 || normal != 1 {
		t.Fatalf("sizes = %d/%d/%d, want 2/1/1 (n1 evicted)", size, high, normal)
	}
	got, _ := q.Get()
	if got.ID != "h1" {
		t.Fatalf("high job should survive eviction, got %s", got.ID)
	}
	q.TaskDone(got)
	got, _ = q.Get()
	if got.ID != "n2" {
		t.Fatalf("surviving normal job = %s, want n2", got.ID)
	}
	q.TaskDone(got)
	if s := collector.Snapshot(); s.TotalDropped != 1 {
		t.Fatalf("TotalDropped = %d, want 1", s.TotalDropped)
	}
}

func TestDropOldestDipsIntoHighWhenNormalEmpty(t *testing.T) {
	q, _ := newQueue(2, config.PolicyDropOldest)

	q.Enqueue(job("h1", PriorityHigh))
	q.Enqueue(job("h2", PriorityHigh))
	q.Enqueue(job("h3", PriorityHigh))

	got, _ := q.Get()
	if got.ID != "h2" {
		t.Fatalf("oldest high should be evicted, first dequeue = %s, want h2", got.ID)
	}
	q.TaskDone(got)
}

func TestSentinelShutdown(t *testing.T) {
	q, _ := newQueue(10, config.PolicyReject)

	q.PutSentinel()
	if _, ok := q.Get(); ok {
		t.Fatal("sentinel must yield ok=false")
	}
}

func TestEnqueueAfterCloseDropped(t *testing.T) {
	q, collector := newQueue(10, config.PolicyReject)

	q.Enqueue(job("before", PriorityNormal))
	q.Close()

	if d := q.Enqueue(job("after", PriorityNormal)); d != Dropped {
		t.Fatalf("decision = %v, want dropped after close", d)
	}
	if s := collector.Snapshot(); s.TotalDropped != 1 {
		t.Fatalf("TotalDropped = %d, want 1", s.TotalDropped)
	}

	// Jobs admitted before the close stay dequeueable.
	got, ok := q.Get()
	if !ok || got.ID != "before" {
		t.Fatalf("Get = %v, %v", got, ok)
	}
	q.TaskDone(got)
}

func TestGetBlocksUntilEnqueue(t *testing.T) {
	q, _ := newQueue(10, config.PolicyReject)

	done := make(chan string, 1)
	go func() {
		j, _ := q.Get()
		q.TaskDone(j)
		done <- j.ID
	}()

	time.Sleep(20 * time.Millisecond)
	q.Enqueue(job("late", PriorityNormal))

	select {
	case id := <-done:
		if id != "late" {
			t.Fatalf("got %s, want late", id)
		}
	case <-time.After(time.Second):
		t.Fatal("Get did not wake after enqueue")
	}
}

func TestDrain(t *testing.T) {
	q, _ := newQueue(10, config.PolicyReject)

	q.Enqueue(job("h1", PriorityHigh))
	q.Enqueue(job("n1", PriorityNormal))
	q.Enqueue(job("n2", PriorityNormal))

	high, normal := q.Drain()
	if high != 1 || normal != 2 {
		t.Fatalf("drained = %d/%d, want 1/2", high, normal)
	}
	if size, _, _ := q.Sizes(); size != 0 {
		t.Fatalf("size after drain = %d, want 0", size)
	}
	q.Join() // must not block: drained jobs are accounted
}

func TestEnqueueAccounting(t *testing.T) {
	q, collector := newQueue(2, config.PolicyReject)

	for i := 0; i < 4; i++ {
		q.Enqueue(job(fmt.Sprintf("%d", i%3), PriorityNormal)) // "0" repeats: one duplicate
	}

	s := collector.Snapshot()
	// total_enqueued - total_deduped - total_dropped == successful enqueues
	successes := s.TotalEnqueued
	size, _, _ := q.Sizes()
	if int(successes) != size {
		t.Fatalf("enqueue accounting mismatch: enqueued=%d size=%d (deduped=%d dropped=%d)",
			s.TotalEnqueued, size, s.TotalDeduped, s.TotalDropped)
	}
}
