package stats

import "testing"

func TestRecordDispatch(t *testing.T) {
	c := New()

	c.RecordDispatch(10, false)
	c.RecordDispatch(30, true)

	s := c.Snapshot()
	if s.TotalUpdates != 2 {
		t.Fatalf("TotalUpdates = %d, want 2", s.TotalUpdates)
	}
	if s.TotalErrors != 1 {
		t.Fatalf("TotalErrors = %d, want 1", s.TotalErrors)
	}
	if s.AverageDispatchMS != 20 {
		t.Fatalf("AverageDispatchMS = %v, want 20", s.AverageDispatchMS)
	}
	if s.LastDispatchMS != 30 {
		t.Fatalf("LastDispatchMS = %v, want 30", s.LastDispatchMS)
	}
	if s.LastErrorAt.IsZero() {
		t.Fatal("LastErrorAt should be set after a failed dispatch")
	}
}

func TestAverageWithZeroUpdates(t *testing.T) {
	s := New().Snapshot()
	if s.AverageDispatchMS != 0 {
		t.Fatalf("AverageDispatchMS with no updates = %v, want 0", s.AverageDispatchMS)
	}
}

func TestQueueCounters(t *testing.T) {
	c := New()

	c.RecordEnqueue(3)
	c.RecordEnqueue(4)
	c.RecordDrop()
	c.RecordDedup()

	s := c.Snapshot()
	if s.TotalEnqueued != 2 || s.TotalDropped != 1 || s.TotalDeduped != 1 {
		t.Fatalf("counters = %d/%d/%d, want 2/1/1", s.TotalEnqueued, s.TotalDropped, s.TotalDeduped)
	}
	if s.LastQueueSize != 4 {
		t.Fatalf("LastQueueSize = %d, want 4", s.LastQueueSize)
	}
}
