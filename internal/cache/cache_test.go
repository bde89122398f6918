package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New[string, int](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("missing key should be absent")
	}
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", v, ok)
	}
}

func TestTTLExpiry(t *testing.T) {
	now := time.Now()
	c := New[string, int](4, 30*time.Second)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(31 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry older than TTL should be absent")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be evicted on access, len = %d", c.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	c := New[string, int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // promote a to MRU, making b the eviction candidate
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("LRU entry b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("recently used entry a should survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("newest entry c should survive")
	}
}

func TestInvalidate(t *testing.T) {
	c := New[string, int](4, time.Minute)

	c.Set("a", 1)
	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("invalidated entry should be absent")
	}
	c.Invalidate("never-set") // must not panic
}
