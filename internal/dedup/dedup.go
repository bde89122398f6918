// Package dedup provides a TTL set of recently seen job keys, used to
// make webhook ingress idempotent across upstream retries.
package dedup

import (
	"sync"
	"time"
)

// Set remembers keys for a fixed TTL. Safe for concurrent use.
type Set struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

// New creates a Set that forgets keys after ttl.
func New(ttl time.Duration) *Set {
	return &Set{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Seen reports whether key was observed within the TTL, recording it if not.
// Empty keys are never deduplicated. Expired entries are evicted on each call
// so the map cannot grow without bound between bursts.
func (s *Set) Seen(key string) bool {
	if key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, at := range s.seen {
		if now.Sub(at) > s.ttl {
			delete(s.seen, k)
		}
	}
	if _, ok := s.seen[key]; ok {
		return true
	}
	s.seen[key] = now
	return false
}

// Len returns the number of tracked keys, expired entries included.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
