// Package ratelimit implements the sliding-window admission limiter that
// guards the webhook endpoints as a whole.
package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow admits at most maxRequests per window. Safe for concurrent use.
type SlidingWindow struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	events      []time.Time
	now         func() time.Time
}

// New creates a limiter admitting maxRequests per window.
func New(maxRequests int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow evicts events older than the window and admits the request iff the
// remaining count is below the maximum.
func (l *SlidingWindow) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cut := 0
	for cut < len(l.events) && now.Sub(l.events[cut]) > l.window {
		cut++
	}
	if cut > 0 {
		l.events = append(l.events[:0], l.events[cut:]...)
	}
	if len(l.events) >= l.maxRequests {
		return false
	}
	l.events = append(l.events, now)
	return true
}
