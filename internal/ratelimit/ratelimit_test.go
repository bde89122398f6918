package ratelimit

import (
	"testing"
	"time"
)

func TestAllow_WithinLimit(t *testing.T) {
	l := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	if l.Allow() {
		t.Fatal("request beyond the limit should be refused")
	}
}

func TestAllow_WindowSlides(t *testing.T) {
	now := time.Now()
	l := New(2, 10*time.Second)
	l.now = func() time.Time { return now }

	if !l.Allow() || !l.Allow() {
		t.Fatal("first two requests should be admitted")
	}
	if l.Allow() {
		t.Fatal("third request in the window should be refused")
	}

	now = now.Add(11 * time.Second)
	if !l.Allow() {
		t.Fatal("request after the window slid should be admitted")
	}
}
