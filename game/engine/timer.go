package engine

import (
	"fmt"
	"sync"
	"time"
)

// TickUnit is the amount of time removed from a Timer by one tick
const TickUnit = time.Second

// Timer is a per-player countdown clock. Remaining time never increases and
// never goes below zero. A Timer is safe for concurrent use.
type Timer struct {
	mu        sync.Mutex
	remaining time.Duration
}

// NewTimer creates a timer holding limit
func NewTimer(limit time.Duration) *Timer {
	if limit < 0 {
		limit = 0
	}
	return &Timer{remaining: limit}
}

// Tick removes one TickUnit from the clock and reports whether the timer is
// now expired. Ticking an expired timer is a no-op.
func (t *Timer) Tick() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.remaining > 0 {
		t.remaining -= TickUnit
		if t.remaining < 0 {
			t.remaining = 0
		}
	}
	return t.remaining == 0
}

// Expired reports whether no time remains
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining == 0
}

// Remaining returns the time left on the clock
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// String formats the remaining time as MM:SS
func (t *Timer) String() string {
	return FormatClock(t.Remaining())
}

// FormatClock formats d as MM:SS
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
