// Package retrybudget implements a sliding-window retry counter per adapter.
// A call may only be retried while the number of retries already spent in
// the current window is below the configured max; once exhausted, further
// failures surface as rcerrors.ErrRetryBudgetExceeded instead of retrying.
package retrybudget

import (
	"sync"
	"time"
)

// Budget tracks retry attempts in a sliding time window.
type Budget struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	events  []time.Time
	nowFunc func() time.Time
}

// New returns a Budget allowing up to max retries per window.
func New(window time.Duration, max int) *Budget {
	return &Budget{
		window:  window,
		max:     max,
		nowFunc: time.Now,
	}
}

// Allow reports whether a retry may be spent right now, and if so records it.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowFunc()
	b.evictBefore(now.Add(-b.window))

	if len(b.events) >= b.max {
		return false
	}
	b.events = append(b.events, now)
	return true
}

// Remaining reports how many retries are available in the current window.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowFunc()
	b.evictBefore(now.Add(-b.window))
	remaining := b.max - len(b.events)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// evictBefore must be called with mu held. It drops events older than cutoff.
func (b *Budget) evictBefore(cutoff time.Time) {
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	b.events = b.events[i:]
}
