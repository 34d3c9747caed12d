// Package bulkhead bounds the concurrency of a class of operations (read,
// write, audit) so a slow dependency in one class cannot starve the others.
package bulkhead

import (
	"context"

	"golang.org/x/time/rate"

	"routectl.dev/internal/rcerrors"
)

// Bulkhead is a fixed-capacity admission gate for one operation class.
type Bulkhead struct {
	sem     chan struct{}
	limiter *rate.Limiter
}

// New returns a Bulkhead admitting at most capacity concurrent callers, with
// admission additionally smoothed by a token-bucket limiter allowing up to
// capacity admissions per second (burst capacity).
func New(capacity int) *Bulkhead {
	return &Bulkhead{
		sem:     make(chan struct{}, capacity),
		limiter: rate.NewLimiter(rate.Limit(capacity), capacity),
	}
}

// Acquire blocks until a slot is available or ctx is done. On success the
// caller must call the returned release func exactly once.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, rcerrors.ErrBulkheadFull
	}

	select {
	case b.sem <- struct{}{}:
		return func() { <-b.sem }, nil
	case <-ctx.Done():
		return nil, rcerrors.ErrBulkheadFull
	}
}

// InUse reports the number of slots currently held.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// Capacity reports the configured concurrency limit.
func (b *Bulkhead) Capacity() int {
	return cap(b.sem)
}
