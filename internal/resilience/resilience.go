// Package resilience composes the drain gate, bulkhead, circuit breaker, and
// retry budget into the single call-site wrapper every adapter method runs
// through: drain -> bulkhead -> circuit breaker -> call -> retry-budget-gated
// retry on transient failures.
package resilience

import (
	"context"
	"fmt"
	"time"

	"routectl.dev/internal/logging"
	"routectl.dev/internal/rcerrors"
	"routectl.dev/internal/resilience/breaker"
	"routectl.dev/internal/resilience/bulkhead"
	"routectl.dev/internal/resilience/drain"
	"routectl.dev/internal/resilience/retrybudget"
)

// Kernel is one instance of the resilience envelope, bound to a single
// operation class (read, write, audit) and a single shared drain Gate.
type Kernel struct {
	name  string
	gate  *drain.Gate
	bulk  *bulkhead.Bulkhead
	br    *breaker.Breaker
	retry *retrybudget.Budget
}

// New constructs a Kernel for a named operation class (e.g. "read", "write",
// "audit"), sharing the process-wide drain Gate.
func New(name string, gate *drain.Gate, bulkheadCapacity int, brCfg breaker.Config, retryWindow time.Duration, retryMax int, logger *logging.ContextLogger) *Kernel {
	return &Kernel{
		name:  name,
		gate:  gate,
		bulk:  bulkhead.New(bulkheadCapacity),
		br:    breaker.New(brCfg, logger),
		retry: retrybudget.New(retryWindow, retryMax),
	}
}

// Call runs fn through the full resilience envelope. Retries are only
// attempted for errors rcerrors.Retryable classifies as transient; once the
// retry budget is exhausted the last error is wrapped with
// rcerrors.ErrRetryBudgetExceeded instead of being retried further.
func Call[T any](ctx context.Context, k *Kernel, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	leave, err := k.gate.Enter()
	if err != nil {
		return zero, err
	}
	defer leave()

	release, err := k.bulk.Acquire(ctx)
	if err != nil {
		return zero, err
	}
	defer release()

	attempt := func() (T, error) {
		return breaker.Call(k.br, ctx, func() (T, error) { return fn(ctx) })
	}

	result, callErr := attempt()
	for callErr != nil && rcerrors.Retryable(callErr) {
		if !k.retry.Allow() {
			return zero, fmt.Errorf("%s: %w: %v", k.name, rcerrors.ErrRetryBudgetExceeded, callErr)
		}
		result, callErr = attempt()
	}
	return result, callErr
}

// CallOnce runs fn through drain -> bulkhead -> breaker, with no retry loop.
// Used where the caller (e.g. the event log producer) already implements its
// own bounded retry against the underlying transport and would otherwise be
// retried twice.
func CallOnce[T any](ctx context.Context, k *Kernel, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	leave, err := k.gate.Enter()
	if err != nil {
		return zero, err
	}
	defer leave()

	release, err := k.bulk.Acquire(ctx)
	if err != nil {
		return zero, err
	}
	defer release()

	return breaker.Call(k.br, ctx, func() (T, error) { return fn(ctx) })
}

// State reports the underlying breaker's current state.
func (k *Kernel) State() string { return k.br.State() }
