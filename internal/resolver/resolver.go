// Package resolver implements the Read Path: cache-aside resolution with
// positive and negative caching and failure fallback (spec §4.1).
package resolver

import (
	"context"
	"fmt"
	"time"

	"routectl.dev/internal/cache"
	"routectl.dev/internal/domain"
	"routectl.dev/internal/logging"
	"routectl.dev/internal/rcerrors"
	"routectl.dev/internal/rcmetrics"
	"routectl.dev/internal/record"
	"routectl.dev/internal/resilience"
)

// Resolver resolves a route identifier to its active URL, or NotFound.
type Resolver struct {
	store       record.Store
	cache       cache.Cache
	kernel      *resilience.Kernel
	positiveTTL time.Duration
	negativeTTL time.Duration
	logger      *logging.ContextLogger
	metrics     *rcmetrics.Metrics
}

// New constructs a Resolver. kernel is the "read" resilience kernel the
// record store lookup runs through; cache calls are best-effort and do not
// go through the kernel (a cache failure degrades hit rate, never fails the
// resolution, per spec §4.1's failure semantics). metrics may be nil, in
// which case resolution is unobserved.
func New(store record.Store, c cache.Cache, kernel *resilience.Kernel, positiveTTL, negativeTTL time.Duration, logger *logging.ContextLogger) *Resolver {
	if logger == nil {
		logger = logging.ServiceLogger("routectl", "dev")
	}
	return &Resolver{store: store, cache: c, kernel: kernel, positiveTTL: positiveTTL, negativeTTL: negativeTTL, logger: logger}
}

// WithMetrics attaches m, returning the same Resolver for chaining at
// construction time.
func (r *Resolver) WithMetrics(m *rcmetrics.Metrics) *Resolver {
	r.metrics = m
	return r
}

func (r *Resolver) observe(result string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveResolve(result, time.Since(start))
	}
}

// Resolve returns the active URL for route, or an error classified per
// rcerrors: NotFound if no active endpoint is visible, Unavailable (or one
// of the load-shedding kinds) if the record store can't be reached and no
// cached value covers the gap.
func (r *Resolver) Resolve(ctx context.Context, route domain.RouteIdentifier) (string, error) {
	start := time.Now()
	if !route.Valid() {
		r.observe("validation_error", start)
		return "", fmt.Errorf("resolve: %w", rcerrors.ErrValidation)
	}
	logger := r.logger.WithContext(ctx).WithRoute(route.String())

	value, found, err := r.cache.GetRoute(ctx, route)
	if err != nil {
		logger.WithError(err).Warn("cache read failed, falling through to record store")
	} else if found {
		if value == domain.NotFoundSentinel {
			r.observe("cache_negative", start)
			return "", fmt.Errorf("resolve %s: %w", route, rcerrors.ErrNotFound)
		}
		r.observe("cache_hit", start)
		return value, nil
	}

	ep, storeErr := resilience.Call(ctx, r.kernel, func(ctx context.Context) (domain.Endpoint, error) {
		return r.store.GetActiveEndpoint(ctx, route)
	})
	if storeErr == nil {
		if setErr := r.cache.SetRoute(ctx, route, ep.URL, r.positiveTTL); setErr != nil {
			logger.WithError(setErr).Warn("positive cache write failed")
		}
		r.observe("store_hit", start)
		return ep.URL, nil
	}

	switch rcerrors.Classify(storeErr) {
	case rcerrors.KindNotFound:
		if setErr := r.cache.SetNegative(ctx, route, r.negativeTTL); setErr != nil {
			logger.WithError(setErr).Warn("negative cache write failed")
		}
		r.observe("not_found", start)
		return "", storeErr
	case rcerrors.KindTransient, rcerrors.KindRetryBudgetExceeded:
		// A transient store failure whose retries ran out is a store outage.
		// Never synthesize a negative cache entry on a store outage: that
		// would poison resolution for legitimate routes once the store
		// recovers.
		r.observe("unavailable", start)
		return "", fmt.Errorf("resolve %s: %w", route, rcerrors.ErrUnavailable)
	default:
		// CircuitOpen, BulkheadFull, Draining: already load-shedding kinds
		// the HTTP boundary maps to 503.
		r.observe("shed", start)
		return "", storeErr
	}
}
