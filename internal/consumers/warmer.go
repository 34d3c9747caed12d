package consumers

import (
	"context"
	"time"

	"routectl.dev/internal/cache"
	"routectl.dev/internal/domain"
	"routectl.dev/internal/eventlog"
	"routectl.dev/internal/logging"
	"routectl.dev/internal/rcmetrics"
)

const warmerGroup = "cache-warmer"

// Warmer writes the positive cache entry for created/activated events with a
// non-empty url, and invalidates on deactivated (same effect as Invalidator;
// the race between the two is benign per spec §4.4 since the record store
// remains authoritative and the TTL bounds residual staleness).
type Warmer struct {
	group       *eventlog.ConsumerGroup
	cache       cache.Cache
	positiveTTL time.Duration
	logger      *logging.ContextLogger
	metrics     *rcmetrics.Metrics
}

// WithMetrics attaches m, returning the same Warmer for chaining.
func (w *Warmer) WithMetrics(m *rcmetrics.Metrics) *Warmer {
	w.metrics = m
	return w
}

// NewWarmer dials url and declares the warmer's consumer group.
func NewWarmer(dialer eventlog.AMQPDialer, url string, partitions int, c cache.Cache, positiveTTL time.Duration, logger *logging.ContextLogger) (*Warmer, error) {
	if logger == nil {
		logger = logging.ServiceLogger("routectl", "dev")
	}
	group, err := eventlog.NewConsumerGroup(dialer, url, warmerGroup, partitions, logger)
	if err != nil {
		return nil, err
	}
	return &Warmer{group: group, cache: c, positiveTTL: positiveTTL, logger: logger.WithField("consumer", warmerGroup)}, nil
}

// Run blocks consuming events until ctx is cancelled.
func (w *Warmer) Run(ctx context.Context) error {
	return w.group.Run(ctx, w.handle)
}

func (w *Warmer) handle(ctx context.Context, ev domain.RouteEvent) error {
	logger := w.logger.WithContext(ctx).WithRoute(ev.Route.String()).WithCorrelationID(ev.CorrelationID)

	switch ev.Action {
	case domain.ActionCreated, domain.ActionActivated:
		if ev.URL == "" {
			return nil
		}
		if err := w.cache.SetRoute(ctx, ev.Route, ev.URL, w.positiveTTL); err != nil {
			logger.WithError(err).Warn("cache warm failed")
			w.observe("retried")
			return err
		}
		w.observe("processed")
		logger.Debug("cache entry warmed")
	case domain.ActionDeactivated:
		if err := w.cache.Invalidate(ctx, ev.Route); err != nil {
			logger.WithError(err).Warn("cache invalidation on deactivate failed")
			w.observe("retried")
			return err
		}
		w.observe("processed")
		logger.Debug("cache entry invalidated on deactivate")
	}
	return nil
}

func (w *Warmer) observe(disposition string) {
	if w.metrics != nil {
		w.metrics.ObserveConsumerEvent(warmerGroup, disposition)
	}
}

// Close releases the underlying AMQP resources.
func (w *Warmer) Close() error { return w.group.Close() }
