// Package consumers implements the three event log consumer groups that
// bridge committed writes to eventually-consistent side effects: cache
// invalidation, cache warming, and audit persistence (spec §4.4). Each is an
// independent eventlog.ConsumerGroup so every consumer observes every event.
package consumers

import (
	"context"

	"routectl.dev/internal/cache"
	"routectl.dev/internal/domain"
	"routectl.dev/internal/eventlog"
	"routectl.dev/internal/logging"
	"routectl.dev/internal/rcmetrics"
)

const invalidatorGroup = "cache-invalidator"

// Invalidator deletes the cache entry for every delivered event, regardless
// of action. Idempotent by construction: deleting an absent key is a no-op.
type Invalidator struct {
	group   *eventlog.ConsumerGroup
	cache   cache.Cache
	logger  *logging.ContextLogger
	metrics *rcmetrics.Metrics
}

// WithMetrics attaches m, returning the same Invalidator for chaining.
func (i *Invalidator) WithMetrics(m *rcmetrics.Metrics) *Invalidator {
	i.metrics = m
	return i
}

// NewInvalidator dials url and declares the invalidator's consumer group.
func NewInvalidator(dialer eventlog.AMQPDialer, url string, partitions int, c cache.Cache, logger *logging.ContextLogger) (*Invalidator, error) {
	if logger == nil {
		logger = logging.ServiceLogger("routectl", "dev")
	}
	group, err := eventlog.NewConsumerGroup(dialer, url, invalidatorGroup, partitions, logger)
	if err != nil {
		return nil, err
	}
	return &Invalidator{group: group, cache: c, logger: logger.WithField("consumer", invalidatorGroup)}, nil
}

// Run blocks consuming events until ctx is cancelled.
func (i *Invalidator) Run(ctx context.Context) error {
	return i.group.Run(ctx, i.handle)
}

func (i *Invalidator) handle(ctx context.Context, ev domain.RouteEvent) error {
	logger := i.logger.WithContext(ctx).WithRoute(ev.Route.String()).WithCorrelationID(ev.CorrelationID)
	if err := i.cache.Invalidate(ctx, ev.Route); err != nil {
		logger.WithError(err).Warn("cache invalidation failed")
		if i.metrics != nil {
			i.metrics.ObserveConsumerEvent(invalidatorGroup, "retried")
		}
		return err
	}
	if i.metrics != nil {
		i.metrics.ObserveConsumerEvent(invalidatorGroup, "processed")
	}
	logger.Debug("cache entry invalidated")
	return nil
}

// Close releases the underlying AMQP resources.
func (i *Invalidator) Close() error { return i.group.Close() }
