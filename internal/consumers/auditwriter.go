package consumers

import (
	"context"
	"time"

	"routectl.dev/internal/audit"
	"routectl.dev/internal/domain"
	"routectl.dev/internal/eventlog"
	"routectl.dev/internal/logging"
	"routectl.dev/internal/rcmetrics"
)

const auditGroup = "audit-writer"

// AuditWriter persists every delivered event as an audit document,
// deduplicated on event_id by the underlying audit.Store (spec §4.4).
type AuditWriter struct {
	group   *eventlog.ConsumerGroup
	store   audit.Store
	logger  *logging.ContextLogger
	nowFunc func() time.Time
	metrics *rcmetrics.Metrics
}

// WithMetrics attaches m, returning the same AuditWriter for chaining.
func (a *AuditWriter) WithMetrics(m *rcmetrics.Metrics) *AuditWriter {
	a.metrics = m
	return a
}

// NewAuditWriter dials url and declares the audit writer's consumer group.
func NewAuditWriter(dialer eventlog.AMQPDialer, url string, partitions int, store audit.Store, logger *logging.ContextLogger) (*AuditWriter, error) {
	if logger == nil {
		logger = logging.ServiceLogger("routectl", "dev")
	}
	group, err := eventlog.NewConsumerGroup(dialer, url, auditGroup, partitions, logger)
	if err != nil {
		return nil, err
	}
	return &AuditWriter{group: group, store: store, logger: logger.WithField("consumer", auditGroup), nowFunc: time.Now}, nil
}

// Run blocks consuming events until ctx is cancelled.
func (a *AuditWriter) Run(ctx context.Context) error {
	return a.group.Run(ctx, a.handle)
}

func (a *AuditWriter) handle(ctx context.Context, ev domain.RouteEvent) error {
	logger := a.logger.WithContext(ctx).WithRoute(ev.Route.String()).WithCorrelationID(ev.CorrelationID).WithField("event_id", ev.EventID)

	doc := domain.AuditDocument{
		RouteEvent:  ev,
		ProcessedAt: a.nowFunc(),
		Metadata:    map[string]interface{}{},
	}
	if err := a.store.Write(ctx, doc); err != nil {
		logger.WithError(err).Warn("audit write failed")
		if a.metrics != nil {
			a.metrics.ObserveConsumerEvent(auditGroup, "retried")
		}
		return err
	}
	if a.metrics != nil {
		a.metrics.ObserveConsumerEvent(auditGroup, "processed")
	}
	logger.Debug("audit document written")
	return nil
}

// Close releases the underlying AMQP resources. The audit store itself is
// owned by the caller and closed separately.
func (a *AuditWriter) Close() error { return a.group.Close() }
