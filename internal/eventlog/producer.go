// Package eventlog implements the Event Log Adapter: a single logical topic
// ("route-events") partitioned by the canonical route identifier so per-route
// event order is preserved while cross-route publishes parallelize freely.
// The transport is RabbitMQ via github.com/streadway/amqp; partitions are
// modeled as durable queues bound to a direct exchange, and each logical
// consumer gets its own durable queue per partition so every consumer group
// observes every event independently (spec §4.3).
package eventlog

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"routectl.dev/internal/domain"
	"routectl.dev/internal/logging"
	"routectl.dev/internal/rcerrors"
	"routectl.dev/internal/resilience"
)

// Publisher is the interface the mutator depends on to emit a route event
// after a committed mutation.
type Publisher interface {
	Publish(ctx context.Context, ev domain.RouteEvent) error
	Close() error
}

// Producer publishes route events with idempotent-producer semantics
// (publisher confirms + a dedup header) and a bounded, jittered retry.
type Producer struct {
	mu         sync.Mutex
	conn       AMQPConnection
	channel    AMQPChannel
	confirms   chan amqp.Confirmation
	partitions int
	timeout    time.Duration
	maxRetries int
	kernel     *resilience.Kernel
	logger     *logging.ContextLogger
}

// ProducerConfig mirrors config.EventLogConfig's fields the producer needs.
type ProducerConfig struct {
	URL            string
	Partitions     int
	PublishTimeout time.Duration
	MaxRetries     int
}

// NewProducer dials url, declares the topic exchange and its partition
// queues, and enables publisher confirms on the channel.
func NewProducer(dialer AMQPDialer, cfg ProducerConfig, kernel *resilience.Kernel, logger *logging.ContextLogger) (*Producer, error) {
	conn, err := dialer.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial event log broker: %w", rcerrors.ErrUnavailable)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open event log channel: %w", rcerrors.ErrUnavailable)
	}

	if err := ch.ExchangeDeclare(Exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare event log exchange: %w", rcerrors.ErrUnavailable)
	}
	for p := 0; p < cfg.Partitions; p++ {
		if _, err := ch.QueueDeclare(partitionQueue(p), true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare partition queue %d: %w", p, rcerrors.ErrUnavailable)
		}
		if err := ch.QueueBind(partitionQueue(p), partitionKey(p), Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("bind partition queue %d: %w", p, rcerrors.ErrUnavailable)
		}
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", rcerrors.ErrUnavailable)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 16))

	if logger == nil {
		logger = logging.ServiceLogger("routectl", "dev")
	}

	return &Producer{
		conn:       conn,
		channel:    ch,
		confirms:   confirms,
		partitions: cfg.Partitions,
		timeout:    cfg.PublishTimeout,
		maxRetries: cfg.MaxRetries,
		kernel:     kernel,
		logger:     logger,
	}, nil
}

// Publish sends ev to its partition's queue and waits for replication
// acknowledgment, with bounded retry on transient publish failures. The
// whole call is gated by the resilience kernel's drain/bulkhead/breaker
// layers (via resilience.CallOnce) but not its generic retry loop, since the
// bounded-retry-with-dedup-header loop below already is that retry.
func (p *Producer) Publish(ctx context.Context, ev domain.RouteEvent) error {
	body, err := Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal route event: %w", rcerrors.ErrFatal)
	}
	partition := Partition(ev.Route.String(), p.partitions)

	deadline, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err = resilience.CallOnce(deadline, p.kernel, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.publishWithRetry(ctx, partition, ev.EventID, body)
	})
	return err
}

func (p *Producer) publishWithRetry(ctx context.Context, partition int, eventID string, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 100 * time.Millisecond
			backoff += time.Duration(rand.Intn(50)) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("publish event %s: %w", eventID, rcerrors.ErrUnavailable)
			}
		}

		err := p.publishOnce(ctx, partition, eventID, body)
		if err == nil {
			return nil
		}
		lastErr = err
		p.logger.WithField("event_id", eventID).WithField("attempt", attempt).WithError(err).Warn("event publish attempt failed")
	}
	return fmt.Errorf("publish event %s after %d attempts: %w: %v", eventID, p.maxRetries+1, rcerrors.ErrUnavailable, lastErr)
}

func (p *Producer) publishOnce(ctx context.Context, partition int, eventID string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.Publish(Exchange, partitionKey(partition), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    eventID,
		Headers:      amqp.Table{"x-event-id": eventID},
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	select {
	case confirm := <-p.confirms:
		if !confirm.Ack {
			return fmt.Errorf("broker nacked publish")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the underlying channel and connection.
func (p *Producer) Close() error {
	p.channel.Close()
	return p.conn.Close()
}
