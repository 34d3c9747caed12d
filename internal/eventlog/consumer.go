package eventlog

import (
	"context"
	"sync"

	"github.com/streadway/amqp"

	"routectl.dev/internal/domain"
	"routectl.dev/internal/logging"
	"routectl.dev/internal/rcerrors"
)

// maxRedeliveries bounds how many times a poisoned message is requeued
// before it is dropped with a log line instead of redelivered forever. The
// count is read off the standard RabbitMQ x-death header.
const maxRedeliveries = 5

// Handler processes one delivered route event. A non-nil return leaves the
// message unacked (redelivered, unless it has exceeded maxRedeliveries).
type Handler func(ctx context.Context, ev domain.RouteEvent) error

// ConsumerGroup is one logical consumer (cache invalidator, cache warmer,
// audit writer): it declares its own durable queue per partition, bound to
// every partition of Exchange, so it observes every event independently of
// the other groups (spec §4.3).
type ConsumerGroup struct {
	group      string
	conn       AMQPConnection
	channel    AMQPChannel
	partitions int
	logger     *logging.ContextLogger
}

// NewConsumerGroup dials url and declares group's queues. The exchange and
// partition queues are declared here too (idempotently) in case the
// consumer process starts before any producer has run.
func NewConsumerGroup(dialer AMQPDialer, url, group string, partitions int, logger *logging.ContextLogger) (*ConsumerGroup, error) {
	conn, err := dialer.Dial(url)
	if err != nil {
		return nil, rcerrors.ErrUnavailable
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, rcerrors.ErrUnavailable
	}

	if err := ch.ExchangeDeclare(Exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, rcerrors.ErrUnavailable
	}
	if err := ch.Qos(10, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, rcerrors.ErrUnavailable
	}

	for p := 0; p < partitions; p++ {
		if _, err := ch.QueueDeclare(partitionQueue(p), true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, rcerrors.ErrUnavailable
		}
		if err := ch.QueueBind(partitionQueue(p), partitionKey(p), Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, rcerrors.ErrUnavailable
		}

		q := groupQueue(group, p)
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, rcerrors.ErrUnavailable
		}
		if err := ch.QueueBind(q, partitionKey(p), Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, rcerrors.ErrUnavailable
		}
	}

	if logger == nil {
		logger = logging.ServiceLogger("routectl", "dev")
	}

	return &ConsumerGroup{group: group, conn: conn, channel: ch, partitions: partitions, logger: logger.WithField("consumer_group", group)}, nil
}

// Run starts one poll loop per partition and blocks until ctx is cancelled.
// Offset commit is the per-message ack, issued only after handler succeeds
// (or the message is dropped as poison); a handler error leaves the message
// unacked so it is redelivered (at-least-once).
func (c *ConsumerGroup) Run(ctx context.Context, handler Handler) error {
	var wg sync.WaitGroup
	for p := 0; p < c.partitions; p++ {
		deliveries, err := c.channel.Consume(groupQueue(c.group, p), c.group, false, false, false, false, nil)
		if err != nil {
			return rcerrors.ErrUnavailable
		}
		wg.Add(1)
		go c.runPartition(ctx, &wg, p, deliveries, handler)
	}
	wg.Wait()
	return nil
}

func (c *ConsumerGroup) runPartition(ctx context.Context, wg *sync.WaitGroup, partition int, deliveries <-chan amqp.Delivery, handler Handler) {
	defer wg.Done()
	logger := c.logger.WithField("partition", partition)

	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			c.handleDelivery(ctx, logger, delivery, handler)
		}
	}
}

func (c *ConsumerGroup) handleDelivery(ctx context.Context, logger *logging.ContextLogger, delivery amqp.Delivery, handler Handler) {
	defer logging.LogPanic(logger)

	ev, err := Unmarshal(delivery.Body)
	if err != nil {
		logger.WithError(err).Error("dropping unparseable event")
		_ = delivery.Nack(false, false)
		return
	}

	entryLogger := logger.WithField("event_id", ev.EventID).WithCorrelationID(ev.CorrelationID)
	if err := handler(ctx, ev); err != nil {
		requeue := redeliveryCount(delivery) < maxRedeliveries
		entryLogger.WithError(err).WithField("requeue", requeue).Warn("event handler failed")
		_ = delivery.Nack(false, requeue)
		return
	}
	_ = delivery.Ack(false)
}

// redeliveryCount reads the length of the x-death header array RabbitMQ
// attaches once a message has been nacked and requeued at least once.
func redeliveryCount(delivery amqp.Delivery) int {
	deaths, ok := delivery.Headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	return len(deaths)
}

// Close releases the underlying channel and connection.
func (c *ConsumerGroup) Close() error {
	c.channel.Close()
	return c.conn.Close()
}
