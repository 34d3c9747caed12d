package eventlog

import (
	"sync"

	"github.com/streadway/amqp"
)

type fakeDialer struct {
	conn AMQPConnection
	err  error
}

func (d *fakeDialer) Dial(string) (AMQPConnection, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

type fakeConnection struct {
	channel AMQPChannel
}

func (c *fakeConnection) Channel() (AMQPChannel, error) { return c.channel, nil }
func (c *fakeConnection) Close() error                  { return nil }

type fakeChannel struct {
	mu          sync.Mutex
	published   []amqp.Publishing
	publishKeys []string
	publishErr  error
	confirmCh   chan amqp.Confirmation
	ackBehavior func(tag uint64) amqp.Confirmation
	deliveries  map[string]chan amqp.Delivery
	nextTag     uint64
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(map[string]chan amqp.Delivery)}
}

func (c *fakeChannel) ExchangeDeclare(string, string, bool, bool, bool, bool, amqp.Table) error {
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(string, string, string, bool, amqp.Table) error { return nil }

func (c *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.nextTag++
	tag := c.nextTag
	c.published = append(c.published, msg)
	c.publishKeys = append(c.publishKeys, key)

	confirm := amqp.Confirmation{DeliveryTag: tag, Ack: true}
	if c.ackBehavior != nil {
		confirm = c.ackBehavior(tag)
	}
	if c.confirmCh != nil {
		go func() { c.confirmCh <- confirm }()
	}
	return nil
}

func (c *fakeChannel) Confirm(bool) error { return nil }

func (c *fakeChannel) NotifyPublish(ch chan amqp.Confirmation) chan amqp.Confirmation {
	c.confirmCh = ch
	return ch
}

func (c *fakeChannel) Consume(queue, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.deliveries[queue]
	if !ok {
		ch = make(chan amqp.Delivery, 16)
		c.deliveries[queue] = ch
	}
	return ch, nil
}

func (c *fakeChannel) Qos(int, int, bool) error { return nil }
func (c *fakeChannel) Close() error             { return nil }

func (c *fakeChannel) deliverTo(queue string, d amqp.Delivery) {
	c.mu.Lock()
	ch, ok := c.deliveries[queue]
	if !ok {
		ch = make(chan amqp.Delivery, 16)
		c.deliveries[queue] = ch
	}
	c.mu.Unlock()
	ch <- d
}

// fakeAcknowledger records Ack/Nack/Reject calls for assertions.
type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}
