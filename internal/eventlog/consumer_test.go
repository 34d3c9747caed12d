package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routectl.dev/internal/domain"
)

func newTestConsumerGroup(t *testing.T, ch *fakeChannel, group string) *ConsumerGroup {
	t.Helper()
	cg, err := NewConsumerGroup(&fakeDialer{conn: &fakeConnection{channel: ch}}, "amqp://ignored", group, 1, nil)
	require.NoError(t, err)
	return cg
}

func deliveryFor(t *testing.T, ev domain.RouteEvent, ack *fakeAcknowledger) amqp.Delivery {
	t.Helper()
	body, err := Marshal(ev)
	require.NoError(t, err)
	return amqp.Delivery{Body: body, Acknowledger: ack, DeliveryTag: 1}
}

func TestConsumerGroupAcksOnSuccess(t *testing.T) {
	ch := newFakeChannel()
	cg := newTestConsumerGroup(t, ch, "cache-invalidator")

	ctx, cancel := context.WithCancel(context.Background())
	var handled []domain.RouteEvent
	done := make(chan struct{})
	go func() {
		_ = cg.Run(ctx, func(_ context.Context, ev domain.RouteEvent) error {
			handled = append(handled, ev)
			cancel()
			return nil
		})
		close(done)
	}()

	ack := &fakeAcknowledger{}
	ch.deliverTo(groupQueue("cache-invalidator", 0), deliveryFor(t, testEvent(), ack))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}

	require.Len(t, handled, 1)
	assert.Equal(t, "evt-1", handled[0].EventID)
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Empty(t, ack.nacked)
}

func TestConsumerGroupNacksWithRequeueOnHandlerError(t *testing.T) {
	ch := newFakeChannel()
	cg := newTestConsumerGroup(t, ch, "audit-writer")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = cg.Run(ctx, func(_ context.Context, _ domain.RouteEvent) error {
			cancel()
			return assert.AnError
		})
		close(done)
	}()

	ack := &fakeAcknowledger{}
	ch.deliverTo(groupQueue("audit-writer", 0), deliveryFor(t, testEvent(), ack))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}

	assert.Empty(t, ack.acked)
	require.Len(t, ack.nacked, 1)
	assert.True(t, ack.requeue[0])
}
