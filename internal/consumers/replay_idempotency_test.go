package consumers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routectl.dev/internal/audit"
	"routectl.dev/internal/cache"
	"routectl.dev/internal/domain"
)

// TestReplayingEventSuffixLeavesStateUnchanged exercises all three consumer
// handlers against the same redelivered event stream (spec §8's replay law):
// cache and audit state after N redeliveries must match state after one.
func TestReplayingEventSuffixLeavesStateUnchanged(t *testing.T) {
	route := testRoute()
	events := []domain.RouteEvent{
		{EventID: "ev-1", Route: route, Action: domain.ActionCreated, URL: "https://p/v2", OccurredAt: time.Now()},
		{EventID: "ev-2", Route: route, Action: domain.ActionDeactivated, PreviousActive: boolPtr(true), OccurredAt: time.Now()},
		{EventID: "ev-3", Route: route, Action: domain.ActionActivated, URL: "https://p/v2", PreviousActive: boolPtr(false), OccurredAt: time.Now()},
	}

	c := cache.NewMemoryCache()
	store := audit.NewMemoryStore()
	inv := &Invalidator{cache: c, logger: noopLogger()}
	warm := &Warmer{cache: c, positiveTTL: time.Minute, logger: noopLogger()}
	aw := &AuditWriter{store: store, logger: noopLogger(), nowFunc: time.Now}

	ctx := context.Background()
	require.NoError(t, ReplaySuffix(ctx, inv.handle, events, 1))
	require.NoError(t, ReplaySuffix(ctx, warm.handle, events, 1))
	require.NoError(t, ReplaySuffix(ctx, aw.handle, events, 1))

	value, found, err := c.GetRoute(ctx, route)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https://p/v2", value)
	assert.Equal(t, 3, store.Count())

	// Now redeliver the whole suffix four more times.
	require.NoError(t, ReplaySuffix(ctx, inv.handle, events, 4))
	require.NoError(t, ReplaySuffix(ctx, warm.handle, events, 4))
	require.NoError(t, ReplaySuffix(ctx, aw.handle, events, 4))

	value, found, err = c.GetRoute(ctx, route)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https://p/v2", value)
	assert.Equal(t, 3, store.Count())
}

func boolPtr(b bool) *bool { return &b }
