package consumers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routectl.dev/internal/audit"
	"routectl.dev/internal/domain"
)

func TestAuditWriterHandlePersistsDocument(t *testing.T) {
	store := audit.NewMemoryStore()
	w := &AuditWriter{store: store, logger: noopLogger(), nowFunc: time.Now}

	ev := domain.RouteEvent{EventID: "ev-1", Route: testRoute(), Action: domain.ActionCreated, URL: "https://p/v2", OccurredAt: time.Now()}
	require.NoError(t, w.handle(context.Background(), ev))
	assert.Equal(t, 1, store.Count())
}

func TestAuditWriterHandleIsIdempotentOnRedelivery(t *testing.T) {
	store := audit.NewMemoryStore()
	w := &AuditWriter{store: store, logger: noopLogger(), nowFunc: time.Now}

	ev := domain.RouteEvent{EventID: "ev-1", Route: testRoute(), Action: domain.ActionCreated, URL: "https://p/v2", OccurredAt: time.Now()}
	require.NoError(t, w.handle(context.Background(), ev))
	require.NoError(t, w.handle(context.Background(), ev))
	require.NoError(t, w.handle(context.Background(), ev))
	assert.Equal(t, 1, store.Count())
}
