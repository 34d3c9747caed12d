package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routectl.dev/internal/domain"
)

func testDoc(eventID string, occurredAt time.Time) domain.AuditDocument {
	return domain.AuditDocument{
		RouteEvent: domain.RouteEvent{
			EventID:    eventID,
			Action:     domain.ActionCreated,
			Route:      domain.RouteIdentifier{Tenant: "team-a", Service: "payments", Env: "prod", Version: "v2"},
			URL:        "https://p/v2",
			OccurredAt: occurredAt,
		},
		ProcessedAt: occurredAt.Add(time.Millisecond),
	}
}

func TestMemoryStoreWriteIsIdempotentOnEventID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	doc := testDoc("evt-1", time.Now())
	require.NoError(t, s.Write(ctx, doc))
	require.NoError(t, s.Write(ctx, doc))
	require.NoError(t, s.Write(ctx, doc))

	assert.Equal(t, 1, s.Count())
}

func TestMemoryStoreQueryFiltersAndOrdersNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	older := testDoc("evt-1", base)
	newer := testDoc("evt-2", base.Add(time.Minute))
	otherTenant := testDoc("evt-3", base.Add(2*time.Minute))
	otherTenant.Route.Tenant = "team-b"

	require.NoError(t, s.Write(ctx, older))
	require.NoError(t, s.Write(ctx, newer))
	require.NoError(t, s.Write(ctx, otherTenant))

	docs, err := s.Query(ctx, Query{Tenant: "team-a", Limit: 10})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "evt-2", docs[0].EventID)
	assert.Equal(t, "evt-1", docs[1].EventID)
}

func TestMemoryStoreQueryClampsLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Write(ctx, testDoc(string(rune('a'+i)), time.Now().Add(time.Duration(i)*time.Second))))
	}

	docs, err := s.Query(ctx, Query{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}
