package eventlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routectl.dev/internal/domain"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	active := true
	ev := domain.RouteEvent{
		EventID:        "11111111-1111-1111-1111-111111111111",
		Action:         domain.ActionActivated,
		Route:          domain.RouteIdentifier{Tenant: "team-a", Service: "payments", Env: "prod", Version: "v2"},
		URL:            "https://p/v2",
		PreviousURL:    "https://p/v2",
		PreviousActive: &active,
		ChangedBy:      "alice",
		OccurredAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		CorrelationID:  "abc123",
	}

	body, err := Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"event_type":"route_changed"`)
	assert.Contains(t, string(body), `"previous_state":"active"`)

	back, err := Unmarshal(body)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID, back.EventID)
	assert.Equal(t, ev.Action, back.Action)
	assert.Equal(t, ev.Route, back.Route)
	assert.Equal(t, ev.URL, back.URL)
	assert.True(t, *back.PreviousActive)
	assert.Equal(t, ev.CorrelationID, back.CorrelationID)
	assert.True(t, ev.OccurredAt.Equal(back.OccurredAt))
}

func TestMarshalPreviousStateNilOmitted(t *testing.T) {
	ev := domain.RouteEvent{
		EventID:    "id",
		Action:     domain.ActionCreated,
		Route:      domain.RouteIdentifier{Tenant: "t", Service: "s", Env: "e", Version: "v"},
		URL:        "https://x",
		OccurredAt: time.Now(),
	}
	body, err := Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "previous_state")

	back, err := Unmarshal(body)
	require.NoError(t, err)
	assert.Nil(t, back.PreviousActive)
}
