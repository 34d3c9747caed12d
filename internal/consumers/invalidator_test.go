package consumers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routectl.dev/internal/cache"
	"routectl.dev/internal/domain"
)

func testRoute() domain.RouteIdentifier {
	return domain.RouteIdentifier{Tenant: "team-a", Service: "payments", Env: "prod", Version: "v2"}
}

func TestInvalidatorHandleDeletesOnAnyAction(t *testing.T) {
	c := cache.NewMemoryCache()
	route := testRoute()
	require.NoError(t, c.SetRoute(context.Background(), route, "https://cached", time.Minute))

	inv := &Invalidator{cache: c, logger: noopLogger()}
	err := inv.handle(context.Background(), domain.RouteEvent{Route: route, Action: domain.ActionDeactivated})
	require.NoError(t, err)

	_, found, err := c.GetRoute(context.Background(), route)
	require.NoError(t, err)
	assert.False(t, found)
}
