package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routectl.dev/internal/cache"
	"routectl.dev/internal/domain"
	"routectl.dev/internal/rcerrors"
	"routectl.dev/internal/rcmetrics"
	"routectl.dev/internal/record"
	"routectl.dev/internal/resilience"
	"routectl.dev/internal/resilience/breaker"
	"routectl.dev/internal/resilience/drain"
)

func testRoute() domain.RouteIdentifier {
	return domain.RouteIdentifier{Tenant: "team-a", Service: "payments", Env: "prod", Version: "v2"}
}

func testReadKernel() *resilience.Kernel {
	return resilience.New("read", drain.New(), 8, breaker.Config{
		Name:        "read",
		Window:      time.Second,
		Threshold:   0.9,
		MinCalls:    100,
		OpenTimeout: 50 * time.Millisecond,
	}, time.Second, 0, nil)
}

func newTestResolver(store record.Store, c cache.Cache) *Resolver {
	return New(store, c, testReadKernel(), 60*time.Second, 10*time.Second, nil)
}

func TestResolveCacheHitPositive(t *testing.T) {
	c := cache.NewMemoryCache()
	route := testRoute()
	require.NoError(t, c.SetRoute(context.Background(), route, "https://cached", time.Minute))

	r := newTestResolver(record.NewMemoryStore(), c)
	url, err := r.Resolve(context.Background(), route)
	require.NoError(t, err)
	assert.Equal(t, "https://cached", url)
}

func TestResolveCacheHitNegative(t *testing.T) {
	c := cache.NewMemoryCache()
	route := testRoute()
	require.NoError(t, c.SetNegative(context.Background(), route, time.Minute))

	r := newTestResolver(record.NewMemoryStore(), c)
	_, err := r.Resolve(context.Background(), route)
	require.Error(t, err)
	assert.Equal(t, rcerrors.KindNotFound, rcerrors.Classify(err))
}

func TestResolveCacheMissFallsThroughAndPopulates(t *testing.T) {
	c := cache.NewMemoryCache()
	store := record.NewMemoryStore()
	route := testRoute()
	_, _, err := store.CreateEndpoint(context.Background(), route, "https://p/v2")
	require.NoError(t, err)

	r := newTestResolver(store, c)
	url, err := r.Resolve(context.Background(), route)
	require.NoError(t, err)
	assert.Equal(t, "https://p/v2", url)

	cached, found, err := c.GetRoute(context.Background(), route)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "https://p/v2", cached)
}

func TestResolveMissWritesNegativeCacheEntry(t *testing.T) {
	c := cache.NewMemoryCache()
	store := record.NewMemoryStore()
	route := testRoute()

	r := newTestResolver(store, c)
	_, err := r.Resolve(context.Background(), route)
	require.Error(t, err)
	assert.Equal(t, rcerrors.KindNotFound, rcerrors.Classify(err))

	cached, found, err := c.GetRoute(context.Background(), route)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, domain.NotFoundSentinel, cached)
}

func TestResolveInactiveEndpointIsNotFound(t *testing.T) {
	c := cache.NewMemoryCache()
	store := record.NewMemoryStore()
	route := testRoute()
	_, _, err := store.CreateEndpoint(context.Background(), route, "https://p/v2")
	require.NoError(t, err)
	_, _, err = store.DeactivateEndpoint(context.Background(), route)
	require.NoError(t, err)

	r := newTestResolver(store, c)
	_, err = r.Resolve(context.Background(), route)
	require.Error(t, err)
	assert.Equal(t, rcerrors.KindNotFound, rcerrors.Classify(err))
}

func TestResolveValidatesIdentifier(t *testing.T) {
	r := newTestResolver(record.NewMemoryStore(), cache.NewMemoryCache())
	_, err := r.Resolve(context.Background(), domain.RouteIdentifier{Tenant: "t"})
	require.Error(t, err)
	assert.Equal(t, rcerrors.KindValidation, rcerrors.Classify(err))
}

// erroringStore always fails GetActiveEndpoint with a transient error, used
// to exercise the store-outage fallback path.
type erroringStore struct{ record.Store }

func (erroringStore) GetActiveEndpoint(context.Context, domain.RouteIdentifier) (domain.Endpoint, error) {
	return domain.Endpoint{}, rcerrors.ErrTransient
}

func TestResolveStoreOutageDoesNotPoisonNegativeCache(t *testing.T) {
	c := cache.NewMemoryCache()
	r := newTestResolver(erroringStore{}, c)
	route := testRoute()

	_, err := r.Resolve(context.Background(), route)
	require.Error(t, err)
	assert.Equal(t, rcerrors.KindUnavailable, rcerrors.Classify(err))

	_, found, err := c.GetRoute(context.Background(), route)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResolveObservesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := rcmetrics.New(reg, "routectl")

	c := cache.NewMemoryCache()
	route := testRoute()
	require.NoError(t, c.SetRoute(context.Background(), route, "https://cached", time.Minute))

	r := newTestResolver(record.NewMemoryStore(), c).WithMetrics(m)
	_, err := r.Resolve(context.Background(), route)
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ResolveHits.WithLabelValues("cache_hit")))
}
