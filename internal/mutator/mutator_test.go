package mutator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routectl.dev/internal/domain"
	"routectl.dev/internal/rcerrors"
	"routectl.dev/internal/rcmetrics"
	"routectl.dev/internal/record"
	"routectl.dev/internal/resilience"
	"routectl.dev/internal/resilience/breaker"
	"routectl.dev/internal/resilience/drain"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []domain.RouteEvent
}

func (f *fakePublisher) Publish(_ context.Context, ev domain.RouteEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, ev)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) events() []domain.RouteEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.RouteEvent, len(f.published))
	copy(out, f.published)
	return out
}

func testRoute() domain.RouteIdentifier {
	return domain.RouteIdentifier{Tenant: "team-a", Service: "payments", Env: "prod", Version: "v2"}
}

func newTestMutator(t *testing.T, pub *fakePublisher, store record.Store) (*Mutator, *drain.Gate) {
	t.Helper()
	gate := drain.New()
	kernel := resilience.New("write", gate, 8, breaker.Config{
		Name:        "write",
		Window:      time.Second,
		Threshold:   0.9,
		MinCalls:    100,
		OpenTimeout: 50 * time.Millisecond,
	}, time.Second, 0, nil)
	return New(store, pub, kernel, gate, nil), gate
}

func TestCreateEmitsEventOnce(t *testing.T) {
	pub := &fakePublisher{}
	m, gate := newTestMutator(t, pub, record.NewMemoryStore())
	route := testRoute()

	outcome, _, err := m.Create(context.Background(), route, "https://p/v2")
	require.NoError(t, err)
	assert.Equal(t, record.OutcomeCreated, outcome)

	outcome, _, err = m.Create(context.Background(), route, "https://p/v2")
	require.NoError(t, err)
	assert.Equal(t, record.OutcomeAlreadyExists, outcome)

	require.NoError(t, gate.WaitForDrain(context.Background()))
	events := pub.events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.ActionCreated, events[0].Action)
	assert.Nil(t, events[0].PreviousActive)
}

func TestCreateConflictingURLFails(t *testing.T) {
	pub := &fakePublisher{}
	m, gate := newTestMutator(t, pub, record.NewMemoryStore())
	route := testRoute()

	_, _, err := m.Create(context.Background(), route, "https://a")
	require.NoError(t, err)

	_, _, err = m.Create(context.Background(), route, "https://b")
	require.Error(t, err)
	assert.Equal(t, rcerrors.KindConflict, rcerrors.Classify(err))

	require.NoError(t, gate.WaitForDrain(context.Background()))
	assert.Len(t, pub.events(), 1)
}

func TestActivateDeactivateEmitEventsWithPreviousState(t *testing.T) {
	pub := &fakePublisher{}
	m, gate := newTestMutator(t, pub, record.NewMemoryStore())
	route := testRoute()

	_, _, err := m.Create(context.Background(), route, "https://p/v2")
	require.NoError(t, err)

	outcome, _, err := m.Deactivate(context.Background(), route)
	require.NoError(t, err)
	assert.Equal(t, record.OutcomeDeactivated, outcome)

	outcome, _, err = m.Deactivate(context.Background(), route)
	require.NoError(t, err)
	assert.Equal(t, record.OutcomeAlreadyInactive, outcome)

	outcome, _, err = m.Activate(context.Background(), route)
	require.NoError(t, err)
	assert.Equal(t, record.OutcomeActivated, outcome)

	require.NoError(t, gate.WaitForDrain(context.Background()))
	events := pub.events()
	require.Len(t, events, 3) // created, deactivated, activated
	assert.Equal(t, domain.ActionCreated, events[0].Action)
	assert.Equal(t, domain.ActionDeactivated, events[1].Action)
	require.NotNil(t, events[1].PreviousActive)
	assert.True(t, *events[1].PreviousActive)
	assert.Equal(t, domain.ActionActivated, events[2].Action)
	require.NotNil(t, events[2].PreviousActive)
	assert.False(t, *events[2].PreviousActive)
}

func TestActivateNotFound(t *testing.T) {
	pub := &fakePublisher{}
	m, _ := newTestMutator(t, pub, record.NewMemoryStore())

	_, _, err := m.Activate(context.Background(), testRoute())
	require.Error(t, err)
	assert.Equal(t, rcerrors.KindNotFound, rcerrors.Classify(err))
}

func TestCreateValidatesInputs(t *testing.T) {
	pub := &fakePublisher{}
	m, _ := newTestMutator(t, pub, record.NewMemoryStore())

	_, _, err := m.Create(context.Background(), domain.RouteIdentifier{Tenant: "t"}, "https://x")
	require.Error(t, err)
	assert.Equal(t, rcerrors.KindValidation, rcerrors.Classify(err))

	_, _, err = m.Create(context.Background(), testRoute(), "")
	require.Error(t, err)
	assert.Equal(t, rcerrors.KindValidation, rcerrors.Classify(err))
}

func TestCreateObservesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := rcmetrics.New(reg, "routectl")

	pub := &fakePublisher{}
	m, _ := newTestMutator(t, pub, record.NewMemoryStore())
	m.WithMetrics(metrics)

	_, _, err := m.Create(context.Background(), testRoute(), "https://p/v2")
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MutationOutcomes.WithLabelValues("create", "created")))
}
