package record

import (
	"context"
	"fmt"
	"sync"
	"time"

	"routectl.dev/internal/domain"
	"routectl.dev/internal/rcerrors"
)

// MemoryStore is an in-memory Store used by resolver/mutator unit tests so
// they don't need a live Postgres. PostgresStore has no tests in this
// repository.
type MemoryStore struct {
	mu        sync.Mutex
	endpoints map[domain.RouteIdentifier]*domain.Endpoint
	nextID    int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{endpoints: make(map[domain.RouteIdentifier]*domain.Endpoint)}
}

func (m *MemoryStore) GetActiveEndpoint(_ context.Context, route domain.RouteIdentifier) (domain.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ep, ok := m.endpoints[route]
	if !ok || !ep.IsActive {
		return domain.Endpoint{}, fmt.Errorf("resolve %s: %w", route, rcerrors.ErrNotFound)
	}
	return *ep, nil
}

func (m *MemoryStore) CreateEndpoint(_ context.Context, route domain.RouteIdentifier, url string) (Outcome, domain.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.endpoints[route]; ok {
		if existing.URL == url && existing.IsActive {
			return OutcomeAlreadyExists, *existing, nil
		}
		return OutcomeUnknown, domain.Endpoint{}, fmt.Errorf("endpoint %s already exists with a different url or inactive: %w", route, rcerrors.ErrConflict)
	}

	m.nextID++
	now := time.Now()
	ep := &domain.Endpoint{
		ID:        m.nextID,
		Route:     route,
		URL:       url,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.endpoints[route] = ep
	return OutcomeCreated, *ep, nil
}

func (m *MemoryStore) ActivateEndpoint(ctx context.Context, route domain.RouteIdentifier) (Outcome, domain.Endpoint, error) {
	return m.setActive(route, true, OutcomeActivated, OutcomeAlreadyActive)
}

func (m *MemoryStore) DeactivateEndpoint(ctx context.Context, route domain.RouteIdentifier) (Outcome, domain.Endpoint, error) {
	return m.setActive(route, false, OutcomeDeactivated, OutcomeAlreadyInactive)
}

func (m *MemoryStore) setActive(route domain.RouteIdentifier, active bool, applied, noop Outcome) (Outcome, domain.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ep, ok := m.endpoints[route]
	if !ok {
		return OutcomeUnknown, domain.Endpoint{}, fmt.Errorf("endpoint %s: %w", route, rcerrors.ErrNotFound)
	}
	if ep.IsActive == active {
		return noop, *ep, nil
	}
	ep.IsActive = active
	ep.UpdatedAt = time.Now()
	return applied, *ep, nil
}
