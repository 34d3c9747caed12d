// Package record implements the Record Store Adapter: transactional CRUD
// over the normalized tenant/service/environment/endpoint schema, connection
// pooling, and query templates.
package record

import (
	"context"

	"routectl.dev/internal/domain"
)

// Outcome reports which branch of an idempotent mutation actually ran.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeCreated
	OutcomeAlreadyExists
	OutcomeActivated
	OutcomeAlreadyActive
	OutcomeDeactivated
	OutcomeAlreadyInactive
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeActivated:
		return "activated"
	case OutcomeAlreadyActive:
		return "already_active"
	case OutcomeDeactivated:
		return "deactivated"
	case OutcomeAlreadyInactive:
		return "already_inactive"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Store is the transactional interface the mutator and resolver depend on.
// PostgresStore is the production implementation; MemoryStore backs unit
// tests without a live database.
type Store interface {
	// GetActiveEndpoint returns the single active endpoint for route, or
	// rcerrors.ErrNotFound if none is visible.
	GetActiveEndpoint(ctx context.Context, route domain.RouteIdentifier) (domain.Endpoint, error)

	// CreateEndpoint inserts an endpoint, creating parent tenant/service/
	// environment rows on demand. If the endpoint already exists, is active
	// and has the same URL this is OutcomeAlreadyExists (idempotent
	// success); a differing URL or an inactive existing row is
	// rcerrors.ErrConflict, per the conservative re-create policy
	// (re-activation is never implicit).
	CreateEndpoint(ctx context.Context, route domain.RouteIdentifier, url string) (Outcome, domain.Endpoint, error)

	// ActivateEndpoint flips is_active false->true. OutcomeAlreadyActive if
	// already true, rcerrors.ErrNotFound if the row doesn't exist.
	ActivateEndpoint(ctx context.Context, route domain.RouteIdentifier) (Outcome, domain.Endpoint, error)

	// DeactivateEndpoint is symmetric to ActivateEndpoint.
	DeactivateEndpoint(ctx context.Context, route domain.RouteIdentifier) (Outcome, domain.Endpoint, error)
}
