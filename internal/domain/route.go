// Package domain holds the types shared across every adapter and service:
// the route identifier, the endpoint entity, and the route event/audit
// document wire shapes. None of it depends on a storage or transport
// library, so adapters translate to and from these types at their
// boundaries.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// NotFoundSentinel is the cache value written for a negative cache entry.
const NotFoundSentinel = "__NOT_FOUND__"

// RouteIdentifier is the logical key used by every external interface and
// the cache: (tenant, service, env, version).
type RouteIdentifier struct {
	Tenant  string
	Service string
	Env     string
	Version string
}

// String returns the canonical "tenant:service:env:version" form, used as
// the event partition key and cache key suffix.
func (id RouteIdentifier) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", id.Tenant, id.Service, id.Env, id.Version)
}

// CacheKey returns the route:<identifier> cache key.
func (id RouteIdentifier) CacheKey() string {
	return "route:" + id.String()
}

// Valid reports whether every identifier component is non-empty.
func (id RouteIdentifier) Valid() bool {
	return id.Tenant != "" && id.Service != "" && id.Env != "" && id.Version != ""
}

// ParseIdentifier parses a canonical "tenant:service:env:version" string.
func ParseIdentifier(s string) (RouteIdentifier, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 4 {
		return RouteIdentifier{}, fmt.Errorf("malformed route identifier %q", s)
	}
	id := RouteIdentifier{Tenant: parts[0], Service: parts[1], Env: parts[2], Version: parts[3]}
	if !id.Valid() {
		return RouteIdentifier{}, fmt.Errorf("malformed route identifier %q", s)
	}
	return id, nil
}

// Endpoint is the route-bearing entity persisted by the record store.
type Endpoint struct {
	ID        int64
	Route     RouteIdentifier
	URL       string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Action names the three mutations a route event can record.
type Action string

const (
	ActionCreated     Action = "created"
	ActionActivated   Action = "activated"
	ActionDeactivated Action = "deactivated"
)

// RouteEvent is the in-memory and on-wire representation of a committed
// mutation, published to the event log after commit and persisted (as an
// audit document) by the audit consumer.
type RouteEvent struct {
	EventID        string
	Action         Action
	Route          RouteIdentifier
	URL            string
	PreviousURL    string
	PreviousActive *bool
	ChangedBy      string
	OccurredAt     time.Time
	CorrelationID  string
}

// AuditDocument is a superset of RouteEvent persisted by the audit writer.
// EventID is the dedup key: a duplicate write for the same EventID is not
// an error.
type AuditDocument struct {
	RouteEvent
	ProcessedAt time.Time
	Metadata    map[string]interface{}
}
