package audit

import (
	"context"

	"routectl.dev/internal/domain"
)

// Store is the interface the audit writer consumer and the AuditQuery
// boundary operation depend on. CouchStore is the production implementation;
// MemoryStore backs unit tests without a live CouchDB.
type Store interface {
	// Write persists doc. A duplicate write for an already-stored EventID is
	// not an error (spec §4.4's dedup-on-event_id requirement).
	Write(ctx context.Context, doc domain.AuditDocument) error

	// Query returns documents matching q, newest (occurred_at) first.
	Query(ctx context.Context, q Query) ([]domain.AuditDocument, error)

	Close() error
}
