package audit

import (
	"context"
	"sort"
	"sync"

	"routectl.dev/internal/domain"
)

// MemoryStore is an in-memory Store used by consumer unit tests so they
// don't need a live CouchDB.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]domain.AuditDocument
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]domain.AuditDocument)}
}

func (m *MemoryStore) Write(_ context.Context, doc domain.AuditDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[doc.EventID]; exists {
		return nil
	}
	m.docs[doc.EventID] = doc
	return nil
}

func (m *MemoryStore) Query(_ context.Context, q Query) ([]domain.AuditDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []domain.AuditDocument
	for _, doc := range m.docs {
		if matches(doc, q) {
			matched = append(matched, doc)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	limit := ClampLimit(q.Limit)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func matches(doc domain.AuditDocument, q Query) bool {
	if q.Tenant != "" && doc.Route.Tenant != q.Tenant {
		return false
	}
	if q.Service != "" && doc.Route.Service != q.Service {
		return false
	}
	if q.Env != "" && doc.Route.Env != q.Env {
		return false
	}
	if q.Version != "" && doc.Route.Version != q.Version {
		return false
	}
	if q.Action != "" && doc.Action != q.Action {
		return false
	}
	if !q.From.IsZero() && doc.OccurredAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && doc.OccurredAt.After(q.To) {
		return false
	}
	return true
}

func (m *MemoryStore) Close() error { return nil }

// Count reports the number of distinct event IDs stored, used by tests that
// assert redelivery dedup doesn't inflate audit state.
func (m *MemoryStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}
