package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kivik "github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"

	"routectl.dev/internal/domain"
	"routectl.dev/internal/rcerrors"
)

// wireDoc is the CouchDB document shape: the route identifier is nested so
// Mango indexes can be built over its fields (route.tenant, route.service,
// ...), per spec §6's required index list.
type wireDoc struct {
	ID            string                 `json:"_id"`
	EventID       string                 `json:"event_id"`
	Action        string                 `json:"action"`
	Route         wireRoute              `json:"route"`
	URL           string                 `json:"url"`
	PreviousURL   string                 `json:"previous_url,omitempty"`
	PreviousState string                 `json:"previous_state,omitempty"`
	ChangedBy     string                 `json:"changed_by,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
	ProcessedAt   time.Time              `json:"processed_at"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

type wireRoute struct {
	Tenant  string `json:"tenant"`
	Service string `json:"service"`
	Env     string `json:"env"`
	Version string `json:"version"`
}

func toWireDoc(doc domain.AuditDocument) wireDoc {
	var previousState string
	switch {
	case doc.PreviousActive == nil:
	case *doc.PreviousActive:
		previousState = "active"
	default:
		previousState = "inactive"
	}
	return wireDoc{
		ID:      doc.EventID,
		EventID: doc.EventID,
		Action:  string(doc.Action),
		Route: wireRoute{
			Tenant:  doc.Route.Tenant,
			Service: doc.Route.Service,
			Env:     doc.Route.Env,
			Version: doc.Route.Version,
		},
		URL:           doc.URL,
		PreviousURL:   doc.PreviousURL,
		PreviousState: previousState,
		ChangedBy:     doc.ChangedBy,
		OccurredAt:    doc.OccurredAt,
		ProcessedAt:   doc.ProcessedAt,
		CorrelationID: doc.CorrelationID,
		Metadata:      doc.Metadata,
	}
}

func fromWireDoc(w wireDoc) domain.AuditDocument {
	var previousActive *bool
	switch w.PreviousState {
	case "active":
		v := true
		previousActive = &v
	case "inactive":
		v := false
		previousActive = &v
	}
	return domain.AuditDocument{
		RouteEvent: domain.RouteEvent{
			EventID: w.EventID,
			Action:  domain.Action(w.Action),
			Route: domain.RouteIdentifier{
				Tenant:  w.Route.Tenant,
				Service: w.Route.Service,
				Env:     w.Route.Env,
				Version: w.Route.Version,
			},
			URL:            w.URL,
			PreviousURL:    w.PreviousURL,
			PreviousActive: previousActive,
			ChangedBy:      w.ChangedBy,
			OccurredAt:     w.OccurredAt,
			CorrelationID:  w.CorrelationID,
		},
		ProcessedAt: w.ProcessedAt,
		Metadata:    w.Metadata,
	}
}

// routeTimeIndex and actionTimeIndex are the two Mango indexes spec §6
// requires: one over the full route tuple plus occurred_at, and one over
// action plus occurred_at.
const (
	routeTimeIndexName  = "route-occurred-at"
	actionTimeIndexName = "action-occurred-at"
)

// CouchStore is the production Store implementation, backed by CouchDB via
// the kivik driver.
type CouchStore struct {
	client   *kivik.Client
	database *kivik.DB
	dbName   string
}

// NewCouchStore connects to url, creates database if absent, and ensures the
// Mango indexes spec §6 requires exist.
func NewCouchStore(ctx context.Context, url, database string) (*CouchStore, error) {
	client, err := kivik.New("couch", url)
	if err != nil {
		return nil, fmt.Errorf("connect to audit store: %w", rcerrors.ErrUnavailable)
	}

	exists, err := client.DBExists(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("check audit database: %w", rcerrors.ErrUnavailable)
	}
	if !exists {
		if err := client.CreateDB(ctx, database); err != nil {
			return nil, fmt.Errorf("create audit database: %w", rcerrors.ErrUnavailable)
		}
	}

	db := client.DB(database)
	if err := db.Err(); err != nil {
		return nil, fmt.Errorf("open audit database: %w", rcerrors.ErrUnavailable)
	}

	store := &CouchStore{client: client, database: db, dbName: database}
	if err := store.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *CouchStore) ensureIndexes(ctx context.Context) error {
	routeIndex := map[string]interface{}{
		"fields": []string{"route.tenant", "route.service", "route.env", "route.version", "occurred_at"},
	}
	if err := s.database.CreateIndex(ctx, "", routeTimeIndexName, routeIndex); err != nil {
		return fmt.Errorf("create route index: %w", rcerrors.ErrUnavailable)
	}

	actionIndex := map[string]interface{}{
		"fields": []string{"action", "occurred_at"},
	}
	if err := s.database.CreateIndex(ctx, "", actionTimeIndexName, actionIndex); err != nil {
		return fmt.Errorf("create action index: %w", rcerrors.ErrUnavailable)
	}
	return nil
}

// Write persists doc with _id = event_id. A 409 conflict means the document
// already exists (a redelivered event) and is treated as success.
func (s *CouchStore) Write(ctx context.Context, doc domain.AuditDocument) error {
	w := toWireDoc(doc)
	_, err := s.database.Put(ctx, w.ID, w)
	if err == nil {
		return nil
	}
	if kivik.HTTPStatus(err) == 409 {
		return nil
	}
	return fmt.Errorf("write audit document: %w", rcerrors.ErrTransient)
}

// Query runs a Mango selector built from q against the audit database,
// sorted by occurred_at descending.
func (s *CouchStore) Query(ctx context.Context, q Query) ([]domain.AuditDocument, error) {
	selector := map[string]interface{}{}
	if q.Tenant != "" {
		selector["route.tenant"] = q.Tenant
	}
	if q.Service != "" {
		selector["route.service"] = q.Service
	}
	if q.Env != "" {
		selector["route.env"] = q.Env
	}
	if q.Version != "" {
		selector["route.version"] = q.Version
	}
	if q.Action != "" {
		selector["action"] = string(q.Action)
	}
	if !q.From.IsZero() || !q.To.IsZero() {
		occurred := map[string]interface{}{}
		if !q.From.IsZero() {
			occurred["$gte"] = q.From.UTC().Format(time.RFC3339)
		}
		if !q.To.IsZero() {
			occurred["$lte"] = q.To.UTC().Format(time.RFC3339)
		}
		selector["occurred_at"] = occurred
	}
	if len(selector) == 0 {
		selector["_id"] = map[string]interface{}{"$gt": nil}
	}

	findQuery := map[string]interface{}{
		"selector": selector,
		"sort":     []map[string]string{{"occurred_at": "desc"}},
		"limit":    ClampLimit(q.Limit),
	}

	rows := s.database.Find(ctx, findQuery)
	defer rows.Close()

	var docs []domain.AuditDocument
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.ScanDoc(&raw); err != nil {
			return nil, fmt.Errorf("scan audit document: %w", rcerrors.ErrTransient)
		}
		var w wireDoc
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decode audit document: %w", rcerrors.ErrTransient)
		}
		docs = append(docs, fromWireDoc(w))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit documents: %w", rcerrors.ErrTransient)
	}
	return docs, nil
}

// Close releases the underlying client.
func (s *CouchStore) Close() error {
	return s.client.Close()
}
