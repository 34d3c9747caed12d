package eventlog

import (
	"encoding/json"
	"fmt"
	"time"

	"routectl.dev/internal/domain"
)

// wireEvent is the on-wire JSON shape from spec §6, distinct from
// domain.RouteEvent because the wire form flattens the route identifier and
// renders previous_state as a tri-state string rather than a *bool.
type wireEvent struct {
	EventID       string `json:"event_id"`
	EventType     string `json:"event_type"`
	Action        string `json:"action"`
	Tenant        string `json:"tenant"`
	Service       string `json:"service"`
	Env           string `json:"env"`
	Version       string `json:"version"`
	URL           string `json:"url"`
	PreviousURL   string `json:"previous_url,omitempty"`
	PreviousState string `json:"previous_state,omitempty"`
	ChangedBy     string `json:"changed_by,omitempty"`
	OccurredAt    string `json:"occurred_at"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func previousStateString(active *bool) string {
	switch {
	case active == nil:
		return ""
	case *active:
		return "active"
	default:
		return "inactive"
	}
}

func parsePreviousState(s string) *bool {
	switch s {
	case "active":
		v := true
		return &v
	case "inactive":
		v := false
		return &v
	default:
		return nil
	}
}

// Marshal renders ev as the spec's wire JSON.
func Marshal(ev domain.RouteEvent) ([]byte, error) {
	w := wireEvent{
		EventID:       ev.EventID,
		EventType:     "route_changed",
		Action:        string(ev.Action),
		Tenant:        ev.Route.Tenant,
		Service:       ev.Route.Service,
		Env:           ev.Route.Env,
		Version:       ev.Route.Version,
		URL:           ev.URL,
		PreviousURL:   ev.PreviousURL,
		PreviousState: previousStateString(ev.PreviousActive),
		ChangedBy:     ev.ChangedBy,
		OccurredAt:    ev.OccurredAt.UTC().Format(time.RFC3339),
		CorrelationID: ev.CorrelationID,
	}
	return json.Marshal(w)
}

// Unmarshal parses the spec's wire JSON back into a domain.RouteEvent.
func Unmarshal(body []byte) (domain.RouteEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(body, &w); err != nil {
		return domain.RouteEvent{}, fmt.Errorf("unmarshal route event: %w", err)
	}
	occurred, err := time.Parse(time.RFC3339, w.OccurredAt)
	if err != nil {
		return domain.RouteEvent{}, fmt.Errorf("parse occurred_at: %w", err)
	}
	return domain.RouteEvent{
		EventID: w.EventID,
		Action:  domain.Action(w.Action),
		Route: domain.RouteIdentifier{
			Tenant:  w.Tenant,
			Service: w.Service,
			Env:     w.Env,
			Version: w.Version,
		},
		URL:            w.URL,
		PreviousURL:    w.PreviousURL,
		PreviousActive: parsePreviousState(w.PreviousState),
		ChangedBy:      w.ChangedBy,
		OccurredAt:     occurred,
		CorrelationID:  w.CorrelationID,
	}, nil
}
