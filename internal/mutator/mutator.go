// Package mutator implements the Write Path: validated, transactional
// create/activate/deactivate against the record store, followed by a
// best-effort route event publish after commit (spec §4.2).
package mutator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"routectl.dev/internal/correlation"
	"routectl.dev/internal/domain"
	"routectl.dev/internal/eventlog"
	"routectl.dev/internal/logging"
	"routectl.dev/internal/rcerrors"
	"routectl.dev/internal/rcmetrics"
	"routectl.dev/internal/record"
	"routectl.dev/internal/resilience"
	"routectl.dev/internal/resilience/drain"
)

// Mutator implements create/activate/deactivate, each idempotent on the
// route identifier (spec §4.2).
type Mutator struct {
	store     record.Store
	publisher eventlog.Publisher
	kernel    *resilience.Kernel
	gate      *drain.Gate
	logger    *logging.ContextLogger
	nowFunc   func() time.Time
	metrics   *rcmetrics.Metrics
}

// WithMetrics attaches m, returning the same Mutator for chaining at
// construction time.
func (m *Mutator) WithMetrics(metrics *rcmetrics.Metrics) *Mutator {
	m.metrics = metrics
	return m
}

func (m *Mutator) observe(operation, outcome string, start time.Time) {
	if m.metrics != nil {
		m.metrics.ObserveMutation(operation, outcome, time.Since(start))
	}
}

// New constructs a Mutator. kernel is the "write" resilience kernel the
// record store transaction runs through; gate is the process-wide drain
// gate, reused here so a best-effort publish in flight still counts toward
// WaitForDrain (spec §9's "never fire-and-forget across shutdown" note).
func New(store record.Store, publisher eventlog.Publisher, kernel *resilience.Kernel, gate *drain.Gate, logger *logging.ContextLogger) *Mutator {
	if logger == nil {
		logger = logging.ServiceLogger("routectl", "dev")
	}
	return &Mutator{store: store, publisher: publisher, kernel: kernel, gate: gate, logger: logger, nowFunc: time.Now}
}

// Create inserts (environment, version, url, is_active=true), creating
// parent tenant/service/environment rows on demand. A replay with the same
// url on an active row is OutcomeAlreadyExists (idempotent success); a
// differing url or an inactive existing row is rcerrors.ErrConflict.
func (m *Mutator) Create(ctx context.Context, route domain.RouteIdentifier, url string) (record.Outcome, domain.Endpoint, error) {
	start := time.Now()
	if !route.Valid() {
		m.observe("create", "validation_error", start)
		return record.OutcomeUnknown, domain.Endpoint{}, fmt.Errorf("create %s: %w", route, rcerrors.ErrValidation)
	}
	if url == "" {
		m.observe("create", "validation_error", start)
		return record.OutcomeUnknown, domain.Endpoint{}, fmt.Errorf("create %s: url required: %w", route, rcerrors.ErrValidation)
	}

	outcome, err := resilience.Call(ctx, m.kernel, func(ctx context.Context) (callResult, error) {
		outcome, ep, err := m.store.CreateEndpoint(ctx, route, url)
		return callResult{outcome: outcome, endpoint: ep}, err
	})
	if err != nil {
		m.observe("create", rcerrors.Classify(err).String(), start)
		return record.OutcomeUnknown, domain.Endpoint{}, err
	}
	m.observe("create", outcome.outcome.String(), start)

	if outcome.outcome == record.OutcomeCreated {
		m.publishAfterCommit(ctx, domain.RouteEvent{
			EventID:        uuid.NewString(),
			Action:         domain.ActionCreated,
			Route:          route,
			URL:            outcome.endpoint.URL,
			PreviousActive: nil,
			OccurredAt:     m.nowFunc(),
			CorrelationID:  correlation.FromContext(ctx),
		})
	}
	return outcome.outcome, outcome.endpoint, nil
}

// Activate flips is_active false->true. No-op (OutcomeAlreadyActive) if
// already true; rcerrors.ErrNotFound if the endpoint row doesn't exist.
func (m *Mutator) Activate(ctx context.Context, route domain.RouteIdentifier) (record.Outcome, domain.Endpoint, error) {
	return m.setActive(ctx, route, true)
}

// Deactivate is symmetric to Activate.
func (m *Mutator) Deactivate(ctx context.Context, route domain.RouteIdentifier) (record.Outcome, domain.Endpoint, error) {
	return m.setActive(ctx, route, false)
}

func (m *Mutator) setActive(ctx context.Context, route domain.RouteIdentifier, active bool) (record.Outcome, domain.Endpoint, error) {
	start := time.Now()
	operation := "activate"
	if !active {
		operation = "deactivate"
	}

	if !route.Valid() {
		m.observe(operation, "validation_error", start)
		return record.OutcomeUnknown, domain.Endpoint{}, fmt.Errorf("mutate %s: %w", route, rcerrors.ErrValidation)
	}

	result, err := resilience.Call(ctx, m.kernel, func(ctx context.Context) (callResult, error) {
		var outcome record.Outcome
		var ep domain.Endpoint
		var err error
		if active {
			outcome, ep, err = m.store.ActivateEndpoint(ctx, route)
		} else {
			outcome, ep, err = m.store.DeactivateEndpoint(ctx, route)
		}
		return callResult{outcome: outcome, endpoint: ep}, err
	})
	if err != nil {
		m.observe(operation, rcerrors.Classify(err).String(), start)
		return record.OutcomeUnknown, domain.Endpoint{}, err
	}
	m.observe(operation, result.outcome.String(), start)

	applied := record.OutcomeActivated
	previousActive := false
	action := domain.ActionActivated
	if !active {
		applied = record.OutcomeDeactivated
		previousActive = true
		action = domain.ActionDeactivated
	}

	if result.outcome == applied {
		prev := previousActive
		m.publishAfterCommit(ctx, domain.RouteEvent{
			EventID:        uuid.NewString(),
			Action:         action,
			Route:          route,
			URL:            result.endpoint.URL,
			PreviousActive: &prev,
			OccurredAt:     m.nowFunc(),
			CorrelationID:  correlation.FromContext(ctx),
		})
	}
	return result.outcome, result.endpoint, nil
}

type callResult struct {
	outcome  record.Outcome
	endpoint domain.Endpoint
}

// publishAfterCommit hands ev to the event log adapter. Publication is
// best-effort: a failure is logged and counted, never surfaced to the
// caller (spec §4.2 step 6). The publish runs in its own goroutine but
// still holds a drain-gate slot so a shutdown's WaitForDrain blocks on it
// rather than dropping it mid-flight.
func (m *Mutator) publishAfterCommit(ctx context.Context, ev domain.RouteEvent) {
	logger := m.logger.WithContext(ctx).WithRoute(ev.Route.String()).WithField("event_id", ev.EventID)

	leave, err := m.gate.Enter()
	if err != nil {
		logger.WithError(err).Warn("skipping event publish: drain gate closed")
		return
	}

	go func() {
		defer leave()
		publishCtx := context.WithoutCancel(ctx)
		if err := m.publisher.Publish(publishCtx, ev); err != nil {
			logger.WithError(err).Error("route event publish failed")
			if m.metrics != nil {
				m.metrics.ObservePublish(false)
			}
			return
		}
		if m.metrics != nil {
			m.metrics.ObservePublish(true)
		}
		logger.Debug("route event published")
	}()
}
