// Package breaker wraps sony/gobreaker per adapter instance, translating a
// window/threshold/min-calls configuration onto gobreaker's Interval/
// ReadyToTrip/Timeout knobs.
package breaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"routectl.dev/internal/logging"
	"routectl.dev/internal/rcerrors"
)

// Config describes when a breaker should trip and how long it stays open.
type Config struct {
	Name        string
	Window      time.Duration // rolling window counts are reset over
	Threshold   float64       // failure ratio that trips the breaker
	MinCalls    uint32        // minimum calls in window before evaluating
	OpenTimeout time.Duration // how long the breaker stays open before half-open
}

// Breaker gates calls through a gobreaker.CircuitBreaker.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *logging.ContextLogger
}

// New constructs a Breaker from cfg, logging every state transition.
func New(cfg Config, logger *logging.ContextLogger) *Breaker {
	if logger == nil {
		logger = logging.ServiceLogger("routectl", "dev")
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    cfg.Window,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinCalls {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.Threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
	return &Breaker{cb: cb, logger: logger}
}

// Call executes fn through the breaker. A tripped or half-open-saturated
// breaker returns rcerrors.ErrCircuitOpen without invoking fn.
func Call[T any](b *Breaker, _ context.Context, fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return zero, rcerrors.ErrCircuitOpen
		}
		return zero, err
	}
	return result.(T), nil
}

// State reports the current breaker state (closed/open/half-open) as text.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
