// Package health composes the drain gate's state with every resilience
// kernel's breaker state into the Readiness/Liveness boundary operations
// (spec §6).
package health

import (
	"routectl.dev/internal/resilience"
	"routectl.dev/internal/resilience/drain"
)

// AdapterStatus reports one kernel's breaker state.
type AdapterStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// Readiness is the result of a readiness probe: ready unless the process is
// draining or any adapter's breaker is open.
type Readiness struct {
	Ready    bool            `json:"ready"`
	Draining bool            `json:"draining"`
	Adapters []AdapterStatus `json:"adapters"`
}

// Liveness is the result of a liveness probe. It reports the process is
// alive as long as it can answer at all; it does not consider breaker state.
type Liveness struct {
	Alive bool `json:"alive"`
}

// Checker aggregates the shared drain gate and every named resilience
// kernel it is given (serve-api passes read, write, event).
type Checker struct {
	gate     *drain.Gate
	kernels  map[string]*resilience.Kernel
	order    []string
}

// New constructs a Checker over gate and the given named kernels. Pass
// kernels in the order they should appear in Readiness.Adapters.
func New(gate *drain.Gate, kernels map[string]*resilience.Kernel, order []string) *Checker {
	return &Checker{gate: gate, kernels: kernels, order: order}
}

// CheckReadiness reports not-ready while draining or while any adapter's
// breaker is open; half-open is reported but does not fail readiness, since
// gobreaker's half-open state is itself a probe for recovery.
func (c *Checker) CheckReadiness() Readiness {
	draining := c.gate.Draining()
	ready := !draining

	adapters := make([]AdapterStatus, 0, len(c.order))
	for _, name := range c.order {
		k, ok := c.kernels[name]
		if !ok {
			continue
		}
		state := k.State()
		if state == "open" {
			ready = false
		}
		adapters = append(adapters, AdapterStatus{Name: name, State: state})
	}

	return Readiness{Ready: ready, Draining: draining, Adapters: adapters}
}

// CheckLiveness always reports alive; its presence as a distinct operation
// lets an orchestrator distinguish "process running" from "process ready to
// serve", per spec §6.
func (c *Checker) CheckLiveness() Liveness {
	return Liveness{Alive: true}
}
