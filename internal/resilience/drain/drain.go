// Package drain implements the process-wide graceful shutdown gate: once
// draining starts, new work is rejected while in-flight work is allowed to
// finish, and WaitForDrain blocks until the in-flight count reaches zero (or
// a timeout elapses).
package drain

import (
	"context"
	"sync"

	"routectl.dev/internal/rcerrors"
)

// Gate tracks in-flight operations and whether new ones are accepted.
type Gate struct {
	mu        sync.Mutex
	cond      *sync.Cond
	inFlight  int
	draining  bool
}

// New returns a ready-to-use Gate.
func New() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Enter admits one unit of work, or returns rcerrors.ErrDraining if the gate
// has started draining. On success the caller must call the returned leave
// func exactly once.
func (g *Gate) Enter() (leave func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.draining {
		return nil, rcerrors.ErrDraining
	}
	g.inFlight++
	return g.leave, nil
}

func (g *Gate) leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight--
	if g.inFlight == 0 {
		g.cond.Broadcast()
	}
}

// StartDraining flips the gate closed; subsequent Enter calls fail.
func (g *Gate) StartDraining() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.draining = true
	if g.inFlight == 0 {
		g.cond.Broadcast()
	}
}

// WaitForDrain blocks until in-flight work reaches zero or ctx is done.
func (g *Gate) WaitForDrain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.mu.Lock()
		for g.inFlight > 0 {
			g.cond.Wait()
		}
		g.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight reports the number of operations currently admitted.
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Draining reports whether StartDraining has been called.
func (g *Gate) Draining() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.draining
}
