// Package correlation binds a per-request correlation ID to a
// context.Context so it can be threaded through logs, events, and audit
// documents without every function signature carrying an extra string.
package correlation

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type ctxKey int

const key ctxKey = 0

// NewID generates a fresh correlation ID: a random UUID rendered as 32 hex
// chars without hyphens.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Bind returns a context carrying id as the active correlation ID.
func Bind(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key, id)
}

// FromContext returns the bound correlation ID, or "" if none was bound.
func FromContext(ctx context.Context) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// FromContextOrNew returns the bound correlation ID, generating and binding
// one if the context doesn't carry one yet. It returns the (possibly new) ID
// alongside a context guaranteed to carry it.
func FromContextOrNew(ctx context.Context) (string, context.Context) {
	if id := FromContext(ctx); id != "" {
		return id, ctx
	}
	id := NewID()
	return id, Bind(ctx, id)
}
