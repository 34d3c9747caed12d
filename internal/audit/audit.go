// Package audit implements the Audit Store Adapter: append-only document
// writes deduplicated on event_id, and indexed queries by route, time range,
// and action (spec §3, §6).
package audit

import (
	"time"

	"routectl.dev/internal/domain"
)

// Query filters AuditDocuments. Zero-valued fields are unfiltered; Limit is
// clamped to 1000 per spec §6.
type Query struct {
	Tenant  string
	Service string
	Env     string
	Version string
	Action  domain.Action
	From    time.Time
	To      time.Time
	Limit   int
}

// MaxLimit is the hard ceiling on AuditQuery result size (spec §6).
const MaxLimit = 1000

// ClampLimit returns a limit in (0, MaxLimit], defaulting to MaxLimit.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
