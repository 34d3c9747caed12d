package record

import (
	_ "embed"

	"context"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the embedded schema idempotently. It is a thin wrapper
// around a single multi-statement script, not a general migration
// framework: every statement uses IF NOT EXISTS so re-running it is safe.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
