package consumers

import (
	"context"

	"routectl.dev/internal/domain"
)

// ReplaySuffix redelivers events (in order) n times against handler,
// simulating the at-least-once redelivery a consumer group must tolerate.
// It operationalizes the "replaying any suffix of the event log leaves
// cache/audit state unchanged" law.
func ReplaySuffix(ctx context.Context, handler func(context.Context, domain.RouteEvent) error, events []domain.RouteEvent, n int) error {
	for i := 0; i < n; i++ {
		for _, ev := range events {
			if err := handler(ctx, ev); err != nil {
				return err
			}
		}
	}
	return nil
}
