package notifier

import (
	"context"

	"sentrywatch/internal/domain/entity"
)

// NoOpNotifier discards every Payload. Used when a target has no NotifyTo
// configured, or in tests that should not talk to a real transport.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier instance.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Notify does nothing and returns nil immediately.
func (n *NoOpNotifier) Notify(ctx context.Context, target entity.NotificationTarget, payload Payload) error {
	return nil
}
