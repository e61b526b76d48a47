// Package notifier implements outbound delivery for detected changes across
// the closed set of transports in entity.ChannelTag: ntfy, Slack, Discord,
// Gotify, Telegram, Pushover, Matrix, email, and an arbitrary shell command.
// Each transport implements Notifier against a channel-agnostic Payload, so
// the dispatching use case never branches on channel type.
package notifier

import (
	"context"
	"time"

	"sentrywatch/internal/domain/entity"
)

// Payload is the channel-agnostic rendering of one notified change. Fields
// populated by the agent bridge are empty when the agent was not consulted
// or failed; AgentError then carries the failure reason instead.
type Payload struct {
	TargetID   string
	TargetName string
	SourceURL  string
	OldText    string
	NewText    string
	DiffText   string
	DiffSize   int

	AgentTitle   string
	AgentBullets []string
	AgentSummary string
	AgentError   string

	DetectedAt time.Time
}

// Notifier delivers a Payload to one configured destination. Implementations
// own their own retry and circuit-breaking; a returned error means delivery
// did not succeed after those internal attempts.
type Notifier interface {
	Notify(ctx context.Context, target entity.NotificationTarget, payload Payload) error
}
