// Package notify resolves which notification target governs a change or
// reminder, applies the quiet-hours suppression rule, and dispatches through
// the configured transport.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/infra/notifier"
	"sentrywatch/internal/observability/metrics"
)

// Dispatcher resolves a notification target and hands payloads to the
// matching transport. globalDefault backs any target or reminder with no
// override of its own; it may be nil when no default is configured.
type Dispatcher struct {
	notifiers     map[entity.ChannelTag]notifier.Notifier
	globalDefault *entity.NotificationTarget
}

// NewDispatcher builds a Dispatcher. notifiers must have one entry per
// channel tag the deployment actually uses; an unregistered channel fails
// dispatch with a Config-shaped error.
func NewDispatcher(notifiers map[entity.ChannelTag]notifier.Notifier, globalDefault *entity.NotificationTarget) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, globalDefault: globalDefault}
}

// resolve picks override over the global default, per spec §4.7/§4.9's
// "target_override ?? global_default" rule.
func (d *Dispatcher) resolve(override *entity.NotificationTarget) (*entity.NotificationTarget, error) {
	target := override
	if target == nil {
		target = d.globalDefault
	}
	if target == nil {
		return nil, fmt.Errorf("notify: no notification target configured")
	}
	if !target.Channel.Valid() {
		return nil, fmt.Errorf("notify: unknown channel tag %q", target.Channel)
	}
	return target, nil
}

// suppressed reports whether target's quiet-hours window covers now's
// local wall-clock time.
func suppressed(target *entity.NotificationTarget, now time.Time) bool {
	if target.Quiet == nil {
		return false
	}
	local := now.Local()
	return target.Quiet.Within(entity.TimeOfDay{Hour: local.Hour(), Minute: local.Minute()})
}

// DispatchChange resolves the notification target for change (target-level
// override, then global default), honors quiet hours, and sends the
// rendered payload. It reports whether delivery was suppressed (treated as
// success per spec §4.7) and any dispatch error.
func (d *Dispatcher) DispatchChange(ctx context.Context, target *entity.Target, change *entity.Change, oldText, newText string, now time.Time) (suppressedOut bool, err error) {
	resolved, err := d.resolve(target.NotifyTo)
	if err != nil {
		return false, err
	}
	if suppressed(resolved, now) {
		slog.Info("notification suppressed by quiet hours",
			slog.String("target_id", target.ID), slog.String("channel", string(resolved.Channel)))
		metrics.RecordNotification(string(resolved.Channel), "suppressed", 0)
		return true, nil
	}

	n, ok := d.notifiers[resolved.Channel]
	if !ok {
		return false, fmt.Errorf("notify: no notifier registered for channel %q", resolved.Channel)
	}

	payload := BuildPayload(target, change, oldText, newText)
	start := time.Now()
	sendErr := n.Notify(ctx, *resolved, payload)
	if sendErr != nil {
		metrics.RecordNotification(string(resolved.Channel), "failed", time.Since(start))
		return false, fmt.Errorf("notify: %s delivery failed: %w", resolved.Channel, sendErr)
	}
	metrics.RecordNotification(string(resolved.Channel), "sent", time.Since(start))
	return false, nil
}

// DispatchReminder resolves and sends a standalone reminder the same way
// DispatchChange does for target changes.
func (d *Dispatcher) DispatchReminder(ctx context.Context, reminder *entity.Reminder, now time.Time) (suppressedOut bool, err error) {
	resolved, err := d.resolve(reminder.NotifyTo)
	if err != nil {
		return false, err
	}
	if suppressed(resolved, now) {
		slog.Info("reminder suppressed by quiet hours", slog.String("reminder_id", reminder.ID))
		metrics.RecordNotification(string(resolved.Channel), "suppressed", 0)
		return true, nil
	}

	n, ok := d.notifiers[resolved.Channel]
	if !ok {
		return false, fmt.Errorf("notify: no notifier registered for channel %q", resolved.Channel)
	}

	payload := notifier.Payload{
		TargetID:   reminder.ID,
		TargetName: reminder.Name,
		DiffText:   reminder.Body,
		DetectedAt: now,
	}
	start := time.Now()
	sendErr := n.Notify(ctx, *resolved, payload)
	if sendErr != nil {
		metrics.RecordNotification(string(resolved.Channel), "failed", time.Since(start))
		return false, fmt.Errorf("notify: %s delivery failed: %w", resolved.Channel, sendErr)
	}
	metrics.RecordNotification(string(resolved.Channel), "sent", time.Since(start))
	return false, nil
}
