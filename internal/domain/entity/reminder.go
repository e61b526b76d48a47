package entity

import "time"

// Reminder is a standalone scheduled notification, driven by the same
// daemon loop that runs target checks but otherwise independent of the
// target/snapshot/change pipeline.
type Reminder struct {
	ID           string
	Name         string
	Body         string
	TriggerAt    time.Time // wall-clock UTC
	IntervalSec  *int      // nil => one-shot
	Enabled      bool
	NotifyTo     *NotificationTarget
	CreatedAt    time.Time
}

// Recurring reports whether this reminder repeats after firing.
func (r *Reminder) Recurring() bool {
	return r.IntervalSec != nil && *r.IntervalSec > 0
}

// Due reports whether the reminder should fire at instant now.
func (r *Reminder) Due(now time.Time) bool {
	return r.Enabled && !r.TriggerAt.After(now)
}

// Advance moves TriggerAt forward by whole multiples of the recurrence
// interval until it is strictly after now, preserving time-of-day across
// any missed windows. It is a no-op if the reminder is not recurring.
func (r *Reminder) Advance(now time.Time) {
	if !r.Recurring() {
		return
	}
	step := time.Duration(*r.IntervalSec) * time.Second
	for !r.TriggerAt.After(now) {
		r.TriggerAt = r.TriggerAt.Add(step)
	}
}
