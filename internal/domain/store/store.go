// Package store defines the snapshot/change/memory/reminder persistence
// contract (C4). The concrete implementation lives in
// internal/infra/store/sqlite; this package exists so the use-case layer
// depends only on the contract, not the embedded database driver.
package store

import (
	"context"
	"time"

	"sentrywatch/internal/domain/entity"
)

// Store is the synchronous, single-writer persistence contract consumed by
// the check orchestrator and the scheduler. Implementations must be safe
// for sequential use from the daemon's single loop goroutine; callers never
// issue concurrent writes against the same instance.
type Store interface {
	// GetTarget looks up a target by id or by its unique name.
	GetTarget(ctx context.Context, key string) (*entity.Target, error)
	ListTargets(ctx context.Context) ([]*entity.Target, error)
	InsertTarget(ctx context.Context, t *entity.Target) error
	UpdateTarget(ctx context.Context, t *entity.Target) error
	DeleteTarget(ctx context.Context, id string) error

	GetLatestSnapshot(ctx context.Context, targetID string) (*entity.Snapshot, error)
	InsertSnapshot(ctx context.Context, s *entity.Snapshot) error
	// CleanupSnapshots retains the newest keepMax snapshots for targetID,
	// but never deletes below keepMin regardless of age.
	CleanupSnapshots(ctx context.Context, targetID string, keepMax, keepMin int) error

	InsertChange(ctx context.Context, c *entity.Change) error
	GetRecentChanges(ctx context.Context, targetID string, limit int) ([]*entity.Change, error)
	GetAllRecentChanges(ctx context.Context, limit int) ([]*entity.Change, error)

	GetAgentMemory(ctx context.Context, targetID string) (*entity.AgentMemory, error)
	UpdateAgentMemory(ctx context.Context, m *entity.AgentMemory) error
	ClearAgentMemory(ctx context.Context, targetID string) error

	GetGlobalMemory(ctx context.Context) (*entity.GlobalMemory, error)
	UpdateGlobalMemory(ctx context.Context, m *entity.GlobalMemory) error
	ClearGlobalMemory(ctx context.Context) error

	GetReminder(ctx context.Context, key string) (*entity.Reminder, error)
	ListReminders(ctx context.Context) ([]*entity.Reminder, error)
	InsertReminder(ctx context.Context, r *entity.Reminder) error
	UpdateReminder(ctx context.Context, r *entity.Reminder) error
	DeleteReminder(ctx context.Context, id string) error
	// GetDueReminders returns enabled reminders whose TriggerAt <= now.
	GetDueReminders(ctx context.Context, now time.Time) ([]*entity.Reminder, error)
	UpdateReminderTrigger(ctx context.Context, id string, next time.Time) error

	// Close releases the underlying database handle.
	Close() error
}
