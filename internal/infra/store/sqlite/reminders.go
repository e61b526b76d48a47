package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sentrywatch/internal/domain/entity"
)

// GetReminder looks up a reminder by id or unique name.
func (s *Store) GetReminder(ctx context.Context, key string) (*entity.Reminder, error) {
	defer recordOp("get_reminder")()
	row := s.cb.QueryRowContext(ctx, `
SELECT id, name, body, trigger_at, interval_sec, enabled, notify_json, created_at
FROM reminders WHERE id = ? OR name = ?`, key, key)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get reminder: %w", err)
	}
	return r, nil
}

// ListReminders returns every reminder ordered by creation time.
func (s *Store) ListReminders(ctx context.Context) ([]*entity.Reminder, error) {
	defer recordOp("list_reminders")()
	rows, err := s.cb.QueryContext(ctx, `
SELECT id, name, body, trigger_at, interval_sec, enabled, notify_json, created_at
FROM reminders ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list reminders: %w", err)
	}
	defer rows.Close()

	var out []*entity.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list reminders: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertReminder inserts a new reminder row.
func (s *Store) InsertReminder(ctx context.Context, r *entity.Reminder) error {
	defer recordOp("insert_reminder")()
	notifyJSON, err := notifyToColumn(r.NotifyTo)
	if err != nil {
		return err
	}
	_, err = s.cb.ExecContext(ctx, `
INSERT INTO reminders (id, name, body, trigger_at, interval_sec, enabled, notify_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Body, r.TriggerAt.UnixNano(), r.IntervalSec, boolToInt(r.Enabled),
		notifyJSON, r.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite: insert reminder: %w", err)
	}
	return nil
}

// UpdateReminder overwrites every mutable column of an existing reminder.
func (s *Store) UpdateReminder(ctx context.Context, r *entity.Reminder) error {
	defer recordOp("update_reminder")()
	notifyJSON, err := notifyToColumn(r.NotifyTo)
	if err != nil {
		return err
	}
	res, err := s.cb.ExecContext(ctx, `
UPDATE reminders SET name = ?, body = ?, trigger_at = ?, interval_sec = ?, enabled = ?,
                      notify_json = ?
WHERE id = ?`,
		r.Name, r.Body, r.TriggerAt.UnixNano(), r.IntervalSec, boolToInt(r.Enabled), notifyJSON, r.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update reminder: %w", err)
	}
	return requireRowsAffected(res, entity.ErrNotFound)
}

// DeleteReminder removes a reminder row.
func (s *Store) DeleteReminder(ctx context.Context, id string) error {
	defer recordOp("delete_reminder")()
	res, err := s.cb.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete reminder: %w", err)
	}
	return requireRowsAffected(res, entity.ErrNotFound)
}

// GetDueReminders returns every enabled reminder whose trigger_at is at or
// before now.
func (s *Store) GetDueReminders(ctx context.Context, now time.Time) ([]*entity.Reminder, error) {
	defer recordOp("get_due_reminders")()
	rows, err := s.cb.QueryContext(ctx, `
SELECT id, name, body, trigger_at, interval_sec, enabled, notify_json, created_at
FROM reminders WHERE enabled = 1 AND trigger_at <= ? ORDER BY trigger_at ASC`, now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("sqlite: get due reminders: %w", err)
	}
	defer rows.Close()

	var out []*entity.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: get due reminders: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateReminderTrigger advances a reminder's trigger_at to next, e.g. after
// it fires and entity.Reminder.Advance computes the next occurrence.
func (s *Store) UpdateReminderTrigger(ctx context.Context, id string, next time.Time) error {
	defer recordOp("update_reminder_trigger")()
	res, err := s.cb.ExecContext(ctx, `UPDATE reminders SET trigger_at = ? WHERE id = ?`, next.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("sqlite: update reminder trigger: %w", err)
	}
	return requireRowsAffected(res, entity.ErrNotFound)
}

func scanReminder(row rowScanner) (*entity.Reminder, error) {
	var (
		r                          entity.Reminder
		triggerAtNano, createdAtNano int64
		intervalSec                sql.NullInt64
		enabled                    int
		notifyJSON                 sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Body, &triggerAtNano, &intervalSec, &enabled,
		&notifyJSON, &createdAtNano); err != nil {
		return nil, err
	}
	r.TriggerAt = time.Unix(0, triggerAtNano).UTC()
	r.CreatedAt = time.Unix(0, createdAtNano).UTC()
	r.Enabled = enabled != 0
	if intervalSec.Valid {
		v := int(intervalSec.Int64)
		r.IntervalSec = &v
	}
	nt, err := scanNotifyTo(nullStringPtr(notifyJSON))
	if err != nil {
		return nil, err
	}
	r.NotifyTo = nt
	return &r, nil
}
