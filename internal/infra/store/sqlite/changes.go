package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sentrywatch/internal/domain/entity"
)

// InsertChange records a newly detected change.
func (s *Store) InsertChange(ctx context.Context, c *entity.Change) error {
	defer recordOp("insert_change")()
	agentJSON, err := agentResponseColumn(c.Agent)
	if err != nil {
		return err
	}
	_, err = s.cb.ExecContext(ctx, `
INSERT INTO changes (id, target_id, detected_at, old_snapshot, new_snapshot, diff_text,
                      diff_size, filter_passed, agent_json, agent_error, notified)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TargetID, c.DetectedAt.UnixNano(), c.OldSnapshot, c.NewSnapshot, c.DiffText,
		c.DiffSize, boolToInt(c.FilterPassed), agentJSON, c.AgentError, boolToInt(c.Notified))
	if err != nil {
		return fmt.Errorf("sqlite: insert change: %w", err)
	}
	return nil
}

// GetRecentChanges returns the most recent changes for targetID, newest
// first, capped at limit.
func (s *Store) GetRecentChanges(ctx context.Context, targetID string, limit int) ([]*entity.Change, error) {
	defer recordOp("get_recent_changes")()
	rows, err := s.cb.QueryContext(ctx, `
SELECT id, target_id, detected_at, old_snapshot, new_snapshot, diff_text, diff_size,
       filter_passed, agent_json, agent_error, notified
FROM changes WHERE target_id = ? ORDER BY detected_at DESC LIMIT ?`, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get recent changes: %w", err)
	}
	defer rows.Close()
	return scanChanges(rows)
}

// GetAllRecentChanges returns the most recent changes across every target,
// newest first, capped at limit.
func (s *Store) GetAllRecentChanges(ctx context.Context, limit int) ([]*entity.Change, error) {
	defer recordOp("get_all_recent_changes")()
	rows, err := s.cb.QueryContext(ctx, `
SELECT id, target_id, detected_at, old_snapshot, new_snapshot, diff_text, diff_size,
       filter_passed, agent_json, agent_error, notified
FROM changes ORDER BY detected_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get all recent changes: %w", err)
	}
	defer rows.Close()
	return scanChanges(rows)
}

func scanChanges(rows *sql.Rows) ([]*entity.Change, error) {
	var out []*entity.Change
	for rows.Next() {
		var (
			c             entity.Change
			detectedAt    int64
			filterPassed  int
			notified      int
			agentJSON     sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.TargetID, &detectedAt, &c.OldSnapshot, &c.NewSnapshot,
			&c.DiffText, &c.DiffSize, &filterPassed, &agentJSON, &c.AgentError, &notified); err != nil {
			return nil, fmt.Errorf("sqlite: scan change: %w", err)
		}
		c.DetectedAt = time.Unix(0, detectedAt).UTC()
		c.FilterPassed = filterPassed != 0
		c.Notified = notified != 0
		agent, err := scanAgentResponse(nullStringPtr(agentJSON))
		if err != nil {
			return nil, err
		}
		c.Agent = agent
		out = append(out, &c)
	}
	return out, rows.Err()
}
