package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sentrywatch/internal/domain/entity"
)

// GetTarget looks up a target by id or unique name, whichever key matches.
func (s *Store) GetTarget(ctx context.Context, key string) (*entity.Target, error) {
	defer recordOp("get_target")()
	row := s.cb.QueryRowContext(ctx, `
SELECT id, name, locator, engine, strategy_json, normalize_json, headers_json,
       interval_sec, enabled, notify_json, agent_json, profile, tags_json,
       created_at, filters_json
FROM targets WHERE id = ? OR name = ?`, key, key)
	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get target: %w", err)
	}
	return t, nil
}

// ListTargets returns every target ordered by creation time.
func (s *Store) ListTargets(ctx context.Context) ([]*entity.Target, error) {
	defer recordOp("list_targets")()
	rows, err := s.cb.QueryContext(ctx, `
SELECT id, name, locator, engine, strategy_json, normalize_json, headers_json,
       interval_sec, enabled, notify_json, agent_json, profile, tags_json,
       created_at, filters_json
FROM targets ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list targets: %w", err)
	}
	defer rows.Close()

	var out []*entity.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list targets: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertTarget inserts a new target row.
func (s *Store) InsertTarget(ctx context.Context, t *entity.Target) error {
	defer recordOp("insert_target")()
	strategyJSON, err := marshalJSON(t.Strategy)
	if err != nil {
		return err
	}
	normalizeJSON, err := marshalJSON(t.Normalize)
	if err != nil {
		return err
	}
	headersJSON, err := marshalJSON(t.Headers)
	if err != nil {
		return err
	}
	notifyJSON, err := notifyToColumn(t.NotifyTo)
	if err != nil {
		return err
	}
	agentJSON, err := marshalJSON(t.Agent)
	if err != nil {
		return err
	}
	tagsJSON, err := marshalJSON(t.Tags)
	if err != nil {
		return err
	}
	filtersJSON, err := marshalJSON(t.Filters)
	if err != nil {
		return err
	}

	_, err = s.cb.ExecContext(ctx, `
INSERT INTO targets (id, name, locator, engine, strategy_json, normalize_json, headers_json,
                      interval_sec, enabled, notify_json, agent_json, profile, tags_json,
                      created_at, filters_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Locator, string(t.Engine), strategyJSON, normalizeJSON, headersJSON,
		t.IntervalSec, boolToInt(t.Enabled), notifyJSON, agentJSON, boolToInt(t.Profile), tagsJSON,
		t.CreatedAt.UnixNano(), filtersJSON)
	if err != nil {
		return fmt.Errorf("sqlite: insert target: %w", err)
	}
	return nil
}

// UpdateTarget overwrites every mutable column of an existing target row.
func (s *Store) UpdateTarget(ctx context.Context, t *entity.Target) error {
	defer recordOp("update_target")()
	strategyJSON, err := marshalJSON(t.Strategy)
	if err != nil {
		return err
	}
	normalizeJSON, err := marshalJSON(t.Normalize)
	if err != nil {
		return err
	}
	headersJSON, err := marshalJSON(t.Headers)
	if err != nil {
		return err
	}
	notifyJSON, err := notifyToColumn(t.NotifyTo)
	if err != nil {
		return err
	}
	agentJSON, err := marshalJSON(t.Agent)
	if err != nil {
		return err
	}
	tagsJSON, err := marshalJSON(t.Tags)
	if err != nil {
		return err
	}
	filtersJSON, err := marshalJSON(t.Filters)
	if err != nil {
		return err
	}

	res, err := s.cb.ExecContext(ctx, `
UPDATE targets SET name = ?, locator = ?, engine = ?, strategy_json = ?, normalize_json = ?,
                    headers_json = ?, interval_sec = ?, enabled = ?, notify_json = ?,
                    agent_json = ?, profile = ?, tags_json = ?, filters_json = ?
WHERE id = ?`,
		t.Name, t.Locator, string(t.Engine), strategyJSON, normalizeJSON,
		headersJSON, t.IntervalSec, boolToInt(t.Enabled), notifyJSON,
		agentJSON, boolToInt(t.Profile), tagsJSON, filtersJSON, t.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update target: %w", err)
	}
	return requireRowsAffected(res, entity.ErrNotFound)
}

// DeleteTarget removes a target; foreign keys cascade to its snapshots,
// changes, and agent memory.
func (s *Store) DeleteTarget(ctx context.Context, id string) error {
	defer recordOp("delete_target")()
	res, err := s.cb.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete target: %w", err)
	}
	return requireRowsAffected(res, entity.ErrNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(row rowScanner) (*entity.Target, error) {
	var (
		t                                         entity.Target
		engine                                    string
		strategyJSON, normalizeJSON, headersJSON  string
		notifyJSON                                sql.NullString
		agentJSON, tagsJSON, filtersJSON          string
		enabled, profile                          int
		createdAtNano                             int64
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Locator, &engine, &strategyJSON, &normalizeJSON,
		&headersJSON, &t.IntervalSec, &enabled, &notifyJSON, &agentJSON, &profile, &tagsJSON,
		&createdAtNano, &filtersJSON); err != nil {
		return nil, err
	}

	t.Engine = entity.FetchEngine(engine)
	t.Enabled = enabled != 0
	t.Profile = profile != 0
	t.CreatedAt = time.Unix(0, createdAtNano).UTC()

	if err := unmarshalJSON(strategyJSON, &t.Strategy); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(normalizeJSON, &t.Normalize); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(headersJSON, &t.Headers); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(agentJSON, &t.Agent); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(tagsJSON, &t.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(filtersJSON, &t.Filters); err != nil {
		return nil, err
	}
	nt, err := scanNotifyTo(nullStringPtr(notifyJSON))
	if err != nil {
		return nil, err
	}
	t.NotifyTo = nt

	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func requireRowsAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
