package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/observability/metrics"
)

// GetLatestSnapshot returns the most recently fetched snapshot for
// targetID, i.e. the one with the maximum fetched_at.
func (s *Store) GetLatestSnapshot(ctx context.Context, targetID string) (*entity.Snapshot, error) {
	defer recordOp("get_latest_snapshot")()
	row := s.cb.QueryRowContext(ctx, `
SELECT id, target_id, fetched_at, raw_payload, text, hash
FROM snapshots WHERE target_id = ? ORDER BY fetched_at DESC LIMIT 1`, targetID)

	var (
		snap          entity.Snapshot
		fetchedAtNano int64
		raw           []byte
	)
	if err := row.Scan(&snap.ID, &snap.TargetID, &fetchedAtNano, &raw, &snap.Text, &snap.Hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: get latest snapshot: %w", err)
	}
	snap.FetchedAt = time.Unix(0, fetchedAtNano).UTC()

	payload, err := decompressPayload(raw)
	if err != nil {
		return nil, err
	}
	snap.RawPayload = payload
	return &snap, nil
}

// InsertSnapshot appends a new, immutable snapshot row, compressing
// RawPayload before storage.
func (s *Store) InsertSnapshot(ctx context.Context, snap *entity.Snapshot) error {
	defer recordOp("insert_snapshot")()
	compressed, err := compressPayload(snap.RawPayload)
	if err != nil {
		return err
	}
	_, err = s.cb.ExecContext(ctx, `
INSERT INTO snapshots (id, target_id, fetched_at, raw_payload, text, hash)
VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.TargetID, snap.FetchedAt.UnixNano(), compressed, snap.Text, snap.Hash)
	if err != nil {
		return fmt.Errorf("sqlite: insert snapshot: %w", err)
	}
	return nil
}

// CleanupSnapshots enforces retention for targetID: the newest keepMax
// snapshots are kept, and at least keepMin are always kept regardless of
// age. Only the snapshot IDs beyond both bounds are deleted.
func (s *Store) CleanupSnapshots(ctx context.Context, targetID string, keepMax, keepMin int) error {
	defer recordOp("cleanup_snapshots")()
	if keepMin > keepMax {
		keepMin = keepMax
	}

	rows, err := s.cb.QueryContext(ctx, `
SELECT id FROM snapshots WHERE target_id = ? ORDER BY fetched_at DESC`, targetID)
	if err != nil {
		return fmt.Errorf("sqlite: cleanup snapshots: list: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite: cleanup snapshots: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if len(ids) <= keepMax {
		metrics.UpdateSnapshotsStored(targetID, len(ids))
		return nil
	}
	// keepMax >= keepMin (enforced above), so keeping the newest keepMax
	// always keeps at least keepMin; nothing further to guard here.
	toDelete := ids[keepMax:]

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: cleanup snapshots: begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM snapshots WHERE id = ?`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite: cleanup snapshots: prepare: %w", err)
	}
	for _, id := range toDelete {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("sqlite: cleanup snapshots: delete: %w", err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return err
	}
	metrics.UpdateSnapshotsStored(targetID, keepMax)
	return nil
}
