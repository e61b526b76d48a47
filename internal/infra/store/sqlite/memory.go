package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sentrywatch/internal/domain/entity"
)

// GetAgentMemory returns targetID's per-target memory, or a fresh empty
// record if none has been written yet.
func (s *Store) GetAgentMemory(ctx context.Context, targetID string) (*entity.AgentMemory, error) {
	defer recordOp("get_agent_memory")()
	row := s.cb.QueryRowContext(ctx, `
SELECT counters_json, last_values_json, notes_json FROM agent_memory WHERE target_id = ?`, targetID)

	var countersJSON, lastValuesJSON, notesJSON string
	if err := row.Scan(&countersJSON, &lastValuesJSON, &notesJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.NewAgentMemory(targetID), nil
		}
		return nil, fmt.Errorf("sqlite: get agent memory: %w", err)
	}

	m := entity.NewAgentMemory(targetID)
	if err := unmarshalJSON(countersJSON, &m.Counters); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(lastValuesJSON, &m.LastValues); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(notesJSON, &m.Notes); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateAgentMemory upserts the full memory record for m.TargetID.
func (s *Store) UpdateAgentMemory(ctx context.Context, m *entity.AgentMemory) error {
	defer recordOp("update_agent_memory")()
	countersJSON, err := marshalJSON(m.Counters)
	if err != nil {
		return err
	}
	lastValuesJSON, err := marshalJSON(m.LastValues)
	if err != nil {
		return err
	}
	notesJSON, err := marshalJSON(m.Notes)
	if err != nil {
		return err
	}

	_, err = s.cb.ExecContext(ctx, `
INSERT INTO agent_memory (target_id, counters_json, last_values_json, notes_json)
VALUES (?, ?, ?, ?)
ON CONFLICT(target_id) DO UPDATE SET
	counters_json = excluded.counters_json,
	last_values_json = excluded.last_values_json,
	notes_json = excluded.notes_json`,
		m.TargetID, countersJSON, lastValuesJSON, notesJSON)
	if err != nil {
		return fmt.Errorf("sqlite: update agent memory: %w", err)
	}
	return nil
}

// ClearAgentMemory deletes targetID's memory row, if any.
func (s *Store) ClearAgentMemory(ctx context.Context, targetID string) error {
	defer recordOp("clear_agent_memory")()
	_, err := s.cb.ExecContext(ctx, `DELETE FROM agent_memory WHERE target_id = ?`, targetID)
	if err != nil {
		return fmt.Errorf("sqlite: clear agent memory: %w", err)
	}
	return nil
}

// GetGlobalMemory returns the singleton global memory record, or a fresh
// empty one if it has never been written.
func (s *Store) GetGlobalMemory(ctx context.Context) (*entity.GlobalMemory, error) {
	defer recordOp("get_global_memory")()
	row := s.cb.QueryRowContext(ctx, `SELECT observations_json, weights_json FROM global_memory WHERE id = 1`)

	var observationsJSON, weightsJSON string
	if err := row.Scan(&observationsJSON, &weightsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.NewGlobalMemory(), nil
		}
		return nil, fmt.Errorf("sqlite: get global memory: %w", err)
	}

	g := entity.NewGlobalMemory()
	if err := unmarshalJSON(observationsJSON, &g.Observations); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(weightsJSON, &g.Weights); err != nil {
		return nil, err
	}
	return g, nil
}

// UpdateGlobalMemory upserts the singleton global memory record.
func (s *Store) UpdateGlobalMemory(ctx context.Context, m *entity.GlobalMemory) error {
	defer recordOp("update_global_memory")()
	observationsJSON, err := marshalJSON(m.Observations)
	if err != nil {
		return err
	}
	weightsJSON, err := marshalJSON(m.Weights)
	if err != nil {
		return err
	}

	_, err = s.cb.ExecContext(ctx, `
INSERT INTO global_memory (id, observations_json, weights_json)
VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	observations_json = excluded.observations_json,
	weights_json = excluded.weights_json`,
		observationsJSON, weightsJSON)
	if err != nil {
		return fmt.Errorf("sqlite: update global memory: %w", err)
	}
	return nil
}

// ClearGlobalMemory deletes the singleton global memory row, if any.
func (s *Store) ClearGlobalMemory(ctx context.Context) error {
	defer recordOp("clear_global_memory")()
	_, err := s.cb.ExecContext(ctx, `DELETE FROM global_memory WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("sqlite: clear global memory: %w", err)
	}
	return nil
}
