package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ironworks-mfg/taskcore/internal/types"
)

const transitionColumns = `id, task_id, from_status, to_status, action, client_event_id, actor_id,
	payload, fingerprint, expected_row_version, result_row_version, created_at`

func (w *withTxStore) AppendTransition(ctx context.Context, tr *types.TaskTransition) (*types.TaskTransition, bool, error) {
	return appendTransition(ctx, w.conn(), tr)
}

func (s *Storage) AppendTransition(ctx context.Context, tr *types.TaskTransition) (*types.TaskTransition, bool, error) {
	return appendTransition(ctx, s.conn(), tr)
}

// appendTransition inserts tr. When tr.ClientEventID is non-empty, it
// relies on the unique index on (task_id, client_event_id) to reject a
// second submission of the same client event for the same task; on
// that conflict it fetches and returns the row that won instead of
// erroring, so the executor can compare fingerprints and decide
// between a replay and an idempotency conflict. A unique-constraint
// conflict that no stored row with the same client_event_id explains
// (none given, or none found) means two writers raced on the same
// result_row_version, and returns ErrVersionConflict.
func appendTransition(ctx context.Context, c execer, tr *types.TaskTransition) (*types.TaskTransition, bool, error) {
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(tr.Payload)
	if err != nil {
		return nil, false, fmt.Errorf("marshaling transition payload: %w", err)
	}

	_, err = c.ExecContext(ctx, `
		INSERT INTO task_transitions (
			id, task_id, from_status, to_status, action, client_event_id, actor_id,
			payload, fingerprint, expected_row_version, result_row_version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.TaskID, string(tr.FromStatus), string(tr.ToStatus), string(tr.Action),
		tr.ClientEventID, tr.ActorID, string(payload), tr.Fingerprint,
		tr.ExpectedRowVersion, tr.ResultRowVersion, tr.CreatedAt.Format(timeFormat))

	if isUniqueConstraintError(err) {
		if tr.ClientEventID == "" {
			return nil, false, fmt.Errorf("task %s: concurrent writers raced on row_version %d: %w",
				tr.TaskID, tr.ResultRowVersion, types.ErrVersionConflict)
		}
		existing, getErr := getTransitionByClientEventID(ctx, c, tr.TaskID, tr.ClientEventID)
		if errors.Is(getErr, types.ErrNotFound) {
			return nil, false, fmt.Errorf("task %s: concurrent writers raced on row_version %d: %w",
				tr.TaskID, tr.ResultRowVersion, types.ErrVersionConflict)
		}
		if getErr != nil {
			return nil, false, fmt.Errorf("loading existing transition after conflict: %w", getErr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("inserting transition: %w", err)
	}
	return nil, true, nil
}

func (w *withTxStore) GetTransitionByClientEventID(ctx context.Context, taskID, clientEventID string) (*types.TaskTransition, error) {
	return getTransitionByClientEventID(ctx, w.conn(), taskID, clientEventID)
}

func (s *Storage) GetTransitionByClientEventID(ctx context.Context, taskID, clientEventID string) (*types.TaskTransition, error) {
	return getTransitionByClientEventID(ctx, s.conn(), taskID, clientEventID)
}

func getTransitionByClientEventID(ctx context.Context, c execer, taskID, clientEventID string) (*types.TaskTransition, error) {
	row := c.QueryRowContext(ctx, `
		SELECT `+transitionColumns+`
		FROM task_transitions WHERE task_id = ? AND client_event_id = ?`, taskID, clientEventID)
	return scanTransition(row)
}

func scanTransition(row *sql.Row) (*types.TaskTransition, error) {
	var tr types.TaskTransition
	var payload, createdAt string
	if err := row.Scan(&tr.ID, &tr.TaskID, &tr.FromStatus, &tr.ToStatus, &tr.Action,
		&tr.ClientEventID, &tr.ActorID, &payload, &tr.Fingerprint,
		&tr.ExpectedRowVersion, &tr.ResultRowVersion, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transition: %w", types.ErrNotFound)
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &tr.Payload); err != nil {
		return nil, fmt.Errorf("unmarshaling payload: %w", err)
	}
	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	tr.CreatedAt = t
	return &tr, nil
}

func (w *withTxStore) ListTransitions(ctx context.Context, taskID string) ([]*types.TaskTransition, error) {
	return listTransitions(ctx, w.conn(), taskID)
}

func (s *Storage) ListTransitions(ctx context.Context, taskID string) ([]*types.TaskTransition, error) {
	return listTransitions(ctx, s.conn(), taskID)
}

// listTransitions orders by rowid, which SQLite guarantees is
// monotonically increasing for INSERT-only tables, giving I-log
// monotonicity without needing a separately-maintained counter.
func listTransitions(ctx context.Context, c execer, taskID string) ([]*types.TaskTransition, error) {
	rows, err := c.QueryContext(ctx, `
		SELECT `+transitionColumns+`
		FROM task_transitions WHERE task_id = ? ORDER BY rowid ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("listing transitions: %w", err)
	}
	defer rows.Close()

	var out []*types.TaskTransition
	for rows.Next() {
		var tr types.TaskTransition
		var payload, createdAt string
		if err := rows.Scan(&tr.ID, &tr.TaskID, &tr.FromStatus, &tr.ToStatus, &tr.Action,
			&tr.ClientEventID, &tr.ActorID, &payload, &tr.Fingerprint,
			&tr.ExpectedRowVersion, &tr.ResultRowVersion, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transition row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &tr.Payload); err != nil {
			return nil, fmt.Errorf("unmarshaling payload: %w", err)
		}
		if tr.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, &tr)
	}
	return out, rows.Err()
}
