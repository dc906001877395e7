package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ironworks-mfg/taskcore/internal/storage"
	"github.com/ironworks-mfg/taskcore/internal/types"
)

const timeFormat = time.RFC3339Nano

const taskColumns = `id, tenant_id, project_id, deliverable_id, work_kind, status, assignee_id, assigned_at,
	row_version, created_at, updated_at,
	origin_task_id, qc_inspection_id, fix_source, fix_severity, minutes_spent`

func (w *withTxStore) GetTask(ctx context.Context, id string) (*types.Task, error) {
	return getTask(ctx, w.conn(), id)
}

func (s *Storage) GetTask(ctx context.Context, id string) (*types.Task, error) {
	return getTask(ctx, s.conn(), id)
}

func getTask(ctx context.Context, c execer, id string) (*types.Task, error) {
	row := c.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying task %s: %w", id, err)
	}
	return t, nil
}

func scanTask(row *sql.Row) (*types.Task, error) {
	var t types.Task
	var createdAt, updatedAt string
	var assignedAt sql.NullString
	if err := row.Scan(&t.ID, &t.TenantID, &t.ProjectID, &t.DeliverableID, &t.WorkKind, &t.Status, &t.AssigneeID, &assignedAt,
		&t.RowVersion, &createdAt, &updatedAt,
		&t.OriginTaskID, &t.QcInspectionID, &t.FixSource, &t.FixSeverity, &t.MinutesSpent); err != nil {
		return nil, err
	}
	return finishScanTask(&t, createdAt, updatedAt, assignedAt)
}

func finishScanTask(t *types.Task, createdAt, updatedAt string, assignedAt sql.NullString) (*types.Task, error) {
	var err error
	if t.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if assignedAt.Valid && assignedAt.String != "" {
		if t.AssignedAt, err = time.Parse(timeFormat, assignedAt.String); err != nil {
			return nil, fmt.Errorf("parsing assigned_at: %w", err)
		}
	}
	return t, nil
}

func (w *withTxStore) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]*types.Task, error) {
	return listTasks(ctx, w.conn(), filter)
}

func (s *Storage) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]*types.Task, error) {
	return listTasks(ctx, s.conn(), filter)
}

func listTasks(ctx context.Context, c execer, filter storage.TaskFilter) ([]*types.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if filter.TenantID != "" {
		query += " AND tenant_id = ?"
		args = append(args, filter.TenantID)
	}
	if filter.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, filter.ProjectID)
	}
	if filter.AssigneeID != "" {
		query += " AND assignee_id = ?"
		args = append(args, filter.AssigneeID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.WorkKind != "" {
		query += " AND work_kind = ?"
		args = append(args, string(filter.WorkKind))
	}
	query += " ORDER BY created_at ASC"

	rows, err := c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var out []*types.Task
	for rows.Next() {
		var t types.Task
		var createdAt, updatedAt string
		var assignedAt sql.NullString
		if err := rows.Scan(&t.ID, &t.TenantID, &t.ProjectID, &t.DeliverableID, &t.WorkKind, &t.Status, &t.AssigneeID, &assignedAt,
			&t.RowVersion, &createdAt, &updatedAt,
			&t.OriginTaskID, &t.QcInspectionID, &t.FixSource, &t.FixSeverity, &t.MinutesSpent); err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		if _, err := finishScanTask(&t, createdAt, updatedAt, assignedAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (w *withTxStore) CreateTask(ctx context.Context, t *types.Task) error {
	return createTask(ctx, w.conn(), t)
}

func (s *Storage) CreateTask(ctx context.Context, t *types.Task) error {
	return createTask(ctx, s.conn(), t)
}

// createTask performs a plain INSERT that fails loudly on a duplicate
// ID, because task creation always expects a fresh row — unlike
// transition appends, which treat a duplicate as an expected replay.
func createTask(ctx context.Context, c execer, t *types.Task) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	if t.RowVersion == 0 {
		t.RowVersion = 1
	}

	var assignedAt sql.NullString
	if !t.AssignedAt.IsZero() {
		assignedAt = sql.NullString{String: t.AssignedAt.Format(timeFormat), Valid: true}
	}

	_, err := c.ExecContext(ctx, `
		INSERT INTO tasks (
			id, tenant_id, project_id, deliverable_id, work_kind, status, assignee_id, assigned_at,
			row_version, created_at, updated_at,
			origin_task_id, qc_inspection_id, fix_source, fix_severity, minutes_spent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TenantID, t.ProjectID, t.DeliverableID, string(t.WorkKind), string(t.Status), t.AssigneeID, assignedAt,
		t.RowVersion, t.CreatedAt.Format(timeFormat), t.UpdatedAt.Format(timeFormat),
		t.OriginTaskID, t.QcInspectionID, string(t.FixSource), string(t.FixSeverity), t.MinutesSpent)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("task %s: %w", t.ID, types.ErrInvariantViolation)
	}
	if isCheckConstraintError(err) {
		return fmt.Errorf("task %s violates a schema invariant: %w", t.ID, types.ErrInvariantViolation)
	}
	if err != nil {
		return fmt.Errorf("inserting task %s: %w", t.ID, err)
	}
	return nil
}

func (w *withTxStore) UpdateTask(ctx context.Context, t *types.Task) error {
	return updateTask(ctx, w.conn(), t)
}

func (s *Storage) UpdateTask(ctx context.Context, t *types.Task) error {
	return updateTask(ctx, s.conn(), t)
}

// updateTask writes t's mutable fields, including t.RowVersion,
// verbatim. It performs no optimistic-concurrency check of its own:
// the executor already loaded the row within this same transaction,
// compared its row_version against the caller's expected_row_version,
// and computed t.RowVersion as the new value to persist. A
// RowsAffected of zero here means the row has vanished underneath the
// transaction, which is a programming error rather than a race this
// layer should mask as ErrVersionConflict.
func updateTask(ctx context.Context, c execer, t *types.Task) error {
	var assignedAt sql.NullString
	if !t.AssignedAt.IsZero() {
		assignedAt = sql.NullString{String: t.AssignedAt.Format(timeFormat), Valid: true}
	}

	res, err := c.ExecContext(ctx, `
		UPDATE tasks SET
			status = ?, assignee_id = ?, assigned_at = ?, row_version = ?, updated_at = ?,
			deliverable_id = ?, origin_task_id = ?, qc_inspection_id = ?,
			fix_source = ?, fix_severity = ?, minutes_spent = ?
		WHERE id = ?`,
		string(t.Status), t.AssigneeID, assignedAt, t.RowVersion, t.UpdatedAt.Format(timeFormat),
		t.DeliverableID, t.OriginTaskID, t.QcInspectionID,
		string(t.FixSource), string(t.FixSeverity), t.MinutesSpent,
		t.ID)
	if isCheckConstraintError(err) {
		return fmt.Errorf("task %s update violates a schema invariant: %w", t.ID, types.ErrInvariantViolation)
	}
	if err != nil {
		return fmt.Errorf("updating task %s: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result for task %s: %w", t.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("task %s vanished mid-transaction: %w", t.ID, types.ErrNotFound)
	}
	return nil
}

func (w *withTxStore) CountActiveAssignments(ctx context.Context, tenantID, assigneeID, excludeTaskID string) (int, error) {
	return countActiveAssignments(ctx, w.conn(), tenantID, assigneeID, excludeTaskID)
}

func (s *Storage) CountActiveAssignments(ctx context.Context, tenantID, assigneeID, excludeTaskID string) (int, error) {
	return countActiveAssignments(ctx, s.conn(), tenantID, assigneeID, excludeTaskID)
}

func countActiveAssignments(ctx context.Context, c execer, tenantID, assigneeID, excludeTaskID string) (int, error) {
	var n int
	err := c.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE tenant_id = ? AND assignee_id = ?
		AND status IN ('assigned', 'in_progress', 'submitted') AND id != ?`,
		tenantID, assigneeID, excludeTaskID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting active assignments: %w", err)
	}
	return n, nil
}
