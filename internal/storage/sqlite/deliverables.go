package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ironworks-mfg/taskcore/internal/types"
)

func (w *withTxStore) CreateDeliverable(ctx context.Context, d *types.Deliverable) error {
	return createDeliverable(ctx, w.conn(), d)
}

func (s *Storage) CreateDeliverable(ctx context.Context, d *types.Deliverable) error {
	return createDeliverable(ctx, s.conn(), d)
}

func createDeliverable(ctx context.Context, c execer, d *types.Deliverable) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.QcStatus == "" {
		d.QcStatus = types.QcPass
	}
	var dueAt sql.NullString
	if d.DueAt != nil {
		dueAt = sql.NullString{String: d.DueAt.Format(timeFormat), Valid: true}
	}

	_, err := c.ExecContext(ctx, `
		INSERT INTO deliverables (id, task_id, tenant_id, project_id, kind, qc_status, created_at, due_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TaskID, d.TenantID, d.ProjectID, d.Kind, string(d.QcStatus), d.CreatedAt.Format(timeFormat), dueAt)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("deliverable %s: %w", d.ID, types.ErrInvariantViolation)
	}
	if err != nil {
		return fmt.Errorf("inserting deliverable %s: %w", d.ID, err)
	}
	return nil
}

func (w *withTxStore) GetDeliverable(ctx context.Context, id string) (*types.Deliverable, error) {
	return getDeliverable(ctx, w.conn(), id)
}

func (s *Storage) GetDeliverable(ctx context.Context, id string) (*types.Deliverable, error) {
	return getDeliverable(ctx, s.conn(), id)
}

func getDeliverable(ctx context.Context, c execer, id string) (*types.Deliverable, error) {
	row := c.QueryRowContext(ctx, `
		SELECT id, task_id, tenant_id, project_id, kind, qc_status, created_at, due_at
		FROM deliverables WHERE id = ?`, id)

	var d types.Deliverable
	var createdAt string
	var dueAt sql.NullString
	err := row.Scan(&d.ID, &d.TaskID, &d.TenantID, &d.ProjectID, &d.Kind, &d.QcStatus, &createdAt, &dueAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deliverable %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying deliverable %s: %w", id, err)
	}
	if d.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if dueAt.Valid {
		parsed, err := time.Parse(timeFormat, dueAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing due_at: %w", err)
		}
		d.DueAt = &parsed
	}
	return &d, nil
}

func (w *withTxStore) UpdateDeliverableQcStatus(ctx context.Context, id string, status types.QcDecision) error {
	return updateDeliverableQcStatus(ctx, w.conn(), id, status)
}

func (s *Storage) UpdateDeliverableQcStatus(ctx context.Context, id string, status types.QcDecision) error {
	return updateDeliverableQcStatus(ctx, s.conn(), id, status)
}

func updateDeliverableQcStatus(ctx context.Context, c execer, id string, status types.QcDecision) error {
	res, err := c.ExecContext(ctx, `UPDATE deliverables SET qc_status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating deliverable %s qc_status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result for deliverable %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("deliverable %s: %w", id, types.ErrNotFound)
	}
	return nil
}

func (w *withTxStore) RecordInspection(ctx context.Context, insp *types.QcInspection) error {
	return recordInspection(ctx, w.conn(), insp)
}

func (s *Storage) RecordInspection(ctx context.Context, insp *types.QcInspection) error {
	return recordInspection(ctx, s.conn(), insp)
}

func recordInspection(ctx context.Context, c execer, insp *types.QcInspection) error {
	if insp.CreatedAt.IsZero() {
		insp.CreatedAt = time.Now().UTC()
	}
	_, err := c.ExecContext(ctx, `
		INSERT INTO qc_inspections (id, deliverable_id, inspector_id, decision, reason_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		insp.ID, insp.DeliverableID, insp.InspectorID, string(insp.Decision), string(insp.ReasonCode), insp.CreatedAt.Format(timeFormat))
	if isUniqueConstraintError(err) {
		return fmt.Errorf("inspection %s: %w", insp.ID, types.ErrInvariantViolation)
	}
	if err != nil {
		return fmt.Errorf("inserting inspection %s: %w", insp.ID, err)
	}
	return nil
}
