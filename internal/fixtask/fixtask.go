// Package fixtask is the sole constructor of corrective (work_kind=fix)
// tasks. No other package may call storage.Store.CreateTask with
// WorkKindFix — every code path that needs a fix task routes through
// here, so fix-task context coherence (fix_source, fix_severity, the
// qc_reject/qc_inspection_id pairing) is guaranteed at a single
// chokepoint rather than re-checked ad hoc at each call site.
package fixtask

import (
	"context"
	"fmt"
	"time"

	"github.com/ironworks-mfg/taskcore/internal/storage"
	"github.com/ironworks-mfg/taskcore/internal/types"
	"github.com/ironworks-mfg/taskcore/internal/validation"
)

// IDGenerator produces a new unique task ID. Kept as a function field
// rather than a package-level default so tests can supply deterministic
// IDs without touching global state.
type IDGenerator func() string

// Service creates fix tasks via its entry points, each used by a
// different caller: the executor (review_reject's create_fix_task side
// effect), a direct operator report against a task or deliverable, and
// the QC decision path.
type Service struct {
	NewID IDGenerator
	Now   func() time.Time
}

// New constructs a fixtask.Service with the given ID generator.
func New(newID IDGenerator) *Service {
	return &Service{NewID: newID, Now: time.Now}
}

// createFix is the shared primitive all entry points funnel through.
// deliverableID is mandatory: a fix task always corrects a specific
// deliverable, even one raised from a task or QC-inspection context.
func (s *Service) createFix(
	ctx context.Context, tx storage.Store,
	tenantID, projectID, deliverableID, assigneeID string,
	source types.ReasonCode, severity types.FixSeverity, minutesSpent int,
	originTaskID, qcInspectionID string,
) (*types.Task, error) {
	if deliverableID == "" {
		return nil, fmt.Errorf("createFix: %w: deliverable_id is required", types.ErrInvariantViolation)
	}
	if source == "" {
		return nil, fmt.Errorf("createFix: %w: fix_source is required", types.ErrValidation)
	}
	if severity == "" {
		severity = types.FixSeverityMajor
	}

	now := s.Now().UTC()
	fix := &types.Task{
		ID:             s.NewID(),
		TenantID:       tenantID,
		ProjectID:      projectID,
		DeliverableID:  deliverableID,
		WorkKind:       types.WorkKindFix,
		Status:         types.StatusAvailable,
		AssigneeID:     assigneeID,
		RowVersion:     1,
		CreatedAt:      now,
		UpdatedAt:      now,
		OriginTaskID:   originTaskID,
		QcInspectionID: qcInspectionID,
		FixSource:      source,
		FixSeverity:    severity,
		MinutesSpent:   minutesSpent,
	}
	if assigneeID != "" {
		fix.Status = types.StatusAssigned
		fix.AssignedAt = now
	}

	if err := validation.FixContextCoherent(ctx, fix); err != nil {
		return nil, err
	}
	if err := validation.TenantProjectSafe(ctx, fix); err != nil {
		return nil, err
	}

	if err := tx.CreateTask(ctx, fix); err != nil {
		return nil, fmt.Errorf("creating fix task: %w", err)
	}
	return fix, nil
}

// CreateFromSideEffect is invoked by the executor when review_reject
// declares a create_fix_task side effect. It implements
// executor.FixTaskCreator. The rejected task must already carry a
// deliverable_id (the executor checks this before calling in).
func (s *Service) CreateFromSideEffect(ctx context.Context, tx storage.Store, originTask *types.Task, payload map[string]any) error {
	source := types.ReasonSupervisorRequest
	if v, _ := payload["fix_source"].(string); v != "" {
		source = types.ReasonCode(v)
	}
	severity := types.FixSeverityMajor
	if v, _ := payload["severity"].(string); v != "" {
		severity = types.FixSeverity(v)
	}
	minutes, _ := payload["minutes_spent"].(int)
	assignee, _ := payload["assign_to"].(string)

	_, err := s.createFix(ctx, tx, originTask.TenantID, originTask.ProjectID, originTask.DeliverableID,
		assignee, source, severity, minutes, originTask.ID, "")
	return err
}

// CreateFromTask raises a fix task directly against an existing work
// task, outside of any in-flight transition (e.g. an operator files a
// defect report against a task that has already moved on). The task
// must already carry a deliverable_id.
func (s *Service) CreateFromTask(ctx context.Context, store storage.Store, originTask *types.Task, assigneeID string, reason types.ReasonCode) (*types.Task, error) {
	var fix *types.Task
	err := store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		f, err := s.createFix(ctx, tx, originTask.TenantID, originTask.ProjectID, originTask.DeliverableID,
			assigneeID, reason, types.FixSeverityMajor, 0, originTask.ID, "")
		fix = f
		return err
	})
	return fix, err
}

// CreateFromDeliverable raises a fix task directly against a
// deliverable, with no originating task in context.
func (s *Service) CreateFromDeliverable(ctx context.Context, store storage.Store, deliverable *types.Deliverable, assigneeID string, reason types.ReasonCode) (*types.Task, error) {
	var fix *types.Task
	err := store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		f, err := s.createFix(ctx, tx, deliverable.TenantID, deliverable.ProjectID, deliverable.ID,
			assigneeID, reason, types.FixSeverityMajor, 0, "", "")
		fix = f
		return err
	})
	return fix, err
}

// CreateFromQcRejection is called by internal/qc when an inspection
// rejects a deliverable. It both marks the deliverable rejected and
// raises the corrective task in the same transaction, recording the
// inspection that triggered it (I6: fix_source=qc_reject requires a
// non-empty qc_inspection_id).
func (s *Service) CreateFromQcRejection(ctx context.Context, store storage.Store, deliverable *types.Deliverable, qcInspectionID, assigneeID string) (*types.Task, error) {
	var fix *types.Task
	err := store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		if err := tx.UpdateDeliverableQcStatus(ctx, deliverable.ID, types.QcReject); err != nil {
			return fmt.Errorf("marking deliverable rejected: %w", err)
		}
		f, err := s.createFix(ctx, tx, deliverable.TenantID, deliverable.ProjectID, deliverable.ID,
			assigneeID, types.ReasonQcReject, types.FixSeverityMajor, 0, "", qcInspectionID)
		fix = f
		return err
	})
	return fix, err
}
