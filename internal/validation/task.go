// Package validation implements composable pre-transition checks
// against a task. Each validator inspects one concern and returns a
// wrapped sentinel error on failure; Chain runs a list of validators
// and stops at the first failure.
package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/ironworks-mfg/taskcore/internal/types"
)

// TaskValidator checks one concern against a task and returns a
// descriptive error if it fails.
type TaskValidator func(ctx context.Context, t *types.Task) error

// Chain runs validators in order, stopping at the first failure.
func Chain(validators ...TaskValidator) TaskValidator {
	return func(ctx context.Context, t *types.Task) error {
		for _, v := range validators {
			if err := v(ctx, t); err != nil {
				return err
			}
		}
		return nil
	}
}

// Exists fails if t is nil, i.e. the task was not found.
func Exists(ctx context.Context, t *types.Task) error {
	if t == nil {
		return fmt.Errorf("task: %w", types.ErrNotFound)
	}
	return nil
}

// NotDone fails once a task has reached a terminal status.
func NotDone(ctx context.Context, t *types.Task) error {
	if t.Status == types.StatusDone || t.Status == types.StatusCanceled {
		return fmt.Errorf("task %s is %s: %w", t.ID, t.Status, types.ErrTransitionNotAllowed)
	}
	return nil
}

// HasStatus fails unless the task is currently in one of want.
func HasStatus(want ...types.Status) TaskValidator {
	return func(ctx context.Context, t *types.Task) error {
		for _, s := range want {
			if t.Status == s {
				return nil
			}
		}
		return fmt.Errorf("task %s has status %s, want one of %v: %w", t.ID, t.Status, want, types.ErrTransitionNotAllowed)
	}
}

// FixContextCoherent enforces I5/I6 coherence for fix tasks: fix_source
// and fix_severity must be set, fix_source=qc_reject iff
// qc_inspection_id is set, at least one origin reference must be
// present, and minutes_spent must be non-negative. Work tasks must
// carry none of these fields.
func FixContextCoherent(ctx context.Context, t *types.Task) error {
	if !t.IsFix() {
		if t.OriginTaskID != "" || t.QcInspectionID != "" || t.FixSource != "" || t.FixSeverity != "" {
			return fmt.Errorf("task %s is work_kind=work but carries fix context: %w", t.ID, types.ErrInvariantViolation)
		}
		return nil
	}
	if t.FixSource == "" || t.FixSeverity == "" {
		return fmt.Errorf("fix task %s missing fix_source or fix_severity: %w", t.ID, types.ErrInvariantViolation)
	}
	if (t.FixSource == types.ReasonQcReject) != (t.QcInspectionID != "") {
		return fmt.Errorf("fix task %s: fix_source=qc_reject must hold iff qc_inspection_id is set: %w", t.ID, types.ErrInvariantViolation)
	}
	if t.OriginTaskID == "" && t.QcInspectionID == "" && t.DeliverableID == "" {
		return fmt.Errorf("fix task %s needs an origin_task_id, qc_inspection_id, or deliverable_id: %w", t.ID, types.ErrInvariantViolation)
	}
	if t.MinutesSpent < 0 {
		return fmt.Errorf("fix task %s has negative minutes_spent: %w", t.ID, types.ErrValidation)
	}
	return nil
}

// AssignmentConsistent fails if the task claims an assignee but is in
// a status that precludes one, or vice versa. blocked/available never
// carry an assignee; assigned/in_progress/submitted always do;
// done/canceled are unconstrained.
func AssignmentConsistent(ctx context.Context, t *types.Task) error {
	hasAssignee := strings.TrimSpace(t.AssigneeID) != ""
	switch t.Status {
	case types.StatusBlocked, types.StatusAvailable:
		if hasAssignee {
			return fmt.Errorf("task %s is %s but has assignee %s: %w", t.ID, t.Status, t.AssigneeID, types.ErrInvariantViolation)
		}
	case types.StatusAssigned, types.StatusInProgress, types.StatusSubmitted:
		if !hasAssignee {
			return fmt.Errorf("task %s is %s but has no assignee: %w", t.ID, t.Status, types.ErrInvariantViolation)
		}
	}
	return nil
}

// TenantProjectSafe fails if tenant or project identifiers are blank,
// which would otherwise allow a task to silently join the wrong
// production line's accounting.
func TenantProjectSafe(ctx context.Context, t *types.Task) error {
	if strings.TrimSpace(t.TenantID) == "" || strings.TrimSpace(t.ProjectID) == "" {
		return fmt.Errorf("task %s missing tenant/project: %w", t.ID, types.ErrValidation)
	}
	return nil
}

// ForTransition is the standard validator chain run before evaluating
// any action against an existing task.
func ForTransition() TaskValidator {
	return Chain(Exists, TenantProjectSafe, AssignmentConsistent, FixContextCoherent)
}
