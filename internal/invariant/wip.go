// Package invariant holds cross-row checks that require a storage
// lookup to evaluate, as opposed to internal/validation's single-task
// checks. These run inside the same transaction as the mutation they
// guard.
package invariant

import (
	"context"
	"fmt"

	"github.com/ironworks-mfg/taskcore/internal/storage"
	"github.com/ironworks-mfg/taskcore/internal/types"
)

// maxActivePerAssignee is the work-in-progress ceiling (I3): within a
// tenant, an assignee may hold at most one task whose status is
// assigned, in_progress, or submitted, work or fix alike.
const maxActivePerAssignee = 1

// WIPUnderLimit fails if assigning candidate to assigneeID would push
// that assignee over the per-tenant active-assignment limit. Must be
// called inside the same transaction that will perform the
// assignment, using a store handle bound to that transaction.
func WIPUnderLimit(ctx context.Context, store storage.Store, candidate *types.Task, assigneeID string) error {
	active, err := store.CountActiveAssignments(ctx, candidate.TenantID, assigneeID, candidate.ID)
	if err != nil {
		return fmt.Errorf("counting active assignments: %w", err)
	}
	if active >= maxActivePerAssignee {
		return fmt.Errorf("assignee %s already has %d active task(s): %w", assigneeID, active, types.ErrInvariantViolation)
	}
	return nil
}

// RoutingConsistent fails if assigneeID is not a member of the
// routing pool registered for the task's tenant and project. Callers
// that assign without consulting internal/routing (e.g. a direct CLI
// override) still pass through this check.
func RoutingConsistent(ctx context.Context, pool RoutingPool, t *types.Task, assigneeID string) error {
	if pool == nil {
		return nil
	}
	ok, err := pool.Member(ctx, t.TenantID, t.ProjectID, assigneeID)
	if err != nil {
		return fmt.Errorf("checking routing pool membership: %w", err)
	}
	if !ok {
		return fmt.Errorf("assignee %s not in routing pool for %s/%s: %w", assigneeID, t.TenantID, t.ProjectID, types.ErrInvariantViolation)
	}
	return nil
}

// RoutingPool is the narrow interface invariant needs from
// internal/routing, kept here to avoid an import cycle between the
// two packages.
type RoutingPool interface {
	Member(ctx context.Context, tenantID, projectID, assigneeID string) (bool, error)
}
