// Package executor implements the transactional apply-one-action
// algorithm: short-circuit a replayed idempotent request, load the
// task, check optimistic concurrency, evaluate the FSM, persist the
// transition and the resulting task mutation atomically, and run any
// declared side effects. It is the only code path permitted to mutate
// a task's status.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ironworks-mfg/taskcore/internal/fingerprint"
	"github.com/ironworks-mfg/taskcore/internal/fsm"
	"github.com/ironworks-mfg/taskcore/internal/invariant"
	"github.com/ironworks-mfg/taskcore/internal/storage"
	"github.com/ironworks-mfg/taskcore/internal/types"
	"github.com/ironworks-mfg/taskcore/internal/validation"
)

// FixTaskCreator is the narrow interface the executor needs from
// internal/fixtask to carry out a create_fix_task side effect. The
// executor depends on this interface rather than on the fixtask
// package itself, so callers and tests can supply any implementation.
type FixTaskCreator interface {
	CreateFromSideEffect(ctx context.Context, tx storage.Store, originTask *types.Task, payload map[string]any) error
}

// Executor applies transition commands against a Store.
type Executor struct {
	store   storage.Store
	fixtask FixTaskCreator
	pool    invariant.RoutingPool
	newID   func() string
	now     func() time.Time
}

// New constructs an Executor. pool may be nil if no routing table is
// configured; RoutingConsistent is then skipped. newID mints transition
// record identifiers.
func New(store storage.Store, fixtask FixTaskCreator, pool invariant.RoutingPool, newID func() string) *Executor {
	return &Executor{store: store, fixtask: fixtask, pool: pool, newID: newID, now: time.Now}
}

// ApplyCommand is one externally-submitted action against a task.
type ApplyCommand struct {
	TaskID string
	Action types.Action

	// ExpectedRowVersion is the row_version the caller last observed.
	// The executor rejects the command with ErrVersionConflict if the
	// task's current row_version differs.
	ExpectedRowVersion int64

	// ClientEventID is an optional idempotency key. When set, a second
	// Apply call with the same TaskID and ClientEventID replays the
	// original result if the request is identical, or fails with
	// ErrIdempotencyConflict if it differs. A transition with no
	// ClientEventID is always applied fresh.
	ClientEventID string

	ActorID string
	Payload map[string]any

	// AssigneeID is only consulted by actions that change assignment
	// (assign); it is ignored otherwise.
	AssigneeID string
}

// Apply runs the full transition algorithm for cmd and returns the
// task's state after the transition.
func (e *Executor) Apply(ctx context.Context, cmd ApplyCommand) (*types.Task, error) {
	payload := cmd.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	fp := fingerprint.Fingerprint(cmd.TaskID, cmd.ActorID, string(cmd.Action), cmd.ExpectedRowVersion, payload)

	var result *types.Task
	err := e.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		// Idempotency short-circuit: if this client_event_id has already
		// been recorded against this task, replay its result (or reject
		// as a conflict) without evaluating anything else.
		if cmd.ClientEventID != "" {
			existing, err := tx.GetTransitionByClientEventID(ctx, cmd.TaskID, cmd.ClientEventID)
			switch {
			case err == nil:
				if existing.Fingerprint != fp {
					return fmt.Errorf("apply: %w: client_event_id %s was already used for a different request", types.ErrIdempotencyConflict, cmd.ClientEventID)
				}
				replayed, err := tx.GetTask(ctx, cmd.TaskID)
				if err != nil {
					return err
				}
				result = replayed
				return nil
			case !errors.Is(err, types.ErrNotFound):
				return fmt.Errorf("checking idempotency: %w", err)
			}
		}

		t, err := tx.GetTask(ctx, cmd.TaskID)
		if err != nil {
			return err
		}

		if err := validation.ForTransition()(ctx, t); err != nil {
			return err
		}

		if t.RowVersion != cmd.ExpectedRowVersion {
			return fmt.Errorf("task %s is at row_version %d, expected %d: %w", t.ID, t.RowVersion, cmd.ExpectedRowVersion, types.ErrVersionConflict)
		}

		evalResult, err := fsm.Evaluate(t.Status, cmd.Action, payload)
		if err != nil {
			return err
		}

		isAssign := cmd.Action == types.ActionAssign || cmd.Action == types.ActionSelfAssign
		assignee := cmd.AssigneeID
		if cmd.Action == types.ActionSelfAssign {
			assignee = cmd.ActorID
		}
		if isAssign {
			if err := invariant.WIPUnderLimit(ctx, tx, t, assignee); err != nil {
				return err
			}
		}
		if cmd.Action == types.ActionAssign {
			if err := invariant.RoutingConsistent(ctx, e.pool, t, assignee); err != nil {
				return err
			}
		}

		// escalate never changes status or row_version (P5): it records
		// a transition row with from_status == to_status and an
		// unchanged result_row_version, and never touches the task row.
		isEscalate := cmd.Action == types.ActionEscalate
		resultRowVersion := t.RowVersion
		if !isEscalate {
			resultRowVersion = t.RowVersion + 1
		}

		tr := &types.TaskTransition{
			ID:                 e.newID(),
			TaskID:             t.ID,
			FromStatus:         t.Status,
			ToStatus:           evalResult.NewStatus,
			Action:             cmd.Action,
			ClientEventID:      cmd.ClientEventID,
			ActorID:            cmd.ActorID,
			Payload:            payload,
			Fingerprint:        fp,
			ExpectedRowVersion: cmd.ExpectedRowVersion,
			ResultRowVersion:   resultRowVersion,
			CreatedAt:          e.now().UTC(),
		}

		// Insert the transition record before mutating the task row. If
		// this insert loses a race against another writer using the
		// same client_event_id, defer to whichever request won it.
		raced, inserted, err := tx.AppendTransition(ctx, tr)
		if err != nil {
			return fmt.Errorf("appending transition: %w", err)
		}
		if !inserted {
			if cmd.ClientEventID == "" || raced.Fingerprint != fp {
				return fmt.Errorf("apply: %w: client_event_id %s was already used for a different request", types.ErrIdempotencyConflict, cmd.ClientEventID)
			}
			replayed, err := tx.GetTask(ctx, cmd.TaskID)
			if err != nil {
				return err
			}
			result = replayed
			return nil
		}

		updated := *t
		if !isEscalate {
			updated.Status = evalResult.NewStatus
			updated.RowVersion = resultRowVersion
			updated.UpdatedAt = tr.CreatedAt
		}
		switch cmd.Action {
		case types.ActionAssign:
			updated.AssigneeID = cmd.AssigneeID
			updated.AssignedAt = tr.CreatedAt
		case types.ActionSelfAssign:
			updated.AssigneeID = cmd.ActorID
			updated.AssignedAt = tr.CreatedAt
		case types.ActionShiftRelease, types.ActionRecallToPool:
			updated.AssigneeID = ""
			updated.AssignedAt = time.Time{}
		}

		if !isEscalate {
			if err := tx.UpdateTask(ctx, &updated); err != nil {
				return fmt.Errorf("updating task: %w", err)
			}
		}

		for _, effect := range evalResult.SideEffects {
			switch effect.Kind {
			case fsm.SideEffectCreateFixTask:
				if t.DeliverableID == "" {
					return fmt.Errorf("apply: %w: %s requires the task to have a deliverable_id to raise a fix task", types.ErrTransitionNotAllowed, cmd.Action)
				}
				if e.fixtask == nil {
					return fmt.Errorf("apply: %w: no fix-task creator configured for create_fix_task effect", types.ErrInvariantViolation)
				}
				if err := e.fixtask.CreateFromSideEffect(ctx, tx, &updated, effect.Payload); err != nil {
					return fmt.Errorf("creating fix task: %w", err)
				}
			case fsm.SideEffectEscalate:
				// Nothing further: the transition row itself is the
				// escalation record.
			}
		}

		result = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IsConflict reports whether err represents a losing optimistic
// concurrency race, distinct from a hard validation failure — callers
// typically retry on this condition and surface anything else.
func IsConflict(err error) bool {
	return errors.Is(err, types.ErrVersionConflict) || errors.Is(err, types.ErrIdempotencyConflict)
}
