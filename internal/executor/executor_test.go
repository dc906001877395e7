package executor

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/ironworks-mfg/taskcore/internal/storage"
	"github.com/ironworks-mfg/taskcore/internal/storage/memory"
	"github.com/ironworks-mfg/taskcore/internal/types"
)

type fakeFixTaskCreator struct {
	calls int
}

func (f *fakeFixTaskCreator) CreateFromSideEffect(ctx context.Context, tx storage.Store, originTask *types.Task, payload map[string]any) error {
	f.calls++
	return tx.CreateTask(ctx, &types.Task{
		ID:            originTask.ID + "-fix-1",
		TenantID:      originTask.TenantID,
		ProjectID:     originTask.ProjectID,
		DeliverableID: originTask.DeliverableID,
		WorkKind:      types.WorkKindFix,
		Status:        types.StatusAssigned,
		AssigneeID:    originTask.AssigneeID,
		RowVersion:    1,
		OriginTaskID:  originTask.ID,
		FixSource:     types.ReasonSupervisorRequest,
		FixSeverity:   types.FixSeverityMajor,
	})
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}

func newStoreWithTask(t *testing.T, task *types.Task) *memory.Storage {
	t.Helper()
	store := memory.New()
	if err := store.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("seeding task: %v", err)
	}
	return store
}

func TestApplyAssignTransitionsAndBumpsVersion(t *testing.T) {
	task := &types.Task{ID: "task-1", TenantID: "acme", ProjectID: "line-1", WorkKind: types.WorkKindWork, Status: types.StatusAvailable, RowVersion: 1}
	store := newStoreWithTask(t, task)
	exec := New(store, nil, nil, sequentialIDs("tr-"))

	got, err := exec.Apply(context.Background(), ApplyCommand{
		TaskID:             "task-1",
		Action:             types.ActionAssign,
		ExpectedRowVersion: 1,
		ClientEventID:      "evt-1",
		ActorID:            "dispatcher",
		AssigneeID:         "op-1",
		Payload:            map[string]any{"assign_to": "op-1"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Status != types.StatusAssigned {
		t.Fatalf("expected assigned, got %s", got.Status)
	}
	if got.AssigneeID != "op-1" {
		t.Fatalf("expected assignee op-1, got %s", got.AssigneeID)
	}
	if got.RowVersion != 2 {
		t.Fatalf("expected row_version 2, got %d", got.RowVersion)
	}
}

func TestApplyIdempotentReplayDoesNotReapply(t *testing.T) {
	task := &types.Task{ID: "task-1", TenantID: "acme", ProjectID: "line-1", WorkKind: types.WorkKindWork, Status: types.StatusAvailable, RowVersion: 1}
	store := newStoreWithTask(t, task)
	exec := New(store, nil, nil, sequentialIDs("tr-"))
	ctx := context.Background()
	cmd := ApplyCommand{
		TaskID: "task-1", Action: types.ActionAssign, ExpectedRowVersion: 1,
		ClientEventID: "evt-1", ActorID: "dispatcher", AssigneeID: "op-1",
		Payload: map[string]any{"assign_to": "op-1"},
	}

	first, err := exec.Apply(ctx, cmd)
	if err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	second, err := exec.Apply(ctx, cmd)
	if err != nil {
		t.Fatalf("replay Apply: %v", err)
	}
	if second.RowVersion != first.RowVersion {
		t.Fatalf("replay must not mutate again: first version %d, second %d", first.RowVersion, second.RowVersion)
	}
}

func TestApplyIdempotencyConflictOnDivergingRequest(t *testing.T) {
	task := &types.Task{ID: "task-1", TenantID: "acme", ProjectID: "line-1", WorkKind: types.WorkKindWork, Status: types.StatusAvailable, RowVersion: 1}
	store := newStoreWithTask(t, task)
	exec := New(store, nil, nil, sequentialIDs("tr-"))
	ctx := context.Background()

	_, err := exec.Apply(ctx, ApplyCommand{
		TaskID: "task-1", Action: types.ActionAssign, ExpectedRowVersion: 1,
		ClientEventID: "evt-1", ActorID: "dispatcher", AssigneeID: "op-1",
		Payload: map[string]any{"assign_to": "op-1"},
	})
	if err != nil {
		t.Fatalf("first Apply: %v", err)
	}

	_, err = exec.Apply(ctx, ApplyCommand{
		TaskID: "task-1", Action: types.ActionAssign, ExpectedRowVersion: 1,
		ClientEventID: "evt-1", ActorID: "dispatcher", AssigneeID: "op-2",
		Payload: map[string]any{"assign_to": "op-2"},
	})
	if !errors.Is(err, types.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
	}
}

func TestApplyRejectsVersionConflict(t *testing.T) {
	task := &types.Task{ID: "task-1", TenantID: "acme", ProjectID: "line-1", WorkKind: types.WorkKindWork, Status: types.StatusAvailable, RowVersion: 3}
	store := newStoreWithTask(t, task)
	exec := New(store, nil, nil, sequentialIDs("tr-"))

	_, err := exec.Apply(context.Background(), ApplyCommand{
		TaskID: "task-1", Action: types.ActionSelfAssign, ExpectedRowVersion: 1, ActorID: "op-1",
	})
	if !errors.Is(err, types.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestApplyRejectsDisallowedTransition(t *testing.T) {
	task := &types.Task{ID: "task-1", TenantID: "acme", ProjectID: "line-1", WorkKind: types.WorkKindWork, Status: types.StatusDone, AssigneeID: "op-1", RowVersion: 1}
	store := newStoreWithTask(t, task)
	exec := New(store, nil, nil, sequentialIDs("tr-"))

	_, err := exec.Apply(context.Background(), ApplyCommand{TaskID: "task-1", Action: types.ActionStart, ExpectedRowVersion: 1, ClientEventID: "evt-1", ActorID: "op-1"})
	if !errors.Is(err, types.ErrTransitionNotAllowed) {
		t.Fatalf("expected ErrTransitionNotAllowed, got %v", err)
	}
}

func TestApplyEnforcesWipLimit(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	existing := &types.Task{ID: "task-1", TenantID: "acme", ProjectID: "line-1", WorkKind: types.WorkKindWork, Status: types.StatusAssigned, AssigneeID: "op-1", RowVersion: 1}
	candidate := &types.Task{ID: "task-2", TenantID: "acme", ProjectID: "line-1", WorkKind: types.WorkKindWork, Status: types.StatusAvailable, RowVersion: 1}
	if err := store.CreateTask(ctx, existing); err != nil {
		t.Fatalf("seed existing: %v", err)
	}
	if err := store.CreateTask(ctx, candidate); err != nil {
		t.Fatalf("seed candidate: %v", err)
	}

	exec := New(store, nil, nil, sequentialIDs("tr-"))
	_, err := exec.Apply(ctx, ApplyCommand{
		TaskID: "task-2", Action: types.ActionAssign, ExpectedRowVersion: 1,
		ClientEventID: "evt-1", ActorID: "dispatcher", AssigneeID: "op-1",
		Payload: map[string]any{"assign_to": "op-1"},
	})
	if !errors.Is(err, types.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation for WIP limit, got %v", err)
	}
}

func TestApplySelfAssignUsesActor(t *testing.T) {
	task := &types.Task{ID: "task-1", TenantID: "acme", ProjectID: "line-1", WorkKind: types.WorkKindWork, Status: types.StatusAvailable, RowVersion: 1}
	store := newStoreWithTask(t, task)
	exec := New(store, nil, nil, sequentialIDs("tr-"))

	got, err := exec.Apply(context.Background(), ApplyCommand{
		TaskID: "task-1", Action: types.ActionSelfAssign, ExpectedRowVersion: 1, ActorID: "op-1",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.AssigneeID != "op-1" {
		t.Fatalf("expected self-assign to assign the actor, got %s", got.AssigneeID)
	}
}

func TestApplyEscalateDoesNotBumpVersionOrStatus(t *testing.T) {
	task := &types.Task{ID: "task-1", TenantID: "acme", ProjectID: "line-1", WorkKind: types.WorkKindWork, Status: types.StatusInProgress, AssigneeID: "op-1", RowVersion: 4}
	store := newStoreWithTask(t, task)
	exec := New(store, nil, nil, sequentialIDs("tr-"))

	got, err := exec.Apply(context.Background(), ApplyCommand{
		TaskID: "task-1", Action: types.ActionEscalate, ExpectedRowVersion: 4, ActorID: "op-1",
		Payload: map[string]any{"message": "press jammed again"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.RowVersion != 4 {
		t.Fatalf("escalate must not bump row_version, got %d", got.RowVersion)
	}
	if got.Status != types.StatusInProgress {
		t.Fatalf("escalate must not change status, got %s", got.Status)
	}

	// A second escalate at the same row_version must also succeed: it
	// is not blocked by the (task_id, result_row_version) uniqueness
	// that governs ordinary transitions.
	_, err = exec.Apply(context.Background(), ApplyCommand{
		TaskID: "task-1", Action: types.ActionEscalate, ExpectedRowVersion: 4, ActorID: "op-1",
		Payload: map[string]any{"message": "still jammed"},
	})
	if err != nil {
		t.Fatalf("second escalate: %v", err)
	}
}

func TestApplyReviewRejectInvokesFixTaskCreator(t *testing.T) {
	task := &types.Task{
		ID: "task-1", TenantID: "acme", ProjectID: "line-1", DeliverableID: "dlv-1",
		WorkKind: types.WorkKindWork, Status: types.StatusSubmitted, AssigneeID: "op-1", RowVersion: 1,
	}
	store := newStoreWithTask(t, task)
	creator := &fakeFixTaskCreator{}
	exec := New(store, creator, nil, sequentialIDs("tr-"))

	_, err := exec.Apply(context.Background(), ApplyCommand{
		TaskID:             "task-1",
		Action:             types.ActionReviewReject,
		ExpectedRowVersion: 1,
		ClientEventID:      "evt-1",
		ActorID:            "op-2",
		Payload:            map[string]any{"fix_source": "supervisor_request"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if creator.calls != 1 {
		t.Fatalf("expected fix-task creator to be invoked once, got %d", creator.calls)
	}

	fixTask, err := store.GetTask(context.Background(), "task-1-fix-1")
	if err != nil {
		t.Fatalf("expected fix task to have been persisted: %v", err)
	}
	if fixTask.OriginTaskID != "task-1" {
		t.Fatalf("expected fix task origin task-1, got %s", fixTask.OriginTaskID)
	}
}

func TestApplyReviewRejectWithoutDeliverableFails(t *testing.T) {
	task := &types.Task{
		ID: "task-1", TenantID: "acme", ProjectID: "line-1",
		WorkKind: types.WorkKindWork, Status: types.StatusSubmitted, AssigneeID: "op-1", RowVersion: 1,
	}
	store := newStoreWithTask(t, task)
	creator := &fakeFixTaskCreator{}
	exec := New(store, creator, nil, sequentialIDs("tr-"))

	_, err := exec.Apply(context.Background(), ApplyCommand{
		TaskID: "task-1", Action: types.ActionReviewReject, ExpectedRowVersion: 1, ActorID: "op-2",
	})
	if !errors.Is(err, types.ErrTransitionNotAllowed) {
		t.Fatalf("expected ErrTransitionNotAllowed, got %v", err)
	}
}
