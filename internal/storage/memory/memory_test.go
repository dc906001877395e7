package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ironworks-mfg/taskcore/internal/types"
)

func newTestTask(id, tenant, assignee string) *types.Task {
	return &types.Task{
		ID:         id,
		TenantID:   tenant,
		ProjectID:  "line-1",
		WorkKind:   types.WorkKindWork,
		Status:     types.StatusAssigned,
		AssigneeID: assignee,
		RowVersion: 1,
	}
}

func TestCreateAndGetTask(t *testing.T) {
	store := New()
	ctx := context.Background()

	task := newTestTask("task-1", "acme", "op-1")
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, err := store.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.AssigneeID != "op-1" {
		t.Fatalf("expected assignee op-1, got %q", got.AssigneeID)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	store := New()
	_, err := store.GetTask(context.Background(), "missing")
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTaskMissingRowReturnsNotFound(t *testing.T) {
	store := New()
	ctx := context.Background()

	missing := newTestTask("task-1", "acme", "op-1")
	err := store.UpdateTask(ctx, missing)
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTaskPersistsVerbatim(t *testing.T) {
	store := New()
	ctx := context.Background()
	task := newTestTask("task-1", "acme", "op-1")
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	updated := newTestTask("task-1", "acme", "op-1")
	updated.Status = types.StatusInProgress
	updated.RowVersion = 2
	if err := store.UpdateTask(ctx, updated); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	got, err := store.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.RowVersion != 2 {
		t.Fatalf("expected row_version 2, got %d", got.RowVersion)
	}
}

func TestAppendTransitionIdempotent(t *testing.T) {
	store := New()
	ctx := context.Background()

	tr := &types.TaskTransition{
		ID:                 "tr-1",
		TaskID:             "task-1",
		FromStatus:         types.StatusAvailable,
		ToStatus:            types.StatusAssigned,
		Action:             types.ActionAssign,
		ClientEventID:      "evt-1",
		Fingerprint:        "fp-1",
		ExpectedRowVersion: 1,
		ResultRowVersion:   2,
	}

	_, inserted, err := store.AppendTransition(ctx, tr)
	if err != nil {
		t.Fatalf("AppendTransition: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first append to insert")
	}

	existing, inserted, err := store.AppendTransition(ctx, tr)
	if err != nil {
		t.Fatalf("AppendTransition (replay): %v", err)
	}
	if inserted {
		t.Fatalf("expected replay to be rejected as duplicate")
	}
	if existing == nil || existing.ID != "tr-1" {
		t.Fatalf("expected existing transition tr-1, got %v", existing)
	}
}

func TestAppendTransitionRejectsResultVersionCollisionWithNoClientEvent(t *testing.T) {
	store := New()
	ctx := context.Background()

	tr := &types.TaskTransition{
		ID: "tr-1", TaskID: "task-1", FromStatus: types.StatusAvailable, ToStatus: types.StatusAssigned,
		Action: types.ActionAssign, ExpectedRowVersion: 1, ResultRowVersion: 2,
	}
	if _, _, err := store.AppendTransition(ctx, tr); err != nil {
		t.Fatalf("first AppendTransition: %v", err)
	}

	tr2 := *tr
	tr2.ID = "tr-2"
	_, _, err := store.AppendTransition(ctx, &tr2)
	if !errors.Is(err, types.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict on result_row_version collision, got %v", err)
	}
}

func TestAppendTransitionAllowsRepeatedEscalateAtSameVersion(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i, id := range []string{"tr-1", "tr-2"} {
		tr := &types.TaskTransition{
			ID: id, TaskID: "task-1", FromStatus: types.StatusInProgress, ToStatus: types.StatusInProgress,
			Action: types.ActionEscalate, ExpectedRowVersion: 1, ResultRowVersion: 1,
		}
		_, inserted, err := store.AppendTransition(ctx, tr)
		if err != nil {
			t.Fatalf("AppendTransition #%d: %v", i, err)
		}
		if !inserted {
			t.Fatalf("expected escalate #%d to insert", i)
		}
	}
}

func TestGetTransitionByClientEventIDNotFound(t *testing.T) {
	store := New()
	_, err := store.GetTransitionByClientEventID(context.Background(), "task-1", "")
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty client_event_id, got %v", err)
	}
}

func TestCountActiveAssignmentsExcludesOthersAndInactiveStatuses(t *testing.T) {
	store := New()
	ctx := context.Background()

	active := newTestTask("task-1", "acme", "op-1")
	store.CreateTask(ctx, active)

	available := newTestTask("task-2", "acme", "op-1")
	available.Status = types.StatusAvailable
	store.CreateTask(ctx, available)

	n, err := store.CountActiveAssignments(ctx, "acme", "op-1", "")
	if err != nil {
		t.Fatalf("CountActiveAssignments: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 active assignment (available excluded), got %d", n)
	}

	n, err = store.CountActiveAssignments(ctx, "acme", "op-1", "task-1")
	if err != nil {
		t.Fatalf("CountActiveAssignments excluding self: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 when excluding the only active task, got %d", n)
	}
}
