package fsm

import (
	"errors"
	"testing"

	"github.com/ironworks-mfg/taskcore/internal/types"
)

func TestEvaluateAllowedTransition(t *testing.T) {
	r, err := Evaluate(types.StatusAvailable, types.ActionAssign, map[string]any{"assign_to": "op-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.NewStatus != types.StatusAssigned {
		t.Fatalf("expected status %q, got %q", types.StatusAssigned, r.NewStatus)
	}
	if len(r.SideEffects) != 0 {
		t.Fatalf("expected no side effects, got %v", r.SideEffects)
	}
}

func TestEvaluateAssignRequiresAssignTo(t *testing.T) {
	_, err := Evaluate(types.StatusAvailable, types.ActionAssign, nil)
	if !errors.Is(err, types.ErrTransitionNotAllowed) {
		t.Fatalf("expected ErrTransitionNotAllowed, got %v", err)
	}
}

func TestEvaluateDisallowedTransition(t *testing.T) {
	_, err := Evaluate(types.StatusDone, types.ActionStart, nil)
	if !errors.Is(err, types.ErrTransitionNotAllowed) {
		t.Fatalf("expected ErrTransitionNotAllowed, got %v", err)
	}
}

func TestEvaluateReviewRejectProducesCreateFixTaskSideEffect(t *testing.T) {
	payload := map[string]any{"fix_source": "supervisor_request"}
	r, err := Evaluate(types.StatusSubmitted, types.ActionReviewReject, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.NewStatus != types.StatusInProgress {
		t.Fatalf("review_reject must send the task back to in_progress, got %q", r.NewStatus)
	}
	if len(r.SideEffects) != 1 || r.SideEffects[0].Kind != SideEffectCreateFixTask {
		t.Fatalf("expected a create_fix_task side effect, got %v", r.SideEffects)
	}
}

func TestEvaluateEscalateNeverChangesStatus(t *testing.T) {
	for _, s := range nonTerminalStatuses {
		r, err := Evaluate(s, types.ActionEscalate, map[string]any{"message": "line is down"})
		if err != nil {
			t.Fatalf("escalate from %s: %v", s, err)
		}
		if r.NewStatus != s {
			t.Fatalf("escalate must not change status, was %s, got %s", s, r.NewStatus)
		}
		if len(r.SideEffects) != 1 || r.SideEffects[0].Kind != SideEffectEscalate {
			t.Fatalf("expected an escalate side effect from %s, got %v", s, r.SideEffects)
		}
	}
}

func TestEvaluateEscalateRequiresMessage(t *testing.T) {
	_, err := Evaluate(types.StatusInProgress, types.ActionEscalate, map[string]any{"message": "   "})
	if !errors.Is(err, types.ErrTransitionNotAllowed) {
		t.Fatalf("expected ErrTransitionNotAllowed for blank message, got %v", err)
	}
}

func TestEvaluateEscalateNotAllowedFromTerminalStatus(t *testing.T) {
	_, err := Evaluate(types.StatusDone, types.ActionEscalate, map[string]any{"message": "too late"})
	if !errors.Is(err, types.ErrTransitionNotAllowed) {
		t.Fatalf("expected ErrTransitionNotAllowed, got %v", err)
	}
}

func TestEvaluateCancelAllowedFromEveryNonTerminalStatus(t *testing.T) {
	for _, s := range nonTerminalStatuses {
		r, err := Evaluate(s, types.ActionCancel, nil)
		if err != nil {
			t.Fatalf("cancel from %s: %v", s, err)
		}
		if r.NewStatus != types.StatusCanceled {
			t.Fatalf("expected canceled from %s, got %s", s, r.NewStatus)
		}
	}
}

func TestEvaluateUnknownStatus(t *testing.T) {
	_, err := Evaluate(types.Status("bogus"), types.ActionStart, nil)
	if !errors.Is(err, types.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestEvaluateUnknownAction(t *testing.T) {
	_, err := Evaluate(types.StatusAvailable, types.Action("bogus"), nil)
	if !errors.Is(err, types.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAllowedListsEveryOptionFromStatus(t *testing.T) {
	actions := Allowed(types.StatusAssigned)
	want := map[types.Action]bool{
		types.ActionStart:        true,
		types.ActionShiftRelease: true,
		types.ActionRecallToPool: true,
		types.ActionEscalate:     true,
		types.ActionCancel:       true,
	}
	if len(actions) != len(want) {
		t.Fatalf("expected %d actions, got %v", len(want), actions)
	}
	for _, a := range actions {
		if !want[a] {
			t.Fatalf("unexpected action %q allowed from assigned", a)
		}
	}
}
