// Package fsm implements the task lifecycle as a pure, stateless
// transition table. It performs no I/O: given a current status, an
// action, and a payload, it returns the resulting status plus any
// side effects the caller must carry out, or reports that the
// transition is not allowed.
package fsm

import (
	"fmt"
	"strings"

	"github.com/ironworks-mfg/taskcore/internal/types"
)

// SideEffectKind names a declarative effect the executor must perform
// after a transition is accepted. The FSM never performs I/O itself;
// it only describes what should happen.
type SideEffectKind string

const (
	SideEffectCreateFixTask SideEffectKind = "create_fix_task"
	SideEffectEscalate      SideEffectKind = "escalate"
)

// SideEffect is a declarative instruction produced alongside a
// transition result.
type SideEffect struct {
	Kind    SideEffectKind
	Payload map[string]any
}

// Result is the outcome of a successful evaluation.
type Result struct {
	NewStatus   types.Status
	SideEffects []SideEffect
}

type transitionKey struct {
	Status types.Status
	Action types.Action
}

type rule struct {
	newStatus types.Status
	// sameStatus overrides newStatus with whatever status the transition
	// was evaluated from. Only escalate uses this: it never changes a
	// task's status.
	sameStatus bool
	// build validates the payload and produces any side effects. nil
	// for rules with no precondition and no side effects.
	build func(payload map[string]any) ([]SideEffect, error)
}

var nonTerminalStatuses = []types.Status{
	types.StatusBlocked,
	types.StatusAvailable,
	types.StatusAssigned,
	types.StatusInProgress,
	types.StatusSubmitted,
}

// table is the declarative set of legal (status, action) -> result
// mappings. escalate and cancel apply uniformly to every non-terminal
// status and are added by a loop in buildTable rather than spelled
// out by hand.
var table = buildTable()

func buildTable() map[transitionKey]rule {
	t := map[transitionKey]rule{
		{types.StatusBlocked, types.ActionUnblock}: {newStatus: types.StatusAvailable},

		{types.StatusAvailable, types.ActionSelfAssign}: {newStatus: types.StatusAssigned},

		{types.StatusAvailable, types.ActionAssign}: {
			newStatus: types.StatusAssigned,
			build:     requirePayloadString("assign_to"),
		},

		{types.StatusAssigned, types.ActionStart}: {newStatus: types.StatusInProgress},

		{types.StatusInProgress, types.ActionSubmit}: {newStatus: types.StatusSubmitted},

		{types.StatusSubmitted, types.ActionReviewApprove}: {newStatus: types.StatusDone},

		{types.StatusSubmitted, types.ActionReviewReject}: {
			newStatus: types.StatusInProgress,
			build: func(payload map[string]any) ([]SideEffect, error) {
				return []SideEffect{{Kind: SideEffectCreateFixTask, Payload: payload}}, nil
			},
		},

		{types.StatusAssigned, types.ActionShiftRelease}:   {newStatus: types.StatusAvailable},
		{types.StatusInProgress, types.ActionShiftRelease}: {newStatus: types.StatusAvailable},

		{types.StatusAssigned, types.ActionRecallToPool}:   {newStatus: types.StatusAvailable},
		{types.StatusInProgress, types.ActionRecallToPool}: {newStatus: types.StatusAvailable},
	}

	for _, s := range nonTerminalStatuses {
		t[transitionKey{s, types.ActionEscalate}] = rule{
			sameStatus: true,
			build: func(payload map[string]any) ([]SideEffect, error) {
				msg, _ := payload["message"].(string)
				if strings.TrimSpace(msg) == "" {
					return nil, fmt.Errorf("escalate: %w: message is required", types.ErrTransitionNotAllowed)
				}
				return []SideEffect{{Kind: SideEffectEscalate, Payload: payload}}, nil
			},
		}
		t[transitionKey{s, types.ActionCancel}] = rule{newStatus: types.StatusCanceled}
	}

	return t
}

func requirePayloadString(key string) func(map[string]any) ([]SideEffect, error) {
	return func(payload map[string]any) ([]SideEffect, error) {
		v, _ := payload[key].(string)
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("%w: %s is required", types.ErrTransitionNotAllowed, key)
		}
		return nil, nil
	}
}

// Evaluate computes the result of applying action to a task currently
// in current, carrying payload. It does not look at any task fields
// beyond what the caller passes in, and it never mutates state.
func Evaluate(current types.Status, action types.Action, payload map[string]any) (Result, error) {
	if !current.Valid() {
		return Result{}, fmt.Errorf("evaluate: %w: unknown status %q", types.ErrValidation, current)
	}
	if !action.Valid() {
		return Result{}, fmt.Errorf("evaluate: %w: unknown action %q", types.ErrValidation, action)
	}

	r, ok := table[transitionKey{Status: current, Action: action}]
	if !ok {
		return Result{}, fmt.Errorf("evaluate: %w: %s is not allowed from %s (allowed: %v)",
			types.ErrTransitionNotAllowed, action, current, Allowed(current))
	}

	var effects []SideEffect
	if r.build != nil {
		built, err := r.build(payload)
		if err != nil {
			return Result{}, err
		}
		effects = built
	}

	newStatus := r.newStatus
	if r.sameStatus {
		newStatus = current
	}

	return Result{NewStatus: newStatus, SideEffects: effects}, nil
}

// Allowed reports the set of actions that are legal from a given
// status, used by read-only callers (e.g. the CLI) to render choices
// without invoking Evaluate speculatively.
func Allowed(current types.Status) []types.Action {
	var actions []types.Action
	for k := range table {
		if k.Status == current {
			actions = append(actions, k.Action)
		}
	}
	return actions
}
