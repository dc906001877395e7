// Package taskcore provides a minimal public API for embedding the
// task transition engine in a larger Go program.
//
// Most callers should reach for the taskctl CLI; this package exists
// for programs that want to drive task transitions directly against
// the same SQLite-backed storage without shelling out.
package taskcore

import (
	"context"

	"github.com/ironworks-mfg/taskcore/internal/executor"
	"github.com/ironworks-mfg/taskcore/internal/fixtask"
	"github.com/ironworks-mfg/taskcore/internal/fsm"
	"github.com/ironworks-mfg/taskcore/internal/qc"
	"github.com/ironworks-mfg/taskcore/internal/routing"
	"github.com/ironworks-mfg/taskcore/internal/storage"
	"github.com/ironworks-mfg/taskcore/internal/storage/sqlite"
	"github.com/ironworks-mfg/taskcore/internal/types"
)

// Store is the interface task storage backends implement.
type Store = storage.Store

// NewSQLiteStorage opens (creating and migrating if necessary) a
// SQLite-backed Store at dbPath.
func NewSQLiteStorage(ctx context.Context, dbPath string) (*sqlite.Storage, error) {
	return sqlite.New(ctx, dbPath)
}

// Core domain types.
type (
	Task           = types.Task
	TaskTransition = types.TaskTransition
	Deliverable    = types.Deliverable
	QcInspection   = types.QcInspection
	WorkKind       = types.WorkKind
	Status         = types.Status
	Action         = types.Action
	ReasonCode     = types.ReasonCode
	FixSeverity    = types.FixSeverity
	QcDecision     = types.QcDecision
)

// WorkKind constants.
const (
	WorkKindWork = types.WorkKindWork
	WorkKindFix  = types.WorkKindFix
)

// Status constants.
const (
	StatusBlocked    = types.StatusBlocked
	StatusAvailable  = types.StatusAvailable
	StatusAssigned   = types.StatusAssigned
	StatusInProgress = types.StatusInProgress
	StatusSubmitted  = types.StatusSubmitted
	StatusDone       = types.StatusDone
	StatusCanceled   = types.StatusCanceled
)

// Action constants.
const (
	ActionUnblock       = types.ActionUnblock
	ActionSelfAssign    = types.ActionSelfAssign
	ActionAssign        = types.ActionAssign
	ActionStart         = types.ActionStart
	ActionSubmit        = types.ActionSubmit
	ActionReviewApprove = types.ActionReviewApprove
	ActionReviewReject  = types.ActionReviewReject
	ActionShiftRelease  = types.ActionShiftRelease
	ActionRecallToPool  = types.ActionRecallToPool
	ActionEscalate      = types.ActionEscalate
	ActionCancel        = types.ActionCancel
)

// ReasonCode constants.
const (
	ReasonQcReject          = types.ReasonQcReject
	ReasonWorkerInitiative  = types.ReasonWorkerInitiative
	ReasonSupervisorRequest = types.ReasonSupervisorRequest
)

// FixSeverity constants.
const (
	FixSeverityMinor    = types.FixSeverityMinor
	FixSeverityMajor    = types.FixSeverityMajor
	FixSeverityCritical = types.FixSeverityCritical
)

// QcDecision constants.
const (
	QcPass   = types.QcPass
	QcReject = types.QcReject
)

// Error sentinels, safe to compare against with errors.Is.
var (
	ErrNotFound             = types.ErrNotFound
	ErrVersionConflict      = types.ErrVersionConflict
	ErrIdempotencyConflict  = types.ErrIdempotencyConflict
	ErrTransitionNotAllowed = types.ErrTransitionNotAllowed
	ErrInvariantViolation   = types.ErrInvariantViolation
	ErrValidation           = types.ErrValidation
	ErrForbidden            = types.ErrForbidden
	ErrUnauthenticated      = types.ErrUnauthenticated
)

// Executor applies one command at a time against a Store, enforcing
// the transition rules, idempotency, and invariants.
type Executor = executor.Executor

// ApplyCommand is the input to Executor.Apply.
type ApplyCommand = executor.ApplyCommand

// NewExecutor builds an Executor. fixtasks is typically produced by
// NewFixTaskService; pool may be nil, in which case routing
// consistency is not enforced. newID mints transition record IDs.
func NewExecutor(store Store, fixtasks executor.FixTaskCreator, pool *routing.Pool, newID func() string) *Executor {
	// A nil *routing.Pool must not be passed through directly: wrapped in
	// the invariant.RoutingPool interface it would compare != nil, and
	// RoutingConsistent's nil-pool bypass would never trigger.
	if pool == nil {
		return executor.New(store, fixtasks, nil, newID)
	}
	return executor.New(store, fixtasks, pool, newID)
}

// FixTaskService is the sole constructor of work_kind=fix tasks.
type FixTaskService = fixtask.Service

// NewFixTaskService builds a FixTaskService using newID to mint task IDs.
func NewFixTaskService(newID fixtask.IDGenerator) *FixTaskService {
	return fixtask.New(newID)
}

// QcService couples deliverable inspection outcomes to fix-task creation.
type QcService = qc.Service

// NewQcService builds a QcService.
func NewQcService(store Store, fixRaiser qc.FixRaiser, newID func() string) *QcService {
	return qc.New(store, fixRaiser, newID)
}

// Evaluate runs the pure transition function directly, with no
// storage or side-effect execution — useful for previewing whether a
// command would be allowed.
func Evaluate(current Status, action Action, payload map[string]any) (fsm.Result, error) {
	return fsm.Evaluate(current, action, payload)
}
