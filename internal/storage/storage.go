// Package storage defines the abstract persistence contract the
// transition executor and fix-task service depend on. Concrete
// backends (internal/storage/sqlite) implement Store; callers accept
// the interface so executor transaction semantics stay testable
// against a fake without a real database.
package storage

import (
	"context"
	"errors"

	"github.com/ironworks-mfg/taskcore/internal/types"
)

// ErrDBNotInitialized reports a Store used before its schema has been
// migrated to the current version. No backend in this module returns
// it: sqlite.New migrates before returning a Storage.
var ErrDBNotInitialized = errors.New("database not initialized")

// TaskFilter narrows ListTasks results.
type TaskFilter struct {
	TenantID   string
	ProjectID  string
	AssigneeID string
	Status     types.Status
	WorkKind   types.WorkKind
}

// Store is the full persistence contract for the task-transition
// engine: task CRUD under optimistic concurrency, append-only
// transition history, idempotency bookkeeping, deliverables, and QC
// inspections.
type Store interface {
	// GetTask returns the current row for id, or ErrNotFound.
	GetTask(ctx context.Context, id string) (*types.Task, error)

	// ListTasks returns tasks matching filter.
	ListTasks(ctx context.Context, filter TaskFilter) ([]*types.Task, error)

	// CreateTask inserts a brand new task row. Fails with
	// ErrInvariantViolation if a row with the same ID already exists.
	CreateTask(ctx context.Context, t *types.Task) error

	// UpdateTask persists t's mutable fields verbatim, including
	// t.RowVersion. The caller (the executor) is responsible for
	// computing the new row version and for having already verified it
	// against the version it loaded; UpdateTask itself performs no
	// optimistic-concurrency check.
	UpdateTask(ctx context.Context, t *types.Task) error

	// CountActiveAssignments counts tasks held by assigneeID within
	// tenantID whose status is assigned, in_progress, or submitted (I3),
	// excluding excludeTaskID (the task being transitioned, so
	// reassigning it to itself does not self-count).
	CountActiveAssignments(ctx context.Context, tenantID, assigneeID, excludeTaskID string) (int, error)

	// AppendTransition inserts a transition record. If a row already
	// exists for (task_id, client_event_id) — only possible when
	// client_event_id is non-empty — it returns that existing record
	// with inserted=false instead of erroring, so callers can
	// short-circuit idempotent replays.
	AppendTransition(ctx context.Context, tr *types.TaskTransition) (existing *types.TaskTransition, inserted bool, err error)

	// GetTransitionByClientEventID looks up a previously recorded
	// transition for (taskID, clientEventID). Returns ErrNotFound if
	// none exists. Used by the executor to short-circuit idempotent
	// retries before evaluating the FSM.
	GetTransitionByClientEventID(ctx context.Context, taskID, clientEventID string) (*types.TaskTransition, error)

	// ListTransitions returns a task's transition history in
	// chronological order.
	ListTransitions(ctx context.Context, taskID string) ([]*types.TaskTransition, error)

	// CreateDeliverable inserts a new deliverable row.
	CreateDeliverable(ctx context.Context, d *types.Deliverable) error

	// GetDeliverable returns a deliverable by ID, or ErrNotFound.
	GetDeliverable(ctx context.Context, id string) (*types.Deliverable, error)

	// UpdateDeliverableQcStatus sets a deliverable's QC status.
	UpdateDeliverableQcStatus(ctx context.Context, id string, status types.QcDecision) error

	// RecordInspection appends a QC inspection record.
	RecordInspection(ctx context.Context, insp *types.QcInspection) error

	// SetConfig/GetConfig persist small key-value operator settings
	// (e.g. tenant defaults) alongside task data.
	SetConfig(ctx context.Context, key, value string) error
	GetConfig(ctx context.Context, key string) (string, error)

	// WithTx runs fn against a Store bound to a single transaction,
	// committing on success and rolling back if fn returns an error or
	// panics.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// Close releases underlying resources.
	Close() error
}

// Config describes how to connect to a backing store. Only the
// sqlite backend is implemented; the remaining fields mirror what a
// future networked backend would also need.
type Config struct {
	Backend  string
	Path     string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}
