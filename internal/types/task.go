// Package types defines the core domain records shared across the
// task-transition engine: tasks, their transition history, deliverables,
// and QC inspections.
package types

import (
	"errors"
	"time"
)

// WorkKind distinguishes production work from corrective fix work.
// Fix tasks may only be constructed by the fix-task service.
type WorkKind string

const (
	WorkKindWork WorkKind = "work"
	WorkKindFix  WorkKind = "fix"
)

func (k WorkKind) Valid() bool {
	switch k {
	case WorkKindWork, WorkKindFix:
		return true
	}
	return false
}

// Status is a task's lifecycle state.
type Status string

const (
	StatusBlocked    Status = "blocked"
	StatusAvailable  Status = "available"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusDone       Status = "done"
	StatusCanceled   Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusBlocked, StatusAvailable, StatusAssigned, StatusInProgress, StatusSubmitted, StatusDone, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether s is one of the two states a task never
// leaves once reached.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCanceled
}

// Action is a command submitted against a task.
type Action string

const (
	ActionUnblock       Action = "unblock"
	ActionSelfAssign    Action = "self_assign"
	ActionAssign        Action = "assign"
	ActionStart         Action = "start"
	ActionSubmit        Action = "submit"
	ActionReviewApprove Action = "review_approve"
	ActionReviewReject  Action = "review_reject"
	ActionShiftRelease  Action = "shift_release"
	ActionRecallToPool  Action = "recall_to_pool"
	ActionEscalate      Action = "escalate"
	ActionCancel        Action = "cancel"
)

func (a Action) Valid() bool {
	switch a {
	case ActionUnblock, ActionSelfAssign, ActionAssign, ActionStart, ActionSubmit,
		ActionReviewApprove, ActionReviewReject, ActionShiftRelease, ActionRecallToPool,
		ActionEscalate, ActionCancel:
		return true
	}
	return false
}

// FixSeverity classifies how urgently a corrective task must be
// handled. Required on every work_kind=fix task.
type FixSeverity string

const (
	FixSeverityMinor    FixSeverity = "minor"
	FixSeverityMajor    FixSeverity = "major"
	FixSeverityCritical FixSeverity = "critical"
)

func (s FixSeverity) Valid() bool {
	switch s {
	case FixSeverityMinor, FixSeverityMajor, FixSeverityCritical:
		return true
	}
	return false
}

// ReasonCode is a fix task's origin: what kind of event raised it.
type ReasonCode string

const (
	ReasonQcReject          ReasonCode = "qc_reject"
	ReasonWorkerInitiative  ReasonCode = "worker_initiative"
	ReasonSupervisorRequest ReasonCode = "supervisor_request"
)

func (r ReasonCode) Valid() bool {
	switch r {
	case ReasonQcReject, ReasonWorkerInitiative, ReasonSupervisorRequest:
		return true
	}
	return false
}

// Task is a unit of production or corrective work tracked by the engine.
type Task struct {
	ID            string
	TenantID      string
	ProjectID     string
	DeliverableID string // optional: the deliverable this task produces or corrects

	WorkKind   WorkKind
	Status     Status
	AssigneeID string
	AssignedAt time.Time

	// RowVersion implements optimistic concurrency: every mutating
	// transition must supply the row_version it last observed, and the
	// executor rejects stale writers rather than overwrite them silently.
	RowVersion int64

	CreatedAt time.Time
	UpdatedAt time.Time

	// Fix-only fields. Zero-valued for WorkKindWork tasks.
	OriginTaskID   string
	QcInspectionID string
	FixSource      ReasonCode
	FixSeverity    FixSeverity
	MinutesSpent   int
}

func (t *Task) IsFix() bool {
	return t.WorkKind == WorkKindFix
}

// ActiveForWIP reports whether the task counts against its assignee's
// work-in-progress limit (I3): assigned, in_progress, and submitted
// tasks hold a WIP slot; every other status does not.
func (t *Task) ActiveForWIP() bool {
	switch t.Status {
	case StatusAssigned, StatusInProgress, StatusSubmitted:
		return true
	}
	return false
}

// TaskTransition is one append-only row in a task's history.
type TaskTransition struct {
	ID            string
	TaskID        string
	FromStatus    Status
	ToStatus      Status
	Action        Action
	ClientEventID string
	ActorID       string
	Payload       map[string]any

	// Fingerprint is the canonical content hash of the request that
	// produced this row (see internal/fingerprint), stored so a later
	// request sharing ClientEventID can be compared against it without
	// recomputing history.
	Fingerprint string

	// ExpectedRowVersion/ResultRowVersion record the optimistic-
	// concurrency accounting for this transition (I9). For escalate,
	// which never bumps a task's version, ResultRowVersion equals
	// ExpectedRowVersion.
	ExpectedRowVersion int64
	ResultRowVersion   int64

	CreatedAt time.Time
}

// QcDecision is the outcome of an inspection.
type QcDecision string

const (
	QcPass   QcDecision = "pass"
	QcReject QcDecision = "reject"
)

// Deliverable is an artifact of a work task subject to QC inspection.
type Deliverable struct {
	ID        string
	TaskID    string
	TenantID  string
	ProjectID string
	Kind      string
	QcStatus  QcDecision
	CreatedAt time.Time
	DueAt     *time.Time
}

// QcInspection records one inspector decision against a deliverable.
type QcInspection struct {
	ID            string
	DeliverableID string
	InspectorID   string
	Decision      QcDecision
	ReasonCode    ReasonCode
	CreatedAt     time.Time
}

// Error taxonomy. Every condition the engine can surface maps to exactly
// one of these sentinels; wrap with fmt.Errorf("...: %w", ErrX) at the
// point the condition is detected so callers can errors.Is against it.
var (
	ErrNotFound             = errors.New("not found")
	ErrVersionConflict      = errors.New("row version conflict")
	ErrIdempotencyConflict  = errors.New("idempotency conflict")
	ErrTransitionNotAllowed = errors.New("transition not allowed")
	ErrInvariantViolation   = errors.New("invariant violation")
	ErrValidation           = errors.New("validation failed")
	ErrForbidden            = errors.New("forbidden")
	ErrUnauthenticated      = errors.New("unauthenticated")
)
