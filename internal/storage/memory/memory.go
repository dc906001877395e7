// Package memory implements an in-process Store used by unit tests
// that need realistic transaction semantics without a SQLite file.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ironworks-mfg/taskcore/internal/storage"
	"github.com/ironworks-mfg/taskcore/internal/types"
)

// Storage is a goroutine-safe, in-memory implementation of
// storage.Store. It is not durable; it exists for tests and for
// exercising the executor's transaction contract in isolation.
type Storage struct {
	mu          sync.Mutex
	tasks       map[string]*types.Task
	transitions map[string][]*types.TaskTransition
	// idempotency indexes transitions by (taskID, clientEventID), only
	// for clientEventID != "" — an empty client_event_id is never a
	// dedup key, so repeated no-client-event-id transitions on the same
	// task never collide with one another.
	idempotency map[string]*types.TaskTransition
	// resultVersions guards (task_id, result_row_version) uniqueness
	// for non-escalate transitions, mirroring the sqlite backend's
	// partial unique index.
	resultVersions map[string]map[int64]bool
	deliverables   map[string]*types.Deliverable
	inspections    []*types.QcInspection
	config         map[string]string
}

// New returns an empty in-memory store.
func New() *Storage {
	return &Storage{
		tasks:          make(map[string]*types.Task),
		transitions:    make(map[string][]*types.TaskTransition),
		idempotency:    make(map[string]*types.TaskTransition),
		resultVersions: make(map[string]map[int64]bool),
		deliverables:   make(map[string]*types.Deliverable),
		config:         make(map[string]string),
	}
}

func idemKey(taskID, clientEventID string) string {
	return taskID + "\x00" + clientEventID
}

func (s *Storage) GetTask(ctx context.Context, id string) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (s *Storage) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Task
	for _, t := range s.tasks {
		if filter.TenantID != "" && t.TenantID != filter.TenantID {
			continue
		}
		if filter.ProjectID != "" && t.ProjectID != filter.ProjectID {
			continue
		}
		if filter.AssigneeID != "" && t.AssigneeID != filter.AssigneeID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.WorkKind != "" && t.WorkKind != filter.WorkKind {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Storage) CreateTask(ctx context.Context, t *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[t.ID]; exists {
		return fmt.Errorf("task %s already exists: %w", t.ID, types.ErrInvariantViolation)
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

// UpdateTask persists t's mutable fields, including t.RowVersion,
// verbatim — it performs no optimistic-concurrency check of its own,
// matching the sqlite backend's contract. The executor is responsible
// for having already compared the loaded row_version against the
// caller's expected_row_version within the same transaction.
func (s *Storage) UpdateTask(ctx context.Context, t *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return fmt.Errorf("task %s: %w", t.ID, types.ErrNotFound)
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *Storage) CountActiveAssignments(ctx context.Context, tenantID, assigneeID, excludeTaskID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.ID == excludeTaskID {
			continue
		}
		if t.TenantID != tenantID || t.AssigneeID != assigneeID {
			continue
		}
		if t.ActiveForWIP() {
			n++
		}
	}
	return n, nil
}

func (s *Storage) AppendTransition(ctx context.Context, tr *types.TaskTransition) (*types.TaskTransition, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tr.ClientEventID != "" {
		key := idemKey(tr.TaskID, tr.ClientEventID)
		if existing, ok := s.idempotency[key]; ok {
			cp := *existing
			return &cp, false, nil
		}
	}

	if tr.Action != types.ActionEscalate {
		seen := s.resultVersions[tr.TaskID]
		if seen == nil {
			seen = make(map[int64]bool)
			s.resultVersions[tr.TaskID] = seen
		}
		if seen[tr.ResultRowVersion] {
			return nil, false, fmt.Errorf("task %s: concurrent writers raced on row_version %d: %w",
				tr.TaskID, tr.ResultRowVersion, types.ErrVersionConflict)
		}
		seen[tr.ResultRowVersion] = true
	}

	cp := *tr
	s.transitions[tr.TaskID] = append(s.transitions[tr.TaskID], &cp)
	if tr.ClientEventID != "" {
		s.idempotency[idemKey(tr.TaskID, tr.ClientEventID)] = &cp
	}
	return nil, true, nil
}

func (s *Storage) GetTransitionByClientEventID(ctx context.Context, taskID, clientEventID string) (*types.TaskTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clientEventID == "" {
		return nil, fmt.Errorf("transition: %w", types.ErrNotFound)
	}
	existing, ok := s.idempotency[idemKey(taskID, clientEventID)]
	if !ok {
		return nil, fmt.Errorf("transition: %w", types.ErrNotFound)
	}
	cp := *existing
	return &cp, nil
}

func (s *Storage) ListTransitions(ctx context.Context, taskID string) ([]*types.TaskTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.transitions[taskID]
	out := make([]*types.TaskTransition, len(src))
	for i, tr := range src {
		cp := *tr
		out[i] = &cp
	}
	return out, nil
}

func (s *Storage) CreateDeliverable(ctx context.Context, d *types.Deliverable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.deliverables[d.ID]; exists {
		return fmt.Errorf("deliverable %s already exists: %w", d.ID, types.ErrInvariantViolation)
	}
	cp := *d
	s.deliverables[d.ID] = &cp
	return nil
}

func (s *Storage) GetDeliverable(ctx context.Context, id string) (*types.Deliverable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliverables[id]
	if !ok {
		return nil, fmt.Errorf("deliverable %s: %w", id, types.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (s *Storage) UpdateDeliverableQcStatus(ctx context.Context, id string, status types.QcDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliverables[id]
	if !ok {
		return fmt.Errorf("deliverable %s: %w", id, types.ErrNotFound)
	}
	d.QcStatus = status
	return nil
}

func (s *Storage) RecordInspection(ctx context.Context, insp *types.QcInspection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *insp
	s.inspections = append(s.inspections, &cp)
	return nil
}

func (s *Storage) SetConfig(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config[key] = value
	return nil
}

func (s *Storage) GetConfig(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config[key], nil
}

// WithTx runs fn against the same store. The in-memory backend has no
// real transaction log, so failures are not rolled back automatically;
// tests that need rollback semantics should exercise the sqlite
// backend instead. This is adequate for exercising executor control
// flow, which is the only thing unit tests use it for.
func (s *Storage) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	return fn(ctx, s)
}

func (s *Storage) Close() error { return nil }

var _ storage.Store = (*Storage)(nil)
