// Package qc implements the QC decision path: recording an
// inspector's pass/reject decision against a deliverable, and, on
// rejection, coupling that decision to the creation of a corrective
// fix task via internal/fixtask.
package qc

import (
	"context"
	"fmt"
	"time"

	"github.com/ironworks-mfg/taskcore/internal/storage"
	"github.com/ironworks-mfg/taskcore/internal/types"
)

// FixRaiser is the narrow view of fixtask.Service the QC path needs.
type FixRaiser interface {
	CreateFromQcRejection(ctx context.Context, store storage.Store, deliverable *types.Deliverable, qcInspectionID, assigneeID string) (*types.Task, error)
}

// Service records inspections and drives the reject-to-fix-task path.
type Service struct {
	store   storage.Store
	fixtask FixRaiser
	newID   func() string
	now     func() time.Time
}

// New constructs a qc.Service.
func New(store storage.Store, fixtask FixRaiser, newID func() string) *Service {
	return &Service{store: store, fixtask: fixtask, newID: newID, now: time.Now}
}

// RecordInspection records inspectorID's decision against deliverableID.
// On Reject, it additionally raises a fix task assigned to
// reassignTo (an empty reassignTo leaves it unassigned, in available
// status) and returns the
// fix task alongside the inspection outcome; on Pass, the returned
// task is nil.
func (s *Service) RecordInspection(ctx context.Context, deliverableID, inspectorID string, decision types.QcDecision, reasonCode types.ReasonCode, reassignTo string) (*types.QcInspection, *types.Task, error) {
	if decision != types.QcPass && decision != types.QcReject {
		return nil, nil, fmt.Errorf("qc: %w: unknown decision %q", types.ErrValidation, decision)
	}

	deliverable, err := s.store.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return nil, nil, err
	}

	insp := &types.QcInspection{
		ID:            s.newID(),
		DeliverableID: deliverableID,
		InspectorID:   inspectorID,
		Decision:      decision,
		ReasonCode:    reasonCode,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.RecordInspection(ctx, insp); err != nil {
		return nil, nil, fmt.Errorf("recording inspection: %w", err)
	}

	if decision == types.QcPass {
		if err := s.store.UpdateDeliverableQcStatus(ctx, deliverableID, types.QcPass); err != nil {
			return nil, nil, fmt.Errorf("marking deliverable passed: %w", err)
		}
		return insp, nil, nil
	}

	fix, err := s.fixtask.CreateFromQcRejection(ctx, s.store, deliverable, insp.ID, reassignTo)
	if err != nil {
		return nil, nil, fmt.Errorf("raising fix task for rejection: %w", err)
	}
	return insp, fix, nil
}
