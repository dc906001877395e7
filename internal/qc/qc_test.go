package qc

import (
	"context"
	"testing"

	"github.com/ironworks-mfg/taskcore/internal/fixtask"
	"github.com/ironworks-mfg/taskcore/internal/storage/memory"
	"github.com/ironworks-mfg/taskcore/internal/types"
)

func sequentialIDs(values ...string) func() string {
	i := 0
	return func() string {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestRecordInspectionPassDoesNotRaiseFix(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	deliverable := &types.Deliverable{ID: "dlv-1", TaskID: "task-1", TenantID: "acme", ProjectID: "line-1", Kind: "weld-seam"}
	store.CreateDeliverable(ctx, deliverable)

	svc := New(store, fixtask.New(sequentialIDs("fix-1")), sequentialIDs("insp-1"))
	insp, fix, err := svc.RecordInspection(ctx, "dlv-1", "inspector-1", types.QcPass, "", "")
	if err != nil {
		t.Fatalf("RecordInspection: %v", err)
	}
	if fix != nil {
		t.Fatalf("expected no fix task on pass, got %v", fix)
	}
	if insp.Decision != types.QcPass {
		t.Fatalf("expected pass decision recorded, got %s", insp.Decision)
	}
}

func TestRecordInspectionRejectRaisesFix(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	deliverable := &types.Deliverable{ID: "dlv-1", TaskID: "task-1", TenantID: "acme", ProjectID: "line-1", Kind: "weld-seam"}
	store.CreateDeliverable(ctx, deliverable)

	svc := New(store, fixtask.New(sequentialIDs("fix-1")), sequentialIDs("insp-1"))
	_, fix, err := svc.RecordInspection(ctx, "dlv-1", "inspector-1", types.QcReject, types.ReasonQcReject, "op-9")
	if err != nil {
		t.Fatalf("RecordInspection: %v", err)
	}
	if fix == nil {
		t.Fatalf("expected a fix task on rejection")
	}
	if fix.DeliverableID != "dlv-1" {
		t.Fatalf("expected deliverable_id dlv-1, got %s", fix.DeliverableID)
	}
	if fix.QcInspectionID != "insp-1" {
		t.Fatalf("expected qc_inspection_id insp-1, got %s", fix.QcInspectionID)
	}
	if fix.FixSource != types.ReasonQcReject {
		t.Fatalf("expected fix_source qc_reject, got %s", fix.FixSource)
	}
	if fix.AssigneeID != "op-9" {
		t.Fatalf("expected reassigned to op-9, got %s", fix.AssigneeID)
	}
}
