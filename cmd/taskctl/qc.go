package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironworks-mfg/taskcore/internal/types"
)

var qcCmd = &cobra.Command{
	Use:   "qc",
	Short: "Record QC inspection decisions",
}

var (
	qcDeliverableID string
	qcInspectorID   string
	qcReassignTo    string
)

var qcPassCmd = &cobra.Command{
	Use:   "pass",
	Short: "Record a passing inspection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordInspection(types.QcPass, "")
	},
}

var qcRejectCmd = &cobra.Command{
	Use:   "reject",
	Short: "Record a rejection and raise a fix task",
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordInspection(types.QcReject, types.ReasonQcReject)
	},
}

func recordInspection(decision types.QcDecision, reason types.ReasonCode) error {
	if qcDeliverableID == "" || qcInspectorID == "" {
		return fmt.Errorf("--deliverable and --inspector are required")
	}
	insp, fix, err := qcService.RecordInspection(rootCtx, qcDeliverableID, qcInspectorID, decision, reason, qcReassignTo)
	if err != nil {
		return fmt.Errorf("recording inspection: %w", err)
	}

	if jsonOutput {
		outputJSON(map[string]interface{}{"inspection": insp, "fix_task": fix})
		return nil
	}
	fmt.Printf("recorded %s inspection %s for deliverable %s\n", insp.Decision, insp.ID, qcDeliverableID)
	if fix != nil {
		fmt.Printf("raised fix task %s assigned to %s\n", fix.ID, fix.AssigneeID)
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{qcPassCmd, qcRejectCmd} {
		c.Flags().StringVar(&qcDeliverableID, "deliverable", "", "deliverable ID being inspected")
		c.Flags().StringVar(&qcInspectorID, "inspector", "", "inspector actor ID")
	}
	qcRejectCmd.Flags().StringVar(&qcReassignTo, "reassign-to", "", "assignee for the raised fix task (if omitted, the fix task is created unassigned and available)")

	qcCmd.AddCommand(qcPassCmd, qcRejectCmd)
}
