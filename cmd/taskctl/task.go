package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironworks-mfg/taskcore/internal/executor"
	"github.com/ironworks-mfg/taskcore/internal/storage"
	"github.com/ironworks-mfg/taskcore/internal/types"
	"github.com/ironworks-mfg/taskcore/internal/ui"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and transition tasks",
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a single task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := store.GetTask(rootCtx, args[0])
		if err != nil {
			return fmt.Errorf("getting task %s: %w", args[0], err)
		}
		if jsonOutput {
			outputJSON(t)
			return nil
		}
		fmt.Printf("%s  %s  assignee=%s  version=%d\n", t.ID, ui.RenderStatus(string(t.Status)), t.AssigneeID, t.RowVersion)
		return nil
	},
}

var (
	listTenant string
	listStatus string
)

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks matching a filter",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := storage.TaskFilter{TenantID: listTenant}
		if listStatus != "" {
			filter.Status = types.Status(listStatus)
		}
		tasks, err := store.ListTasks(rootCtx, filter)
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		if jsonOutput {
			outputJSON(tasks)
			return nil
		}
		for _, t := range tasks {
			fmt.Printf("%s  %-12s  %s\n", t.ID, ui.RenderStatus(string(t.Status)), t.AssigneeID)
		}
		return nil
	},
}

var (
	transitionActor         string
	transitionAssignee      string
	transitionClientEventID string
	transitionExpectedVer   int64
	transitionMessage       string
)

var taskTransitionCmd = &cobra.Command{
	Use:   "transition <task-id> <action>",
	Short: "Apply a transition to a task",
	Long: `Apply a transition to a task (unblock, self_assign, assign, start, submit,
review_approve, review_reject, shift_release, recall_to_pool, escalate, cancel).

--expected-row-version must match the task's current row_version or the
command fails with a version conflict. Supplying the same
--client-event-id twice replays the original result instead of applying
the command again; omitting it applies the command with no idempotency
protection.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmdActor := transitionActor
		if cmdActor == "" {
			cmdActor = actor
		}
		if cmdActor == "" {
			return fmt.Errorf("an actor is required: pass --actor or set TASKCTL_ACTOR")
		}

		payload := map[string]any{}
		if transitionAssignee != "" {
			payload["assign_to"] = transitionAssignee
		}
		if transitionMessage != "" {
			payload["message"] = transitionMessage
		}

		result, err := exec.Apply(rootCtx, executor.ApplyCommand{
			TaskID:             args[0],
			Action:             types.Action(args[1]),
			ExpectedRowVersion: transitionExpectedVer,
			ClientEventID:      transitionClientEventID,
			ActorID:            cmdActor,
			AssigneeID:         transitionAssignee,
			Payload:            payload,
		})
		if err != nil {
			if executor.IsConflict(err) {
				return fmt.Errorf("transition conflict: %w", err)
			}
			return fmt.Errorf("applying transition: %w", err)
		}
		if jsonOutput {
			outputJSON(result)
			return nil
		}
		fmt.Printf("%s -> %s\n", result.ID, ui.RenderStatus(string(result.Status)))
		return nil
	},
}

func init() {
	taskListCmd.Flags().StringVar(&listTenant, "tenant", "", "filter by tenant ID")
	taskListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")

	taskTransitionCmd.Flags().StringVar(&transitionActor, "actor", "", "actor applying the transition (overrides --actor)")
	taskTransitionCmd.Flags().StringVar(&transitionAssignee, "assignee", "", "assignee, required for the assign action")
	taskTransitionCmd.Flags().Int64Var(&transitionExpectedVer, "expected-row-version", 0, "row_version the caller last observed")
	taskTransitionCmd.Flags().StringVar(&transitionClientEventID, "client-event-id", "", "optional idempotency key for this command")
	taskTransitionCmd.Flags().StringVar(&transitionMessage, "message", "", "message, required for the escalate action")
	_ = taskTransitionCmd.MarkFlagRequired("expected-row-version")

	taskCmd.AddCommand(taskShowCmd, taskListCmd, taskTransitionCmd)
}
