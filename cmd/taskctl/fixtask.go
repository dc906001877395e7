package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ironworks-mfg/taskcore/internal/types"
)

var fixtaskCmd = &cobra.Command{
	Use:   "fixtask",
	Short: "Raise corrective fix tasks",
}

var (
	fixOriginTaskID string
	fixAssigneeID   string
	fixReasonCode   string
)

var fixtaskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Raise a fix task against an existing work task",
	Long: `Raise a fix task against an existing work task.

Run with no flags to fill in the origin task, assignee, and reason
through an interactive form; pass all three flags to run
non-interactively (e.g. from a script).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fixOriginTaskID == "" || fixAssigneeID == "" || fixReasonCode == "" {
			if err := runFixtaskForm(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Println("aborted")
					return nil
				}
				return err
			}
		}

		origin, err := store.GetTask(rootCtx, fixOriginTaskID)
		if err != nil {
			return fmt.Errorf("getting origin task %s: %w", fixOriginTaskID, err)
		}

		fix, err := fixtasks.CreateFromTask(rootCtx, store, origin, fixAssigneeID, types.ReasonCode(fixReasonCode))
		if err != nil {
			return fmt.Errorf("creating fix task: %w", err)
		}

		if jsonOutput {
			outputJSON(fix)
			return nil
		}
		fmt.Printf("created fix task %s (origin %s, assignee %s, reason %s)\n", fix.ID, fixOriginTaskID, fixAssigneeID, fixReasonCode)
		return nil
	},
}

func runFixtaskForm() error {
	reasonOptions := []huh.Option[string]{
		huh.NewOption("QC rejection", string(types.ReasonQcReject)),
		huh.NewOption("Worker initiative", string(types.ReasonWorkerInitiative)),
		huh.NewOption("Supervisor request", string(types.ReasonSupervisorRequest)),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Origin task ID").
				Value(&fixOriginTaskID).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("an origin task ID is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Assignee ID").
				Value(&fixAssigneeID).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("an assignee is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Reason").
				Options(reasonOptions...).
				Value(&fixReasonCode),
		),
	).WithTheme(huh.ThemeDracula())

	return form.Run()
}

func init() {
	fixtaskCreateCmd.Flags().StringVar(&fixOriginTaskID, "origin-task", "", "ID of the task the fix corrects")
	fixtaskCreateCmd.Flags().StringVar(&fixAssigneeID, "assignee", "", "who the fix task is assigned to")
	fixtaskCreateCmd.Flags().StringVar(&fixReasonCode, "reason", "", "qc_reject, worker_initiative, or supervisor_request")

	fixtaskCmd.AddCommand(fixtaskCreateCmd)
}
