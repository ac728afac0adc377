package cli

import (
	"fmt"

	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/timer"
	"github.com/spf13/cobra"
)

var doneCmd = &cobra.Command{
	Use:   "done [task...]",
	Short: "Mark tasks as done",
	Long: `Mark one or more tasks as done. A running timer on the task is stopped first.

Examples:
  tasko task done 3f2a
  tasko task done 3f2a 9bc1 --undo`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDone,
}

var doneUndo bool

func init() {
	doneCmd.Flags().BoolVarP(&doneUndo, "undo", "u", false, "Reopen the tasks instead")
}

func runDone(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	status := model.StatusDone
	if doneUndo {
		status = model.StatusReopen
	}

	for _, ref := range args {
		task, err := a.findTask(ref)
		if err != nil {
			fmt.Printf("✗ %v\n", err)
			continue
		}

		if status == model.StatusDone {
			engine := a.engine(task.ID)
			if running, _ := engine.Resume(); running {
				if err := engine.Stop(); err != nil {
					fmt.Printf("✗ %s: failed to stop timer: %v\n", task.Title, err)
					continue
				}
			}
		}

		if _, err := a.store.UpdateTask(task.ID, model.TaskPatch{Status: &status}); err != nil {
			fmt.Printf("✗ %s: %v\n", task.Title, err)
			continue
		}
		if status == model.StatusDone {
			fmt.Printf("✓ Done: %s\n", task.Title)
		} else {
			fmt.Printf("↺ Reopened: %s\n", task.Title)
		}
	}
	return nil
}

func (a *app) engine(taskID string) *timer.Engine {
	return timer.New(a.store, taskID, timer.WithCheckpointEvery(cfg.CheckpointTicks))
}
