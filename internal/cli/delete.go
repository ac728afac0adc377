package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [task]",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

var deleteForce bool

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Do not ask for confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.findTask(args[0])
	if err != nil {
		return err
	}

	if cfg.ConfirmDelete && !deleteForce && !confirm(fmt.Sprintf("Delete task %q?", task.Title)) {
		fmt.Println("Aborted.")
		return nil
	}

	if err := a.store.DeleteTask(task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	fmt.Printf("✓ Deleted: %s\n", task.Title)
	return nil
}
