package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/tui"
	"github.com/spf13/cobra"
)

var viewTask string

// runTimerView opens the full-screen timer for --task, or for the task
// whose session is still running
func runTimerView(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cur := a.store.CurrentUser()
	if cur == nil {
		fmt.Println("Not logged in. Run 'tasko auth login' or 'tasko auth register' first.")
		return cmd.Help()
	}

	var task model.Task
	if viewTask != "" {
		if task, err = a.findTask(viewTask); err != nil {
			return err
		}
	} else {
		running, ok := runningTask(a.store.TasksForUser(cur.ID), cur.ID)
		if !ok {
			fmt.Println("No timer is running. Use 'tasko --task <task>' or 'tasko timer start <task>'.")
			return cmd.Help()
		}
		task = running
	}

	engine := a.engine(task.ID)
	if _, err := engine.Resume(); err != nil {
		return fmt.Errorf("failed to resume timer: %w", err)
	}
	a.worker.Start()

	m := tui.NewModel(tui.Config{
		Store:  a.store,
		Engine: engine,
		TaskID: task.ID,
		Sync:   a.worker,
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error("Timer view failed", logger.Err(err))
		return fmt.Errorf("timer view: %w", err)
	}
	return nil
}

// runningTask finds the task holding userID's open session
func runningTask(tasks []model.Task, userID string) (model.Task, bool) {
	for _, t := range tasks {
		for _, s := range t.TimeTracking {
			if s.Open() && s.UserID == userID {
				return t, true
			}
		}
	}
	return model.Task{}, false
}
