package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/tasko/internal/model"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a new task",
	Long: `Add a new task to a project.

Examples:
  tasko task add "Fix login bug"
  tasko task add "Write docs" --project work --priority high
  tasko task add "Call client" --due "next friday" --estimate 30`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addProject     string
	addPriority    string
	addDue         string
	addAssignee    string
	addDescription string
	addTags        string
	addEstimate    int
	addRate        float64
)

func init() {
	addCmd.Flags().StringVarP(&addProject, "project", "P", "", "Project name or id (defaults to the current context)")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "medium", "Priority (low, medium, high)")
	addCmd.Flags().StringVarP(&addDue, "due", "d", "", "Due date (2025-03-10, tomorrow, next friday)")
	addCmd.Flags().StringVarP(&addAssignee, "assignee", "a", "", "Assignee name, email or id")
	addCmd.Flags().StringVar(&addDescription, "description", "", "Task description")
	addCmd.Flags().StringVar(&addTags, "tags", "", "Comma separated tags")
	addCmd.Flags().IntVar(&addEstimate, "estimate", 0, "Time estimate in minutes")
	addCmd.Flags().Float64Var(&addRate, "rate", 0, "Hourly rate for cost tracking")
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.requireUser(); err != nil {
		return err
	}

	project, err := a.defaultProject(addProject)
	if err != nil {
		return err
	}
	priority, err := parsePriority(addPriority)
	if err != nil {
		return err
	}

	draft := model.Task{
		Title:       strings.Join(args, " "),
		Description: addDescription,
		Priority:    priority,
		ProjectID:   project.ID,
		Tags:        parseTags(addTags),
	}
	if addDue != "" {
		due, err := parseDue(addDue, time.Now())
		if err != nil {
			return err
		}
		draft.DueDate = &due
	}
	if addAssignee != "" {
		u, err := a.findUser(addAssignee)
		if err != nil {
			return err
		}
		draft.AssigneeID = u.ID
	}
	if addEstimate > 0 {
		draft.TimeEstimate = model.Ptr(addEstimate)
	}
	if cmd.Flags().Changed("rate") {
		draft.HourlyRate = model.Ptr(addRate)
	}

	task, err := a.store.AddTask(context.Background(), draft)
	if err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}

	fmt.Printf("✓ Added task %s: %s\n", shortID(task.ID), task.Title)
	fmt.Printf("  Project: %s", project.Name)
	if task.DueDate != nil {
		fmt.Printf(" | Due: %s", task.DueDate.Format("Mon Jan 2"))
	}
	fmt.Println()
	return nil
}

// defaultProject resolves ref, falling back to the saved context and then
// to the only project when there is exactly one
func (a *app) defaultProject(ref string) (model.Project, error) {
	if ref == "" {
		ref = GetCurrentContext()
	}
	projects := a.store.State().Projects
	if ref == "" {
		if len(projects) == 1 {
			return projects[0], nil
		}
		return model.Project{}, fmt.Errorf("project required: use --project or 'tasko context set <project>'")
	}
	return a.findProject(ref)
}
