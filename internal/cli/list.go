package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/existflow/tasko/internal/model"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `List tasks grouped by project.

Examples:
  tasko task list
  tasko task list --project work
  tasko task list --mine --done`,
	RunE: runList,
}

var (
	listProject     string
	listMine        bool
	listAll         bool
	listIncludeDone bool
	listSync        bool
)

func init() {
	listCmd.Flags().StringVarP(&listProject, "project", "P", "", "Filter by project")
	listCmd.Flags().BoolVarP(&listMine, "mine", "m", false, "Only tasks assigned to me")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Show every task, not only the ones you can access")
	listCmd.Flags().BoolVar(&listIncludeDone, "done", false, "Include completed tasks")
	listCmd.Flags().BoolVarP(&listSync, "sync", "s", false, "Pull from the server before listing")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Pull before listing if flag is set
	a.maybePull(listSync)

	tasks := a.store.State().Tasks
	if cur := a.store.CurrentUser(); cur != nil && !listAll {
		tasks = a.store.TasksForUser(cur.ID)
	}

	var projectID string
	if listProject != "" {
		p, err := a.findProject(listProject)
		if err != nil {
			return err
		}
		projectID = p.ID
	}

	tasks = filterTasks(tasks, taskFilter{
		projectID:   projectID,
		assigneeID:  mineID(a, listMine),
		includeDone: listIncludeDone,
	})
	if len(tasks) == 0 {
		fmt.Println("No tasks found. Add one with: tasko task add \"Your task\"")
		return nil
	}

	printTasksByProject(a, tasks, time.Now())
	return nil
}

func mineID(a *app, mine bool) string {
	if !mine {
		return ""
	}
	if cur := a.store.CurrentUser(); cur != nil {
		return cur.ID
	}
	return ""
}

type taskFilter struct {
	projectID   string
	assigneeID  string
	includeDone bool
}

func filterTasks(tasks []model.Task, f taskFilter) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if f.projectID != "" && t.ProjectID != f.projectID {
			continue
		}
		if f.assigneeID != "" && t.AssigneeID != f.assigneeID {
			continue
		}
		if !f.includeDone && t.Status == model.StatusDone {
			continue
		}
		out = append(out, t)
	}
	return out
}

func printTasksByProject(a *app, tasks []model.Task, now time.Time) {
	// Group tasks by project
	byProject := make(map[string][]model.Task)
	var order []model.Project
	for _, t := range tasks {
		if _, seen := byProject[t.ProjectID]; !seen {
			p, ok := a.store.Project(t.ProjectID)
			if !ok {
				p = model.Project{ID: t.ProjectID, Name: t.ProjectID}
			}
			order = append(order, p)
		}
		byProject[t.ProjectID] = append(byProject[t.ProjectID], t)
	}
	sortByName(order, func(p model.Project) string { return p.Name })

	for _, p := range order {
		printTasks(p.Name, byProject[p.ID], now)
	}
}

func printTasks(projectName string, tasks []model.Task, now time.Time) {
	sortTasks(tasks)
	pending := 0
	for _, t := range tasks {
		if t.Status != model.StatusDone {
			pending++
		}
	}

	fmt.Printf("\n📁 %s (%d pending)\n", projectName, pending)
	fmt.Println(strings.Repeat("─", 60))
	for _, t := range tasks {
		fmt.Println(formatTaskLine(t, now))
	}
	fmt.Println()
}

func formatTaskLine(t model.Task, now time.Time) string {
	// Status icon
	icon := "[ ]"
	switch {
	case t.Status == model.StatusDone:
		icon = "[x]"
	case t.TimeStarted != nil:
		icon = "[▶]"
	case t.Status != model.StatusTodo:
		icon = "[~]"
	}

	// Priority indicator
	priority := "  "
	switch t.Priority {
	case model.PriorityHigh:
		priority = "▲ "
	case model.PriorityLow:
		priority = "▽ "
	}

	line := fmt.Sprintf("%s %s %s%s", icon, shortID(t.ID), priority, t.Title)
	if t.Status != model.StatusTodo && t.Status != model.StatusDone {
		line += fmt.Sprintf("  (%s)", t.Status)
	}
	if t.DueDate != nil {
		due := "due " + formatDue(t.DueDate, now)
		if t.IsOverdue(now) {
			due = "⚠ overdue, " + due
		}
		line += "  " + due
	}
	if t.TimeSpent > 0 {
		line += "  ⏱ " + formatMinutes(t.TimeSpent)
	}
	return line
}
