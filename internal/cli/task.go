package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/existflow/tasko/internal/model"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"t"},
	Short:   "Manage tasks",
}

var showCmd = &cobra.Command{
	Use:   "show [task]",
	Short: "Show task details and time history",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var updateCmd = &cobra.Command{
	Use:   "update [task]",
	Short: "Change task fields",
	Long: `Change one or more fields of a task. Only the flags you pass are changed.

Examples:
  tasko task update 3f2a --status review
  tasko task update "Fix login bug" --assignee ada --due tomorrow
  tasko task update 3f2a --no-due --project design`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

var (
	updTitle       string
	updDescription string
	updStatus      string
	updPriority    string
	updAssignee    string
	updProject     string
	updDue         string
	updNoDue       bool
	updTags        string
	updEstimate    int
	updRate        float64
	updNoRate      bool
)

func init() {
	f := updateCmd.Flags()
	f.StringVar(&updTitle, "title", "", "New title")
	f.StringVar(&updDescription, "description", "", "New description")
	f.StringVarP(&updStatus, "status", "s", "", "Status (todo, in-progress, review, testing, reopen, done)")
	f.StringVarP(&updPriority, "priority", "p", "", "Priority (low, medium, high)")
	f.StringVarP(&updAssignee, "assignee", "a", "", "Assignee name, email or id; 'none' unassigns")
	f.StringVarP(&updProject, "project", "P", "", "Move to project")
	f.StringVarP(&updDue, "due", "d", "", "Due date")
	f.BoolVar(&updNoDue, "no-due", false, "Clear the due date")
	f.StringVar(&updTags, "tags", "", "Replace tags (comma separated)")
	f.IntVar(&updEstimate, "estimate", 0, "Time estimate in minutes")
	f.Float64Var(&updRate, "rate", 0, "Hourly rate")
	f.BoolVar(&updNoRate, "no-rate", false, "Clear the hourly rate")

	taskCmd.AddCommand(addCmd)
	taskCmd.AddCommand(listCmd)
	taskCmd.AddCommand(showCmd)
	taskCmd.AddCommand(updateCmd)
	taskCmd.AddCommand(doneCmd)
	taskCmd.AddCommand(deleteCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.findTask(args[0])
	if err != nil {
		return err
	}

	var patch model.TaskPatch
	f := cmd.Flags()
	if f.Changed("title") {
		patch.Title = model.Ptr(updTitle)
	}
	if f.Changed("description") {
		patch.Description = model.Ptr(updDescription)
	}
	if f.Changed("status") {
		st, err := parseStatus(updStatus)
		if err != nil {
			return err
		}
		patch.Status = &st
	}
	if f.Changed("priority") {
		p, err := parsePriority(updPriority)
		if err != nil {
			return err
		}
		patch.Priority = &p
	}
	if f.Changed("assignee") {
		id := ""
		if !strings.EqualFold(updAssignee, "none") {
			u, err := a.findUser(updAssignee)
			if err != nil {
				return err
			}
			id = u.ID
		}
		patch.AssigneeID = &id
	}
	if f.Changed("project") {
		p, err := a.findProject(updProject)
		if err != nil {
			return err
		}
		patch.ProjectID = &p.ID
	}
	switch {
	case updNoDue:
		patch.ClearDueDate = true
	case f.Changed("due"):
		due, err := parseDue(updDue, time.Now())
		if err != nil {
			return err
		}
		patch.DueDate = &due
	}
	if f.Changed("tags") {
		tags := parseTags(updTags)
		patch.Tags = &tags
	}
	if f.Changed("estimate") {
		patch.TimeEstimate = model.Ptr(updEstimate)
	}
	switch {
	case updNoRate:
		patch.ClearHourlyRate = true
	case f.Changed("rate"):
		patch.HourlyRate = model.Ptr(updRate)
	}

	updated, err := a.store.UpdateTask(task.ID, patch)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	fmt.Printf("✓ Updated: %s [%s]\n", updated.Title, updated.Status)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.findTask(args[0])
	if err != nil {
		return err
	}
	now := time.Now()

	fmt.Printf("\n%s\n%s\n", task.Title, strings.Repeat("─", 60))
	fmt.Printf("ID:          %s\n", task.ID)
	fmt.Printf("Status:      %s\n", task.Status)
	fmt.Printf("Priority:    %s\n", task.Priority)
	if p, ok := a.store.Project(task.ProjectID); ok {
		fmt.Printf("Project:     %s\n", p.Name)
	}
	fmt.Printf("Assignee:    %s\n", a.userName(task.AssigneeID, "Unassigned"))
	fmt.Printf("Created by:  %s\n", a.userName(task.CreatedByID, "Unknown"))
	if task.DueDate != nil {
		fmt.Printf("Due:         %s (%s)\n", task.DueDate.Format("Mon Jan 2, 2006"), formatDue(task.DueDate, now))
	}
	if len(task.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(task.Tags, ", "))
	}
	if task.Description != "" {
		fmt.Printf("\n%s\n", task.Description)
	}

	fmt.Printf("\nTime spent:  %s", formatMinutes(task.TimeSpent))
	if task.TimeEstimate != nil {
		fmt.Printf(" of %s estimated", formatMinutes(float64(*task.TimeEstimate)))
	}
	fmt.Println()
	if task.HourlyRate != nil {
		fmt.Printf("Cost:        %.2f (at %.2f/h)\n", task.Cost, *task.HourlyRate)
	}
	if len(task.TimeTracking) > 0 {
		fmt.Println()
		printSessions(a, task.TimeTracking, now)
	}
	fmt.Println()
	return nil
}

func (a *app) findTask(ref string) (model.Task, error) {
	return resolve(a.store.State().Tasks, ref, "task",
		func(t model.Task) string { return t.ID },
		func(t model.Task) string { return t.Title })
}

func (a *app) findProject(ref string) (model.Project, error) {
	return resolve(a.store.State().Projects, ref, "project",
		func(p model.Project) string { return p.ID },
		func(p model.Project) string { return p.Name })
}

func (a *app) findUser(ref string) (model.User, error) {
	users := a.store.State().Users
	for _, u := range users {
		if strings.EqualFold(u.Email, ref) {
			return u, nil
		}
	}
	return resolve(users, ref, "user",
		func(u model.User) string { return u.ID },
		func(u model.User) string { return u.Name })
}

func (a *app) userName(id, fallback string) string {
	if id == "" {
		return fallback
	}
	if u, ok := a.store.User(id); ok {
		return u.Name
	}
	return fallback
}
