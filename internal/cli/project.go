package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/existflow/tasko/internal/model"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"p"},
	Short:   "Manage projects",
	Long:    `Create, list, and manage the projects tasks belong to.`,
}

var projectNewCmd = &cobra.Command{
	Use:     "add [name]",
	Aliases: []string{"new"},
	Short:   "Create a new project",
	Long: `Create a new project.

Examples:
  tasko project add "Website relaunch" --client acme --category web-development
  tasko project add "Brand refresh" --team design --rate 90 --budget 12000`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProjectNew,
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects",
	RunE:    runProjectList,
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update [project]",
	Short: "Change project fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectUpdate,
}

var projectDeleteCmd = &cobra.Command{
	Use:     "delete [project]",
	Aliases: []string{"rm"},
	Short:   "Delete a project and its tasks",
	Args:    cobra.ExactArgs(1),
	RunE:    runProjectDelete,
}

var (
	projName        string
	projDescription string
	projTeam        string
	projClient      string
	projCategory    string
	projBudget      float64
	projRate        float64
	projRevenue     float64
	projForce       bool
)

func init() {
	for _, c := range []*cobra.Command{projectNewCmd, projectUpdateCmd} {
		c.Flags().StringVar(&projDescription, "description", "", "Project description")
		c.Flags().StringVar(&projTeam, "team", "", "Owning team name or id")
		c.Flags().StringVar(&projClient, "client", "", "Client name or id; 'none' unlinks")
		c.Flags().StringVar(&projCategory, "category", "", "Category (web-development, mobile-app, design, marketing, seo, ecommerce, consulting)")
		c.Flags().Float64Var(&projBudget, "budget", 0, "Budget")
		c.Flags().Float64Var(&projRate, "rate", 0, "Hourly rate")
		c.Flags().Float64Var(&projRevenue, "revenue", 0, "Revenue")
	}
	projectUpdateCmd.Flags().StringVar(&projName, "name", "", "New name")
	projectDeleteCmd.Flags().BoolVarP(&projForce, "force", "f", false, "Do not ask for confirmation")

	projectCmd.AddCommand(projectNewCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectUpdateCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}

func parseCategory(s string) (model.Category, error) {
	c := model.Category(strings.ToLower(s))
	switch c {
	case model.CategoryWebDevelopment, model.CategoryMobileApp, model.CategoryDesign,
		model.CategoryMarketing, model.CategorySEO, model.CategoryEcommerce, model.CategoryConsulting:
		return c, nil
	}
	return "", fmt.Errorf("invalid category %q", s)
}

func runProjectNew(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	cur, err := a.requireUser()
	if err != nil {
		return err
	}

	draft := model.Project{
		Name:        strings.Join(args, " "),
		Description: projDescription,
		TeamID:      cur.TeamID,
	}
	if ct := a.store.State().CurrentTeam; ct != nil {
		draft.TeamID = ct.ID
	}
	if projTeam != "" {
		team, err := a.findTeam(projTeam)
		if err != nil {
			return err
		}
		draft.TeamID = team.ID
	}
	if projClient != "" {
		c, err := a.findClient(projClient)
		if err != nil {
			return err
		}
		draft.ClientID = c.ID
	}
	if projCategory != "" {
		if draft.Category, err = parseCategory(projCategory); err != nil {
			return err
		}
	}
	f := cmd.Flags()
	if f.Changed("budget") {
		draft.Budget = model.Ptr(projBudget)
	}
	if f.Changed("rate") {
		draft.HourlyRate = model.Ptr(projRate)
	}
	if f.Changed("revenue") {
		draft.Revenue = model.Ptr(projRevenue)
	}

	project, err := a.store.AddProject(context.Background(), draft)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	fmt.Printf("✓ Created project: %s (id: %s)\n", project.Name, shortID(project.ID))
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	projects := a.store.State().Projects
	if cur := a.store.CurrentUser(); cur != nil {
		projects = a.store.ProjectsForUser(cur.ID)
	}
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}
	sortByName(projects, func(p model.Project) string { return p.Name })

	fmt.Println()
	fmt.Printf("  %-8s  %-24s  %-16s  %s\n", "ID", "Name", "Client", "Tasks")
	fmt.Println(strings.Repeat("─", 64))

	current := GetCurrentContext()
	for _, p := range projects {
		pending, total := 0, 0
		for _, id := range p.Tasks {
			if t, ok := a.store.Task(id); ok {
				total++
				if t.Status != model.StatusDone {
					pending++
				}
			}
		}
		client := ""
		if c, ok := a.store.Client(p.ClientID); ok {
			client = c.Name
		}
		marker := "  "
		if p.ID == current {
			marker = "❯ "
		}
		fmt.Printf("%s%-8s  %-24s  %-16s  %d/%d\n", marker, shortID(p.ID), p.Name, client, pending, total)
	}
	fmt.Println()
	return nil
}

func runProjectUpdate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	project, err := a.findProject(args[0])
	if err != nil {
		return err
	}

	var patch model.ProjectPatch
	f := cmd.Flags()
	if f.Changed("name") {
		patch.Name = model.Ptr(projName)
	}
	if f.Changed("description") {
		patch.Description = model.Ptr(projDescription)
	}
	if f.Changed("team") {
		team, err := a.findTeam(projTeam)
		if err != nil {
			return err
		}
		patch.TeamID = &team.ID
	}
	if f.Changed("client") {
		id := ""
		if !strings.EqualFold(projClient, "none") {
			c, err := a.findClient(projClient)
			if err != nil {
				return err
			}
			id = c.ID
		}
		patch.ClientID = &id
	}
	if f.Changed("category") {
		c, err := parseCategory(projCategory)
		if err != nil {
			return err
		}
		patch.Category = &c
	}
	if f.Changed("budget") {
		patch.Budget = model.Ptr(projBudget)
	}
	if f.Changed("rate") {
		patch.HourlyRate = model.Ptr(projRate)
	}
	if f.Changed("revenue") {
		patch.Revenue = model.Ptr(projRevenue)
	}

	updated, err := a.store.UpdateProject(project.ID, patch)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	fmt.Printf("✓ Updated project: %s\n", updated.Name)
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	project, err := a.findProject(args[0])
	if err != nil {
		return err
	}

	if cfg.ConfirmDelete && !projForce &&
		!confirm(fmt.Sprintf("Delete project %q and its %d task(s)?", project.Name, len(project.Tasks))) {
		fmt.Println("Aborted.")
		return nil
	}

	if err := a.store.DeleteProject(project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if GetCurrentContext() == project.ID {
		_ = ClearContext()
	}
	fmt.Printf("✓ Deleted project: %s\n", project.Name)
	return nil
}
