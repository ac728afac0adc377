package cli

import (
	"fmt"
	"strings"

	"github.com/existflow/tasko/internal/model"
	"github.com/spf13/cobra"
)

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manage teams",
	Long: `Manage teams and their members. 'tasko team use' scopes project
creation to a team.`,
}

var teamAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a team",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTeamAdd,
}

var teamListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List teams and members",
	RunE:    runTeamList,
}

var teamDeleteCmd = &cobra.Command{
	Use:     "delete [team]",
	Aliases: []string{"rm"},
	Short:   "Delete a team",
	Args:    cobra.ExactArgs(1),
	RunE:    runTeamDelete,
}

var teamJoinCmd = &cobra.Command{
	Use:   "join [team] [user]",
	Short: "Add a user to a team",
	Args:  cobra.ExactArgs(2),
	RunE:  runTeamJoin,
}

var teamLeaveCmd = &cobra.Command{
	Use:   "leave [team] [user]",
	Short: "Remove a user from a team",
	Args:  cobra.ExactArgs(2),
	RunE:  runTeamLeave,
}

var teamUseCmd = &cobra.Command{
	Use:   "use [team]",
	Short: "Select the current team; 'none' clears it",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeamUse,
}

var teamDescription string

func init() {
	teamAddCmd.Flags().StringVar(&teamDescription, "description", "", "Team description")

	teamCmd.AddCommand(teamAddCmd)
	teamCmd.AddCommand(teamListCmd)
	teamCmd.AddCommand(teamDeleteCmd)
	teamCmd.AddCommand(teamJoinCmd)
	teamCmd.AddCommand(teamLeaveCmd)
	teamCmd.AddCommand(teamUseCmd)
}

func runTeamAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.requireUser(); err != nil {
		return err
	}

	team, err := a.store.AddTeam(model.Team{
		Name:        strings.Join(args, " "),
		Description: teamDescription,
	})
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	fmt.Printf("✓ Created team: %s (id: %s)\n", team.Name, shortID(team.ID))
	return nil
}

func runTeamList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st := a.store.State()
	if len(st.Teams) == 0 {
		fmt.Println("No teams found.")
		return nil
	}
	teams := st.Teams
	sortByName(teams, func(t model.Team) string { return t.Name })

	for _, t := range teams {
		marker := "  "
		if st.CurrentTeam != nil && st.CurrentTeam.ID == t.ID {
			marker = "❯ "
		}
		fmt.Printf("\n%s👥 %s (%s)\n", marker, t.Name, shortID(t.ID))
		if t.Description != "" {
			fmt.Printf("   %s\n", t.Description)
		}
		for _, m := range t.Members {
			fmt.Printf("   - %s <%s> %s\n", m.Name, m.Email, m.Role)
		}
	}
	fmt.Println()
	return nil
}

func runTeamDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	team, err := a.findTeam(args[0])
	if err != nil {
		return err
	}
	if cfg.ConfirmDelete && !confirm(fmt.Sprintf("Delete team %q?", team.Name)) {
		fmt.Println("Aborted.")
		return nil
	}
	if err := a.store.DeleteTeam(team.ID); err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	fmt.Printf("✓ Deleted team: %s\n", team.Name)
	return nil
}

func runTeamJoin(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	team, user, err := a.teamAndUser(args[0], args[1])
	if err != nil {
		return err
	}
	if _, err := a.store.AddMemberToTeam(team.ID, user.ID); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	fmt.Printf("✓ %s joined %s\n", user.Name, team.Name)
	return nil
}

func runTeamLeave(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	team, user, err := a.teamAndUser(args[0], args[1])
	if err != nil {
		return err
	}
	if _, err := a.store.RemoveMemberFromTeam(team.ID, user.ID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	fmt.Printf("✓ %s left %s\n", user.Name, team.Name)
	return nil
}

func runTeamUse(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if strings.EqualFold(args[0], "none") {
		a.store.SetCurrentTeam(nil)
		fmt.Println("✓ No team selected")
		return nil
	}
	team, err := a.findTeam(args[0])
	if err != nil {
		return err
	}
	a.store.SetCurrentTeam(&team)
	fmt.Printf("✓ Using team %s\n", team.Name)
	return nil
}

func (a *app) teamAndUser(teamRef, userRef string) (model.Team, model.User, error) {
	team, err := a.findTeam(teamRef)
	if err != nil {
		return model.Team{}, model.User{}, err
	}
	user, err := a.findUser(userRef)
	if err != nil {
		return model.Team{}, model.User{}, err
	}
	return team, user, nil
}

func (a *app) findTeam(ref string) (model.Team, error) {
	return resolve(a.store.State().Teams, ref, "team",
		func(t model.Team) string { return t.ID },
		func(t model.Team) string { return t.Name })
}
