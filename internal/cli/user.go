package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/existflow/tasko/internal/model"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage workspace users",
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	RunE:    runUserList,
}

var userRoleCmd = &cobra.Command{
	Use:   "role [user] [admin|member]",
	Short: "Change a user's role (admins only)",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserRole,
}

var userRateCmd = &cobra.Command{
	Use:   "rate [user] [hourly-rate]",
	Short: "Set a user's default hourly rate",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserRate,
}

var userThemeCmd = &cobra.Command{
	Use:   "theme [light|dark|system]",
	Short: "Set your theme preference",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserTheme,
}

var userDeleteCmd = &cobra.Command{
	Use:     "delete [user]",
	Aliases: []string{"rm"},
	Short:   "Remove a user from the local workspace",
	Long: `Remove a user. Users who are signed in, have assigned tasks or belong
to a team are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserDelete,
}

func init() {
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userRoleCmd)
	userCmd.AddCommand(userRateCmd)
	userCmd.AddCommand(userThemeCmd)
	userCmd.AddCommand(userDeleteCmd)
}

func runUserList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	users := a.store.State().Users
	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}
	sortByName(users, func(u model.User) string { return u.Name })

	fmt.Println()
	fmt.Printf("  %-8s  %-20s  %-28s  %-7s  %s\n", "ID", "Name", "Email", "Role", "Rate")
	fmt.Println(strings.Repeat("─", 80))
	for _, u := range users {
		rate := "-"
		if u.HourlyRate != nil {
			rate = strconv.FormatFloat(*u.HourlyRate, 'f', 2, 64)
		}
		fmt.Printf("  %-8s  %-20s  %-28s  %-7s  %s\n", shortID(u.ID), u.Name, u.Email, u.Role, rate)
	}
	fmt.Println()
	return nil
}

func runUserRole(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.store.IsCurrentUserAdmin() {
		return fmt.Errorf("only admins can change roles")
	}
	user, err := a.findUser(args[0])
	if err != nil {
		return err
	}
	role, err := parseRole(args[1])
	if err != nil {
		return err
	}
	if _, err := a.store.SetUserRole(user.ID, role); err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	fmt.Printf("✓ %s is now %s\n", user.Name, role)
	return nil
}

func runUserRate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.findUser(args[0])
	if err != nil {
		return err
	}
	rate, err := strconv.ParseFloat(args[1], 64)
	if err != nil || rate < 0 {
		return fmt.Errorf("invalid hourly rate %q", args[1])
	}
	if _, err := a.store.SetUserHourlyRate(user.ID, rate); err != nil {
		return fmt.Errorf("failed to set rate: %w", err)
	}
	fmt.Printf("✓ %s bills %.2f/h\n", user.Name, rate)
	return nil
}

func runUserTheme(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cur, err := a.requireUser()
	if err != nil {
		return err
	}
	theme, err := parseTheme(args[0])
	if err != nil {
		return err
	}
	if _, err := a.store.SetUserTheme(cur.ID, theme); err != nil {
		return fmt.Errorf("failed to set theme: %w", err)
	}
	fmt.Printf("✓ Theme set to %s\n", theme)
	return nil
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.findUser(args[0])
	if err != nil {
		return err
	}
	if err := a.store.DeleteUser(user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if _, still := a.store.User(user.ID); still {
		fmt.Printf("%s was kept: signed in, assigned to tasks or in a team\n", user.Name)
		return nil
	}
	fmt.Printf("✓ Removed %s\n", user.Name)
	return nil
}
