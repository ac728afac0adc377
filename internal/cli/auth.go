package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/remote"
	"github.com/spf13/cobra"
)

const authTimeout = 30 * time.Second

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
	Long:  `Sign in to the tasko server. Writes are only sent while signed in.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and load your workspace",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the local cache",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account on the server",
	RunE:  runRegister,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

var loginEmail string

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	registerCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	email := loginEmail
	if email == "" {
		email = prompt("Email: ")
	}
	password := promptPassword("Password: ")

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	fmt.Println("🔄 Signing in...")
	profile, err := a.client.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return a.startSession(ctx, profile)
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	name := prompt("Name: ")
	email := loginEmail
	if email == "" {
		email = prompt("Email: ")
	}
	password := promptPassword("Password: ")
	if promptPassword("Confirm Password: ") != password {
		return errors.New("passwords do not match")
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	fmt.Println("🔄 Creating account...")
	profile, err := a.client.Register(ctx, name, email, password)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return a.startSession(ctx, profile)
}

// startSession fills the current-user slot and pulls the workspace
func (a *app) startSession(ctx context.Context, profile remote.ProfileRow) error {
	user := remote.UserFromRow(profile)
	if prev := a.store.CurrentUser(); prev != nil && prev.ID != user.ID {
		logger.Info("Switching user, dropping cached workspace", logger.F("previous", prev.ID))
		a.store.ClearCurrentUser()
	}
	a.store.SetCurrentUser(user)
	fmt.Printf("✅ Signed in as %s (%s)\n", user.Name, user.Role)

	res, err := a.loader.Load(ctx, a.store)
	if err != nil {
		fmt.Printf("⚠️  Could not load workspace: %v\n", err)
		return nil
	}
	fmt.Printf("📥 Loaded %d tasks, %d projects, %d clients\n", res.Tasks, res.Projects, res.Clients)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.client.CurrentSession() == nil {
		fmt.Println("Not logged in.")
		return nil
	}

	pending, _, _ := a.db.Counts()
	if pending > 0 && !confirm(fmt.Sprintf("%d change(s) have not reached the server. Log out anyway?", pending)) {
		fmt.Println("Aborted.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()
	if err := a.client.SignOut(ctx); err != nil {
		logger.Warn("Server sign-out failed", logger.Err(err))
	}

	a.forget = true
	a.store.ClearCurrentUser()
	if err := a.db.ClearSnapshot(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Println("✅ Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sess := a.client.CurrentSession()
	cur := a.store.CurrentUser()
	if sess == nil || cur == nil {
		fmt.Println("Not logged in.")
		return nil
	}

	fmt.Printf("Name:    %s\n", cur.Name)
	fmt.Printf("Email:   %s\n", cur.Email)
	fmt.Printf("Role:    %s\n", cur.Role)
	fmt.Printf("Server:  %s\n", a.client.BaseURL())
	if !sess.ExpiresAt.IsZero() {
		fmt.Printf("Expires: %s\n", sess.ExpiresAt.Local().Format("Jan 2, 2006 15:04"))
	}
	if sess.UserID != cur.ID {
		fmt.Println("⚠️  Session belongs to another user, writes are refused. Log in again.")
	}
	return nil
}
