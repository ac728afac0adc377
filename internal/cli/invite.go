package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/remote"
	"github.com/existflow/tasko/internal/store"
	"github.com/spf13/cobra"
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Invite people to a team or project",
}

var inviteCreateCmd = &cobra.Command{
	Use:   "create [email]",
	Short: "Create an invitation and print its link",
	Long: `Create an invitation valid for 7 days.

Examples:
  tasko invite create ada@example.com --team design
  tasko invite create bob@example.com --project "Website relaunch" --role admin`,
	Args: cobra.ExactArgs(1),
	RunE: runInviteCreate,
}

var inviteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List invitations",
	RunE:    runInviteList,
}

var inviteAcceptCmd = &cobra.Command{
	Use:   "accept [token]",
	Short: "Accept an invitation",
	Args:  cobra.ExactArgs(1),
	RunE:  runInviteAccept,
}

var inviteRevokeCmd = &cobra.Command{
	Use:   "revoke [invitation]",
	Short: "Delete a pending invitation",
	Args:  cobra.ExactArgs(1),
	RunE:  runInviteRevoke,
}

var (
	inviteName    string
	inviteTeam    string
	inviteProject string
	inviteRole    string
)

func init() {
	inviteCreateCmd.Flags().StringVar(&inviteName, "name", "", "Invitee display name")
	inviteCreateCmd.Flags().StringVar(&inviteTeam, "team", "", "Team to join")
	inviteCreateCmd.Flags().StringVar(&inviteProject, "project", "", "Project to join")
	inviteCreateCmd.Flags().StringVar(&inviteRole, "role", "member", "Role (admin, member)")

	inviteCmd.AddCommand(inviteCreateCmd)
	inviteCmd.AddCommand(inviteListCmd)
	inviteCmd.AddCommand(inviteAcceptCmd)
	inviteCmd.AddCommand(inviteRevokeCmd)
}

func runInviteCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.requireUser(); err != nil {
		return err
	}

	role, err := parseRole(inviteRole)
	if err != nil {
		return err
	}
	draft := model.Invitation{Email: args[0], Name: inviteName, Role: role}
	if inviteTeam != "" {
		team, err := a.findTeam(inviteTeam)
		if err != nil {
			return err
		}
		draft.TeamID = team.ID
	}
	if inviteProject != "" {
		p, err := a.findProject(inviteProject)
		if err != nil {
			return err
		}
		draft.ProjectID = p.ID
	}

	inv, err := a.store.CreateInvitation(draft)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	fmt.Printf("✓ Invitation for %s created, expires %s\n", inv.Email, inv.ExpiresAt.Local().Format("Jan 2, 2006"))
	fmt.Printf("  Link: %s/invite/%s\n", strings.TrimRight(cfg.ServerURL, "/"), inv.Token)
	fmt.Printf("  Or:   tasko invite accept %s\n", inv.Token)
	return nil
}

func runInviteList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	invs := a.store.State().Invitations
	if len(invs) == 0 {
		fmt.Println("No invitations.")
		return nil
	}
	now := time.Now()
	for _, inv := range invs {
		status := string(inv.Status)
		if inv.Status == model.InvitationPending && inv.Expired(now) {
			status = string(model.InvitationExpired)
		}
		target := ""
		if t, ok := a.store.Team(inv.TeamID); ok {
			target = "team " + t.Name
		} else if p, ok := a.store.Project(inv.ProjectID); ok {
			target = "project " + p.Name
		}
		fmt.Printf("  %-8s  %-28s  %-7s  %-8s  %s\n", shortID(inv.ID), inv.Email, inv.Role, status, target)
	}
	return nil
}

func runInviteAccept(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.requireUser(); err != nil {
		return fmt.Errorf("%w (register first with 'tasko auth register')", err)
	}

	token := strings.TrimSpace(args[0])
	if i := strings.LastIndex(token, "/invite/"); i >= 0 {
		token = token[i+len("/invite/"):]
	}

	if _, ok := a.store.InvitationByToken(token); !ok {
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()
		row, err := a.client.InvitationByToken(ctx, token)
		if err != nil {
			if rerr, ok := remote.AsError(err); ok && rerr.Status == http.StatusNotFound {
				return errors.New("invitation not found")
			}
			return fmt.Errorf("failed to look up invitation: %w", err)
		}
		invs := append(a.store.State().Invitations, remote.InvitationFromRow(row))
		a.store.ReplaceInvitations(invs)
	}

	user, err := a.store.AcceptInvitation(token)
	switch {
	case errors.Is(err, store.ErrInvitationExpired):
		return errors.New("this invitation has expired, ask for a new one")
	case errors.Is(err, store.ErrInvitationUsed):
		return errors.New("this invitation was already used")
	case err != nil:
		return fmt.Errorf("failed to accept invitation: %w", err)
	}

	fmt.Printf("✓ Welcome %s", user.Name)
	if t, ok := a.store.Team(user.TeamID); ok {
		fmt.Printf(", you joined %s", t.Name)
	}
	fmt.Println()
	return nil
}

func runInviteRevoke(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	inv, err := resolve(a.store.State().Invitations, args[0], "invitation",
		func(i model.Invitation) string { return i.ID },
		func(i model.Invitation) string { return i.Email })
	if err != nil {
		return err
	}
	if err := a.store.DeleteInvitation(inv.ID); err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}
	fmt.Printf("✓ Revoked invitation for %s\n", inv.Email)
	return nil
}
