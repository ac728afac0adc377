package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/existflow/tasko/internal/model"
	"github.com/spf13/cobra"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Manage clients",
}

var clientAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a client",
	Long: `Add a client that projects can be billed to.

Examples:
  tasko client add "Acme" --email ops@acme.test --company "Acme Corp"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClientAdd,
}

var clientListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List clients",
	RunE:    runClientList,
}

var clientUpdateCmd = &cobra.Command{
	Use:   "update [client]",
	Short: "Change client fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientUpdate,
}

var clientDeleteCmd = &cobra.Command{
	Use:     "delete [client]",
	Aliases: []string{"rm"},
	Short:   "Delete a client and unlink its projects",
	Args:    cobra.ExactArgs(1),
	RunE:    runClientDelete,
}

var (
	clientName    string
	clientEmail   string
	clientPhone   string
	clientCompany string
	clientStatus  string
	clientForce   bool
)

func init() {
	for _, c := range []*cobra.Command{clientAddCmd, clientUpdateCmd} {
		c.Flags().StringVar(&clientEmail, "email", "", "Contact email")
		c.Flags().StringVar(&clientPhone, "phone", "", "Phone number")
		c.Flags().StringVar(&clientCompany, "company", "", "Company name")
		c.Flags().StringVar(&clientStatus, "status", "", "active or inactive")
	}
	clientUpdateCmd.Flags().StringVar(&clientName, "name", "", "New name")
	clientDeleteCmd.Flags().BoolVarP(&clientForce, "force", "f", false, "Do not ask for confirmation")

	clientCmd.AddCommand(clientAddCmd)
	clientCmd.AddCommand(clientListCmd)
	clientCmd.AddCommand(clientUpdateCmd)
	clientCmd.AddCommand(clientDeleteCmd)
}

func parseClientStatus(s string) (model.ClientStatus, error) {
	switch st := model.ClientStatus(strings.ToLower(s)); st {
	case model.ClientActive, model.ClientInactive:
		return st, nil
	}
	return "", fmt.Errorf("invalid client status %q (active, inactive)", s)
}

func runClientAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	cur, err := a.requireUser()
	if err != nil {
		return err
	}

	draft := model.Client{
		Name:    strings.Join(args, " "),
		Email:   clientEmail,
		Phone:   clientPhone,
		Company: clientCompany,
		Status:  model.ClientActive,
		TeamID:  cur.TeamID,
	}
	if clientStatus != "" {
		if draft.Status, err = parseClientStatus(clientStatus); err != nil {
			return err
		}
	}

	c, err := a.store.AddClient(context.Background(), draft)
	if err != nil {
		return fmt.Errorf("failed to add client: %w", err)
	}
	fmt.Printf("✓ Added client: %s (id: %s)\n", c.Name, shortID(c.ID))
	return nil
}

func runClientList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	clients := a.store.State().Clients
	if cur := a.store.CurrentUser(); cur != nil {
		clients = a.store.ClientsForUser(cur.ID)
	}
	if len(clients) == 0 {
		fmt.Println("No clients found.")
		return nil
	}
	sortByName(clients, func(c model.Client) string { return c.Name })

	fmt.Println()
	fmt.Printf("  %-8s  %-20s  %-20s  %-28s  %s\n", "ID", "Name", "Company", "Email", "Status")
	fmt.Println(strings.Repeat("─", 90))
	for _, c := range clients {
		fmt.Printf("  %-8s  %-20s  %-20s  %-28s  %s\n", shortID(c.ID), c.Name, c.Company, c.Email, c.Status)
	}
	fmt.Println()
	return nil
}

func runClientUpdate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.findClient(args[0])
	if err != nil {
		return err
	}

	var patch model.ClientPatch
	f := cmd.Flags()
	if f.Changed("name") {
		patch.Name = model.Ptr(clientName)
	}
	if f.Changed("email") {
		patch.Email = model.Ptr(clientEmail)
	}
	if f.Changed("phone") {
		patch.Phone = model.Ptr(clientPhone)
	}
	if f.Changed("company") {
		patch.Company = model.Ptr(clientCompany)
	}
	if f.Changed("status") {
		st, err := parseClientStatus(clientStatus)
		if err != nil {
			return err
		}
		patch.Status = &st
	}

	updated, err := a.store.UpdateClient(c.ID, patch)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	fmt.Printf("✓ Updated client: %s\n", updated.Name)
	return nil
}

func runClientDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.findClient(args[0])
	if err != nil {
		return err
	}
	if cfg.ConfirmDelete && !clientForce && !confirm(fmt.Sprintf("Delete client %q?", c.Name)) {
		fmt.Println("Aborted.")
		return nil
	}
	if err := a.store.DeleteClient(c.ID); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	fmt.Printf("✓ Deleted client: %s\n", c.Name)
	return nil
}

func (a *app) findClient(ref string) (model.Client, error) {
	return resolve(a.store.State().Clients, ref, "client",
		func(c model.Client) string { return c.ID },
		func(c model.Client) string { return c.Name })
}
