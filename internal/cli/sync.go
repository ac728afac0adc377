package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync with the server",
	Long: `Every change is applied locally first and queued for the server.

Commands:
  tasko sync              # Push queued changes, then pull
  tasko sync status       # Show queue state
  tasko sync failures     # Show changes the server rejected
  tasko sync retry        # Queue rejected changes again`,
	RunE: runSync,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE:  runSyncStatus,
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push queued changes now",
	RunE:  runSyncPush,
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Reload the workspace from the server",
	RunE:  runSyncPull,
}

var syncFailuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Show changes the server rejected",
	RunE:  runSyncFailures,
}

var syncRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Queue rejected changes again",
	RunE:  runSyncRetry,
}

var syncPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete pushed entries from the local queue",
	RunE:  runSyncPurge,
}

var purgeOlderThan time.Duration

func init() {
	syncPurgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 7*24*time.Hour, "Only purge entries pushed before this long ago")

	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncPushCmd)
	syncCmd.AddCommand(syncPullCmd)
	syncCmd.AddCommand(syncFailuresCmd)
	syncCmd.AddCommand(syncRetryCmd)
	syncCmd.AddCommand(syncPurgeCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("🔄 Synchronizing...")
	if err := a.push(); err != nil {
		return err
	}
	return a.pull()
}

func runSyncPush(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return a.push()
}

func runSyncPull(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return a.pull()
}

func (a *app) push() error {
	if _, err := a.requireUser(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := a.worker.Flush(ctx)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	fmt.Printf("✓ Pushed %d change(s)", res.Pushed)
	if res.Failed > 0 {
		fmt.Printf(", %d rejected (see 'tasko sync failures')", res.Failed)
	}
	fmt.Println()
	return nil
}

func (a *app) pull() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := a.loader.Load(ctx, a.store)
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}
	fmt.Printf("✓ Pulled %d tasks, %d projects, %d clients, %d users, %d teams, %d invitations\n",
		res.Tasks, res.Projects, res.Clients, res.Users, res.Teams, res.Invitations)
	return nil
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Server:    %s\n", a.client.BaseURL())
	if sess := a.client.CurrentSession(); sess != nil {
		fmt.Printf("Account:   %s\n", sess.Email)
		fmt.Println("Status:    ✓ Logged in")
	} else {
		fmt.Println("Status:    Not logged in")
	}

	pending, failed, err := a.db.Counts()
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}
	fmt.Printf("Queued:    %d\n", pending)
	fmt.Printf("Rejected:  %d\n", failed)
	return nil
}

func runSyncFailures(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.db.Failures()
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("✓ No rejected changes")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("\n#%d %s %s %s (%d attempt(s), %s)\n", e.ID, e.Op, strings.TrimSuffix(e.Table, "s"),
			shortID(e.EntityID), e.Attempts, humanize.Time(e.UpdatedAt))
		if e.Error.Code != "" {
			fmt.Printf("   code:    %s\n", e.Error.Code)
		}
		fmt.Printf("   message: %s\n", e.Error.Message)
		if e.Error.Details != "" {
			fmt.Printf("   details: %s\n", e.Error.Details)
		}
		if e.Error.Hint != "" {
			fmt.Printf("   hint:    %s\n", e.Error.Hint)
		}
		if e.Attempts >= cfg.MaxAttempts {
			fmt.Println("   parked:  run 'tasko sync retry' to try again")
		}
	}
	fmt.Println()
	return nil
}

func runSyncRetry(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.db.Retry()
	if err != nil {
		return fmt.Errorf("failed to requeue: %w", err)
	}
	fmt.Printf("✓ Requeued %d change(s)\n", n)
	return nil
}

func runSyncPurge(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.db.PurgeDone(time.Now().Add(-purgeOlderThan))
	if err != nil {
		return fmt.Errorf("failed to purge: %w", err)
	}
	fmt.Printf("✓ Purged %d pushed entries\n", n)
	return nil
}
