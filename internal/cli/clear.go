package cli

import (
	"fmt"
	"time"

	"github.com/existflow/tasko/internal/store"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the local cache",
	Long: `Forget the locally cached workspace and purge pushed outbox entries.
Changes that have not reached the server are kept unless --outbox is given.
Run 'tasko sync pull' afterwards to reload from the server.`,
	RunE: runClear,
}

var (
	clearOutbox bool
	clearForce  bool
)

func init() {
	clearCmd.Flags().BoolVar(&clearOutbox, "outbox", false, "Also drop unsent and failed changes")
	clearCmd.Flags().BoolVar(&clearForce, "force", false, "Do not ask for confirmation")
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearForce && !confirm("Are you sure you want to clear local data?") {
		fmt.Println("Aborted.")
		return nil
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// keep the signed-in identity so the next pull can run
	cur := a.store.CurrentUser()
	a.store.Load(store.State{CurrentUser: cur})

	fmt.Println("🧹 Clearing local data...")
	purged, err := a.db.PurgeDone(time.Now())
	if err != nil {
		return fmt.Errorf("failed to purge outbox: %w", err)
	}
	if clearOutbox {
		if _, err := a.db.Discard(); err != nil {
			return fmt.Errorf("failed to clear outbox: %w", err)
		}
	}
	fmt.Printf("Local data cleared (%d pushed entries purged).\n", purged)
	return nil
}
