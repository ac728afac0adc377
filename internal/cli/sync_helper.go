package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/existflow/tasko/internal/logger"
)

const pullTimeout = 30 * time.Second

// maybePull pushes queued changes and reloads from the server before a
// listing. Offline or signed-out runs use the cached state.
func (a *app) maybePull(force bool) {
	if !force {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pullTimeout)
	defer cancel()
	if !a.online(ctx) {
		fmt.Println("⚠️  Offline, showing cached data")
		return
	}

	fmt.Println("🔄 Syncing...")
	pushed, err := a.worker.Flush(ctx)
	if err != nil {
		logger.Warn("Push before pull failed", logger.Err(err))
	}
	res, err := a.loader.Load(ctx, a.store)
	if err != nil {
		fmt.Printf("⚠️  Sync failed: %v\n", err)
		return
	}
	fmt.Printf("✓ Synced (↑%d ↓%d)\n", pushed.Pushed, res.Tasks)
}
