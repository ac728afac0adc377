package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/existflow/tasko/internal/config"
	"github.com/existflow/tasko/internal/db"
	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/remote"
	"github.com/existflow/tasko/internal/store"
	tsync "github.com/existflow/tasko/internal/sync"
)

const (
	flushTimeout  = 15 * time.Second
	healthTimeout = 3 * time.Second
)

// app is everything a command needs: the store hydrated from the local
// cache, and the outbox plumbing that mirrors its mutations remotely.
type app struct {
	db     *db.DB
	client *remote.Client
	store  *store.Store
	queue  *tsync.Queue
	worker *tsync.Worker
	loader *tsync.Loader

	unsubscribe func()
	// forget skips the snapshot write on close, used by logout and clear
	forget bool
}

func openApp() (*app, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to open database", logger.Err(err))
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	dir, err := config.Dir()
	if err != nil {
		database.Close()
		return nil, err
	}
	client := remote.NewClient(cfg.ServerURL, filepath.Join(dir, "session.json"))

	queue := tsync.NewQueue(database)
	s := store.New(
		store.WithDispatcher(queue),
		store.WithSessionVerifier(remote.Guard{Sessions: client}),
	)

	st, ok, err := database.LoadSnapshot()
	switch {
	case err != nil:
		logger.Warn("Ignoring unreadable snapshot", logger.Err(err))
	case ok:
		s.Load(st)
	}

	worker := tsync.NewWorker(database, client, s,
		tsync.WithDebounce(cfg.SyncDebounce),
		tsync.WithRetryInterval(cfg.RetryInterval),
		tsync.WithMaxAttempts(cfg.MaxAttempts),
	)
	queue.SetOnEnqueue(worker.Trigger)

	a := &app{
		db:     database,
		client: client,
		store:  s,
		queue:  queue,
		worker: worker,
		loader: tsync.NewLoader(client, database),
	}
	a.unsubscribe = s.Subscribe(func(st store.State) {
		if a.forget {
			return
		}
		if err := database.SaveSnapshot(st); err != nil {
			logger.Warn("Failed to save snapshot", logger.Err(err))
		}
	})
	return a, nil
}

// online reports whether the server answers and a session is held
func (a *app) online(ctx context.Context) bool {
	if a.client.CurrentSession() == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := a.client.Health(ctx); err != nil {
		logger.Debug("Server unreachable", logger.Err(err))
		return false
	}
	return true
}

// flush pushes queued writes when the server is reachable. Offline runs
// leave the outbox for the next one.
func (a *app) flush() {
	if a.store.CurrentUser() == nil {
		return
	}
	pending, failed, err := a.db.Counts()
	if err != nil || pending+failed == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if !a.online(ctx) {
		logger.Info("Offline, changes stay queued", logger.F("pending", pending))
		return
	}
	res, err := a.worker.Flush(ctx)
	if err != nil {
		logger.Warn("Flush stopped", logger.Err(err))
	}
	if res.Failed > 0 {
		fmt.Printf("⚠️  %d change(s) were rejected by the server, see 'tasko sync failures'\n", res.Failed)
	}
}

func (a *app) Close() {
	a.worker.Stop()
	a.flush()
	a.unsubscribe()

	if !a.forget {
		if err := a.db.SaveSnapshot(a.store.State()); err != nil {
			logger.Warn("Failed to save snapshot", logger.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		logger.Warn("Failed to close database", logger.Err(err))
	}
	logger.Debug("Database closed")
}

// requireUser fails early for commands that write
func (a *app) requireUser() (*model.User, error) {
	cur := a.store.CurrentUser()
	if cur == nil {
		return nil, errNotLoggedIn
	}
	return cur, nil
}
