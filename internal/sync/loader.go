package sync

import (
	"context"
	"fmt"

	"github.com/existflow/tasko/internal/db"
	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/remote"
	"github.com/existflow/tasko/internal/store"
	"golang.org/x/sync/errgroup"
)

// Selector reads rows from the remote service
type Selector interface {
	remote.SessionSource
	Select(ctx context.Context, table string, filters map[string]string, out any) error
}

// Loader pulls the signed-in user's data into the store
type Loader struct {
	remote Selector
	db     *db.DB
	log    *logger.Logger
}

// NewLoader creates a loader. database may be nil, in which case remote
// rows replace local ones unconditionally.
func NewLoader(client Selector, database *db.DB) *Loader {
	return &Loader{
		remote: client,
		db:     database,
		log:    logger.WithFields(logger.F("component", "loader")),
	}
}

// LoadResult counts what was loaded
type LoadResult struct {
	Tasks, Projects, Clients, Users, Teams, Invitations int
}

// Load replaces the store's collections with remote rows. Entities that still
// have unsent outbox entries keep their local version, so a pull never
// undoes an optimistic change.
func (l *Loader) Load(ctx context.Context, s *store.Store) (LoadResult, error) {
	var res LoadResult
	if l.remote.CurrentSession() == nil {
		return res, remote.ErrNoSession
	}

	var (
		taskRows       []remote.TaskRow
		projectRows    []remote.ProjectRow
		clientRows     []remote.ClientRow
		profileRows    []remote.ProfileRow
		teamRows       []remote.TeamRow
		invitationRows []remote.InvitationRow
	)
	selects := []struct {
		table string
		out   any
	}{
		{remote.TableTasks, &taskRows},
		{remote.TableProjects, &projectRows},
		{remote.TableClients, &clientRows},
		{remote.TableProfiles, &profileRows},
		{remote.TableTeams, &teamRows},
		{remote.TableInvitations, &invitationRows},
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, sel := range selects {
		g.Go(func() error {
			if err := l.remote.Select(gctx, sel.table, nil, sel.out); err != nil {
				l.log.Error("Load failed", logger.F("table", sel.table), logger.Err(err))
				return fmt.Errorf("load %s: %w", sel.table, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	unsent, err := l.unsent()
	if err != nil {
		return res, err
	}
	local := s.State()

	users := reconcile(mapRows(profileRows, remote.UserFromRow), local.Users, unsent, userID)
	teams := make([]model.Team, 0, len(teamRows))
	for _, r := range teamRows {
		teams = append(teams, remote.TeamFromRow(r, users))
	}
	teams = reconcile(teams, local.Teams, unsent, teamID)
	clients := reconcile(mapRows(clientRows, remote.ClientFromRow), local.Clients, unsent, clientID)
	projects := reconcile(mapRows(projectRows, remote.ProjectFromRow), local.Projects, unsent, projectID)
	tasks := reconcile(mapRows(taskRows, remote.TaskFromRow), local.Tasks, unsent, taskID)
	invs := reconcile(mapRows(invitationRows, remote.InvitationFromRow), local.Invitations, unsent, invitationID)

	s.ReplaceUsers(users)
	s.ReplaceTeams(teams)
	s.ReplaceClients(clients)
	s.ReplaceProjects(projects)
	s.ReplaceTasks(tasks)
	s.ReplaceInvitations(invs)

	if cur := s.CurrentUser(); cur != nil {
		for _, u := range users {
			if u.ID == cur.ID {
				s.SetCurrentUser(u)
			}
		}
	}

	res = LoadResult{
		Tasks:       len(tasks),
		Projects:    len(projects),
		Clients:     len(clients),
		Users:       len(users),
		Teams:       len(teams),
		Invitations: len(invs),
	}
	l.log.Info("Loaded remote state",
		logger.F("tasks", res.Tasks), logger.F("projects", res.Projects), logger.F("clients", res.Clients),
		logger.F("unsent", len(unsent)))
	return res, nil
}

func (l *Loader) unsent() (map[string]bool, error) {
	ids := make(map[string]bool)
	if l.db == nil {
		return ids, nil
	}
	var lastID int64
	for {
		entries, err := l.db.Pending(lastID, batchSize, 0)
		if err != nil {
			return nil, fmt.Errorf("read outbox: %w", err)
		}
		for _, e := range entries {
			ids[e.EntityID] = true
			lastID = e.ID
		}
		if len(entries) < batchSize {
			return ids, nil
		}
	}
}

// reconcile prefers local items for ids with unsent writes. A remote item
// missing locally under an unsent id was deleted locally and is dropped.
func reconcile[T any](remoteItems, localItems []T, unsent map[string]bool, id func(T) string) []T {
	localByID := make(map[string]T, len(localItems))
	for _, v := range localItems {
		localByID[id(v)] = v
	}

	out := make([]T, 0, len(remoteItems))
	seen := make(map[string]bool, len(remoteItems))
	for _, v := range remoteItems {
		key := id(v)
		seen[key] = true
		if !unsent[key] {
			out = append(out, v)
			continue
		}
		if lv, ok := localByID[key]; ok {
			out = append(out, lv)
		}
	}
	for _, v := range localItems {
		key := id(v)
		if unsent[key] && !seen[key] {
			out = append(out, v)
		}
	}
	return out
}

func mapRows[R, T any](rows []R, fn func(R) T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, fn(r))
	}
	return out
}

func taskID(t model.Task) string             { return t.ID }
func projectID(p model.Project) string       { return p.ID }
func clientID(c model.Client) string         { return c.ID }
func userID(u model.User) string             { return u.ID }
func teamID(t model.Team) string             { return t.ID }
func invitationID(i model.Invitation) string { return i.ID }
