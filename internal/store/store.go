// Package store holds every entity collection in memory and is the single
// source of truth for the presentation layer. Mutations commit locally first
// and then hand a Mutation to the Dispatcher for remote persistence; remote
// failures never retract a local change.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when an id matches no entity
	ErrNotFound = errors.New("not found")
	// ErrNoCurrentUser is returned by operations that need a signed-in user
	ErrNoCurrentUser = errors.New("no current user")
)

// Kind names an entity collection
type Kind string

const (
	KindTask       Kind = "task"
	KindProject    Kind = "project"
	KindClient     Kind = "client"
	KindUser       Kind = "user"
	KindTeam       Kind = "team"
	KindInvitation Kind = "invitation"
)

// Op is the remote operation a mutation requires
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Mutation describes a committed local change that must be mirrored remotely
type Mutation struct {
	Kind   Kind
	Op     Op
	ID     string
	Record any      // entity value after the change; nil for deletes
	Fields []string // changed fields for updates
}

// Dispatcher receives mutations after they are committed locally. It must not
// block on the network.
type Dispatcher interface {
	Dispatch(m Mutation)
}

// SessionVerifier checks that an authenticated session exists for userID
type SessionVerifier interface {
	Verify(ctx context.Context, userID string) error
}

// State is an immutable snapshot of the store
type State struct {
	Users       []model.User       `json:"users"`
	Tasks       []model.Task       `json:"tasks"`
	Teams       []model.Team       `json:"teams"`
	Projects    []model.Project    `json:"projects"`
	Clients     []model.Client     `json:"clients"`
	Invitations []model.Invitation `json:"invitations"`
	CurrentUser *model.User        `json:"currentUser,omitempty"`
	CurrentTeam *model.Team        `json:"currentTeam,omitempty"`
}

// Store is the local state store
type Store struct {
	mu    sync.RWMutex
	state State

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int

	dispatcher Dispatcher
	verifier   SessionVerifier
	now        func() time.Time
	newID      func() string
	log        *logger.Logger
}

// Option configures a Store
type Option func(*Store)

// WithDispatcher sets where committed mutations are sent for remote sync
func WithDispatcher(d Dispatcher) Option {
	return func(s *Store) { s.dispatcher = d }
}

// WithSessionVerifier sets the session check run before remote-backed adds
func WithSessionVerifier(v SessionVerifier) Option {
	return func(s *Store) { s.verifier = v }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides uuid generation
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates an empty store with no current user
func New(opts ...Option) *Store {
	s := &Store{
		subs:  make(map[int]func(State)),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.WithFields(logger.F("component", "store"))
	}
	return s
}

// State returns the current snapshot. Callers must treat it as read-only.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to be called with the new state after every change
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// commit runs fn against a copy of the state and publishes the result.
// fn must replace collections rather than mutate their elements.
func (s *Store) commit(fn func(st *State) error) error {
	s.mu.Lock()
	next := s.state
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()

	s.notify(next)
	return nil
}

func (s *Store) notify(st State) {
	s.subsMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (s *Store) dispatch(m Mutation) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(m)
}

// verifySession abandons remote-backed operations without a valid session
func (s *Store) verifySession(ctx context.Context) (model.User, error) {
	cur := s.CurrentUser()
	if cur == nil || cur.ID == "" {
		s.log.Error("No current user, operation abandoned")
		return model.User{}, ErrNoCurrentUser
	}
	if s.verifier != nil {
		if err := s.verifier.Verify(ctx, cur.ID); err != nil {
			s.log.Error("Session check failed, operation abandoned",
				logger.F("user", cur.ID), logger.Err(err))
			return model.User{}, err
		}
	}
	return *cur, nil
}

// Load replaces every collection with st, for hydration from a cache or the
// remote service. Subscribers are notified.
func (s *Store) Load(st State) {
	_ = s.commit(func(cur *State) error {
		*cur = st
		return nil
	})
}

// SetCurrentUser fills the current-user slot (login)
func (s *Store) SetCurrentUser(u model.User) {
	_ = s.commit(func(st *State) error {
		st.CurrentUser = &u
		return nil
	})
}

// ClearCurrentUser empties the current-user slot (logout)
func (s *Store) ClearCurrentUser() {
	_ = s.commit(func(st *State) error {
		st.CurrentUser = nil
		st.CurrentTeam = nil
		return nil
	})
}

// CurrentUser returns a copy of the signed-in user, or nil
func (s *Store) CurrentUser() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.CurrentUser == nil {
		return nil
	}
	u := *s.state.CurrentUser
	return &u
}

// SetCurrentTeam selects the team the workspace views are scoped to; nil clears it
func (s *Store) SetCurrentTeam(t *model.Team) {
	_ = s.commit(func(st *State) error {
		if t == nil {
			st.CurrentTeam = nil
			return nil
		}
		team := *t
		st.CurrentTeam = &team
		return nil
	})
}

// ReplaceTasks swaps in tasks pulled from the remote service and rebuilds
// every project's task index from the tasks' project ids.
func (s *Store) ReplaceTasks(tasks []model.Task) {
	_ = s.commit(func(st *State) error {
		st.Tasks = tasks
		st.Projects = reindex(st.Projects, tasks)
		return nil
	})
}

// ReplaceProjects swaps in projects pulled from the remote service
func (s *Store) ReplaceProjects(projects []model.Project) {
	_ = s.commit(func(st *State) error {
		st.Projects = reindex(projects, st.Tasks)
		return nil
	})
}

// ReplaceClients swaps in clients pulled from the remote service
func (s *Store) ReplaceClients(clients []model.Client) {
	_ = s.commit(func(st *State) error {
		st.Clients = clients
		return nil
	})
}

// ReplaceUsers swaps in profiles pulled from the remote service
func (s *Store) ReplaceUsers(users []model.User) {
	_ = s.commit(func(st *State) error {
		st.Users = users
		return nil
	})
}

// ReplaceTeams swaps in teams pulled from the remote service
func (s *Store) ReplaceTeams(teams []model.Team) {
	_ = s.commit(func(st *State) error {
		st.Teams = teams
		return nil
	})
}

// ReplaceInvitations swaps in invitations pulled from the remote service
func (s *Store) ReplaceInvitations(invs []model.Invitation) {
	_ = s.commit(func(st *State) error {
		st.Invitations = invs
		return nil
	})
}

func reindex(projects []model.Project, tasks []model.Task) []model.Project {
	byProject := make(map[string][]string)
	for _, t := range tasks {
		byProject[t.ProjectID] = append(byProject[t.ProjectID], t.ID)
	}
	out := make([]model.Project, len(projects))
	for i, p := range projects {
		ids := byProject[p.ID]
		if ids == nil {
			ids = []string{}
		}
		p.Tasks = ids
		out[i] = p
	}
	return out
}
