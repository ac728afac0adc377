package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu   sync.Mutex
	muts []Mutation
}

func (r *recorder) Dispatch(m Mutation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.muts = append(r.muts, m)
}

func (r *recorder) all() []Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Mutation(nil), r.muts...)
}

type verifierFunc func(ctx context.Context, userID string) error

func (f verifierFunc) Verify(ctx context.Context, userID string) error { return f(ctx, userID) }

func newTestStore(t *testing.T, opts ...Option) (*Store, *recorder) {
	t.Helper()
	rec := &recorder{}
	n := 0
	base := []Option{
		WithDispatcher(rec),
		WithClock(func() time.Time { return t0 }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
		WithLogger(logger.NewWriter(io.Discard, logger.DEBUG)),
	}
	s := New(append(base, opts...)...)
	s.SetCurrentUser(model.User{ID: "me", Name: "Me", Email: "me@example.com", Role: model.RoleMember})
	return s, rec
}

func addProject(t *testing.T, s *Store, name string) model.Project {
	t.Helper()
	p, err := s.AddProject(context.Background(), model.Project{Name: name, TeamID: "team"})
	if err != nil {
		t.Fatalf("AddProject: %v", err)
	}
	return p
}

func TestAddTaskIndexesProjectAndDispatches(t *testing.T) {
	s, rec := newTestStore(t)
	p := addProject(t, s, "Site")

	task, err := s.AddTask(context.Background(), model.Task{
		Title:      "Landing page",
		ProjectID:  p.ID,
		TimeSpent:  120,
		HourlyRate: model.Ptr(60.0),
	})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if task.Status != model.StatusTodo || task.Priority != model.PriorityMedium {
		t.Errorf("defaults not applied: %s/%s", task.Status, task.Priority)
	}
	if task.CreatedByID != "me" {
		t.Errorf("createdById = %q", task.CreatedByID)
	}
	if task.Cost != 120 {
		t.Errorf("cost = %v, want 120", task.Cost)
	}

	got, _ := s.Project(p.ID)
	if !cmp.Equal(got.Tasks, []string{task.ID}) {
		t.Errorf("project index = %v", got.Tasks)
	}

	muts := rec.all()
	last := muts[len(muts)-1]
	if last.Kind != KindTask || last.Op != OpInsert || last.ID != task.ID {
		t.Errorf("unexpected mutation %+v", last)
	}
}

func TestAddTaskAbandonedWithoutSession(t *testing.T) {
	s, rec := newTestStore(t)
	s.ClearCurrentUser()

	_, err := s.AddTask(context.Background(), model.Task{Title: "x", ProjectID: "p", CreatedByID: "me"})
	if !errors.Is(err, ErrNoCurrentUser) {
		t.Fatalf("err = %v, want ErrNoCurrentUser", err)
	}
	if len(s.State().Tasks) != 0 || len(rec.all()) != 0 {
		t.Error("store mutated without a session")
	}
}

func TestAddTaskAbandonedOnVerifierError(t *testing.T) {
	mismatch := errors.New("session mismatch")
	s, _ := newTestStore(t, WithSessionVerifier(verifierFunc(func(context.Context, string) error {
		return mismatch
	})))

	_, err := s.AddTask(context.Background(), model.Task{Title: "x", ProjectID: "p"})
	if !errors.Is(err, mismatch) {
		t.Fatalf("err = %v", err)
	}
	if len(s.State().Tasks) != 0 {
		t.Error("task added despite failed session check")
	}
}

func TestAddTaskValidation(t *testing.T) {
	s, _ := newTestStore(t)
	var verr *model.ValidationError
	if _, err := s.AddTask(context.Background(), model.Task{ProjectID: "p"}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateTaskMovesBetweenProjects(t *testing.T) {
	s, rec := newTestStore(t)
	a := addProject(t, s, "A")
	b := addProject(t, s, "B")
	task, _ := s.AddTask(context.Background(), model.Task{Title: "move me", ProjectID: a.ID})

	if _, err := s.UpdateTask(task.ID, model.TaskPatch{ProjectID: &b.ID}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	pa, _ := s.Project(a.ID)
	pb, _ := s.Project(b.ID)
	if pa.HasTask(task.ID) {
		t.Error("task still indexed under old project")
	}
	if !pb.HasTask(task.ID) {
		t.Error("task not indexed under new project")
	}

	muts := rec.all()
	last := muts[len(muts)-1]
	if !cmp.Equal(last.Fields, []string{model.FieldProjectID, model.FieldUpdatedAt}) {
		t.Errorf("fields = %v", last.Fields)
	}
}

func TestUpdateTaskUnknownID(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.UpdateTask("nope", model.TaskPatch{Title: model.Ptr("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteProjectRemovesTasks(t *testing.T) {
	s, _ := newTestStore(t)
	p := addProject(t, s, "Doomed")
	other := addProject(t, s, "Other")
	_, _ = s.AddTask(context.Background(), model.Task{Title: "a", ProjectID: p.ID})
	keep, _ := s.AddTask(context.Background(), model.Task{Title: "b", ProjectID: other.ID})

	if err := s.DeleteProject(p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	tasks := s.State().Tasks
	if len(tasks) != 1 || tasks[0].ID != keep.ID {
		t.Errorf("tasks after delete = %+v", tasks)
	}
}

func TestDeleteClientUnlinksProjects(t *testing.T) {
	s, _ := newTestStore(t)
	c, err := s.AddClient(context.Background(), model.Client{Name: "Acme", Email: "ops@acme.test"})
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	p := addProject(t, s, "Billed")
	_, _ = s.UpdateProject(p.ID, model.ProjectPatch{ClientID: &c.ID})

	if err := s.DeleteClient(c.ID); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}
	got, _ := s.Project(p.ID)
	if got.ClientID != "" {
		t.Errorf("clientId = %q, want empty", got.ClientID)
	}
}

func TestDeleteUserGuard(t *testing.T) {
	s, _ := newTestStore(t)
	p := addProject(t, s, "P")
	busy, _ := s.AddUser(model.User{Name: "Busy", Email: "busy@example.com"})
	idle, _ := s.AddUser(model.User{Name: "Idle", Email: "idle@example.com"})
	_, _ = s.AddTask(context.Background(), model.Task{Title: "t", ProjectID: p.ID, AssigneeID: busy.ID})

	if err := s.DeleteUser(busy.ID); err != nil {
		t.Fatalf("guarded delete returned error: %v", err)
	}
	if _, ok := s.User(busy.ID); !ok {
		t.Error("user with assigned tasks was deleted")
	}

	if err := s.DeleteUser(idle.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, ok := s.User(idle.ID); ok {
		t.Error("idle user not deleted")
	}
}

func TestDeleteUserGuardIsAtomic(t *testing.T) {
	s, _ := newTestStore(t)
	team, _ := s.AddTeam(model.Team{Name: "Core"})
	member, _ := s.AddUser(model.User{Name: "Member", Email: "member@example.com"})
	if _, err := s.AddMemberToTeam(team.ID, member.ID); err != nil {
		t.Fatal(err)
	}

	var published int
	unsubscribe := s.Subscribe(func(State) { published++ })
	if err := s.DeleteUser(member.ID); err != nil {
		t.Fatalf("guarded delete returned error: %v", err)
	}
	unsubscribe()
	if published != 0 {
		t.Errorf("guarded delete published %d state change(s)", published)
	}
	if err := s.DeleteUser("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user err = %v, want ErrNotFound", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _ = s.DeleteUser(member.ID) }()
		go func() { defer wg.Done(); _, _ = s.RemoveMemberFromTeam(team.ID, member.ID) }()
	}
	wg.Wait()
	if got, _ := s.Team(team.ID); got.HasMember(member.ID) {
		if _, ok := s.User(member.ID); !ok {
			t.Error("team member deleted")
		}
	}
}

func TestSubscribersSeeEveryChange(t *testing.T) {
	s, _ := newTestStore(t)
	var seen []int
	unsubscribe := s.Subscribe(func(st State) { seen = append(seen, len(st.Projects)) })

	addProject(t, s, "one")
	addProject(t, s, "two")
	unsubscribe()
	addProject(t, s, "three")

	if !cmp.Equal(seen, []int{1, 2}) {
		t.Errorf("seen = %v", seen)
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s, _ := newTestStore(t)
	addProject(t, s, "one")
	before := s.State()
	addProject(t, s, "two")
	if len(before.Projects) != 1 {
		t.Errorf("earlier snapshot changed: %d projects", len(before.Projects))
	}
}

func TestSetUserThemeUpdatesCurrentUser(t *testing.T) {
	s, _ := newTestStore(t)
	s.Load(State{Users: []model.User{{ID: "me", Name: "Me", Email: "me@example.com"}}})
	s.SetCurrentUser(model.User{ID: "me", Name: "Me", Email: "me@example.com"})

	if _, err := s.SetUserTheme("me", model.ThemeDark); err != nil {
		t.Fatalf("SetUserTheme: %v", err)
	}
	if cur := s.CurrentUser(); cur.Theme != model.ThemeDark {
		t.Errorf("current user theme = %q", cur.Theme)
	}
}

func TestAcceptInvitation(t *testing.T) {
	s, _ := newTestStore(t)
	team, _ := s.AddTeam(model.Team{Name: "Core"})
	inv, err := s.CreateInvitation(model.Invitation{Email: "new@example.com", TeamID: team.ID})
	if err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}
	if len(inv.Token) != 48 || !inv.ExpiresAt.Equal(t0.Add(model.InvitationTTL)) {
		t.Errorf("unexpected invitation %+v", inv)
	}

	user, err := s.AcceptInvitation(inv.Token)
	if err != nil {
		t.Fatalf("AcceptInvitation: %v", err)
	}
	if user.Name != "new" || user.Theme != model.ThemeSystem || user.TeamID != team.ID {
		t.Errorf("unexpected user %+v", user)
	}
	if got, _ := s.Team(team.ID); !got.HasMember(user.ID) {
		t.Error("user not added to team")
	}
	if _, err := s.AcceptInvitation(inv.Token); !errors.Is(err, ErrInvitationUsed) {
		t.Errorf("second accept err = %v", err)
	}
}

func TestAcceptInvitationKeepsExistingAccount(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.AddUser(model.User{ID: "me", Name: "Me", Email: "me@example.com"}); err != nil {
		t.Fatal(err)
	}
	team, _ := s.AddTeam(model.Team{Name: "Core"})
	inv, _ := s.CreateInvitation(model.Invitation{Email: "ME@example.com", TeamID: team.ID})

	user, err := s.AcceptInvitation(inv.Token)
	if err != nil {
		t.Fatalf("AcceptInvitation: %v", err)
	}
	if user.ID != "me" || user.TeamID != team.ID {
		t.Errorf("user = %+v", user)
	}
	if n := len(s.State().Users); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
	if cur := s.CurrentUser(); cur.TeamID != team.ID {
		t.Errorf("current user team = %q", cur.TeamID)
	}
}

func TestAcceptInvitationForUnloadedTeam(t *testing.T) {
	s, rec := newTestStore(t)
	if _, err := s.AddUser(model.User{ID: "me", Name: "Me", Email: "me@example.com"}); err != nil {
		t.Fatal(err)
	}
	s.ReplaceInvitations([]model.Invitation{{
		ID:        "inv-1",
		Email:     "me@example.com",
		TeamID:    "remote-team",
		Role:      model.RoleMember,
		Status:    model.InvitationPending,
		InvitedAt: t0,
		ExpiresAt: t0.Add(model.InvitationTTL),
		Token:     "tok",
	}})

	user, err := s.AcceptInvitation("tok")
	if err != nil {
		t.Fatalf("AcceptInvitation: %v", err)
	}
	if user.TeamID != "remote-team" {
		t.Errorf("user team = %q, want remote-team", user.TeamID)
	}
	if got, _ := s.InvitationByToken("tok"); got.Status != model.InvitationAccepted {
		t.Errorf("status = %q", got.Status)
	}

	var joined bool
	for _, m := range rec.all() {
		if m.Kind == KindUser && m.Op == OpUpdate && m.ID == "me" && slices.Contains(m.Fields, model.FieldTeamID) {
			joined = true
		}
	}
	if !joined {
		t.Error("team membership not sent to the server")
	}
}

func TestCreateInvitationExpiry(t *testing.T) {
	s, _ := newTestStore(t)
	custom := t0.Add(48 * time.Hour)

	tests := []struct {
		name  string
		draft time.Time
		want  time.Time
	}{
		{"default", time.Time{}, t0.Add(model.InvitationTTL)},
		{"given", custom, custom},
		{"in the past", t0.Add(-time.Hour), t0.Add(model.InvitationTTL)},
	}
	for _, tt := range tests {
		inv, err := s.CreateInvitation(model.Invitation{Email: "x@example.com", ExpiresAt: tt.draft})
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if !inv.ExpiresAt.Equal(tt.want) {
			t.Errorf("%s: expiresAt = %v, want %v", tt.name, inv.ExpiresAt, tt.want)
		}
	}
}

func TestAcceptExpiredInvitation(t *testing.T) {
	now := t0
	s, _ := newTestStore(t, WithClock(func() time.Time { return now }))
	inv, _ := s.CreateInvitation(model.Invitation{Email: "late@example.com"})

	now = t0.Add(8 * 24 * time.Hour)
	if _, err := s.AcceptInvitation(inv.Token); !errors.Is(err, ErrInvitationExpired) {
		t.Fatalf("err = %v, want ErrInvitationExpired", err)
	}
	got, _ := s.InvitationByToken(inv.Token)
	if got.Status != model.InvitationExpired {
		t.Errorf("status = %q", got.Status)
	}
	if len(s.State().Users) != 0 {
		t.Error("user materialized from expired invitation")
	}
}

func TestReplaceTasksRebuildsIndexes(t *testing.T) {
	s, _ := newTestStore(t)
	s.ReplaceProjects([]model.Project{{ID: "p1", Name: "P1", Tasks: []string{"stale"}}})
	s.ReplaceTasks([]model.Task{{ID: "t1", ProjectID: "p1"}, {ID: "t2", ProjectID: "p1"}})

	p, _ := s.Project("p1")
	if !cmp.Equal(p.Tasks, []string{"t1", "t2"}) {
		t.Errorf("index = %v", p.Tasks)
	}
}

func TestWorkspaceScoping(t *testing.T) {
	s, _ := newTestStore(t)
	s.Load(State{
		Users: []model.User{
			{ID: "u1", TeamID: "team-a"},
			{ID: "boss", Role: model.RoleAdmin},
		},
		Projects: []model.Project{{ID: "pa", TeamID: "team-a"}, {ID: "pb", TeamID: "team-b"}},
		Tasks: []model.Task{
			{ID: "t1", ProjectID: "pa", AssigneeID: "u1"},
			{ID: "t2", ProjectID: "pb", CreatedByID: "u2"},
		},
	})

	if got := len(s.TasksForUser("u1")); got != 1 {
		t.Errorf("TasksForUser = %d", got)
	}
	if got := len(s.TasksForTeam("team-b")); got != 1 {
		t.Errorf("TasksForTeam = %d", got)
	}
	if !s.HasAccess("u1", KindProject, "pa") || s.HasAccess("u1", KindProject, "pb") {
		t.Error("project access scoped incorrectly")
	}
	if !s.HasAccess("boss", KindTask, "t2") {
		t.Error("admin denied access")
	}
}
