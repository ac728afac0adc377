package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/store"
	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func sampleTask() model.Task {
	end := t0.Add(30 * time.Minute)
	return model.Task{
		ID:          "t1",
		Title:       "Write docs",
		Status:      model.StatusInProgress,
		Priority:    model.PriorityHigh,
		CreatedByID: "u1",
		ProjectID:   "p1",
		CreatedAt:   t0,
		UpdatedAt:   t0,
		Tags:        []string{"docs"},
		TimeSpent:   30,
		TimeTracking: []model.TimeTrackingRecord{
			{ID: "s1", UserID: "u1", StartTime: t0, EndTime: &end, Duration: 30},
		},
		HourlyRate: model.Ptr(40.0),
		Cost:       20,
	}
}

func TestTaskRowRoundTrip(t *testing.T) {
	task := sampleTask()
	row := TaskToRow(task)
	if row.AssigneeID != nil {
		t.Error("empty assignee must map to null")
	}

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatal(err)
	}
	var cols map[string]any
	_ = json.Unmarshal(data, &cols)
	for _, c := range []string{"assignee_id", "created_by", "project_id", "time_tracking", "hourly_rate"} {
		if _, ok := cols[c]; !ok {
			t.Errorf("column %s missing from %s", c, data)
		}
	}

	if diff := cmp.Diff(task, TaskFromRow(row)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskFromRowRecomputesCost(t *testing.T) {
	row := TaskToRow(sampleTask())
	row.Cost = 999
	if got := TaskFromRow(row).Cost; got != 20 {
		t.Errorf("cost = %v, want 20", got)
	}
}

func TestTaskPatchToRowOnlyChangedColumns(t *testing.T) {
	task := sampleTask()
	row := TaskPatchToRow(task, []string{model.FieldHourlyRate, model.FieldTimeSpent, model.FieldCost, model.FieldUpdatedAt, "unknownLocalField"})

	want := []string{"cost", "hourly_rate", "time_spent", "updated_at"}
	var got []string
	for k := range row {
		got = append(got, k)
	}
	if diff := cmp.Diff(want, got, cmpSortStrings); diff != "" {
		t.Errorf("columns (-want +got):\n%s", diff)
	}
	if row["cost"] != 20.0 {
		t.Errorf("cost = %v", row["cost"])
	}
}

var cmpSortStrings = cmp.Transformer("sort", func(in []string) map[string]bool {
	out := make(map[string]bool, len(in))
	for _, s := range in {
		out[s] = true
	}
	return out
})

func TestProjectRowDropsTaskIndex(t *testing.T) {
	p := model.Project{ID: "p1", Name: "Site", TeamID: "team", Tasks: []string{"a", "b"}}
	back := ProjectFromRow(ProjectToRow(p))
	if len(back.Tasks) != 0 || back.TeamID != "team" || back.ClientID != "" {
		t.Errorf("unexpected project %+v", back)
	}
}

func TestUpdateRowForMutation(t *testing.T) {
	m := store.Mutation{
		Kind:   store.KindUser,
		Op:     store.OpUpdate,
		ID:     "u1",
		Record: model.User{ID: "u1", Theme: model.ThemeDark},
		Fields: []string{model.FieldTheme},
	}
	row, err := UpdateRow(m)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"theme": "dark"}, row); diff != "" {
		t.Errorf("row (-want +got):\n%s", diff)
	}
	if table, _ := TableFor(m.Kind); table != TableProfiles {
		t.Errorf("table = %q", table)
	}
}

func TestParseError(t *testing.T) {
	e := parseError(409, []byte(`{"code":"23505","message":"duplicate open session","details":"task t1","hint":"stop the other timer"}`))
	if e.Code != "23505" || e.Hint == "" || e.Status != 409 {
		t.Errorf("unexpected error %+v", e)
	}

	e = parseError(502, []byte("bad gateway"))
	if e.Message != "bad gateway" || !e.Temporary() {
		t.Errorf("unexpected error %+v", e)
	}
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	path := filepath.Join(t.TempDir(), "session.json")
	return NewClient(srv.URL, path), path
}

func TestSignInPersistsSession(t *testing.T) {
	c, path := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(authResponse{
			AccessToken: "tok",
			ExpiresAt:   time.Now().Add(time.Hour),
			User:        ProfileRow{ID: "u1", Email: "ada@example.com", Name: "Ada"},
		})
	})

	user, err := c.SignIn(context.Background(), "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("user = %+v", user)
	}

	reloaded := NewClient(c.BaseURL(), path)
	sess := reloaded.CurrentSession()
	if sess == nil || sess.AccessToken != "tok" || sess.UserID != "u1" {
		t.Fatalf("session not persisted: %+v", sess)
	}
}

func TestInsertSendsBearerAndSurfacesErrors(t *testing.T) {
	var gotAuth, gotPath string
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"task already has an open session"}`))
	})
	c.session = &Session{AccessToken: "tok", UserID: "u1"}

	err := c.Insert(context.Background(), TableTasks, TaskToRow(sampleTask()))
	rerr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected remote error, got %v", err)
	}
	if rerr.Code != "23505" || rerr.Status != http.StatusConflict {
		t.Errorf("unexpected error %+v", rerr)
	}
	if gotAuth != "Bearer tok" || gotPath != "/rest/v1/tasks" {
		t.Errorf("auth=%q path=%q", gotAuth, gotPath)
	}
}

func TestAuthenticatedCallWithoutSession(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request sent without a session")
	})
	if err := c.Delete(context.Background(), TableTasks, "t1"); !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}

type fixedSession struct{ s *Session }

func (f fixedSession) CurrentSession() *Session { return f.s }

func TestGuardVerify(t *testing.T) {
	ctx := context.Background()
	if err := (Guard{Sessions: fixedSession{}}).Verify(ctx, "u1"); !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
	g := Guard{Sessions: fixedSession{&Session{UserID: "u2"}}}
	if err := g.Verify(ctx, "u1"); !errors.Is(err, ErrSessionMismatch) {
		t.Errorf("err = %v, want ErrSessionMismatch", err)
	}
	if err := g.Verify(ctx, "u2"); err != nil {
		t.Errorf("matching session rejected: %v", err)
	}
}
