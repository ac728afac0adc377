package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
)

func TestHealthAndAuthRequired(t *testing.T) {
	s := newServer(nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health = %d", rec.Code)
	}

	for _, path := range []string{"/rest/v1/tasks", "/auth/v1/user"} {
		rec = httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token = %d", path, rec.Code)
		}
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rest/v1/tasks", nil)
	req.Header.Set("Authorization", "Token abc")
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("non-bearer scheme = %d", rec.Code)
	}
}

func newContext(method, body, table string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/rest/v1/"+table, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("table", "id")
	c.SetParamValues(table, "row-1")
	c.Set(userKey, "u1")
	return c, rec
}

func asHTTPError(t *testing.T, err error) (*echo.HTTPError, apiError) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("err = %v, want *echo.HTTPError", err)
	}
	body, _ := he.Message.(apiError)
	return he, body
}

func TestSecondOpenSessionRejected(t *testing.T) {
	s := newServer(nil)
	body := `{"id":"t1","title":"x","time_tracking":[
		{"id":"s1","userId":"u1","startTime":"2025-03-10T09:00:00Z","duration":0},
		{"id":"s2","userId":"u1","startTime":"2025-03-10T10:00:00Z","duration":0}
	]}`

	for _, handler := range []echo.HandlerFunc{s.handleInsert, s.handleUpdate} {
		c, _ := newContext(http.MethodPost, body, "tasks")
		he, apiErr := asHTTPError(t, handler(c))
		if he.Code != http.StatusConflict || apiErr.Code != codeUniqueViolation || apiErr.Hint == "" {
			t.Errorf("got %d %+v", he.Code, apiErr)
		}
	}
}

func TestUnknownTableAndReadOnlyProfiles(t *testing.T) {
	s := newServer(nil)

	c, _ := newContext(http.MethodPost, `{}`, "secrets")
	he, _ := asHTTPError(t, s.handleInsert(c))
	if he.Code != http.StatusNotFound {
		t.Errorf("unknown table = %d", he.Code)
	}

	c, rec := newContext(http.MethodPost, `{"name":"x"}`, "profiles")
	if err := s.handleInsert(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("profile insert = %d", rec.Code)
	}
}

func TestInvalidRowBody(t *testing.T) {
	s := newServer(nil)
	c, _ := newContext(http.MethodPost, `{"title": {"nested": true}}`, "tasks")
	he, apiErr := asHTTPError(t, s.handleInsert(c))
	if he.Code != http.StatusBadRequest || apiErr.Code != codeInvalidText {
		t.Errorf("got %d %+v", he.Code, apiErr)
	}
}

func TestBuildInsertForcesOwner(t *testing.T) {
	tbl := tables["tasks"]
	cols, vals, err := tbl.decodeRow([]byte(`{
		"id": "t1", "title": "x", "created_by": "someone-else", "tags": ["a"],
		"time_tracking": [], "time_estimate": 30, "assignee_id": null, "bogus": 1
	}`))
	if err != nil {
		t.Fatal(err)
	}

	query, args := tbl.buildInsert(cols, vals, "u1")
	want := "INSERT INTO tasks (assignee_id, created_by, id, tags, time_estimate, time_tracking, title) " +
		"VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)"
	if query != want {
		t.Errorf("query =\n%s\nwant\n%s", query, want)
	}
	if args[0] != nil || args[1] != "u1" || args[4] != "30" || args[5] != "[]" {
		t.Errorf("args = %#v", args)
	}
	if _, ok := args[3].(*pq.StringArray); !ok {
		t.Errorf("tags arg = %T", args[3])
	}
}

func TestBuildInsertAddsMissingOwner(t *testing.T) {
	tbl := tables["clients"]
	cols, vals, _ := tbl.decodeRow([]byte(`{"id":"c1","name":"Acme"}`))
	query, args := tbl.buildInsert(cols, vals, "u1")
	if !strings.HasPrefix(query, "INSERT INTO clients (id, name, created_by)") || args[2] != "u1" {
		t.Errorf("query = %s args = %v", query, args)
	}
}

func TestBuildUpdateIsScoped(t *testing.T) {
	tbl := tables["tasks"]
	cols, vals, _ := tbl.decodeRow([]byte(`{"id":"other","created_by":"x","title":"y","updated_at":"2025-03-10T09:00:00Z"}`))

	query, args := tbl.buildUpdate(cols, vals, "t1", "u1")
	if !strings.HasPrefix(query, "UPDATE tasks SET title = $1, updated_at = $2 WHERE id = $3 AND (") {
		t.Errorf("query = %s", query)
	}
	if strings.Contains(query, "{user}") || !strings.Contains(query, "created_by = $4") {
		t.Errorf("scope not bound: %s", query)
	}
	if len(args) != 4 || args[2] != "t1" || args[3] != "u1" {
		t.Errorf("args = %v", args)
	}

	if q, _ := tbl.buildUpdate([]string{"id"}, []any{"x"}, "t1", "u1"); q != "" {
		t.Errorf("id-only update should be empty, got %s", q)
	}
}

func TestBuildUpdateKeepsUnseenOpenSessions(t *testing.T) {
	tbl := tables["tasks"]
	cols, vals, _ := tbl.decodeRow([]byte(`{"title":"y","time_tracking":[
		{"id":"s2","userId":"u1","startTime":"2025-03-10T10:00:00Z","duration":0}
	],"time_started":"2025-03-10T10:00:00Z"}`))

	query, args := tbl.buildUpdate(cols, vals, "t1", "u1")
	wantSet := "UPDATE tasks SET time_started = $1, time_tracking = $2::jsonb, title = $3 WHERE id = $4 AND ("
	if !strings.HasPrefix(query, wantSet) {
		t.Errorf("query = %s", query)
	}
	if !strings.Contains(query, "NOT EXISTS (SELECT 1 FROM jsonb_array_elements(time_tracking) s") ||
		!strings.Contains(query, "NOT $2::jsonb @> jsonb_build_array(jsonb_build_object('id', s->'id'))") {
		t.Errorf("open sessions not guarded: %s", query)
	}
	if strings.Contains(query, "{new:") || strings.Contains(query, "{user}") || strings.Contains(query, "userId") {
		t.Errorf("guard not bound or too permissive: %s", query)
	}
	if len(args) != 5 || args[4] != "u1" {
		t.Errorf("args = %v", args)
	}

	// ending the run lets the writer drop its own open session only
	cols, vals, _ = tbl.decodeRow([]byte(`{"time_tracking":[],"time_started":null}`))
	query, _ = tbl.buildUpdate(cols, vals, "t1", "u1")
	if !strings.Contains(query, "s->>'userId' IS DISTINCT FROM $4::uuid::text") {
		t.Errorf("own session not exempted: %s", query)
	}

	// writes that leave time_tracking alone are not guarded
	cols, vals, _ = tbl.decodeRow([]byte(`{"title":"z"}`))
	if query, _ = tbl.buildUpdate(cols, vals, "t1", "u1"); strings.Contains(query, "jsonb_array_elements") {
		t.Errorf("unexpected guard: %s", query)
	}
}

func TestBuildUpdateProfileRoleNeedsAdmin(t *testing.T) {
	tbl := tables["profiles"]
	admin := func(arg int) string {
		return fmt.Sprintf("EXISTS (SELECT 1 FROM profiles WHERE id = $%d AND role = 'admin')", arg)
	}

	tests := []struct {
		body  string
		guard func(arg int) string
	}{
		{body: `{"name":"Ada"}`, guard: func(int) string { return "" }},
		{body: `{"name":"Ada","role":"admin"}`, guard: func(arg int) string { return " AND (" + admin(arg) + ")" }},
		{body: `{"team_id":"team-2","theme":"dark"}`, guard: func(arg int) string {
			return fmt.Sprintf(" AND (id = $%d OR %s)", arg, admin(arg))
		}},
	}
	for _, tt := range tests {
		cols, vals, err := tbl.decodeRow([]byte(tt.body))
		if err != nil {
			t.Fatal(err)
		}
		query, args := tbl.buildUpdate(cols, vals, "u2", "u1")
		userArg := len(args)
		if args[userArg-2] != "u2" || args[userArg-1] != "u1" {
			t.Errorf("%s: args = %v", tt.body, args)
		}
		scope := tbl.scopeSQL(userArg)
		i := strings.Index(query, scope)
		if i < 0 {
			t.Fatalf("%s: scope missing from %s", tt.body, query)
		}
		if diff := cmp.Diff(tt.guard(userArg), query[i+len(scope):]); diff != "" {
			t.Errorf("%s: guard (-want +got):\n%s", tt.body, diff)
		}
	}
}

func TestUpdateGuardsHaveRejections(t *testing.T) {
	for name, tbl := range tables {
		if (tbl.guard == nil) != (tbl.rejected == nil) {
			t.Errorf("%s: guard and rejection must be set together", name)
		}
	}
	if got := tables["tasks"].rejected; got.Code != http.StatusConflict {
		t.Errorf("tasks rejection = %d", got.Code)
	}
	if got := tables["profiles"].rejected; got.Code != http.StatusForbidden {
		t.Errorf("profiles rejection = %d", got.Code)
	}
}

func TestBuildSelectFilters(t *testing.T) {
	query, args := tables["tasks"].buildSelect(map[string]string{
		"project_id":        "p1",
		"1=1; DROP TABLE x": "y",
	}, "u1")
	if strings.Contains(query, "DROP") {
		t.Fatalf("unknown filter reached SQL: %s", query)
	}
	if !strings.Contains(query, "project_id::text = $2") || len(args) != 2 {
		t.Errorf("query = %s args = %v", query, args)
	}
	if !strings.Contains(query, "json_agg(r ORDER BY r.created_at)") {
		t.Errorf("rows not aggregated: %s", query)
	}
}

func TestDBErrorKeepsPostgresFields(t *testing.T) {
	c, rec := newContext(http.MethodPost, "", "tasks")
	err := dbError(c, &pq.Error{
		Code:    "23503",
		Message: "insert violates foreign key constraint",
		Detail:  "Key (project_id)=(p9) is not present",
		Hint:    "create the project first",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d", rec.Code)
	}
	var body apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	want := apiError{
		Code:    "23503",
		Message: "insert violates foreign key constraint",
		Details: "Key (project_id)=(p9) is not present",
		Hint:    "create the project first",
	}
	if body != want {
		t.Errorf("body = %+v", body)
	}
}

func TestSignupValidation(t *testing.T) {
	tests := []struct {
		req  signupRequest
		want string
	}{
		{signupRequest{Name: "Ada", Email: "ada@example.com", Password: "longenough"}, ""},
		{signupRequest{Email: "ada@example.com", Password: "longenough"}, "name, email, and password required"},
		{signupRequest{Name: "Ada", Email: "not-an-email", Password: "longenough"}, "invalid email address"},
		{signupRequest{Name: "Ada", Email: "ada@example.com", Password: "short"}, "password must be at least 8 characters"},
	}
	for _, tt := range tests {
		if got := tt.req.validate(); got != tt.want {
			t.Errorf("validate(%+v) = %q, want %q", tt.req, got, tt.want)
		}
	}
}
