package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/existflow/tasko/internal/model"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
)

type columnKind int

const (
	colScalar columnKind = iota
	colJSON
	colTextArray
)

// tableSpec describes a table exposed under /rest/v1. scope is a boolean SQL
// expression over the table's columns in which {user} stands for the session
// user id; rows outside the scope are invisible to that user.
type tableSpec struct {
	name     string
	columns  map[string]columnKind
	owner    string // column forced to the session user on insert
	scope    string
	order    string
	noInsert bool // rows are created by the service itself

	// guard adds conditions an update must meet against the stored row.
	// {new:col} stands for the value being written to col. An update in
	// scope that fails a guard is answered with rejected.
	guard    func(cols []string, vals []any) []string
	rejected *echo.HTTPError
}

const (
	myTeam  = `(SELECT team_id FROM profiles WHERE id = {user})`
	isAdmin = `EXISTS (SELECT 1 FROM profiles WHERE id = {user} AND role = 'admin')`
)

var tables = map[string]tableSpec{
	"tasks": {
		name: "tasks",
		columns: map[string]columnKind{
			"id": colScalar, "title": colScalar, "description": colScalar, "status": colScalar,
			"priority": colScalar, "assignee_id": colScalar, "created_by": colScalar, "project_id": colScalar,
			"due_date": colScalar, "created_at": colScalar, "updated_at": colScalar, "tags": colTextArray,
			"time_estimate": colScalar, "time_spent": colScalar, "time_started": colScalar,
			"time_tracking": colJSON, "hourly_rate": colScalar, "cost": colScalar,
		},
		owner: "created_by",
		scope: `created_by = {user} OR assignee_id = {user}
			OR project_id IN (SELECT id FROM projects WHERE team_id = ` + myTeam + `)
			OR ` + isAdmin,
		order: "created_at",
		guard: keepOpenSessions,
		rejected: httpError(http.StatusConflict, apiError{
			Code:    codeUniqueViolation,
			Message: "task has an open time-tracking session this write does not include",
			Details: "the stored time_tracking holds a running session missing from the update",
			Hint:    "reload the task before changing its time tracking",
		}),
	},
	"projects": {
		name: "projects",
		columns: map[string]columnKind{
			"id": colScalar, "name": colScalar, "description": colScalar, "team_id": colScalar,
			"client_id": colScalar, "category": colScalar, "created_at": colScalar, "budget": colScalar,
			"hourly_rate": colScalar, "revenue": colScalar,
		},
		scope: `team_id IS NULL OR team_id = ` + myTeam + `
			OR id IN (SELECT project_id FROM tasks WHERE created_by = {user} OR assignee_id = {user})
			OR ` + isAdmin,
		order: "created_at",
	},
	"clients": {
		name: "clients",
		columns: map[string]columnKind{
			"id": colScalar, "name": colScalar, "email": colScalar, "phone": colScalar,
			"company": colScalar, "avatar": colScalar, "status": colScalar, "created_by": colScalar,
			"team_id": colScalar, "created_at": colScalar,
		},
		owner: "created_by",
		scope: `created_by = {user} OR team_id = ` + myTeam + ` OR ` + isAdmin,
		order: "created_at",
	},
	"profiles": {
		name: "profiles",
		columns: map[string]columnKind{
			"name": colScalar, "email": colScalar, "avatar": colScalar, "role": colScalar,
			"theme": colScalar, "hourly_rate": colScalar, "team_id": colScalar, "updated_at": colScalar,
		},
		scope:    `id = {user} OR team_id = ` + myTeam + ` OR ` + isAdmin,
		order:    "created_at",
		noInsert: true,
		guard:    adminOnlyProfileFields,
		rejected: httpError(http.StatusForbidden, apiError{
			Message: "only an admin can change roles or move other users between teams",
		}),
	},
	"teams": {
		name: "teams",
		columns: map[string]columnKind{
			"id": colScalar, "name": colScalar, "description": colScalar, "created_at": colScalar,
		},
		scope: `{user}::uuid IS NOT NULL`,
		order: "created_at",
	},
	"invitations": {
		name: "invitations",
		columns: map[string]columnKind{
			"id": colScalar, "email": colScalar, "name": colScalar, "team_id": colScalar,
			"project_id": colScalar, "role": colScalar, "status": colScalar, "invited_by": colScalar,
			"invited_at": colScalar, "expires_at": colScalar, "token": colScalar,
		},
		owner: "invited_by",
		scope: `invited_by = {user} OR email = (SELECT email FROM profiles WHERE id = {user}) OR ` + isAdmin,
		order: "invited_at",
	},
}

// scopeSQL substitutes the placeholder for the user id argument
func (t tableSpec) scopeSQL(arg int) string {
	return bindUser(t.scope, arg)
}

func bindUser(expr string, arg int) string {
	return "(" + strings.ReplaceAll(expr, "{user}", fmt.Sprintf("$%d", arg)) + ")"
}

// keepOpenSessions refuses a time_tracking write that would drop a running
// session the writer has not seen. A write that also clears time_started ends
// the writer's own run and may drop that user's open session.
func keepOpenSessions(cols []string, vals []any) []string {
	if indexOf(cols, "time_tracking") < 0 {
		return nil
	}
	cond := `NOT EXISTS (SELECT 1 FROM jsonb_array_elements(time_tracking) s
		WHERE s->>'endTime' IS NULL
		AND NOT {new:time_tracking} @> jsonb_build_array(jsonb_build_object('id', s->'id'))`
	if i := indexOf(cols, "time_started"); i >= 0 && vals[i] == nil {
		cond += ` AND s->>'userId' IS DISTINCT FROM {user}::uuid::text`
	}
	return []string{cond + ")"}
}

// adminOnlyProfileFields keeps roles admin-managed. Members may set their
// own team but not anyone else's.
func adminOnlyProfileFields(cols []string, _ []any) []string {
	var conds []string
	if indexOf(cols, "role") >= 0 {
		conds = append(conds, isAdmin)
	}
	if indexOf(cols, "team_id") >= 0 {
		conds = append(conds, `id = {user} OR `+isAdmin)
	}
	return conds
}

// decodeRow reads a JSON object and keeps the columns the table accepts, in
// sorted order so generated SQL is stable. Unknown keys are ignored.
func (t tableSpec) decodeRow(body []byte) (cols []string, vals []any, err error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("invalid row: %w", err)
	}

	for name := range raw {
		if _, ok := t.columns[name]; ok {
			cols = append(cols, name)
		}
	}
	sort.Strings(cols)

	for _, name := range cols {
		v, err := convert(t.columns[name], raw[name])
		if err != nil {
			return nil, nil, fmt.Errorf("column %s: %w", name, err)
		}
		vals = append(vals, v)
	}
	return cols, vals, nil
}

func convert(kind columnKind, raw json.RawMessage) (any, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	switch kind {
	case colJSON:
		return string(raw), nil
	case colTextArray:
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return pq.Array(list), nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch n := v.(type) {
	case map[string]any, []any:
		return nil, fmt.Errorf("expected a scalar")
	case json.Number:
		return n.String(), nil
	}
	return v, nil
}

func placeholder(kind columnKind, n int) string {
	if kind == colJSON {
		return fmt.Sprintf("$%d::jsonb", n)
	}
	return fmt.Sprintf("$%d", n)
}

// buildInsert returns the INSERT statement for cols. The owner column is
// appended or overwritten with userID.
func (t tableSpec) buildInsert(cols []string, vals []any, userID string) (string, []any) {
	if t.owner != "" {
		if i := indexOf(cols, t.owner); i >= 0 {
			vals[i] = userID
		} else {
			cols = append(cols, t.owner)
			vals = append(vals, userID)
		}
	}

	marks := make([]string, len(cols))
	for i, c := range cols {
		marks[i] = placeholder(t.columns[c], i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(cols, ", "), strings.Join(marks, ", "))
	return query, vals
}

// buildUpdate returns an UPDATE of cols on the row with id, limited to rows
// in the user's scope and to rows passing the table's guard. The id column
// itself is never updated.
func (t tableSpec) buildUpdate(cols []string, vals []any, id, userID string) (string, []any) {
	var (
		sets []string
		args []any
	)
	marks := make(map[string]string)
	for i, c := range cols {
		if c == "id" || c == t.owner {
			continue
		}
		args = append(args, vals[i])
		marks[c] = placeholder(t.columns[c], len(args))
		sets = append(sets, fmt.Sprintf("%s = %s", c, marks[c]))
	}
	if len(sets) == 0 {
		return "", nil
	}
	args = append(args, id, userID)
	where := []string{fmt.Sprintf("id = $%d", len(args)-1), t.scopeSQL(len(args))}

	if t.guard != nil {
		for _, cond := range t.guard(cols, vals) {
			for c, mark := range marks {
				cond = strings.ReplaceAll(cond, "{new:"+c+"}", mark)
			}
			where = append(where, bindUser(cond, len(args)))
		}
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		t.name, strings.Join(sets, ", "), strings.Join(where, " AND "))
	return query, args
}

// buildExists reports whether the row with id is in the user's scope
func (t tableSpec) buildExists(id, userID string) (string, []any) {
	return fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND %s)", t.name, t.scopeSQL(2)),
		[]any{id, userID}
}

func (t tableSpec) buildDelete(id, userID string) (string, []any) {
	return fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND %s", t.name, t.scopeSQL(2)), []any{id, userID}
}

// buildSelect aggregates visible rows into one JSON array so column names
// come back exactly as stored
func (t tableSpec) buildSelect(filters map[string]string, userID string) (string, []any) {
	args := []any{userID}
	where := []string{t.scopeSQL(1)}

	names := make([]string, 0, len(filters))
	for name := range filters {
		if _, ok := t.columns[name]; ok || name == "id" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, filters[name])
		where = append(where, fmt.Sprintf("%s::text = $%d", name, len(args)))
	}

	query := fmt.Sprintf(
		"SELECT COALESCE(json_agg(r ORDER BY r.%s), '[]'::json) FROM (SELECT * FROM %s WHERE %s) r",
		t.order, t.name, strings.Join(where, " AND "))
	return query, args
}

// openSessions counts running sessions in a time_tracking value. A task may
// carry at most one.
func openSessions(raw any) (int, error) {
	s, ok := raw.(string)
	if !ok {
		return 0, nil
	}
	var records []model.TimeTrackingRecord
	if err := json.Unmarshal([]byte(s), &records); err != nil {
		return 0, err
	}
	n := 0
	for _, r := range records {
		if r.Open() {
			n++
		}
	}
	return n, nil
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
