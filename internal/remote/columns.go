package remote

import (
	"fmt"

	"github.com/existflow/tasko/internal/model"
	"github.com/existflow/tasko/internal/store"
)

type column[T any] struct {
	name  string
	value func(T) any
}

// Field name to column mappings. A field missing here is local-only and is
// never sent in an update.
var taskColumns = map[string]column[model.Task]{
	model.FieldTitle:        {"title", func(t model.Task) any { return t.Title }},
	model.FieldDescription:  {"description", func(t model.Task) any { return t.Description }},
	model.FieldStatus:       {"status", func(t model.Task) any { return string(t.Status) }},
	model.FieldPriority:     {"priority", func(t model.Task) any { return string(t.Priority) }},
	model.FieldAssigneeID:   {"assignee_id", func(t model.Task) any { return nullable(t.AssigneeID) }},
	model.FieldProjectID:    {"project_id", func(t model.Task) any { return t.ProjectID }},
	model.FieldDueDate:      {"due_date", func(t model.Task) any { return t.DueDate }},
	model.FieldTags:         {"tags", func(t model.Task) any { return TaskToRow(t).Tags }},
	model.FieldTimeEstimate: {"time_estimate", func(t model.Task) any { return t.TimeEstimate }},
	model.FieldTimeSpent:    {"time_spent", func(t model.Task) any { return t.TimeSpent }},
	model.FieldTimeStarted:  {"time_started", func(t model.Task) any { return t.TimeStarted }},
	model.FieldTimeTracking: {"time_tracking", func(t model.Task) any { return TaskToRow(t).TimeTracking }},
	model.FieldHourlyRate:   {"hourly_rate", func(t model.Task) any { return t.HourlyRate }},
	model.FieldCost:         {"cost", func(t model.Task) any { return t.Cost }},
	model.FieldUpdatedAt:    {"updated_at", func(t model.Task) any { return t.UpdatedAt }},
}

var projectColumns = map[string]column[model.Project]{
	model.FieldName:        {"name", func(p model.Project) any { return p.Name }},
	model.FieldDescription: {"description", func(p model.Project) any { return p.Description }},
	model.FieldTeamID:      {"team_id", func(p model.Project) any { return nullable(p.TeamID) }},
	model.FieldClientID:    {"client_id", func(p model.Project) any { return nullable(p.ClientID) }},
	model.FieldCategory:    {"category", func(p model.Project) any { return string(p.Category) }},
	model.FieldBudget:      {"budget", func(p model.Project) any { return p.Budget }},
	model.FieldHourlyRate:  {"hourly_rate", func(p model.Project) any { return p.HourlyRate }},
	model.FieldRevenue:     {"revenue", func(p model.Project) any { return p.Revenue }},
}

var clientColumns = map[string]column[model.Client]{
	model.FieldName:    {"name", func(c model.Client) any { return c.Name }},
	model.FieldEmail:   {"email", func(c model.Client) any { return c.Email }},
	model.FieldPhone:   {"phone", func(c model.Client) any { return c.Phone }},
	model.FieldCompany: {"company", func(c model.Client) any { return c.Company }},
	model.FieldAvatar:  {"avatar", func(c model.Client) any { return c.Avatar }},
	model.FieldStatus:  {"status", func(c model.Client) any { return string(c.Status) }},
	model.FieldTeamID:  {"team_id", func(c model.Client) any { return nullable(c.TeamID) }},
}

var profileColumns = map[string]column[model.User]{
	model.FieldName:       {"name", func(u model.User) any { return u.Name }},
	model.FieldEmail:      {"email", func(u model.User) any { return u.Email }},
	model.FieldAvatar:     {"avatar", func(u model.User) any { return u.Avatar }},
	model.FieldRole:       {"role", func(u model.User) any { return string(u.Role) }},
	model.FieldTheme:      {"theme", func(u model.User) any { return string(u.Theme) }},
	model.FieldHourlyRate: {"hourly_rate", func(u model.User) any { return u.HourlyRate }},
	model.FieldTeamID:     {"team_id", func(u model.User) any { return nullable(u.TeamID) }},
	model.FieldUpdatedAt:  {"updated_at", func(u model.User) any { return u.UpdatedAt }},
}

var teamColumns = map[string]column[model.Team]{
	model.FieldName:        {"name", func(t model.Team) any { return t.Name }},
	model.FieldDescription: {"description", func(t model.Team) any { return t.Description }},
}

var invitationColumns = map[string]column[model.Invitation]{
	model.FieldName:      {"name", func(i model.Invitation) any { return i.Name }},
	model.FieldRole:      {"role", func(i model.Invitation) any { return string(i.Role) }},
	model.FieldStatus:    {"status", func(i model.Invitation) any { return string(i.Status) }},
	model.FieldTeamID:    {"team_id", func(i model.Invitation) any { return nullable(i.TeamID) }},
	model.FieldProjectID: {"project_id", func(i model.Invitation) any { return nullable(i.ProjectID) }},
	"expiresAt":          {"expires_at", func(i model.Invitation) any { return i.ExpiresAt }},
}

func patchRow[T any](columns map[string]column[T], v T, fields []string) map[string]any {
	row := make(map[string]any, len(fields))
	for _, f := range fields {
		if col, ok := columns[f]; ok {
			row[col.name] = col.value(v)
		}
	}
	return row
}

// TaskPatchToRow returns only the columns for the changed fields of t
func TaskPatchToRow(t model.Task, fields []string) map[string]any {
	return patchRow(taskColumns, t, fields)
}

func ProjectPatchToRow(p model.Project, fields []string) map[string]any {
	return patchRow(projectColumns, p, fields)
}

func ClientPatchToRow(c model.Client, fields []string) map[string]any {
	return patchRow(clientColumns, c, fields)
}

func UserPatchToRow(u model.User, fields []string) map[string]any {
	return patchRow(profileColumns, u, fields)
}

// TableFor returns the remote table mirroring an entity kind
func TableFor(kind store.Kind) (string, error) {
	switch kind {
	case store.KindTask:
		return TableTasks, nil
	case store.KindProject:
		return TableProjects, nil
	case store.KindClient:
		return TableClients, nil
	case store.KindUser:
		return TableProfiles, nil
	case store.KindTeam:
		return TableTeams, nil
	case store.KindInvitation:
		return TableInvitations, nil
	}
	return "", fmt.Errorf("no table for kind %q", kind)
}

// InsertRow maps the record of an insert mutation to its full row
func InsertRow(m store.Mutation) (any, error) {
	switch r := m.Record.(type) {
	case model.Task:
		return TaskToRow(r), nil
	case model.Project:
		return ProjectToRow(r), nil
	case model.Client:
		return ClientToRow(r), nil
	case model.User:
		return UserToRow(r), nil
	case model.Team:
		return TeamToRow(r), nil
	case model.Invitation:
		return InvitationToRow(r), nil
	}
	return nil, fmt.Errorf("unsupported %s record %T", m.Kind, m.Record)
}

// UpdateRow maps an update mutation to the partial row of its changed columns
func UpdateRow(m store.Mutation) (map[string]any, error) {
	switch r := m.Record.(type) {
	case model.Task:
		return TaskPatchToRow(r, m.Fields), nil
	case model.Project:
		return ProjectPatchToRow(r, m.Fields), nil
	case model.Client:
		return ClientPatchToRow(r, m.Fields), nil
	case model.User:
		return UserPatchToRow(r, m.Fields), nil
	case model.Team:
		return patchRow(teamColumns, r, m.Fields), nil
	case model.Invitation:
		return patchRow(invitationColumns, r, m.Fields), nil
	}
	return nil, fmt.Errorf("unsupported %s record %T", m.Kind, m.Record)
}
