package remote

import (
	"time"

	"github.com/existflow/tasko/internal/model"
)

// Table names on the remote service
const (
	TableTasks       = "tasks"
	TableProjects    = "projects"
	TableClients     = "clients"
	TableProfiles    = "profiles"
	TableTeams       = "teams"
	TableInvitations = "invitations"
)

// TaskRow is the snake_case shape of a task on the remote service
type TaskRow struct {
	ID           string                     `json:"id"`
	Title        string                     `json:"title"`
	Description  string                     `json:"description"`
	Status       string                     `json:"status"`
	Priority     string                     `json:"priority"`
	AssigneeID   *string                    `json:"assignee_id"`
	CreatedBy    string                     `json:"created_by"`
	ProjectID    string                     `json:"project_id"`
	DueDate      *time.Time                 `json:"due_date,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
	Tags         []string                   `json:"tags"`
	TimeEstimate *int                       `json:"time_estimate,omitempty"`
	TimeSpent    float64                    `json:"time_spent"`
	TimeStarted  *time.Time                 `json:"time_started,omitempty"`
	TimeTracking []model.TimeTrackingRecord `json:"time_tracking"`
	HourlyRate   *float64                   `json:"hourly_rate,omitempty"`
	Cost         float64                    `json:"cost"`
}

// ProjectRow is the remote shape of a project. The task index is not
// stored; it is rebuilt from task rows.
type ProjectRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TeamID      *string   `json:"team_id"`
	ClientID    *string   `json:"client_id"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Budget      *float64  `json:"budget,omitempty"`
	HourlyRate  *float64  `json:"hourly_rate,omitempty"`
	Revenue     *float64  `json:"revenue,omitempty"`
}

type ClientRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company"`
	Avatar    string    `json:"avatar,omitempty"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"created_by,omitempty"`
	TeamID    *string   `json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileRow is a user as stored in the profiles table
type ProfileRow struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Avatar     string     `json:"avatar,omitempty"`
	Role       string     `json:"role"`
	Theme      string     `json:"theme,omitempty"`
	HourlyRate *float64   `json:"hourly_rate,omitempty"`
	TeamID     *string    `json:"team_id"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// TeamRow omits members; membership lives on profiles.team_id
type TeamRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type InvitationRow struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	TeamID    *string   `json:"team_id"`
	ProjectID *string   `json:"project_id"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	InvitedBy string    `json:"invited_by"`
	InvitedAt time.Time `json:"invited_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"token"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func TaskToRow(t model.Task) TaskRow {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	history := t.TimeTracking
	if history == nil {
		history = []model.TimeTrackingRecord{}
	}
	return TaskRow{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       string(t.Status),
		Priority:     string(t.Priority),
		AssigneeID:   nullable(t.AssigneeID),
		CreatedBy:    t.CreatedByID,
		ProjectID:    t.ProjectID,
		DueDate:      t.DueDate,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Tags:         tags,
		TimeEstimate: t.TimeEstimate,
		TimeSpent:    t.TimeSpent,
		TimeStarted:  t.TimeStarted,
		TimeTracking: history,
		HourlyRate:   t.HourlyRate,
		Cost:         t.Cost,
	}
}

// TaskFromRow maps a row back and recomputes cost so rows written by older
// clients cannot carry a stale value.
func TaskFromRow(r TaskRow) model.Task {
	t := model.Task{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Status:       model.Status(r.Status),
		Priority:     model.Priority(r.Priority),
		AssigneeID:   deref(r.AssigneeID),
		CreatedByID:  r.CreatedBy,
		ProjectID:    r.ProjectID,
		DueDate:      r.DueDate,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		Tags:         r.Tags,
		TimeEstimate: r.TimeEstimate,
		TimeSpent:    r.TimeSpent,
		TimeStarted:  r.TimeStarted,
		TimeTracking: r.TimeTracking,
		HourlyRate:   r.HourlyRate,
	}
	t.Derive(false)
	return t
}

func ProjectToRow(p model.Project) ProjectRow {
	return ProjectRow{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		TeamID:      nullable(p.TeamID),
		ClientID:    nullable(p.ClientID),
		Category:    string(p.Category),
		CreatedAt:   p.CreatedAt,
		Budget:      p.Budget,
		HourlyRate:  p.HourlyRate,
		Revenue:     p.Revenue,
	}
}

func ProjectFromRow(r ProjectRow) model.Project {
	return model.Project{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		TeamID:      deref(r.TeamID),
		ClientID:    deref(r.ClientID),
		Category:    model.Category(r.Category),
		CreatedAt:   r.CreatedAt,
		Tasks:       []string{},
		Budget:      r.Budget,
		HourlyRate:  r.HourlyRate,
		Revenue:     r.Revenue,
	}
}

func ClientToRow(c model.Client) ClientRow {
	return ClientRow{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Avatar:    c.Avatar,
		Status:    string(c.Status),
		CreatedBy: c.CreatedBy,
		TeamID:    nullable(c.TeamID),
		CreatedAt: c.CreatedAt,
	}
}

func ClientFromRow(r ClientRow) model.Client {
	return model.Client{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Company:   r.Company,
		Avatar:    r.Avatar,
		Status:    model.ClientStatus(r.Status),
		CreatedBy: r.CreatedBy,
		TeamID:    deref(r.TeamID),
		CreatedAt: r.CreatedAt,
	}
}

func UserToRow(u model.User) ProfileRow {
	return ProfileRow{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Avatar:     u.Avatar,
		Role:       string(u.Role),
		Theme:      string(u.Theme),
		HourlyRate: u.HourlyRate,
		TeamID:     nullable(u.TeamID),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func UserFromRow(r ProfileRow) model.User {
	return model.User{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		Avatar:     r.Avatar,
		Role:       model.Role(r.Role),
		Theme:      model.Theme(r.Theme),
		HourlyRate: r.HourlyRate,
		TeamID:     deref(r.TeamID),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func TeamToRow(t model.Team) TeamRow {
	return TeamRow{ID: t.ID, Name: t.Name, Description: t.Description, CreatedAt: t.CreatedAt}
}

// TeamFromRow maps a team row and attaches the members found among users
func TeamFromRow(r TeamRow, users []model.User) model.Team {
	members := []model.User{}
	for _, u := range users {
		if u.TeamID == r.ID {
			members = append(members, u)
		}
	}
	return model.Team{ID: r.ID, Name: r.Name, Description: r.Description, Members: members, CreatedAt: r.CreatedAt}
}

func InvitationToRow(i model.Invitation) InvitationRow {
	return InvitationRow{
		ID:        i.ID,
		Email:     i.Email,
		Name:      i.Name,
		TeamID:    nullable(i.TeamID),
		ProjectID: nullable(i.ProjectID),
		Role:      string(i.Role),
		Status:    string(i.Status),
		InvitedBy: i.InvitedBy,
		InvitedAt: i.InvitedAt,
		ExpiresAt: i.ExpiresAt,
		Token:     i.Token,
	}
}

func InvitationFromRow(r InvitationRow) model.Invitation {
	return model.Invitation{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		TeamID:    deref(r.TeamID),
		ProjectID: deref(r.ProjectID),
		Role:      model.Role(r.Role),
		Status:    model.InvitationStatus(r.Status),
		InvitedBy: r.InvitedBy,
		InvitedAt: r.InvitedAt,
		ExpiresAt: r.ExpiresAt,
		Token:     r.Token,
	}
}
