package model

import "time"

// Field names reported by patch Apply methods. They match the json names of
// the store records and are what the remote adapter maps to columns.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldStatus       = "status"
	FieldPriority     = "priority"
	FieldAssigneeID   = "assigneeId"
	FieldProjectID    = "projectId"
	FieldDueDate      = "dueDate"
	FieldTags         = "tags"
	FieldTimeEstimate = "timeEstimate"
	FieldTimeSpent    = "timeSpent"
	FieldTimeStarted  = "timeStarted"
	FieldTimeTracking = "timeTracking"
	FieldHourlyRate   = "hourlyRate"
	FieldCost         = "cost"
	FieldUpdatedAt    = "updatedAt"

	FieldName     = "name"
	FieldTeamID   = "teamId"
	FieldClientID = "clientId"
	FieldCategory = "category"
	FieldBudget   = "budget"
	FieldRevenue  = "revenue"

	FieldEmail   = "email"
	FieldPhone   = "phone"
	FieldCompany = "company"
	FieldAvatar  = "avatar"
	FieldRole    = "role"
	FieldTheme   = "theme"
)

// TaskPatch carries the fields of an update; nil means unchanged.
// Cost has no entry: it is always derived.
type TaskPatch struct {
	Title            *string
	Description      *string
	Status           *Status
	Priority         *Priority
	AssigneeID       *string // empty string unassigns
	ProjectID        *string
	DueDate          *time.Time
	ClearDueDate     bool
	Tags             *[]string
	TimeEstimate     *int
	TimeSpent        *float64 // ignored when TimeTracking is set
	TimeStarted      *time.Time
	ClearTimeStarted bool
	TimeTracking     *[]TimeTrackingRecord
	HourlyRate       *float64
	ClearHourlyRate  bool
}

// Apply merges the patch into t and recomputes derived fields when one of
// their inputs changed. It returns the new task and the names of every field
// that changed, derived ones included.
func (p TaskPatch) Apply(t Task) (Task, []string) {
	t = t.Clone()
	var changed []string
	mark := func(f string) { changed = append(changed, f) }

	if p.Title != nil {
		t.Title = *p.Title
		mark(FieldTitle)
	}
	if p.Description != nil {
		t.Description = *p.Description
		mark(FieldDescription)
	}
	if p.Status != nil {
		t.Status = *p.Status
		mark(FieldStatus)
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
		mark(FieldPriority)
	}
	if p.AssigneeID != nil {
		t.AssigneeID = *p.AssigneeID
		mark(FieldAssigneeID)
	}
	if p.ProjectID != nil {
		t.ProjectID = *p.ProjectID
		mark(FieldProjectID)
	}
	if p.ClearDueDate {
		t.DueDate = nil
		mark(FieldDueDate)
	} else if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
		mark(FieldDueDate)
	}
	if p.Tags != nil {
		t.Tags = append([]string{}, (*p.Tags)...)
		mark(FieldTags)
	}
	if p.TimeEstimate != nil {
		v := *p.TimeEstimate
		t.TimeEstimate = &v
		mark(FieldTimeEstimate)
	}
	if p.ClearTimeStarted {
		t.TimeStarted = nil
		mark(FieldTimeStarted)
	} else if p.TimeStarted != nil {
		s := *p.TimeStarted
		t.TimeStarted = &s
		mark(FieldTimeStarted)
	}
	if p.ClearHourlyRate {
		t.HourlyRate = nil
		mark(FieldHourlyRate)
	} else if p.HourlyRate != nil {
		r := *p.HourlyRate
		t.HourlyRate = &r
		mark(FieldHourlyRate)
	}

	fromHistory := false
	switch {
	case p.TimeTracking != nil:
		t.TimeTracking = append([]TimeTrackingRecord{}, (*p.TimeTracking)...)
		mark(FieldTimeTracking)
		fromHistory = true
	case p.TimeSpent != nil:
		t.TimeSpent = *p.TimeSpent
	}

	if fromHistory || p.TimeSpent != nil || p.HourlyRate != nil || p.ClearHourlyRate {
		t.Derive(fromHistory)
		changed = append(changed, FieldTimeSpent, FieldCost)
	}

	return t, changed
}

// ProjectPatch carries the fields of a project update. The task index is
// derived and cannot be patched.
type ProjectPatch struct {
	Name        *string
	Description *string
	TeamID      *string
	ClientID    *string // empty string unlinks the client
	Category    *Category
	Budget      *float64
	HourlyRate  *float64
	Revenue     *float64
}

// Apply merges the patch into p
func (pp ProjectPatch) Apply(p Project) (Project, []string) {
	var changed []string
	if pp.Name != nil {
		p.Name = *pp.Name
		changed = append(changed, FieldName)
	}
	if pp.Description != nil {
		p.Description = *pp.Description
		changed = append(changed, FieldDescription)
	}
	if pp.TeamID != nil {
		p.TeamID = *pp.TeamID
		changed = append(changed, FieldTeamID)
	}
	if pp.ClientID != nil {
		p.ClientID = *pp.ClientID
		changed = append(changed, FieldClientID)
	}
	if pp.Category != nil {
		p.Category = *pp.Category
		changed = append(changed, FieldCategory)
	}
	if pp.Budget != nil {
		v := *pp.Budget
		p.Budget = &v
		changed = append(changed, FieldBudget)
	}
	if pp.HourlyRate != nil {
		v := *pp.HourlyRate
		p.HourlyRate = &v
		changed = append(changed, FieldHourlyRate)
	}
	if pp.Revenue != nil {
		v := *pp.Revenue
		p.Revenue = &v
		changed = append(changed, FieldRevenue)
	}
	return p, changed
}

// ClientPatch carries the fields of a client update
type ClientPatch struct {
	Name    *string
	Email   *string
	Phone   *string
	Company *string
	Avatar  *string
	Status  *ClientStatus
	TeamID  *string
}

// Apply merges the patch into c
func (cp ClientPatch) Apply(c Client) (Client, []string) {
	var changed []string
	set := func(dst *string, src *string, field string) {
		if src != nil {
			*dst = *src
			changed = append(changed, field)
		}
	}
	set(&c.Name, cp.Name, FieldName)
	set(&c.Email, cp.Email, FieldEmail)
	set(&c.Phone, cp.Phone, FieldPhone)
	set(&c.Company, cp.Company, FieldCompany)
	set(&c.Avatar, cp.Avatar, FieldAvatar)
	set(&c.TeamID, cp.TeamID, FieldTeamID)
	if cp.Status != nil {
		c.Status = *cp.Status
		changed = append(changed, FieldStatus)
	}
	return c, changed
}

// UserPatch carries the fields of a user update
type UserPatch struct {
	Name       *string
	Email      *string
	Avatar     *string
	Role       *Role
	Theme      *Theme
	HourlyRate *float64
	TeamID     *string
}

// Apply merges the patch into u
func (up UserPatch) Apply(u User) (User, []string) {
	var changed []string
	if up.Name != nil {
		u.Name = *up.Name
		changed = append(changed, FieldName)
	}
	if up.Email != nil {
		u.Email = *up.Email
		changed = append(changed, FieldEmail)
	}
	if up.Avatar != nil {
		u.Avatar = *up.Avatar
		changed = append(changed, FieldAvatar)
	}
	if up.Role != nil {
		u.Role = *up.Role
		changed = append(changed, FieldRole)
	}
	if up.Theme != nil {
		u.Theme = *up.Theme
		changed = append(changed, FieldTheme)
	}
	if up.HourlyRate != nil {
		v := *up.HourlyRate
		u.HourlyRate = &v
		changed = append(changed, FieldHourlyRate)
	}
	if up.TeamID != nil {
		u.TeamID = *up.TeamID
		changed = append(changed, FieldTeamID)
	}
	return u, changed
}

// TeamPatch carries the fields of a team update. Membership changes go
// through the store's member operations.
type TeamPatch struct {
	Name        *string
	Description *string
}

// Apply merges the patch into t
func (tp TeamPatch) Apply(t Team) Team {
	if tp.Name != nil {
		t.Name = *tp.Name
	}
	if tp.Description != nil {
		t.Description = *tp.Description
	}
	return t
}

// InvitationPatch carries the fields of an invitation update
type InvitationPatch struct {
	Name      *string
	Role      *Role
	Status    *InvitationStatus
	TeamID    *string
	ProjectID *string
	ExpiresAt *time.Time
}

// Apply merges the patch into i
func (ip InvitationPatch) Apply(i Invitation) Invitation {
	if ip.Name != nil {
		i.Name = *ip.Name
	}
	if ip.Role != nil {
		i.Role = *ip.Role
	}
	if ip.Status != nil {
		i.Status = *ip.Status
	}
	if ip.TeamID != nil {
		i.TeamID = *ip.TeamID
	}
	if ip.ProjectID != nil {
		i.ProjectID = *ip.ProjectID
	}
	if ip.ExpiresAt != nil {
		i.ExpiresAt = *ip.ExpiresAt
	}
	return i
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
