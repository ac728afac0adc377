package store

import "github.com/existflow/tasko/internal/model"

// TasksForUser returns the tasks a user created or is assigned to
func (s *Store) TasksForUser(userID string) []model.Task {
	st := s.State()
	return filter(st.Tasks, func(t model.Task) bool {
		return t.AssigneeID == userID || t.CreatedByID == userID
	})
}

// ProjectsForUser returns projects of the user's team plus projects holding
// one of the user's tasks
func (s *Store) ProjectsForUser(userID string) []model.Project {
	st := s.State()
	teamID := ""
	for _, u := range st.Users {
		if u.ID == userID {
			teamID = u.TeamID
		}
	}
	own := make(map[string]bool)
	for _, t := range st.Tasks {
		if t.AssigneeID == userID || t.CreatedByID == userID {
			own[t.ProjectID] = true
		}
	}
	return filter(st.Projects, func(p model.Project) bool {
		return (teamID != "" && p.TeamID == teamID) || own[p.ID]
	})
}

// ClientsForUser returns clients the user created or that belong to the user's team
func (s *Store) ClientsForUser(userID string) []model.Client {
	st := s.State()
	teamID := ""
	for _, u := range st.Users {
		if u.ID == userID {
			teamID = u.TeamID
		}
	}
	return filter(st.Clients, func(c model.Client) bool {
		return c.CreatedBy == userID || (teamID != "" && c.TeamID == teamID)
	})
}

// TasksForTeam returns tasks in projects owned by the team
func (s *Store) TasksForTeam(teamID string) []model.Task {
	st := s.State()
	projects := make(map[string]bool)
	for _, p := range st.Projects {
		if p.TeamID == teamID {
			projects[p.ID] = true
		}
	}
	return filter(st.Tasks, func(t model.Task) bool { return projects[t.ProjectID] })
}

func (s *Store) ProjectsForTeam(teamID string) []model.Project {
	return filter(s.State().Projects, func(p model.Project) bool { return p.TeamID == teamID })
}

func (s *Store) ClientsForTeam(teamID string) []model.Client {
	return filter(s.State().Clients, func(c model.Client) bool { return c.TeamID == teamID })
}

// HasAccess reports whether the user may see the entity of kind with id.
// Admins see everything.
func (s *Store) HasAccess(userID string, kind Kind, id string) bool {
	if u, ok := s.User(userID); ok && u.Role == model.RoleAdmin {
		return true
	}
	switch kind {
	case KindTask:
		return containsID(s.TasksForUser(userID), id, func(t model.Task) string { return t.ID })
	case KindProject:
		return containsID(s.ProjectsForUser(userID), id, func(p model.Project) string { return p.ID })
	case KindClient:
		return containsID(s.ClientsForUser(userID), id, func(c model.Client) string { return c.ID })
	case KindTeam:
		team, ok := s.Team(id)
		return ok && team.HasMember(userID)
	case KindUser:
		return userID == id
	}
	return false
}

// IsCurrentUserAdmin reports whether the signed-in user has the admin role
func (s *Store) IsCurrentUserAdmin() bool {
	cur := s.CurrentUser()
	return cur != nil && cur.Role == model.RoleAdmin
}

// IsCurrentUserInTeam reports whether the signed-in user belongs to teamID
func (s *Store) IsCurrentUserInTeam(teamID string) bool {
	cur := s.CurrentUser()
	if cur == nil {
		return false
	}
	if cur.TeamID == teamID {
		return true
	}
	team, ok := s.Team(teamID)
	return ok && team.HasMember(cur.ID)
}

func containsID[T any](list []T, id string, key func(T) string) bool {
	for _, v := range list {
		if key(v) == id {
			return true
		}
	}
	return false
}
