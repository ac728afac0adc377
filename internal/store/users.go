package store

import (
	"errors"
	"fmt"

	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
)

// User returns the user with id
func (s *Store) User(id string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.state.Users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

// AddUser appends a user locally. Profiles are created remotely at signup,
// so nothing is dispatched.
func (s *Store) AddUser(draft model.User) (model.User, error) {
	if draft.Role == "" {
		draft.Role = model.RoleMember
	}
	if draft.Theme == "" {
		draft.Theme = model.ThemeSystem
	}
	if err := draft.Validate(); err != nil {
		return model.User{}, err
	}

	user := draft
	if user.ID == "" {
		user.ID = s.newID()
	}
	now := s.now()
	user.CreatedAt = &now
	user.UpdatedAt = &now

	_ = s.commit(func(st *State) error {
		st.Users = appendCopy(st.Users, user)
		return nil
	})
	s.log.Info("User added", logger.F("user", user.ID))
	return user, nil
}

// UpdateUser merges patch into the user with id. The current-user slot
// follows when it holds the same user.
func (s *Store) UpdateUser(id string, patch model.UserPatch) (model.User, error) {
	var (
		updated model.User
		changed []string
	)
	err := s.commit(func(st *State) error {
		for i, u := range st.Users {
			if u.ID != id {
				continue
			}
			updated, changed = patch.Apply(u)
			now := s.now()
			updated.UpdatedAt = &now
			users := make([]model.User, len(st.Users))
			copy(users, st.Users)
			users[i] = updated
			st.Users = users
			if st.CurrentUser != nil && st.CurrentUser.ID == id {
				cur := updated
				st.CurrentUser = &cur
			}
			return nil
		}
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	})
	if err != nil {
		return model.User{}, err
	}

	changed = append(changed, model.FieldUpdatedAt)
	s.dispatch(Mutation{Kind: KindUser, Op: OpUpdate, ID: id, Record: updated, Fields: changed})
	return updated, nil
}

// DeleteUser removes a user unless the user is signed in, has assigned
// tasks or belongs to a team. A guarded delete is a logged no-op.
func (s *Store) DeleteUser(id string) error {
	var reason string
	err := s.commit(func(st *State) error {
		if !hasUser(st.Users, id) {
			return fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		if reason = deleteUserBlocker(*st, id); reason != "" {
			return errGuarded
		}
		st.Users = filter(st.Users, func(u model.User) bool { return u.ID != id })
		return nil
	})
	switch {
	case errors.Is(err, errGuarded):
		s.log.Warn("User delete refused", logger.F("user", id), logger.F("reason", reason))
		return nil
	case err != nil:
		return err
	}
	s.log.Info("User deleted", logger.F("user", id))
	return nil
}

// errGuarded aborts a commit whose guard refused the change
var errGuarded = errors.New("guarded")

func hasUser(users []model.User, id string) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func deleteUserBlocker(st State, id string) string {
	if st.CurrentUser != nil && st.CurrentUser.ID == id {
		return "current user"
	}
	for _, t := range st.Tasks {
		if t.AssigneeID == id {
			return "has assigned tasks"
		}
	}
	for _, team := range st.Teams {
		if team.HasMember(id) {
			return "team member"
		}
	}
	return ""
}

// SetUserRole changes the role of a user
func (s *Store) SetUserRole(id string, role model.Role) (model.User, error) {
	return s.UpdateUser(id, model.UserPatch{Role: &role})
}

// SetUserHourlyRate changes the default hourly rate of a user
func (s *Store) SetUserHourlyRate(id string, rate float64) (model.User, error) {
	return s.UpdateUser(id, model.UserPatch{HourlyRate: &rate})
}

// SetUserTheme changes the theme preference of a user
func (s *Store) SetUserTheme(id string, theme model.Theme) (model.User, error) {
	return s.UpdateUser(id, model.UserPatch{Theme: &theme})
}
