package store

import (
	"fmt"

	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
)

// Team returns the team with id
func (s *Store) Team(id string) (model.Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.state.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return model.Team{}, false
}

// AddTeam validates draft and appends it
func (s *Store) AddTeam(draft model.Team) (model.Team, error) {
	if err := draft.Validate(); err != nil {
		return model.Team{}, err
	}
	team := draft
	team.ID = s.newID()
	team.CreatedAt = s.now()
	if team.Members == nil {
		team.Members = []model.User{}
	}

	_ = s.commit(func(st *State) error {
		st.Teams = appendCopy(st.Teams, team)
		return nil
	})
	s.log.Info("Team added", logger.F("team", team.ID))
	s.dispatch(Mutation{Kind: KindTeam, Op: OpInsert, ID: team.ID, Record: team})
	return team, nil
}

// UpdateTeam merges patch into the team with id
func (s *Store) UpdateTeam(id string, patch model.TeamPatch) (model.Team, error) {
	updated, err := s.replaceTeam(id, func(t model.Team) (model.Team, error) {
		return patch.Apply(t), nil
	})
	if err != nil {
		return model.Team{}, err
	}
	var fields []string
	if patch.Name != nil {
		fields = append(fields, model.FieldName)
	}
	if patch.Description != nil {
		fields = append(fields, model.FieldDescription)
	}
	s.dispatch(Mutation{Kind: KindTeam, Op: OpUpdate, ID: id, Record: updated, Fields: fields})
	return updated, nil
}

// DeleteTeam removes the team. Projects keep their team id.
func (s *Store) DeleteTeam(id string) error {
	err := s.commit(func(st *State) error {
		before := len(st.Teams)
		st.Teams = filter(st.Teams, func(t model.Team) bool { return t.ID != id })
		if len(st.Teams) == before {
			return fmt.Errorf("team %s: %w", id, ErrNotFound)
		}
		if st.CurrentTeam != nil && st.CurrentTeam.ID == id {
			st.CurrentTeam = nil
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.dispatch(Mutation{Kind: KindTeam, Op: OpDelete, ID: id})
	return nil
}

// AddMemberToTeam adds the user to the team's member list and records the
// team on the user. Adding an existing member is a no-op.
func (s *Store) AddMemberToTeam(teamID, userID string) (model.Team, error) {
	user, ok := s.User(userID)
	if !ok {
		return model.Team{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	team, err := s.replaceTeam(teamID, func(t model.Team) (model.Team, error) {
		if t.HasMember(userID) {
			return t, nil
		}
		members := make([]model.User, 0, len(t.Members)+1)
		members = append(members, t.Members...)
		t.Members = append(members, user)
		return t, nil
	})
	if err != nil {
		return model.Team{}, err
	}
	if user.TeamID != teamID {
		if _, err := s.UpdateUser(userID, model.UserPatch{TeamID: &teamID}); err != nil {
			return model.Team{}, err
		}
	}
	s.log.Info("Member added", logger.F("team", teamID), logger.F("user", userID))
	return team, nil
}

// RemoveMemberFromTeam drops the user from the team's member list
func (s *Store) RemoveMemberFromTeam(teamID, userID string) (model.Team, error) {
	team, err := s.replaceTeam(teamID, func(t model.Team) (model.Team, error) {
		t.Members = filter(t.Members, func(u model.User) bool { return u.ID != userID })
		return t, nil
	})
	if err != nil {
		return model.Team{}, err
	}
	if user, ok := s.User(userID); ok && user.TeamID == teamID {
		empty := ""
		if _, err := s.UpdateUser(userID, model.UserPatch{TeamID: &empty}); err != nil {
			return model.Team{}, err
		}
	}
	s.log.Info("Member removed", logger.F("team", teamID), logger.F("user", userID))
	return team, nil
}

func (s *Store) replaceTeam(id string, fn func(model.Team) (model.Team, error)) (model.Team, error) {
	var updated model.Team
	err := s.commit(func(st *State) error {
		for i, t := range st.Teams {
			if t.ID != id {
				continue
			}
			next, err := fn(t)
			if err != nil {
				return err
			}
			updated = next
			teams := make([]model.Team, len(st.Teams))
			copy(teams, st.Teams)
			teams[i] = updated
			st.Teams = teams
			if st.CurrentTeam != nil && st.CurrentTeam.ID == id {
				cur := updated
				st.CurrentTeam = &cur
			}
			return nil
		}
		return fmt.Errorf("team %s: %w", id, ErrNotFound)
	})
	return updated, err
}
