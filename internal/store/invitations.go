package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
)

var (
	// ErrInvitationExpired is returned when accepting an invitation past its expiry
	ErrInvitationExpired = errors.New("invitation expired")
	// ErrInvitationUsed is returned when accepting an invitation that is not pending
	ErrInvitationUsed = errors.New("invitation already used")
)

// CreateInvitation stores a pending invitation with a fresh token. It
// expires after model.InvitationTTL unless the draft carries a later expiry.
func (s *Store) CreateInvitation(draft model.Invitation) (model.Invitation, error) {
	if draft.Role == "" {
		draft.Role = model.RoleMember
	}
	if err := draft.Validate(); err != nil {
		return model.Invitation{}, err
	}
	token, err := newToken()
	if err != nil {
		return model.Invitation{}, fmt.Errorf("generate token: %w", err)
	}

	inv := draft
	inv.ID = s.newID()
	inv.Token = token
	inv.Status = model.InvitationPending
	inv.InvitedAt = s.now()
	if !inv.ExpiresAt.After(inv.InvitedAt) {
		inv.ExpiresAt = inv.InvitedAt.Add(model.InvitationTTL)
	}
	if inv.InvitedBy == "" {
		if cur := s.CurrentUser(); cur != nil {
			inv.InvitedBy = cur.ID
		}
	}

	_ = s.commit(func(st *State) error {
		st.Invitations = appendCopy(st.Invitations, inv)
		return nil
	})
	s.log.Info("Invitation created", logger.F("invitation", inv.ID), logger.F("email", inv.Email))
	s.dispatch(Mutation{Kind: KindInvitation, Op: OpInsert, ID: inv.ID, Record: inv})
	return inv, nil
}

// UpdateInvitation merges patch into the invitation with id
func (s *Store) UpdateInvitation(id string, patch model.InvitationPatch) (model.Invitation, error) {
	var updated model.Invitation
	err := s.commit(func(st *State) error {
		for i, inv := range st.Invitations {
			if inv.ID != id {
				continue
			}
			updated = patch.Apply(inv)
			invs := make([]model.Invitation, len(st.Invitations))
			copy(invs, st.Invitations)
			invs[i] = updated
			st.Invitations = invs
			return nil
		}
		return fmt.Errorf("invitation %s: %w", id, ErrNotFound)
	})
	if err != nil {
		return model.Invitation{}, err
	}
	s.dispatch(Mutation{Kind: KindInvitation, Op: OpUpdate, ID: id, Record: updated, Fields: invitationFields(patch)})
	return updated, nil
}

// DeleteInvitation removes the invitation with id
func (s *Store) DeleteInvitation(id string) error {
	err := s.commit(func(st *State) error {
		before := len(st.Invitations)
		st.Invitations = filter(st.Invitations, func(i model.Invitation) bool { return i.ID != id })
		if len(st.Invitations) == before {
			return fmt.Errorf("invitation %s: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.dispatch(Mutation{Kind: KindInvitation, Op: OpDelete, ID: id})
	return nil
}

// InvitationByToken looks an invitation up by its link token
func (s *Store) InvitationByToken(token string) (model.Invitation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.state.Invitations {
		if inv.Token == token {
			return inv, true
		}
	}
	return model.Invitation{}, false
}

// AcceptInvitation turns a pending, unexpired invitation into a user. The
// user joins the invitation's team, or the team of its project when no team
// was given.
func (s *Store) AcceptInvitation(token string) (model.User, error) {
	inv, ok := s.InvitationByToken(token)
	if !ok {
		return model.User{}, fmt.Errorf("invitation: %w", ErrNotFound)
	}
	now := s.now()
	switch {
	case inv.Status == model.InvitationAccepted:
		return model.User{}, ErrInvitationUsed
	case inv.Expired(now):
		if inv.Status != model.InvitationExpired {
			expired := model.InvitationExpired
			_, _ = s.UpdateInvitation(inv.ID, model.InvitationPatch{Status: &expired})
		}
		return model.User{}, ErrInvitationExpired
	case inv.Status != model.InvitationPending:
		return model.User{}, ErrInvitationUsed
	}

	teamID := inv.TeamID
	if teamID == "" && inv.ProjectID != "" {
		if p, ok := s.Project(inv.ProjectID); ok {
			teamID = p.TeamID
		}
	}

	// an invitee who already signed up keeps their account
	user, ok := s.userByEmail(inv.Email)
	if !ok {
		var err error
		user, err = s.AddUser(model.User{
			Name:   inv.InviteeName(),
			Email:  inv.Email,
			Role:   inv.Role,
			Theme:  model.ThemeSystem,
			TeamID: teamID,
		})
		if err != nil {
			return model.User{}, err
		}
	}
	// membership lives on the profile; the local member list follows when
	// the team is loaded
	if teamID != "" {
		if _, ok := s.Team(teamID); ok {
			if _, err := s.AddMemberToTeam(teamID, user.ID); err != nil {
				return model.User{}, err
			}
		} else if user.TeamID != teamID {
			if _, err := s.UpdateUser(user.ID, model.UserPatch{TeamID: &teamID}); err != nil {
				return model.User{}, err
			}
		}
	}

	accepted := model.InvitationAccepted
	if _, err := s.UpdateInvitation(inv.ID, model.InvitationPatch{Status: &accepted}); err != nil {
		return model.User{}, err
	}
	s.log.Info("Invitation accepted", logger.F("invitation", inv.ID), logger.F("user", user.ID))
	user, _ = s.User(user.ID)
	return user, nil
}

func (s *Store) userByEmail(email string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.state.Users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return model.User{}, false
}

func invitationFields(p model.InvitationPatch) []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, model.FieldName)
	}
	if p.Role != nil {
		fields = append(fields, model.FieldRole)
	}
	if p.Status != nil {
		fields = append(fields, model.FieldStatus)
	}
	if p.TeamID != nil {
		fields = append(fields, model.FieldTeamID)
	}
	if p.ProjectID != nil {
		fields = append(fields, model.FieldProjectID)
	}
	if p.ExpiresAt != nil {
		fields = append(fields, "expiresAt")
	}
	return fields
}

func newToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
