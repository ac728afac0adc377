package store

import (
	"context"
	"fmt"

	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
)

// Client returns the client with id
func (s *Store) Client(id string) (model.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.state.Clients {
		if c.ID == id {
			return c, true
		}
	}
	return model.Client{}, false
}

// AddClient validates draft and appends it
func (s *Store) AddClient(ctx context.Context, draft model.Client) (model.Client, error) {
	if draft.Status == "" {
		draft.Status = model.ClientActive
	}
	if err := draft.Validate(); err != nil {
		return model.Client{}, err
	}
	cur, err := s.verifySession(ctx)
	if err != nil {
		return model.Client{}, err
	}

	client := draft
	client.ID = s.newID()
	client.CreatedAt = s.now()
	if client.CreatedBy == "" {
		client.CreatedBy = cur.ID
	}
	if client.TeamID == "" {
		client.TeamID = cur.TeamID
	}

	_ = s.commit(func(st *State) error {
		st.Clients = appendCopy(st.Clients, client)
		return nil
	})

	s.log.Info("Client added", logger.F("client", client.ID))
	s.dispatch(Mutation{Kind: KindClient, Op: OpInsert, ID: client.ID, Record: client})
	return client, nil
}

// UpdateClient merges patch into the client with id
func (s *Store) UpdateClient(id string, patch model.ClientPatch) (model.Client, error) {
	var (
		updated model.Client
		changed []string
	)
	err := s.commit(func(st *State) error {
		for i, c := range st.Clients {
			if c.ID != id {
				continue
			}
			updated, changed = patch.Apply(c)
			clients := make([]model.Client, len(st.Clients))
			copy(clients, st.Clients)
			clients[i] = updated
			st.Clients = clients
			return nil
		}
		return fmt.Errorf("client %s: %w", id, ErrNotFound)
	})
	if err != nil {
		return model.Client{}, err
	}

	s.dispatch(Mutation{Kind: KindClient, Op: OpUpdate, ID: id, Record: updated, Fields: changed})
	return updated, nil
}

// DeleteClient removes the client and unlinks it from dependent projects
func (s *Store) DeleteClient(id string) error {
	err := s.commit(func(st *State) error {
		before := len(st.Clients)
		st.Clients = filter(st.Clients, func(c model.Client) bool { return c.ID != id })
		if len(st.Clients) == before {
			return fmt.Errorf("client %s: %w", id, ErrNotFound)
		}
		st.Projects = mapProjects(st.Projects, func(p model.Project) model.Project {
			if p.ClientID == id {
				p.ClientID = ""
			}
			return p
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("Client deleted", logger.F("client", id))
	s.dispatch(Mutation{Kind: KindClient, Op: OpDelete, ID: id})
	return nil
}
