package store

import (
	"context"
	"fmt"

	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
)

// Project returns the project with id
func (s *Store) Project(id string) (model.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.state.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return model.Project{}, false
}

// AddProject validates draft and appends it with an empty task index
func (s *Store) AddProject(ctx context.Context, draft model.Project) (model.Project, error) {
	if err := draft.Validate(); err != nil {
		return model.Project{}, err
	}
	if _, err := s.verifySession(ctx); err != nil {
		return model.Project{}, err
	}

	project := draft
	project.ID = s.newID()
	project.CreatedAt = s.now()
	project.Tasks = []string{}

	_ = s.commit(func(st *State) error {
		st.Projects = appendCopy(st.Projects, project)
		return nil
	})

	s.log.Info("Project added", logger.F("project", project.ID), logger.F("team", project.TeamID))
	s.dispatch(Mutation{Kind: KindProject, Op: OpInsert, ID: project.ID, Record: project})
	return project, nil
}

// UpdateProject merges patch into the project with id
func (s *Store) UpdateProject(id string, patch model.ProjectPatch) (model.Project, error) {
	var (
		updated model.Project
		changed []string
	)
	err := s.commit(func(st *State) error {
		for i, p := range st.Projects {
			if p.ID != id {
				continue
			}
			updated, changed = patch.Apply(p)
			projects := make([]model.Project, len(st.Projects))
			copy(projects, st.Projects)
			projects[i] = updated
			st.Projects = projects
			return nil
		}
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	})
	if err != nil {
		return model.Project{}, err
	}

	s.dispatch(Mutation{Kind: KindProject, Op: OpUpdate, ID: id, Record: updated, Fields: changed})
	return updated, nil
}

// DeleteProject removes the project together with the tasks it owns
func (s *Store) DeleteProject(id string) error {
	var removed int
	err := s.commit(func(st *State) error {
		before := len(st.Projects)
		st.Projects = filter(st.Projects, func(p model.Project) bool { return p.ID != id })
		if len(st.Projects) == before {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		tasks := filter(st.Tasks, func(t model.Task) bool { return t.ProjectID != id })
		removed = len(st.Tasks) - len(tasks)
		st.Tasks = tasks
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("Project deleted", logger.F("project", id), logger.F("tasksRemoved", removed))
	// tasks rows cascade on the remote side
	s.dispatch(Mutation{Kind: KindProject, Op: OpDelete, ID: id})
	return nil
}
