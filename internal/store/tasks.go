package store

import (
	"context"
	"fmt"

	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/internal/model"
)

// Task returns the task with id
func (s *Store) Task(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.state.Tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return model.Task{}, false
}

// AddTask validates draft, assigns an id and timestamps, derives cost and
// time spent, appends it and indexes it under its project. The remote insert
// happens in the background.
func (s *Store) AddTask(ctx context.Context, draft model.Task) (model.Task, error) {
	if draft.Status == "" {
		draft.Status = model.StatusTodo
	}
	if draft.Priority == "" {
		draft.Priority = model.PriorityMedium
	}
	if draft.CreatedByID == "" {
		if cur := s.CurrentUser(); cur != nil {
			draft.CreatedByID = cur.ID
		}
	}
	if err := draft.Validate(); err != nil {
		return model.Task{}, err
	}
	if _, err := s.verifySession(ctx); err != nil {
		return model.Task{}, err
	}

	now := s.now()
	task := draft.Clone()
	task.ID = s.newID()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Tags == nil {
		task.Tags = []string{}
	}
	task.Derive(len(task.TimeTracking) > 0)

	_ = s.commit(func(st *State) error {
		st.Tasks = appendCopy(st.Tasks, task)
		st.Projects = mapProjects(st.Projects, func(p model.Project) model.Project {
			if p.ID == task.ProjectID {
				return p.WithTask(task.ID)
			}
			return p
		})
		return nil
	})

	s.log.Info("Task added", logger.F("task", task.ID), logger.F("project", task.ProjectID))
	s.dispatch(Mutation{Kind: KindTask, Op: OpInsert, ID: task.ID, Record: task})
	return task.Clone(), nil
}

// UpdateTask merges patch into the task with id, recomputes derived fields
// whose inputs changed and keeps project task indexes consistent when the
// task moves. Only the changed fields are sent remotely.
func (s *Store) UpdateTask(id string, patch model.TaskPatch) (model.Task, error) {
	var (
		updated model.Task
		changed []string
	)
	err := s.commit(func(st *State) error {
		idx := indexTask(st.Tasks, id)
		if idx < 0 {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		old := st.Tasks[idx]
		updated, changed = patch.Apply(old)
		updated.UpdatedAt = s.now()
		changed = append(changed, model.FieldUpdatedAt)

		tasks := make([]model.Task, len(st.Tasks))
		copy(tasks, st.Tasks)
		tasks[idx] = updated
		st.Tasks = tasks

		if old.ProjectID != updated.ProjectID {
			st.Projects = mapProjects(st.Projects, func(p model.Project) model.Project {
				switch p.ID {
				case old.ProjectID:
					return p.WithoutTask(id)
				case updated.ProjectID:
					return p.WithTask(id)
				}
				return p
			})
		}
		return nil
	})
	if err != nil {
		s.log.Warn("Task update skipped", logger.F("task", id), logger.Err(err))
		return model.Task{}, err
	}

	s.log.Debug("Task updated", logger.F("task", id), logger.F("fields", changed))
	s.dispatch(Mutation{Kind: KindTask, Op: OpUpdate, ID: id, Record: updated, Fields: changed})
	return updated.Clone(), nil
}

// DeleteTask removes the task and drops it from every project index
func (s *Store) DeleteTask(id string) error {
	err := s.commit(func(st *State) error {
		idx := indexTask(st.Tasks, id)
		if idx < 0 {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		st.Tasks = removeAt(st.Tasks, idx)
		st.Projects = mapProjects(st.Projects, func(p model.Project) model.Project {
			return p.WithoutTask(id)
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("Task deleted", logger.F("task", id))
	s.dispatch(Mutation{Kind: KindTask, Op: OpDelete, ID: id})
	return nil
}

func indexTask(tasks []model.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func mapProjects(projects []model.Project, fn func(model.Project) model.Project) []model.Project {
	out := make([]model.Project, len(projects))
	for i, p := range projects {
		out[i] = fn(p)
	}
	return out
}

// appendCopy appends v to a fresh copy of list so earlier snapshots keep
// their backing array.
func appendCopy[T any](list []T, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, list...)
	return append(out, v)
}

func removeAt[T any](list []T, idx int) []T {
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:idx]...)
	return append(out, list[idx+1:]...)
}

func filter[T any](list []T, keep func(T) bool) []T {
	out := make([]T, 0, len(list))
	for _, v := range list {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
