// Package tasklist implements the TaskList half of spec.md §4.10: a named,
// ordered, duplicate-free sequence of task ids within one project.
package tasklist

import (
	"context"
	"time"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/platform/idgen"
	"github.com/maestro-run/maestro/internal/storage"
)

// Service implements TaskList operations.
type Service struct {
	store storage.Store
}

// New constructs a Service over store.
func New(store storage.Store) *Service {
	return &Service{store: store}
}

// CreateInput is the payload for CreateTaskList.
type CreateInput struct {
	ProjectID      string
	Name           string
	OrderedTaskIDs []string
}

// CreateTaskList validates that orderedTaskIds is duplicate-free and that
// every task exists within ProjectID (spec.md §4.10).
func (s *Service) CreateTaskList(ctx context.Context, in CreateInput) (*domain.TaskList, error) {
	if in.Name == "" {
		return nil, apperr.Validation("task list name must not be empty")
	}
	if _, err := s.store.Projects().Get(ctx, in.ProjectID); err != nil {
		return nil, apperr.NotFound("project", in.ProjectID)
	}
	if err := s.validateTaskIDs(ctx, in.ProjectID, in.OrderedTaskIDs); err != nil {
		return nil, err
	}

	now := time.Now()
	l := &domain.TaskList{
		ID:             idgen.TaskList(),
		ProjectID:      in.ProjectID,
		Name:           in.Name,
		OrderedTaskIDs: in.OrderedTaskIDs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.TaskLists().Create(ctx, l); err != nil {
		return nil, apperr.Internal("creating task list", err)
	}
	return l, nil
}

func (s *Service) validateTaskIDs(ctx context.Context, projectID string, taskIDs []string) error {
	seen := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		if seen[id] {
			return apperr.Validation("orderedTaskIds must not contain duplicates")
		}
		seen[id] = true

		tk, err := s.store.Tasks().Get(ctx, id)
		if err != nil || tk.ProjectID != projectID {
			return apperr.Validation("task " + id + " does not exist in this project")
		}
	}
	return nil
}

// GetTaskList returns a task list by id.
func (s *Service) GetTaskList(ctx context.Context, id string) (*domain.TaskList, error) {
	l, err := s.store.TaskLists().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("taskList", id)
	}
	return l, nil
}

// ListTaskLists returns projectID's task lists.
func (s *Service) ListTaskLists(ctx context.Context, projectID string) ([]*domain.TaskList, error) {
	lists, err := s.store.TaskLists().List(ctx, projectID)
	if err != nil {
		return nil, apperr.Internal("listing task lists", err)
	}
	return lists, nil
}

// Rename changes a task list's name.
func (s *Service) Rename(ctx context.Context, id, name string) (*domain.TaskList, error) {
	if name == "" {
		return nil, apperr.Validation("task list name must not be empty")
	}
	l, err := s.store.TaskLists().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("taskList", id)
	}
	l.Name = name
	l.UpdatedAt = time.Now()
	if err := s.store.TaskLists().Update(ctx, l); err != nil {
		return nil, apperr.Internal("updating task list", err)
	}
	return l, nil
}

// AddTask appends taskID to id's ordered list, rejecting a duplicate.
func (s *Service) AddTask(ctx context.Context, id, taskID string) (*domain.TaskList, error) {
	l, err := s.store.TaskLists().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("taskList", id)
	}
	if err := s.validateTaskIDs(ctx, l.ProjectID, []string{taskID}); err != nil {
		return nil, err
	}
	for _, existing := range l.OrderedTaskIDs {
		if existing == taskID {
			return nil, apperr.BusinessRule("task is already in this list")
		}
	}
	l.OrderedTaskIDs = append(l.OrderedTaskIDs, taskID)
	l.UpdatedAt = time.Now()
	if err := s.store.TaskLists().Update(ctx, l); err != nil {
		return nil, apperr.Internal("updating task list", err)
	}
	return l, nil
}

// RemoveTask removes taskID from id's ordered list. Removing the sole
// remaining member leaves an empty list rather than deleting the list
// itself (Open Question decision, see DESIGN.md).
func (s *Service) RemoveTask(ctx context.Context, id, taskID string) (*domain.TaskList, error) {
	l, err := s.store.TaskLists().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("taskList", id)
	}
	out := l.OrderedTaskIDs[:0]
	for _, existing := range l.OrderedTaskIDs {
		if existing != taskID {
			out = append(out, existing)
		}
	}
	l.OrderedTaskIDs = out
	l.UpdatedAt = time.Now()
	if err := s.store.TaskLists().Update(ctx, l); err != nil {
		return nil, apperr.Internal("updating task list", err)
	}
	return l, nil
}

// DeleteTaskList removes id entirely (an explicit operation distinct from
// emptying it via RemoveTask).
func (s *Service) DeleteTaskList(ctx context.Context, id string) error {
	if _, err := s.store.TaskLists().Get(ctx, id); err != nil {
		return apperr.NotFound("taskList", id)
	}
	if err := s.store.TaskLists().Delete(ctx, id); err != nil {
		return apperr.Internal("deleting task list", err)
	}
	return nil
}
