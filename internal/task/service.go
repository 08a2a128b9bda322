// Package task implements the Task Service of spec.md §4.4: task CRUD,
// hierarchical cascade delete, and the privileged-vs-agent update split.
package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/eventbus"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/platform/idgen"
	"github.com/maestro-run/maestro/internal/platform/logger"
	"github.com/maestro-run/maestro/internal/storage"
)

// Service implements task CRUD, cascade delete, and the bidirectional
// task<->session link.
type Service struct {
	store storage.Store
	bus   eventbus.Bus
	log   *logger.Logger
}

// New constructs a Service over store, publishing lifecycle and notification
// events to bus.
func New(store storage.Store, bus eventbus.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// CreateInput is the payload accepted by CreateTask.
type CreateInput struct {
	ProjectID     string
	ParentID      string
	Title         string
	Description   string
	Priority      string
	InitialPrompt string
	SkillIDs      []string
	AgentIDs      []string
	Dependencies  []string
}

// CreateTask validates that ProjectID and the optional ParentID exist.
func (s *Service) CreateTask(ctx context.Context, in CreateInput) (*domain.Task, error) {
	if in.Title == "" {
		return nil, apperr.Validation("task title must not be empty")
	}
	if _, err := s.store.Projects().Get(ctx, in.ProjectID); err != nil {
		return nil, apperr.NotFound("project", in.ProjectID)
	}
	if in.ParentID != "" {
		if _, err := s.store.Tasks().Get(ctx, in.ParentID); err != nil {
			return nil, apperr.NotFound("task", in.ParentID)
		}
	}

	now := time.Now()
	t := &domain.Task{
		ID:                  idgen.Task(),
		ProjectID:           in.ProjectID,
		ParentID:            in.ParentID,
		Title:               in.Title,
		Description:         in.Description,
		Status:              domain.TaskStatusPending,
		Priority:            in.Priority,
		SessionIDs:          []string{},
		TaskSessionStatuses: map[string]domain.TaskSessionStatus{},
		InitialPrompt:       in.InitialPrompt,
		SkillIDs:            in.SkillIDs,
		AgentIDs:            in.AgentIDs,
		Dependencies:        in.Dependencies,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.store.Tasks().Create(ctx, t); err != nil {
		return nil, apperr.Internal("creating task", err)
	}

	s.publish(ctx, eventbus.TopicTaskCreated, t)
	return t, nil
}

// GetTask returns the task or a NotFound error.
func (s *Service) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	t, err := s.store.Tasks().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("task", id)
	}
	return t, nil
}

// ListTasks filters by project/parent/status per spec.md §4.4.
func (s *Service) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]*domain.Task, error) {
	list, err := s.store.Tasks().List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("listing tasks", err)
	}
	return list, nil
}

// ChildTasks returns the direct children of id.
func (s *Service) ChildTasks(ctx context.Context, id string) ([]*domain.Task, error) {
	children, err := s.store.Tasks().ChildrenOf(ctx, id)
	if err != nil {
		return nil, apperr.Internal("listing child tasks", err)
	}
	return children, nil
}

// UpdateInput is the payload accepted by UpdateTask. Source governs which
// fields apply: "session" callers may only move SessionID's per-session
// status; every other field below is silently ignored for that source
// (spec.md §4.4's privilege split).
type UpdateInput struct {
	Source UpdateSource

	// Session-source fields.
	SessionID     string
	SessionStatus domain.TaskSessionStatus

	// User-source fields (nil/empty = unchanged).
	Title         *string
	Description   *string
	Status        *domain.TaskStatus
	Priority      *string
	InitialPrompt *string
	SkillIDs      []string
	AgentIDs      []string
	Dependencies  []string
}

// UpdateSource is re-exported from domain for callers of this package.
type UpdateSource = domain.UpdateSource

const (
	SourceUser    = domain.UpdateSourceUser
	SourceSession = domain.UpdateSourceSession
)

// UpdateTask applies in to task id, honoring the privilege split, then
// compares the pre/post snapshot to emit the transition notifications of
// spec.md §4.4.
func (s *Service) UpdateTask(ctx context.Context, id string, in UpdateInput) (*domain.Task, error) {
	t, err := s.store.Tasks().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("task", id)
	}

	// Snapshot before mutation: the repository may hand back a live
	// reference in other implementations (spec.md §9).
	oldStatus := t.Status
	oldSessionStatuses := make(map[string]domain.TaskSessionStatus, len(t.TaskSessionStatuses))
	for k, v := range t.TaskSessionStatuses {
		oldSessionStatuses[k] = v
	}

	if in.Source == SourceSession {
		if in.SessionID == "" || in.SessionStatus == "" {
			return nil, apperr.Validation("session update requires sessionId and status")
		}
		if !t.HasSession(in.SessionID) {
			return nil, apperr.Validation("session is not associated with this task")
		}
		t.TaskSessionStatuses[in.SessionID] = in.SessionStatus
	} else {
		if in.Title != nil {
			if *in.Title == "" {
				return nil, apperr.Validation("task title must not be empty")
			}
			t.Title = *in.Title
		}
		if in.Description != nil {
			t.Description = *in.Description
		}
		if in.Status != nil {
			t.Status = *in.Status
		}
		if in.Priority != nil {
			t.Priority = *in.Priority
		}
		if in.InitialPrompt != nil {
			t.InitialPrompt = *in.InitialPrompt
		}
		if in.SkillIDs != nil {
			t.SkillIDs = in.SkillIDs
		}
		if in.AgentIDs != nil {
			t.AgentIDs = in.AgentIDs
		}
		if in.Dependencies != nil {
			t.Dependencies = in.Dependencies
		}
	}
	t.UpdatedAt = time.Now()

	if err := s.store.Tasks().Update(ctx, t); err != nil {
		return nil, apperr.Internal("updating task", err)
	}

	s.publish(ctx, eventbus.TopicTaskUpdated, t)
	s.emitTransitionNotifications(ctx, t, oldStatus, oldSessionStatuses)

	return t, nil
}

func (s *Service) emitTransitionNotifications(ctx context.Context, t *domain.Task, oldStatus domain.TaskStatus, oldSessionStatuses map[string]domain.TaskSessionStatus) {
	if t.Status != oldStatus {
		switch t.Status {
		case domain.TaskStatusCompleted:
			s.publish(ctx, eventbus.TopicNotifyTaskCompleted, map[string]interface{}{"taskId": t.ID})
		case domain.TaskStatusCancelled:
			s.publish(ctx, eventbus.TopicNotifyTaskFailed, map[string]interface{}{"taskId": t.ID})
		case domain.TaskStatusBlocked:
			s.publish(ctx, eventbus.TopicNotifyTaskBlocked, map[string]interface{}{"taskId": t.ID})
		}
	}

	for sessionID, newStatus := range t.TaskSessionStatuses {
		if oldSessionStatuses[sessionID] == newStatus {
			continue
		}
		switch newStatus {
		case domain.TaskSessionCompleted:
			s.publish(ctx, eventbus.TopicNotifyTaskSessionCompleted, map[string]interface{}{"taskId": t.ID, "sessionId": sessionID})
		case domain.TaskSessionFailed:
			s.publish(ctx, eventbus.TopicNotifyTaskSessionFailed, map[string]interface{}{"taskId": t.ID, "sessionId": sessionID})
		}
	}
}

// DeleteTask removes id and every descendant, deleting children before
// parents, and unlinks the deleted tasks from any session that still
// references them.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.store.Tasks().Get(ctx, id); err != nil {
		return apperr.NotFound("task", id)
	}

	order, err := s.postOrderDescendants(ctx, id)
	if err != nil {
		return apperr.Internal("collecting descendant tasks", err)
	}

	for _, taskID := range order {
		if err := s.unlinkSessions(ctx, taskID); err != nil {
			s.log.WithError(err).Warn("failed unlinking sessions from deleted task", zap.String("taskId", taskID))
		}
		if err := s.store.Tasks().Delete(ctx, taskID); err != nil {
			return apperr.Internal("deleting task", err)
		}
		s.publish(ctx, eventbus.TopicTaskDeleted, map[string]interface{}{"id": taskID})
	}
	return nil
}

// postOrderDescendants returns id's full descendant subtree plus id itself,
// ordered so every child precedes its parent (spec.md §4.4).
func (s *Service) postOrderDescendants(ctx context.Context, id string) ([]string, error) {
	children, err := s.store.Tasks().ChildrenOf(ctx, id)
	if err != nil {
		return nil, err
	}

	var order []string
	for _, child := range children {
		sub, err := s.postOrderDescendants(ctx, child.ID)
		if err != nil {
			return nil, err
		}
		order = append(order, sub...)
	}
	order = append(order, id)
	return order, nil
}

func (s *Service) unlinkSessions(ctx context.Context, taskID string) error {
	t, err := s.store.Tasks().Get(ctx, taskID)
	if err != nil {
		return nil // already gone
	}
	for _, sessionID := range t.SessionIDs {
		sess, err := s.store.Sessions().Get(ctx, sessionID)
		if err != nil {
			continue
		}
		sess.TaskIDs = removeID(sess.TaskIDs, taskID)
		if err := s.store.Sessions().Update(ctx, sess); err != nil {
			return err
		}
	}
	return nil
}

// AddSessionToTask links taskID and sessionID on both sides of the
// bidirectional relation (spec.md §3 invariant) and emits task:session_added.
func (s *Service) AddSessionToTask(ctx context.Context, taskID, sessionID string) error {
	t, err := s.store.Tasks().Get(ctx, taskID)
	if err != nil {
		return apperr.NotFound("task", taskID)
	}
	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return apperr.NotFound("session", sessionID)
	}

	if !t.HasSession(sessionID) {
		t.SessionIDs = append(t.SessionIDs, sessionID)
		if t.TaskSessionStatuses == nil {
			t.TaskSessionStatuses = map[string]domain.TaskSessionStatus{}
		}
		if _, ok := t.TaskSessionStatuses[sessionID]; !ok {
			t.TaskSessionStatuses[sessionID] = domain.TaskSessionQueued
		}
		if err := s.store.Tasks().Update(ctx, t); err != nil {
			return apperr.Internal("updating task", err)
		}
	}
	if !sess.HasTask(taskID) {
		sess.TaskIDs = append(sess.TaskIDs, taskID)
		if err := s.store.Sessions().Update(ctx, sess); err != nil {
			return apperr.Internal("updating session", err)
		}
	}

	s.publish(ctx, eventbus.TopicTaskSessionAdded, map[string]interface{}{"taskId": taskID, "sessionId": sessionID})
	return nil
}

// RemoveSessionFromTask is the inverse of AddSessionToTask.
func (s *Service) RemoveSessionFromTask(ctx context.Context, taskID, sessionID string) error {
	t, err := s.store.Tasks().Get(ctx, taskID)
	if err != nil {
		return apperr.NotFound("task", taskID)
	}
	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return apperr.NotFound("session", sessionID)
	}

	t.SessionIDs = removeID(t.SessionIDs, sessionID)
	delete(t.TaskSessionStatuses, sessionID)
	if err := s.store.Tasks().Update(ctx, t); err != nil {
		return apperr.Internal("updating task", err)
	}

	sess.TaskIDs = removeID(sess.TaskIDs, taskID)
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return apperr.Internal("updating session", err)
	}

	s.publish(ctx, eventbus.TopicTaskSessionRemoved, map[string]interface{}{"taskId": taskID, "sessionId": sessionID})
	return nil
}

func removeID(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func (s *Service) publish(ctx context.Context, topic string, payload interface{}) {
	data, ok := payload.(map[string]interface{})
	if !ok {
		data = eventbus.ToData(payload)
	}
	if err := s.bus.Publish(ctx, topic, eventbus.NewEvent(topic, "task", data)); err != nil {
		s.log.WithError(err).Warn("failed publishing event", zap.String("topic", topic))
	}
}
