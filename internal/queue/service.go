// Package queue implements the Queue Service of spec.md §4.7: a FIFO task
// queue per session with processing invariants.
package queue

import (
	"context"
	"time"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/storage"
	"github.com/maestro-run/maestro/internal/task"
)

// Service implements the per-session task queue and keeps each task's
// per-session status in sync via the Task Service (spec.md §4.7).
type Service struct {
	store storage.Store
	tasks *task.Service
}

// New constructs a Service over store, delegating per-session task status
// updates to tasks.
func New(store storage.Store, tasks *task.Service) *Service {
	return &Service{store: store, tasks: tasks}
}

// CreateQueue initializes a session's queue with an ordered task list.
// Rejects duplicate initialization.
func (s *Service) CreateQueue(ctx context.Context, sessionID string, taskIDs []string) (*domain.Queue, error) {
	if _, err := s.store.Queues().Get(ctx, sessionID); err == nil {
		return nil, apperr.BusinessRule("queue already initialized for session")
	}

	items := make([]domain.QueueItem, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		items = append(items, domain.QueueItem{TaskID: taskID, Status: domain.QueueItemQueued})
	}
	q := &domain.Queue{SessionID: sessionID, Items: items, CurrentIndex: -1}
	if err := s.store.Queues().Create(ctx, q); err != nil {
		return nil, apperr.Internal("creating queue", err)
	}
	return q, nil
}

// GetQueue returns the queue or a NotFound error.
func (s *Service) GetQueue(ctx context.Context, sessionID string) (*domain.Queue, error) {
	q, err := s.store.Queues().Get(ctx, sessionID)
	if err != nil {
		return nil, apperr.NotFound("queue", sessionID)
	}
	return q, nil
}

// PushItem appends taskID to sessionID's queue; rejects a task already
// present.
func (s *Service) PushItem(ctx context.Context, sessionID, taskID string) (*domain.Queue, error) {
	q, err := s.store.Queues().Get(ctx, sessionID)
	if err != nil {
		return nil, apperr.NotFound("queue", sessionID)
	}
	for _, item := range q.Items {
		if item.TaskID == taskID {
			return nil, apperr.BusinessRule("task is already queued for this session")
		}
	}
	q.Items = append(q.Items, domain.QueueItem{TaskID: taskID, Status: domain.QueueItemQueued})
	if err := s.store.Queues().Update(ctx, q); err != nil {
		return nil, apperr.Internal("updating queue", err)
	}
	return q, nil
}

// StartItem fails if an item is already processing; otherwise it picks the
// first queued item, marks it processing, and propagates working status to
// the task.
func (s *Service) StartItem(ctx context.Context, sessionID string) (*domain.Queue, error) {
	q, err := s.store.Queues().Get(ctx, sessionID)
	if err != nil {
		return nil, apperr.NotFound("queue", sessionID)
	}
	if q.CurrentIndex != -1 {
		return nil, apperr.Validation("an item is already processing")
	}

	idx := -1
	for i, item := range q.Items {
		if item.Status == domain.QueueItemQueued {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, apperr.Validation("no queued item to start")
	}

	now := time.Now()
	q.Items[idx].Status = domain.QueueItemProcessing
	q.Items[idx].StartedAt = &now
	q.CurrentIndex = idx
	if err := s.store.Queues().Update(ctx, q); err != nil {
		return nil, apperr.Internal("updating queue", err)
	}

	s.setTaskSessionStatus(ctx, q.Items[idx].TaskID, sessionID, domain.TaskSessionWorking)
	return q, nil
}

// CompleteItem marks the currently processing item completed.
func (s *Service) CompleteItem(ctx context.Context, sessionID string) (*domain.Queue, error) {
	return s.finishProcessing(ctx, sessionID, domain.QueueItemCompleted, "", domain.TaskSessionCompleted)
}

// FailItem marks the currently processing item failed with reason.
func (s *Service) FailItem(ctx context.Context, sessionID, reason string) (*domain.Queue, error) {
	return s.finishProcessing(ctx, sessionID, domain.QueueItemFailed, reason, domain.TaskSessionFailed)
}

func (s *Service) finishProcessing(ctx context.Context, sessionID string, status domain.QueueItemStatus, failReason string, taskStatus domain.TaskSessionStatus) (*domain.Queue, error) {
	q, err := s.store.Queues().Get(ctx, sessionID)
	if err != nil {
		return nil, apperr.NotFound("queue", sessionID)
	}
	if q.CurrentIndex == -1 {
		return nil, apperr.Validation("no item is processing")
	}

	idx := q.CurrentIndex
	now := time.Now()
	q.Items[idx].Status = status
	q.Items[idx].CompletedAt = &now
	q.Items[idx].FailReason = failReason
	q.CurrentIndex = -1
	if err := s.store.Queues().Update(ctx, q); err != nil {
		return nil, apperr.Internal("updating queue", err)
	}

	s.setTaskSessionStatus(ctx, q.Items[idx].TaskID, sessionID, taskStatus)
	return q, nil
}

// SkipItem marks the processing item (if any), otherwise the next queued
// item, as skipped.
func (s *Service) SkipItem(ctx context.Context, sessionID string) (*domain.Queue, error) {
	q, err := s.store.Queues().Get(ctx, sessionID)
	if err != nil {
		return nil, apperr.NotFound("queue", sessionID)
	}

	idx := q.CurrentIndex
	if idx == -1 {
		for i, item := range q.Items {
			if item.Status == domain.QueueItemQueued {
				idx = i
				break
			}
		}
	}
	if idx == -1 {
		return nil, apperr.Validation("no item to skip")
	}

	now := time.Now()
	q.Items[idx].Status = domain.QueueItemSkipped
	q.Items[idx].CompletedAt = &now
	if q.CurrentIndex == idx {
		q.CurrentIndex = -1
	}
	if err := s.store.Queues().Update(ctx, q); err != nil {
		return nil, apperr.Internal("updating queue", err)
	}

	s.setTaskSessionStatus(ctx, q.Items[idx].TaskID, sessionID, domain.TaskSessionSkipped)
	return q, nil
}

// Stats counts queue items by status.
type Stats struct {
	Queued     int
	Processing int
	Completed  int
	Failed     int
	Skipped    int
}

// GetStats returns counts by status for sessionID's queue.
func (s *Service) GetStats(ctx context.Context, sessionID string) (Stats, error) {
	q, err := s.store.Queues().Get(ctx, sessionID)
	if err != nil {
		return Stats{}, apperr.NotFound("queue", sessionID)
	}
	var st Stats
	for _, item := range q.Items {
		switch item.Status {
		case domain.QueueItemQueued:
			st.Queued++
		case domain.QueueItemProcessing:
			st.Processing++
		case domain.QueueItemCompleted:
			st.Completed++
		case domain.QueueItemFailed:
			st.Failed++
		case domain.QueueItemSkipped:
			st.Skipped++
		}
	}
	return st, nil
}

func (s *Service) setTaskSessionStatus(ctx context.Context, taskID, sessionID string, status domain.TaskSessionStatus) {
	if s.tasks == nil {
		return
	}
	_, _ = s.tasks.UpdateTask(ctx, taskID, task.UpdateInput{
		Source:        task.SourceSession,
		SessionID:     sessionID,
		SessionStatus: status,
	})
}
