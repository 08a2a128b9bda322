// Package session implements the Session Service of spec.md §4.5: lifecycle,
// timeline events, bidirectional task linking, and status-transition
// notifications.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/eventbus"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/platform/idgen"
	"github.com/maestro-run/maestro/internal/platform/logger"
	"github.com/maestro-run/maestro/internal/platform/stringutil"
	"github.com/maestro-run/maestro/internal/storage"
)

// promptPreviewLength bounds the preview text recorded on the
// prompt_received timeline event (spec.md §4.12).
const promptPreviewLength = 150

// PromptMode enumerates how the UI should deliver a cross-session directive.
type PromptMode string

const (
	PromptModeSend  PromptMode = "send"
	PromptModePaste PromptMode = "paste"
)

// Service implements session lifecycle, timeline, and task linking.
type Service struct {
	store storage.Store
	bus   eventbus.Bus
	log   *logger.Logger
}

// New constructs a Service over store, publishing events to bus.
func New(store storage.Store, bus eventbus.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// CreateInput is the payload accepted by CreateSession.
type CreateInput struct {
	ProjectID       string
	TaskIDs         []string
	ParentSessionID string
	TeamMemberID    string
	Role            string
	Env             map[string]string
	Status          domain.SessionStatus // defaults to idle when empty

	// SuppressCreatedEvent skips the session:created / task:session_added
	// emission below; the Spawn Orchestrator sets this so it can publish one
	// consolidated event of its own instead (spec.md §4.11).
	SuppressCreatedEvent bool
}

// CreateSession validates project and every taskId, links the new session
// to each task, and (unless suppressed) emits session:created plus one
// task:session_added per task.
func (s *Service) CreateSession(ctx context.Context, in CreateInput) (*domain.Session, error) {
	project, err := s.store.Projects().Get(ctx, in.ProjectID)
	if err != nil {
		return nil, apperr.NotFound("project", in.ProjectID)
	}
	for _, taskID := range in.TaskIDs {
		if _, err := s.store.Tasks().Get(ctx, taskID); err != nil {
			return nil, apperr.NotFound("task", taskID)
		}
	}

	status := in.Status
	if status == "" {
		status = domain.SessionIdle
	}

	env := map[string]string{}
	for k, v := range in.Env {
		env[k] = v
	}
	if project.IsMaster {
		env["MAESTRO_IS_MASTER"] = "true"
	}

	now := time.Now()
	sess := &domain.Session{
		ID:              idgen.Session(),
		ProjectID:       in.ProjectID,
		TaskIDs:         append([]string(nil), in.TaskIDs...),
		Status:          status,
		Env:             env,
		TeamMemberID:    in.TeamMemberID,
		ParentSessionID: in.ParentSessionID,
		Role:            in.Role,
		Timeline:        []domain.TimelineEvent{},
		Docs:            []domain.DocEntry{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, taskID := range in.TaskIDs {
		sess.Timeline = append(sess.Timeline, domain.TimelineEvent{
			ID:        idgen.Event(),
			Type:      domain.TimelineTaskStarted,
			Timestamp: now,
			TaskID:    taskID,
		})
	}

	if err := s.store.Sessions().Create(ctx, sess); err != nil {
		return nil, apperr.Internal("creating session", err)
	}

	for _, taskID := range in.TaskIDs {
		if err := s.linkTask(ctx, taskID, sess.ID, domain.TaskSessionQueued); err != nil {
			s.log.WithError(err).Warn("failed linking task to new session", zap.String("taskId", taskID), zap.String("sessionId", sess.ID))
			continue
		}
		if !in.SuppressCreatedEvent {
			s.publish(ctx, eventbus.TopicTaskSessionAdded, map[string]interface{}{"taskId": taskID, "sessionId": sess.ID})
		}
	}

	if !in.SuppressCreatedEvent {
		s.publish(ctx, eventbus.TopicSessionCreated, sess)
	}
	return sess, nil
}

func (s *Service) linkTask(ctx context.Context, taskID, sessionID string, initialStatus domain.TaskSessionStatus) error {
	t, err := s.store.Tasks().Get(ctx, taskID)
	if err != nil {
		return err
	}
	if !t.HasSession(sessionID) {
		t.SessionIDs = append(t.SessionIDs, sessionID)
	}
	if t.TaskSessionStatuses == nil {
		t.TaskSessionStatuses = map[string]domain.TaskSessionStatus{}
	}
	if _, ok := t.TaskSessionStatuses[sessionID]; !ok {
		t.TaskSessionStatuses[sessionID] = initialStatus
	}
	return s.store.Tasks().Update(ctx, t)
}

// GetSession returns the session or a NotFound error.
func (s *Service) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.store.Sessions().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("session", id)
	}
	return sess, nil
}

// GetTimeline is a thin read path over Session.timeline (spec.md §4a), for
// callers that only need the event log without the rest of the session.
func (s *Service) GetTimeline(ctx context.Context, id string) ([]domain.TimelineEvent, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Timeline, nil
}

// ListSessions filters by project/task/active/parentSessionId.
func (s *Service) ListSessions(ctx context.Context, filter storage.SessionFilter) ([]*domain.Session, error) {
	list, err := s.store.Sessions().List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("listing sessions", err)
	}
	return list, nil
}

// UpdateInput is the payload accepted by UpdateSession; nil fields are left
// unchanged.
type UpdateInput struct {
	Status            *domain.SessionStatus
	NeedsInputActive  *bool
	NeedsInputMessage *string
	Env               map[string]string // merged, not replaced
}

// UpdateSession applies in to session id. A `completed` session silently
// drops any later transition to `stopped` or `failed` (spec.md §3, §4.5, and
// the Open Question decision recorded in DESIGN.md extending stickiness to
// both terminal siblings).
func (s *Service) UpdateSession(ctx context.Context, id string, in UpdateInput) (*domain.Session, error) {
	sess, err := s.store.Sessions().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("session", id)
	}

	oldStatus := sess.Status
	oldNeedsInputActive := sess.NeedsInput.Active

	if in.Status != nil {
		newStatus := *in.Status
		if oldStatus == domain.SessionCompleted && (newStatus == domain.SessionStopped || newStatus == domain.SessionFailed) {
			// Dropped: completed is absorbing.
		} else {
			sess.Status = newStatus
		}
	}
	if in.NeedsInputActive != nil {
		sess.NeedsInput.Active = *in.NeedsInputActive
		if *in.NeedsInputActive {
			sess.NeedsInput.Since = time.Now()
		}
	}
	if in.NeedsInputMessage != nil {
		sess.NeedsInput.Message = *in.NeedsInputMessage
	}
	for k, v := range in.Env {
		sess.Env[k] = v
	}
	sess.UpdatedAt = time.Now()

	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, apperr.Internal("updating session", err)
	}

	s.publish(ctx, eventbus.TopicSessionUpdated, sess)

	if sess.Status != oldStatus && sess.Status.IsTerminal() {
		s.propagateTerminalStatus(ctx, sess)
		if sess.Status == domain.SessionCompleted {
			s.publish(ctx, eventbus.TopicNotifySessionCompleted, map[string]interface{}{"sessionId": sess.ID})
		}
	}
	if !oldNeedsInputActive && sess.NeedsInput.Active {
		s.publish(ctx, eventbus.TopicNotifyNeedsInput, map[string]interface{}{"sessionId": sess.ID, "message": sess.NeedsInput.Message})
	}

	return sess, nil
}

// propagateTerminalStatus mirrors a session's terminal status onto each
// linked task's per-session status, skipping entries that are already
// terminal (spec.md §4.5).
func (s *Service) propagateTerminalStatus(ctx context.Context, sess *domain.Session) {
	var target domain.TaskSessionStatus
	switch sess.Status {
	case domain.SessionCompleted:
		target = domain.TaskSessionCompleted
	case domain.SessionStopped, domain.SessionFailed:
		target = domain.TaskSessionFailed
	default:
		return
	}

	for _, taskID := range sess.TaskIDs {
		t, err := s.store.Tasks().Get(ctx, taskID)
		if err != nil {
			continue
		}
		current := t.TaskSessionStatuses[sess.ID]
		if current.IsTerminal() {
			continue
		}
		t.TaskSessionStatuses[sess.ID] = target
		t.UpdatedAt = time.Now()
		if err := s.store.Tasks().Update(ctx, t); err != nil {
			s.log.WithError(err).Warn("failed propagating terminal session status", zap.String("taskId", taskID))
			continue
		}
		s.publish(ctx, eventbus.TopicTaskUpdated, t)
	}
}

// DeleteSession appends a session_stopped timeline event, unlinks the
// session from every task, then emits session:deleted.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	sess, err := s.store.Sessions().Get(ctx, id)
	if err != nil {
		return apperr.NotFound("session", id)
	}

	if _, err := s.appendTimelineEvent(ctx, sess, domain.TimelineSessionStopped, "", "", nil); err != nil {
		s.log.WithError(err).Warn("failed appending session_stopped timeline event", zap.String("sessionId", id))
	}

	for _, taskID := range append([]string(nil), sess.TaskIDs...) {
		if err := s.unlinkFromTask(ctx, taskID, id); err != nil {
			s.log.WithError(err).Warn("failed unlinking task from deleted session", zap.String("taskId", taskID))
			continue
		}
		s.publish(ctx, eventbus.TopicTaskSessionRemoved, map[string]interface{}{"taskId": taskID, "sessionId": id})
	}

	if err := s.store.Sessions().Delete(ctx, id); err != nil {
		return apperr.Internal("deleting session", err)
	}
	s.publish(ctx, eventbus.TopicSessionDeleted, map[string]interface{}{"id": id})
	return nil
}

func (s *Service) unlinkFromTask(ctx context.Context, taskID, sessionID string) error {
	t, err := s.store.Tasks().Get(ctx, taskID)
	if err != nil {
		return nil
	}
	t.SessionIDs = removeID(t.SessionIDs, sessionID)
	delete(t.TaskSessionStatuses, sessionID)
	return s.store.Tasks().Update(ctx, t)
}

// AddTaskToSession links taskID and sessionID on both sides and emits
// session:task_added.
func (s *Service) AddTaskToSession(ctx context.Context, sessionID, taskID string) error {
	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return apperr.NotFound("session", sessionID)
	}
	if _, err := s.store.Tasks().Get(ctx, taskID); err != nil {
		return apperr.NotFound("task", taskID)
	}

	if !sess.HasTask(taskID) {
		sess.TaskIDs = append(sess.TaskIDs, taskID)
		if err := s.store.Sessions().Update(ctx, sess); err != nil {
			return apperr.Internal("updating session", err)
		}
	}
	if err := s.linkTask(ctx, taskID, sessionID, domain.TaskSessionQueued); err != nil {
		return apperr.Internal("updating task", err)
	}

	s.publish(ctx, eventbus.TopicSessionTaskAdded, map[string]interface{}{"sessionId": sessionID, "taskId": taskID})
	return nil
}

// RemoveTaskFromSession is the inverse of AddTaskToSession.
func (s *Service) RemoveTaskFromSession(ctx context.Context, sessionID, taskID string) error {
	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return apperr.NotFound("session", sessionID)
	}

	sess.TaskIDs = removeID(sess.TaskIDs, taskID)
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return apperr.Internal("updating session", err)
	}
	if err := s.unlinkFromTask(ctx, taskID, sessionID); err != nil {
		return apperr.Internal("updating task", err)
	}

	s.publish(ctx, eventbus.TopicSessionTaskRemoved, map[string]interface{}{"sessionId": sessionID, "taskId": taskID})
	return nil
}

// appendTimelineEvent is the shared append used by AddTimelineEvent,
// AddEventToSession, and DeleteSession's session_stopped entry. It returns
// the post-mutation session so callers can decide which events to emit.
func (s *Service) appendTimelineEvent(ctx context.Context, sess *domain.Session, typ domain.TimelineEventType, message, taskID string, metadata map[string]interface{}) (*domain.Session, error) {
	sess.Timeline = append(sess.Timeline, domain.TimelineEvent{
		ID:        idgen.Event(),
		Type:      typ,
		Timestamp: time.Now(),
		Message:   message,
		TaskID:    taskID,
		Metadata:  metadata,
	})
	if typ == domain.TimelineNeedsInput {
		sess.NeedsInput.Active = true
		sess.NeedsInput.Message = message
		sess.NeedsInput.Since = time.Now()
	}
	sess.UpdatedAt = time.Now()

	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, err
	}
	return s.store.Sessions().Get(ctx, sess.ID)
}

// AddTimelineEvent appends a timeline entry to sessionID and emits
// session:updated (re-read post-mutation), plus notify:progress or
// notify:needs_input when applicable (spec.md §4.5).
func (s *Service) AddTimelineEvent(ctx context.Context, sessionID string, typ domain.TimelineEventType, message, taskID string, metadata map[string]interface{}) (*domain.Session, error) {
	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return nil, apperr.NotFound("session", sessionID)
	}
	wasActive := sess.NeedsInput.Active

	updated, err := s.appendTimelineEvent(ctx, sess, typ, message, taskID, metadata)
	if err != nil {
		return nil, apperr.Internal("appending timeline event", err)
	}

	s.publish(ctx, eventbus.TopicSessionUpdated, updated)
	switch typ {
	case domain.TimelineProgress:
		s.publish(ctx, eventbus.TopicNotifyProgress, map[string]interface{}{"sessionId": sessionID, "message": message})
	case domain.TimelineNeedsInput:
		if !wasActive {
			s.publish(ctx, eventbus.TopicNotifyNeedsInput, map[string]interface{}{"sessionId": sessionID, "message": message})
		}
	}
	return updated, nil
}

// SendPrompt implements the Prompt Delivery use case (spec.md §4.12):
// reject empty content or an unknown mode, verify the target session
// exists, append a prompt_received timeline event carrying a truncated
// preview, and emit session:prompt_send for the WebSocket bridge to relay.
func (s *Service) SendPrompt(ctx context.Context, sessionID, content string, mode PromptMode, senderSessionID string) (*domain.Session, error) {
	if content == "" {
		return nil, apperr.Validation("content must not be empty")
	}
	if mode != PromptModeSend && mode != PromptModePaste {
		return nil, apperr.Validation("mode must be one of: send, paste")
	}
	if _, err := s.store.Sessions().Get(ctx, sessionID); err != nil {
		return nil, apperr.NotFound("session", sessionID)
	}

	preview := stringutil.TruncateString(content, promptPreviewLength)
	updated, err := s.AddTimelineEvent(ctx, sessionID, domain.TimelinePromptReceived, preview, "", map[string]interface{}{
		"senderSessionId": senderSessionID,
		"mode":            mode,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventbus.TopicSessionPromptSend, map[string]interface{}{
		"sessionId":       sessionID,
		"content":         content,
		"mode":            mode,
		"senderSessionId": senderSessionID,
	})
	return updated, nil
}

// AddEventToSession is an alias of AddTimelineEvent kept for parity with the
// two distinct operation names spec.md §4.5 lists.
func (s *Service) AddEventToSession(ctx context.Context, sessionID string, typ domain.TimelineEventType, message, taskID string, metadata map[string]interface{}) (*domain.Session, error) {
	return s.AddTimelineEvent(ctx, sessionID, typ, message, taskID, metadata)
}

// AddDoc appends a document entry and records a doc_added timeline event.
func (s *Service) AddDoc(ctx context.Context, sessionID, title, content string) (*domain.Session, error) {
	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return nil, apperr.NotFound("session", sessionID)
	}

	doc := domain.DocEntry{ID: idgen.Doc(), Title: title, Content: content, CreatedAt: time.Now()}
	sess.Docs = append(sess.Docs, doc)
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, apperr.Internal("updating session", err)
	}

	return s.AddTimelineEvent(ctx, sessionID, domain.TimelineDocAdded, title, "", nil)
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
	if err := s.bus.Publish(ctx, topic, eventbus.NewEvent(topic, "session", data)); err != nil {
		s.log.WithError(err).Warn("failed publishing event", zap.String("topic", topic))
	}
}
