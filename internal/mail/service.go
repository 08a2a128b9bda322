// Package mail implements the Mail Service of spec.md §4.6: addressee
// resolution, threading, inbox ordering, and the long-poll wait contract.
package mail

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/eventbus"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/platform/idgen"
	"github.com/maestro-run/maestro/internal/platform/logger"
	"github.com/maestro-run/maestro/internal/storage"
)

const (
	// MaxWaitTimeout caps WaitForMail regardless of the caller's request
	// (spec.md §4.6).
	MaxWaitTimeout = 120 * time.Second
	// DefaultWaitTimeout is used when the caller requests zero or a negative
	// timeout.
	DefaultWaitTimeout = 30 * time.Second
)

// Service implements mail send, inbox, threading, and long-poll wait.
type Service struct {
	store storage.Store
	bus   eventbus.Bus
	log   *logger.Logger
}

// New constructs a Service over store, publishing mail:received to bus and
// using it to wake long-poll waiters.
func New(store storage.Store, bus eventbus.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// SendInput is the payload accepted by Send.
type SendInput struct {
	ProjectID     string
	FromSessionID string
	ToSessionID   string
	ToTeamMemberID string
	Scope         string // "my-workers" | "team", only consulted when ToSessionID is empty
	ReplyToMailID string
	Type          string
	Subject       string
	Body          string
	Priority      domain.MailPriority
}

// Send resolves the addressee per spec.md §4.6 and stores one Mail per
// resolved recipient, emitting mail:received for each.
func (s *Service) Send(ctx context.Context, in SendInput) ([]*domain.Mail, error) {
	if in.Body == "" {
		return nil, apperr.Validation("mail body must not be empty")
	}
	if _, err := s.store.Projects().Get(ctx, in.ProjectID); err != nil {
		return nil, apperr.NotFound("project", in.ProjectID)
	}

	threadID, err := s.resolveThreadID(ctx, in.ReplyToMailID)
	if err != nil {
		return nil, err
	}

	recipients, broadcast, err := s.resolveRecipients(ctx, in)
	if err != nil {
		return nil, err
	}

	var out []*domain.Mail
	if broadcast {
		m, err := s.store1(ctx, in, "", threadID)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	} else {
		for _, sessionID := range recipients {
			m, err := s.store1(ctx, in, sessionID, threadID)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
	}

	for _, m := range out {
		s.publish(ctx, eventbus.TopicMailReceived, m)
	}
	return out, nil
}

func (s *Service) store1(ctx context.Context, in SendInput, toSessionID, threadID string) (*domain.Mail, error) {
	m := &domain.Mail{
		ID:            idgen.Mail(),
		ProjectID:     in.ProjectID,
		FromSessionID: in.FromSessionID,
		ToSessionID:   toSessionID,
		ReplyToMailID: in.ReplyToMailID,
		Type:          in.Type,
		Subject:       in.Subject,
		Body:          in.Body,
		Priority:      in.Priority,
		CreatedAt:     time.Now(),
	}
	if threadID != "" {
		m.ThreadID = threadID
	} else {
		m.ThreadID = m.ID
	}
	if err := s.store.Mail().Create(ctx, m); err != nil {
		return nil, apperr.Internal("storing mail", err)
	}
	return m, nil
}

func (s *Service) resolveThreadID(ctx context.Context, replyToMailID string) (string, error) {
	if replyToMailID == "" {
		return "", nil
	}
	parent, err := s.store.Mail().Get(ctx, replyToMailID)
	if err != nil {
		return "", apperr.NotFound("mail", replyToMailID)
	}
	if parent.ThreadID != "" {
		return parent.ThreadID, nil
	}
	return parent.ID, nil
}

// resolveRecipients returns either a list of target session ids, or
// broadcast=true meaning a single message with no ToSessionID.
func (s *Service) resolveRecipients(ctx context.Context, in SendInput) (recipients []string, broadcast bool, err error) {
	if in.ToSessionID != "" {
		return []string{in.ToSessionID}, false, nil
	}

	if in.ToTeamMemberID != "" {
		sessions, err := s.store.Sessions().List(ctx, storage.SessionFilter{ProjectID: in.ProjectID})
		if err != nil {
			return nil, false, apperr.Internal("listing sessions", err)
		}
		var ids []string
		for _, sess := range sessions {
			if sess.TeamMemberID == in.ToTeamMemberID && sess.IsActiveForMail() {
				ids = append(ids, sess.ID)
			}
		}
		return ids, false, nil
	}

	switch in.Scope {
	case "my-workers":
		sessions, err := s.store.Sessions().List(ctx, storage.SessionFilter{ProjectID: in.ProjectID, ParentSessionID: in.FromSessionID})
		if err != nil {
			return nil, false, apperr.Internal("listing sessions", err)
		}
		var ids []string
		for _, sess := range sessions {
			if sess.IsActiveForMail() {
				ids = append(ids, sess.ID)
			}
		}
		return ids, false, nil
	case "team":
		sender, err := s.store.Sessions().Get(ctx, in.FromSessionID)
		if err != nil {
			return nil, false, apperr.NotFound("session", in.FromSessionID)
		}
		sessions, err := s.store.Sessions().List(ctx, storage.SessionFilter{ProjectID: in.ProjectID, ParentSessionID: sender.ParentSessionID})
		if err != nil {
			return nil, false, apperr.Internal("listing sessions", err)
		}
		var ids []string
		for _, sess := range sessions {
			if sess.ID != sender.ID && sess.IsActiveForMail() {
				ids = append(ids, sess.ID)
			}
		}
		return ids, false, nil
	}

	// No addressee specified at all: a single broadcast message.
	return nil, true, nil
}

// Inbox returns mail visible to sessionID within projectID, sorted by
// priority (critical first) then ascending createdAt (spec.md §4.6, §8).
func (s *Service) Inbox(ctx context.Context, projectID, sessionID string) ([]*domain.Mail, error) {
	list, err := s.store.Mail().List(ctx, storage.MailFilter{ProjectID: projectID, SessionID: sessionID})
	if err != nil {
		return nil, apperr.Internal("listing mail", err)
	}
	sortInboxOrder(list)
	return list, nil
}

func sortInboxOrder(list []*domain.Mail) {
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := list[i].Priority.Rank(), list[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

// Thread returns every mail sharing threadID, oldest first.
func (s *Service) Thread(ctx context.Context, threadID string) ([]*domain.Mail, error) {
	list, err := s.store.Mail().List(ctx, storage.MailFilter{ThreadID: threadID})
	if err != nil {
		return nil, apperr.Internal("listing mail", err)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// WaitForMail long-polls for mail matching (projectID, sessionID) created
// after since. timeout is clamped to (0, MaxWaitTimeout]; zero or negative
// uses DefaultWaitTimeout. The handler guards against double-resolution so
// unsubscribe+timer-cancel happens exactly once (spec.md §5, §4.6).
func (s *Service) WaitForMail(ctx context.Context, projectID, sessionID string, since time.Time, timeout time.Duration) ([]*domain.Mail, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	if timeout > MaxWaitTimeout {
		timeout = MaxWaitTimeout
	}

	sinceMillis := since.UnixMilli()
	existing, err := s.store.Mail().List(ctx, storage.MailFilter{ProjectID: projectID, SessionID: sessionID, Since: &sinceMillis})
	if err != nil {
		return nil, apperr.Internal("listing mail", err)
	}
	if len(existing) > 0 {
		sortInboxOrder(existing)
		return existing, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan *domain.Mail, 1)
	var once sync.Once
	var subMu sync.Mutex
	var sub eventbus.Subscription

	newSub, err := s.bus.Subscribe(eventbus.TopicMailReceived, func(_ context.Context, e *eventbus.Event) error {
		var m domain.Mail
		if err := decodeMail(e.Data, &m); err != nil {
			return nil
		}
		if !m.MatchesInbox(projectID, sessionID) {
			return nil
		}
		once.Do(func() {
			subMu.Lock()
			if sub != nil {
				sub.Unsubscribe()
			}
			subMu.Unlock()
			select {
			case result <- &m:
			default:
			}
		})
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("subscribing to mail:received", err)
	}
	subMu.Lock()
	sub = newSub
	subMu.Unlock()

	select {
	case m := <-result:
		return []*domain.Mail{m}, nil
	case <-waitCtx.Done():
		once.Do(func() {
			subMu.Lock()
			if sub != nil {
				sub.Unsubscribe()
			}
			subMu.Unlock()
		})
		return []*domain.Mail{}, nil
	}
}

func decodeMail(data map[string]interface{}, out *domain.Mail) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (s *Service) publish(ctx context.Context, topic string, payload interface{}) {
	data := eventbus.ToData(payload)
	if err := s.bus.Publish(ctx, topic, eventbus.NewEvent(topic, "mail", data)); err != nil {
		s.log.WithError(err).Warn("failed publishing event", zap.String("topic", topic))
	}
}
