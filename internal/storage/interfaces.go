// Package storage defines the repository interfaces of spec.md §4.2 and an
// in-memory implementation of each. Every Get/List returns a deep copy so
// callers can never mutate shared state by holding a pointer into the
// store; services that need read-modify-write snapshot the fields they
// compare before calling Update (spec.md §9).
package storage

import (
	"context"

	"github.com/maestro-run/maestro/internal/domain"
)

// ProjectRepository stores Projects.
type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project) error
	Get(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	Update(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, id string) error
}

// TaskFilter narrows TaskRepository.List.
type TaskFilter struct {
	ProjectID string
	ParentID  string
	HasParent *bool // when set, filters to tasks with/without a ParentID
	Status    domain.TaskStatus
}

// TaskRepository stores Tasks.
type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) error
	Get(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, id string) error
	// ChildrenOf returns tasks whose ParentID equals id, in no particular order.
	ChildrenOf(ctx context.Context, id string) ([]*domain.Task, error)
	CountByProject(ctx context.Context, projectID string) (int, error)
}

// SessionFilter narrows SessionRepository.List.
type SessionFilter struct {
	ProjectID       string
	TaskID          string
	Active          *bool // Status not in a terminal state
	ParentSessionID string
}

// SessionRepository stores Sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	List(ctx context.Context, filter SessionFilter) ([]*domain.Session, error)
	Update(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, id string) error
	CountByProject(ctx context.Context, projectID string) (int, error)
}

// QueueRepository stores one Queue per session.
type QueueRepository interface {
	Create(ctx context.Context, q *domain.Queue) error
	Get(ctx context.Context, sessionID string) (*domain.Queue, error)
	Update(ctx context.Context, q *domain.Queue) error
	Delete(ctx context.Context, sessionID string) error
}

// MailFilter narrows MailRepository.List.
type MailFilter struct {
	ProjectID string
	SessionID string // inbox membership: ToSessionID in {"", sessionID}
	ThreadID  string
	Since     *int64 // unix millis; createdAt > Since
}

// MailRepository stores immutable Mail records.
type MailRepository interface {
	Create(ctx context.Context, m *domain.Mail) error
	Get(ctx context.Context, id string) (*domain.Mail, error)
	List(ctx context.Context, filter MailFilter) ([]*domain.Mail, error)
}

// TeamMemberRepository stores TeamMembers, including default overlays.
type TeamMemberRepository interface {
	Create(ctx context.Context, m *domain.TeamMember) error
	Get(ctx context.Context, id string) (*domain.TeamMember, error)
	List(ctx context.Context, projectID string) ([]*domain.TeamMember, error)
	Update(ctx context.Context, m *domain.TeamMember) error
	Delete(ctx context.Context, id string) error
}

// TeamRepository stores Teams.
type TeamRepository interface {
	Create(ctx context.Context, t *domain.Team) error
	Get(ctx context.Context, id string) (*domain.Team, error)
	List(ctx context.Context, projectID string) ([]*domain.Team, error)
	Update(ctx context.Context, t *domain.Team) error
	Delete(ctx context.Context, id string) error
}

// TaskListRepository stores TaskLists.
type TaskListRepository interface {
	Create(ctx context.Context, l *domain.TaskList) error
	Get(ctx context.Context, id string) (*domain.TaskList, error)
	List(ctx context.Context, projectID string) ([]*domain.TaskList, error)
	Update(ctx context.Context, l *domain.TaskList) error
	Delete(ctx context.Context, id string) error
}

// TemplateRepository stores role-keyed Templates.
type TemplateRepository interface {
	Get(ctx context.Context, projectID, role string) (*domain.Template, error)
	List(ctx context.Context, projectID string) ([]*domain.Template, error)
	Upsert(ctx context.Context, t *domain.Template) error
	Delete(ctx context.Context, projectID, role string) error
}

// OrderingRepository stores per-(project, entityType) ordered id lists.
type OrderingRepository interface {
	Get(ctx context.Context, projectID, entityType string) (*domain.Ordering, error)
	Upsert(ctx context.Context, o *domain.Ordering) error
	DeleteByProject(ctx context.Context, projectID string) error
}

// Store aggregates every repository; services depend on the narrow
// interface they need, but wiring constructs one Store per process.
type Store interface {
	Projects() ProjectRepository
	Tasks() TaskRepository
	Sessions() SessionRepository
	Queues() QueueRepository
	Mail() MailRepository
	TeamMembers() TeamMemberRepository
	Teams() TeamRepository
	TaskLists() TaskListRepository
	Templates() TemplateRepository
	Orderings() OrderingRepository
}
