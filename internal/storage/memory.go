package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/maestro-run/maestro/internal/domain"
)

// MemoryStore is the only Store implementation the core ships; a
// persistence backend is an explicit external collaborator (spec.md §1,
// §4.2). Each aggregate gets its own mutex-guarded map so that unrelated
// aggregates never contend on the same lock.
type MemoryStore struct {
	projects    *projectRepo
	tasks       *taskRepo
	sessions    *sessionRepo
	queues      *queueRepo
	mail        *mailRepo
	teamMembers *teamMemberRepo
	teams       *teamRepo
	taskLists   *taskListRepo
	templates   *templateRepo
	orderings   *orderingRepo
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:    &projectRepo{items: map[string]*domain.Project{}},
		tasks:       &taskRepo{items: map[string]*domain.Task{}},
		sessions:    &sessionRepo{items: map[string]*domain.Session{}},
		queues:      &queueRepo{items: map[string]*domain.Queue{}},
		mail:        &mailRepo{items: map[string]*domain.Mail{}},
		teamMembers: &teamMemberRepo{items: map[string]*domain.TeamMember{}},
		teams:       &teamRepo{items: map[string]*domain.Team{}},
		taskLists:   &taskListRepo{items: map[string]*domain.TaskList{}},
		templates:   &templateRepo{items: map[string]*domain.Template{}},
		orderings:   &orderingRepo{items: map[string]*domain.Ordering{}},
	}
}

func (s *MemoryStore) Projects() ProjectRepository       { return s.projects }
func (s *MemoryStore) Tasks() TaskRepository             { return s.tasks }
func (s *MemoryStore) Sessions() SessionRepository       { return s.sessions }
func (s *MemoryStore) Queues() QueueRepository           { return s.queues }
func (s *MemoryStore) Mail() MailRepository              { return s.mail }
func (s *MemoryStore) TeamMembers() TeamMemberRepository { return s.teamMembers }
func (s *MemoryStore) Teams() TeamRepository             { return s.teams }
func (s *MemoryStore) TaskLists() TaskListRepository     { return s.taskLists }
func (s *MemoryStore) Templates() TemplateRepository     { return s.templates }
func (s *MemoryStore) Orderings() OrderingRepository     { return s.orderings }

// --- Project ---

type projectRepo struct {
	mu    sync.RWMutex
	items map[string]*domain.Project
}

func (r *projectRepo) Create(_ context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *projectRepo) Get(_ context.Context, id string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *projectRepo) List(_ context.Context) ([]*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Project, 0, len(r.items))
	for _, p := range r.items {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *projectRepo) Update(_ context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.ID]; !ok {
		return fmt.Errorf("project %s: %w", p.ID, ErrNotFound)
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *projectRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

// --- Task ---

type taskRepo struct {
	mu    sync.RWMutex
	items map[string]*domain.Task
}

func cloneTask(t *domain.Task) *domain.Task {
	cp := *t
	cp.SessionIDs = append([]string(nil), t.SessionIDs...)
	cp.TaskSessionStatuses = make(map[string]domain.TaskSessionStatus, len(t.TaskSessionStatuses))
	for k, v := range t.TaskSessionStatuses {
		cp.TaskSessionStatuses[k] = v
	}
	cp.Timeline = append([]domain.TimelineEvent(nil), t.Timeline...)
	cp.SkillIDs = append([]string(nil), t.SkillIDs...)
	cp.AgentIDs = append([]string(nil), t.AgentIDs...)
	cp.Dependencies = append([]string(nil), t.Dependencies...)
	return &cp
}

func (r *taskRepo) Create(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[t.ID] = cloneTask(t)
	return nil
}

func (r *taskRepo) Get(_ context.Context, id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return cloneTask(t), nil
}

func (r *taskRepo) List(_ context.Context, filter TaskFilter) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Task, 0)
	for _, t := range r.items {
		if filter.ProjectID != "" && t.ProjectID != filter.ProjectID {
			continue
		}
		if filter.ParentID != "" && t.ParentID != filter.ParentID {
			continue
		}
		if filter.HasParent != nil && (*filter.HasParent) != (t.ParentID != "") {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, cloneTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *taskRepo) Update(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[t.ID]; !ok {
		return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	r.items[t.ID] = cloneTask(t)
	return nil
}

func (r *taskRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

func (r *taskRepo) ChildrenOf(_ context.Context, id string) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Task, 0)
	for _, t := range r.items {
		if t.ParentID == id {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (r *taskRepo) CountByProject(_ context.Context, projectID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, t := range r.items {
		if t.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

// --- Session ---

type sessionRepo struct {
	mu    sync.RWMutex
	items map[string]*domain.Session
}

func cloneSession(s *domain.Session) *domain.Session {
	cp := *s
	cp.TaskIDs = append([]string(nil), s.TaskIDs...)
	cp.Env = make(map[string]string, len(s.Env))
	for k, v := range s.Env {
		cp.Env[k] = v
	}
	cp.Timeline = append([]domain.TimelineEvent(nil), s.Timeline...)
	cp.Docs = append([]domain.DocEntry(nil), s.Docs...)
	if s.TeamMemberSnapshot != nil {
		cp.TeamMemberSnapshot = make(map[string]interface{}, len(s.TeamMemberSnapshot))
		for k, v := range s.TeamMemberSnapshot {
			cp.TeamMemberSnapshot[k] = v
		}
	}
	return &cp
}

func (r *sessionRepo) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = cloneSession(s)
	return nil
}

func (r *sessionRepo) Get(_ context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return cloneSession(s), nil
}

func (r *sessionRepo) List(_ context.Context, filter SessionFilter) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Session, 0)
	for _, s := range r.items {
		if filter.ProjectID != "" && s.ProjectID != filter.ProjectID {
			continue
		}
		if filter.TaskID != "" && !s.HasTask(filter.TaskID) {
			continue
		}
		if filter.Active != nil && (*filter.Active) == s.Status.IsTerminal() {
			continue
		}
		if filter.ParentSessionID != "" && s.ParentSessionID != filter.ParentSessionID {
			continue
		}
		out = append(out, cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *sessionRepo) Update(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[s.ID]; !ok {
		return fmt.Errorf("session %s: %w", s.ID, ErrNotFound)
	}
	r.items[s.ID] = cloneSession(s)
	return nil
}

func (r *sessionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

func (r *sessionRepo) CountByProject(_ context.Context, projectID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.items {
		if s.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

// --- Queue ---

type queueRepo struct {
	mu    sync.RWMutex
	items map[string]*domain.Queue
}

func cloneQueue(q *domain.Queue) *domain.Queue {
	cp := *q
	cp.Items = append([]domain.QueueItem(nil), q.Items...)
	return &cp
}

func (r *queueRepo) Create(_ context.Context, q *domain.Queue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[q.SessionID]; ok {
		return fmt.Errorf("queue for session %s already exists", q.SessionID)
	}
	r.items[q.SessionID] = cloneQueue(q)
	return nil
}

func (r *queueRepo) Get(_ context.Context, sessionID string) (*domain.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.items[sessionID]
	if !ok {
		return nil, fmt.Errorf("queue %s: %w", sessionID, ErrNotFound)
	}
	return cloneQueue(q), nil
}

func (r *queueRepo) Update(_ context.Context, q *domain.Queue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[q.SessionID]; !ok {
		return fmt.Errorf("queue %s: %w", q.SessionID, ErrNotFound)
	}
	r.items[q.SessionID] = cloneQueue(q)
	return nil
}

func (r *queueRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, sessionID)
	return nil
}

// --- Mail ---

type mailRepo struct {
	mu    sync.RWMutex
	items map[string]*domain.Mail
}

func (r *mailRepo) Create(_ context.Context, m *domain.Mail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.items[m.ID] = &cp
	return nil
}

func (r *mailRepo) Get(_ context.Context, id string) (*domain.Mail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("mail %s: %w", id, ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (r *mailRepo) List(_ context.Context, filter MailFilter) ([]*domain.Mail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Mail, 0)
	for _, m := range r.items {
		if filter.ProjectID != "" && m.ProjectID != filter.ProjectID {
			continue
		}
		if filter.SessionID != "" && !m.MatchesInbox(filter.ProjectID, filter.SessionID) {
			continue
		}
		if filter.ThreadID != "" && m.ThreadID != filter.ThreadID {
			continue
		}
		if filter.Since != nil && m.CreatedAt.UnixMilli() <= *filter.Since {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

// --- TeamMember ---

type teamMemberRepo struct {
	mu    sync.RWMutex
	items map[string]*domain.TeamMember
}

func (r *teamMemberRepo) Create(_ context.Context, m *domain.TeamMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.items[m.ID] = &cp
	return nil
}

func (r *teamMemberRepo) Get(_ context.Context, id string) (*domain.TeamMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("team member %s: %w", id, ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (r *teamMemberRepo) List(_ context.Context, projectID string) ([]*domain.TeamMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.TeamMember, 0)
	for _, m := range r.items {
		if projectID != "" && m.ProjectID != projectID {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *teamMemberRepo) Update(_ context.Context, m *domain.TeamMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[m.ID]; !ok {
		return fmt.Errorf("team member %s: %w", m.ID, ErrNotFound)
	}
	cp := *m
	r.items[m.ID] = &cp
	return nil
}

func (r *teamMemberRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("team member %s: %w", id, ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

// --- Team ---

type teamRepo struct {
	mu    sync.RWMutex
	items map[string]*domain.Team
}

func cloneTeam(t *domain.Team) *domain.Team {
	cp := *t
	cp.MemberIDs = append([]string(nil), t.MemberIDs...)
	cp.SubTeamIDs = append([]string(nil), t.SubTeamIDs...)
	return &cp
}

func (r *teamRepo) Create(_ context.Context, t *domain.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[t.ID] = cloneTeam(t)
	return nil
}

func (r *teamRepo) Get(_ context.Context, id string) (*domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", id, ErrNotFound)
	}
	return cloneTeam(t), nil
}

func (r *teamRepo) List(_ context.Context, projectID string) ([]*domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Team, 0)
	for _, t := range r.items {
		if projectID != "" && t.ProjectID != projectID {
			continue
		}
		out = append(out, cloneTeam(t))
	}
	return out, nil
}

func (r *teamRepo) Update(_ context.Context, t *domain.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[t.ID]; !ok {
		return fmt.Errorf("team %s: %w", t.ID, ErrNotFound)
	}
	r.items[t.ID] = cloneTeam(t)
	return nil
}

func (r *teamRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("team %s: %w", id, ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

// --- TaskList ---

type taskListRepo struct {
	mu    sync.RWMutex
	items map[string]*domain.TaskList
}

func cloneTaskList(l *domain.TaskList) *domain.TaskList {
	cp := *l
	cp.OrderedTaskIDs = append([]string(nil), l.OrderedTaskIDs...)
	return &cp
}

func (r *taskListRepo) Create(_ context.Context, l *domain.TaskList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[l.ID] = cloneTaskList(l)
	return nil
}

func (r *taskListRepo) Get(_ context.Context, id string) (*domain.TaskList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("task list %s: %w", id, ErrNotFound)
	}
	return cloneTaskList(l), nil
}

func (r *taskListRepo) List(_ context.Context, projectID string) ([]*domain.TaskList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.TaskList, 0)
	for _, l := range r.items {
		if projectID != "" && l.ProjectID != projectID {
			continue
		}
		out = append(out, cloneTaskList(l))
	}
	return out, nil
}

func (r *taskListRepo) Update(_ context.Context, l *domain.TaskList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[l.ID]; !ok {
		return fmt.Errorf("task list %s: %w", l.ID, ErrNotFound)
	}
	r.items[l.ID] = cloneTaskList(l)
	return nil
}

func (r *taskListRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("task list %s: %w", id, ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

// --- Template ---

type templateRepo struct {
	mu    sync.RWMutex
	items map[string]*domain.Template // keyed by projectID + "/" + role
}

func templateKey(projectID, role string) string { return projectID + "/" + role }

func (r *templateRepo) Get(_ context.Context, projectID, role string) (*domain.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[templateKey(projectID, role)]
	if !ok {
		return nil, fmt.Errorf("template %s/%s: %w", projectID, role, ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r *templateRepo) List(_ context.Context, projectID string) ([]*domain.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Template, 0)
	for _, t := range r.items {
		if t.ProjectID != projectID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *templateRepo) Upsert(_ context.Context, t *domain.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.items[templateKey(t.ProjectID, t.Role)] = &cp
	return nil
}

func (r *templateRepo) Delete(_ context.Context, projectID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, templateKey(projectID, role))
	return nil
}

// --- Ordering ---

type orderingRepo struct {
	mu    sync.RWMutex
	items map[string]*domain.Ordering // keyed by projectID + "/" + entityType
}

func orderingKey(projectID, entityType string) string { return projectID + "/" + entityType }

func (r *orderingRepo) Get(_ context.Context, projectID, entityType string) (*domain.Ordering, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.items[orderingKey(projectID, entityType)]
	if !ok {
		return nil, fmt.Errorf("ordering %s/%s: %w", projectID, entityType, ErrNotFound)
	}
	cp := *o
	cp.IDs = append([]string(nil), o.IDs...)
	return &cp, nil
}

func (r *orderingRepo) Upsert(_ context.Context, o *domain.Ordering) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	cp.IDs = append([]string(nil), o.IDs...)
	r.items[orderingKey(o.ProjectID, o.EntityType)] = &cp
	return nil
}

func (r *orderingRepo) DeleteByProject(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, o := range r.items {
		if o.ProjectID == projectID {
			delete(r.items, k)
		}
	}
	return nil
}
