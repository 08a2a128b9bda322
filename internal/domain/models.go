// Package domain holds the core entity types shared by every service and
// repository (spec.md §3). Entities carry json tags because they are also
// the REST wire representation; no separate DTO layer exists for reads.
package domain

import "time"

// Project owns Tasks, Sessions, TaskLists, TeamMembers, Teams and Orderings.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	WorkingDir  string    `json:"workingDir"`
	Description string    `json:"description"`
	IsMaster    bool      `json:"isMaster"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskStatus enumerates the top-level lifecycle of a Task (spec.md §3).
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusError      TaskStatus = "error"
)

// TaskSessionStatus is the per-session status a Task tracks in
// taskSessionStatuses (spec.md §3).
type TaskSessionStatus string

const (
	TaskSessionWorking   TaskSessionStatus = "working"
	TaskSessionQueued    TaskSessionStatus = "queued"
	TaskSessionBlocked   TaskSessionStatus = "blocked"
	TaskSessionCompleted TaskSessionStatus = "completed"
	TaskSessionFailed    TaskSessionStatus = "failed"
	TaskSessionSkipped   TaskSessionStatus = "skipped"
)

// IsTerminal reports whether a per-session status can no longer change
// (spec.md §4.5: propagation only happens "if the current per-session status
// is not already a terminal value").
func (s TaskSessionStatus) IsTerminal() bool {
	switch s {
	case TaskSessionCompleted, TaskSessionFailed, TaskSessionSkipped:
		return true
	default:
		return false
	}
}

// UpdateSource distinguishes who is updating a Task, enforcing the
// privilege split of spec.md §4.4.
type UpdateSource string

const (
	UpdateSourceUser    UpdateSource = "user"
	UpdateSourceSession UpdateSource = "session"
)

// TimelineEventType enumerates Session.Timeline entry kinds (spec.md §3).
type TimelineEventType string

const (
	TimelineTaskStarted     TimelineEventType = "task_started"
	TimelineTaskCompleted   TimelineEventType = "task_completed"
	TimelineTaskSkipped     TimelineEventType = "task_skipped"
	TimelineProgress        TimelineEventType = "progress"
	TimelineNeedsInput      TimelineEventType = "needs_input"
	TimelineSessionStopped  TimelineEventType = "session_stopped"
	TimelineDocAdded        TimelineEventType = "doc_added"
	TimelinePromptReceived  TimelineEventType = "prompt_received"
)

// TimelineEvent is one ordered entry in Session.Timeline.
type TimelineEvent struct {
	ID        string                 `json:"id"`
	Type      TimelineEventType      `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Message   string                 `json:"message,omitempty"`
	TaskID    string                 `json:"taskId,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Task belongs to a Project and may form a tree via ParentID.
type Task struct {
	ID                  string                       `json:"id"`
	ProjectID           string                       `json:"projectId"`
	ParentID            string                       `json:"parentId,omitempty"`
	Title               string                       `json:"title"`
	Description         string                       `json:"description"`
	Status              TaskStatus                   `json:"status"`
	Priority            string                       `json:"priority,omitempty"`
	SessionIDs          []string                     `json:"sessionIds"`
	TaskSessionStatuses map[string]TaskSessionStatus `json:"taskSessionStatuses"`
	Timeline            []TimelineEvent              `json:"timeline"`
	InitialPrompt       string                       `json:"initialPrompt,omitempty"`
	SkillIDs            []string                     `json:"skillIds,omitempty"`
	AgentIDs            []string                     `json:"agentIds,omitempty"`
	Dependencies        []string                     `json:"dependencies,omitempty"`
	CreatedAt           time.Time                    `json:"createdAt"`
	UpdatedAt           time.Time                    `json:"updatedAt"`
}

// HasSession reports whether sessionID is a member of SessionIDs.
func (t *Task) HasSession(sessionID string) bool {
	for _, id := range t.SessionIDs {
		if id == sessionID {
			return true
		}
	}
	return false
}

// SessionStatus enumerates a Session's lifecycle (spec.md §3).
type SessionStatus string

const (
	SessionSpawning   SessionStatus = "spawning"
	SessionIdle       SessionStatus = "idle"
	SessionWorking    SessionStatus = "working"
	SessionNeedsInput SessionStatus = "needs_input"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
	SessionStopped    SessionStatus = "stopped"
)

// IsTerminal reports whether status is one of the three terminal states.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionCompleted, SessionFailed, SessionStopped:
		return true
	default:
		return false
	}
}

// NeedsInput tracks whether a session is blocked waiting on a human.
type NeedsInput struct {
	Active  bool      `json:"active"`
	Message string    `json:"message,omitempty"`
	Since   time.Time `json:"since,omitempty"`
}

// DocEntry is one document attached to a session via addDoc.
type DocEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session belongs to a Project and tracks a set of associated Tasks.
type Session struct {
	ID                 string            `json:"id"`
	ProjectID          string            `json:"projectId"`
	TaskIDs            []string          `json:"taskIds"`
	Status             SessionStatus     `json:"status"`
	NeedsInput         NeedsInput        `json:"needsInput"`
	Env                map[string]string `json:"env"`
	TeamMemberID       string            `json:"teamMemberId,omitempty"`
	TeamMemberSnapshot map[string]interface{} `json:"teamMemberSnapshot,omitempty"`
	ParentSessionID    string            `json:"parentSessionId,omitempty"`
	Role               string            `json:"role,omitempty"` // worker | orchestrator
	Timeline           []TimelineEvent   `json:"timeline"`
	Docs               []DocEntry        `json:"docs"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// HasTask reports whether taskID is a member of TaskIDs.
func (s *Session) HasTask(taskID string) bool {
	for _, id := range s.TaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// IsActiveForMail reports whether the session still accepts mail fan-out
// under spec.md §4.6 ("active session (status ∈ {working, idle, spawning})").
func (s *Session) IsActiveForMail() bool {
	switch s.Status {
	case SessionWorking, SessionIdle, SessionSpawning:
		return true
	default:
		return false
	}
}

// QueueItemStatus enumerates a QueueItem's monotone lifecycle (spec.md §4.7).
type QueueItemStatus string

const (
	QueueItemQueued     QueueItemStatus = "queued"
	QueueItemProcessing QueueItemStatus = "processing"
	QueueItemCompleted  QueueItemStatus = "completed"
	QueueItemFailed     QueueItemStatus = "failed"
	QueueItemSkipped    QueueItemStatus = "skipped"
)

// QueueItem is one entry in a Session's task queue.
type QueueItem struct {
	TaskID      string     `json:"taskId"`
	Status      QueueItemStatus `json:"status"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	FailReason  string     `json:"failReason,omitempty"`
}

// Queue is the per-session FIFO work list (spec.md §4.7).
type Queue struct {
	SessionID   string      `json:"sessionId"`
	Items       []QueueItem `json:"items"`
	CurrentIndex int        `json:"currentIndex"` // -1 when idle
}

// MailPriority enumerates mail urgency, highest first (spec.md §3).
type MailPriority string

const (
	MailPriorityCritical MailPriority = "critical"
	MailPriorityHigh     MailPriority = "high"
	MailPriorityNormal   MailPriority = "normal"
	MailPriorityLow      MailPriority = "low"
)

// Rank returns the sort rank used by inbox ordering (spec.md §4.6): lower
// sorts first. An empty/unset priority ranks as MailPriorityNormal per the
// Open Question decision recorded in DESIGN.md.
func (p MailPriority) Rank() int {
	switch p {
	case MailPriorityCritical:
		return 0
	case MailPriorityHigh:
		return 1
	case MailPriorityLow:
		return 3
	default: // "" and MailPriorityNormal
		return 2
	}
}

// Mail is an immutable message exchanged between sessions.
type Mail struct {
	ID            string       `json:"id"`
	ProjectID     string       `json:"projectId"`
	FromSessionID string       `json:"fromSessionId"`
	ToSessionID   string       `json:"toSessionId,omitempty"` // empty = broadcast
	ReplyToMailID string       `json:"replyToMailId,omitempty"`
	ThreadID      string       `json:"threadId"`
	Type          string       `json:"type"`
	Subject       string       `json:"subject"`
	Body          string       `json:"body"`
	Priority      MailPriority `json:"priority,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// MatchesInbox reports whether this mail belongs in sessionID's inbox for
// projectID (spec.md §4.6).
func (m *Mail) MatchesInbox(projectID, sessionID string) bool {
	if m.ProjectID != projectID {
		return false
	}
	return m.ToSessionID == "" || m.ToSessionID == sessionID
}

// TeamMemberStatus tracks the TeamMember lifecycle (spec.md §3).
type TeamMemberStatus string

const (
	TeamMemberActive   TeamMemberStatus = "active"
	TeamMemberArchived TeamMemberStatus = "archived"
	TeamMemberDeleted  TeamMemberStatus = "deleted"
)

// TeamMember describes one assignable identity. Defaults are code-provided
// and edited via an overlay (spec.md §4.10); custom members are stored
// directly.
type TeamMember struct {
	ID                string           `json:"id"`
	ProjectID         string           `json:"projectId"`
	Name              string           `json:"name"`
	Role              string           `json:"role"`
	Avatar            string           `json:"avatar,omitempty"`
	Model             string           `json:"model,omitempty"`
	AgentTool         string           `json:"agentTool,omitempty"`
	Mode              string           `json:"mode,omitempty"`
	Skills            []string         `json:"skills,omitempty"`
	Capabilities      []string         `json:"capabilities,omitempty"`
	CommandPermissions []string        `json:"commandPermissions,omitempty"`
	IsDefault         bool             `json:"isDefault"`
	Status            TeamMemberStatus `json:"status"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// Team groups TeamMembers under exactly one leader (spec.md §3).
type Team struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId"`
	Name         string    `json:"name"`
	LeaderID     string    `json:"leaderId"`
	MemberIDs    []string  `json:"memberIds"`
	SubTeamIDs   []string  `json:"subTeamIds,omitempty"`
	ParentTeamID string    `json:"parentTeamId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TaskList is a named, ordered sequence of TaskIDs within one project.
type TaskList struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"projectId"`
	Name           string    `json:"name"`
	OrderedTaskIDs []string  `json:"orderedTaskIds"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Template is a role-keyed text template that can be reset to its built-in
// default (spec.md §4.10).
type Template struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	IsDefault bool      `json:"isDefault"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Ordering is a per-(project, entity-type) ordered id list, stored
// independently of the entity it orders (spec.md §3).
type Ordering struct {
	ProjectID  string   `json:"projectId"`
	EntityType string   `json:"entityType"`
	IDs        []string `json:"ids"`
}
