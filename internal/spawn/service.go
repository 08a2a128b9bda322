// Package spawn implements the Spawn Orchestrator of spec.md §4.11: the
// single use case that assembles a manifest and environment for a new
// session and emits one consolidated session:created event, rather than the
// separate session-create and spawn-request events an earlier design used.
package spawn

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/eventbus"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/platform/config"
	"github.com/maestro-run/maestro/internal/platform/logger"
	"github.com/maestro-run/maestro/internal/session"
	"github.com/maestro-run/maestro/internal/storage"
	"github.com/maestro-run/maestro/internal/template"
)

// Source identifies who requested the spawn (spec.md §4.11).
type Source string

const (
	SourceManual       Source = "manual"
	SourceOrchestrator Source = "orchestrator"
)

// Role is the spawned session's role (spec.md §4.11).
type Role string

const (
	RoleWorker       Role = "worker"
	RoleOrchestrator Role = "orchestrator"
)

// Request is the input accepted by Spawn.
type Request struct {
	ProjectID       string
	TaskIDs         []string
	SpawnSource     Source
	Role            Role
	ParentSessionID string
	TeamMemberID    string
	Model           string // defaults to defaultModel when empty
	PermissionMode  string // defaults to defaultPermissionMode when empty
}

const (
	defaultModel          = "claude-sonnet-4"
	defaultPermissionMode = "acceptEdits"
	manifestVersion       = 1
)

// Service wires the session, template, and storage layers together to
// produce a spawned session, its manifest file, and its consolidated event.
type Service struct {
	store    storage.Store
	sessions *session.Service
	templates *template.Service
	bus      eventbus.Bus
	cfg      config.SpawnConfig
	log      *logger.Logger
}

// New constructs a Service.
func New(store storage.Store, sessions *session.Service, templates *template.Service, bus eventbus.Bus, cfg config.SpawnConfig, log *logger.Logger) *Service {
	return &Service{store: store, sessions: sessions, templates: templates, bus: bus, cfg: cfg, log: log}
}

// Spawn validates req, creates the session in `spawning` status, generates
// its manifest on disk, populates its environment, and emits exactly one
// session:created event carrying the spawn payload (spec.md §4.11).
func (s *Service) Spawn(ctx context.Context, req Request) (*domain.Session, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	project, err := s.store.Projects().Get(ctx, req.ProjectID)
	if err != nil {
		return nil, apperr.NotFound("project", req.ProjectID)
	}

	tasks := make([]*domain.Task, 0, len(req.TaskIDs))
	for _, taskID := range req.TaskIDs {
		t, err := s.store.Tasks().Get(ctx, taskID)
		if err != nil {
			return nil, apperr.NotFound("task", taskID)
		}
		tasks = append(tasks, t)
	}

	sess, err := s.sessions.CreateSession(ctx, session.CreateInput{
		ProjectID:            req.ProjectID,
		TaskIDs:              req.TaskIDs,
		ParentSessionID:      req.ParentSessionID,
		TeamMemberID:         req.TeamMemberID,
		Role:                 string(req.Role),
		Status:               domain.SessionSpawning,
		Env:                  map[string]string{},
		SuppressCreatedEvent: true,
	})
	if err != nil {
		return nil, err
	}

	manifest := s.buildManifest(ctx, project, sess, tasks, req)
	manifestPath := ManifestPath(s.cfg.ManifestRoot, sess.ID)
	if err := writeManifest(manifestPath, manifest); err != nil {
		return nil, apperr.ManifestGeneration("generating session manifest", err)
	}

	env := map[string]string{
		"MAESTRO_SESSION_ID":    sess.ID,
		"MAESTRO_MANIFEST_PATH": manifestPath,
		"MAESTRO_SERVER_URL":    s.cfg.ServerURL,
	}
	if project.IsMaster {
		env["MAESTRO_IS_MASTER"] = "true"
	}
	sess.Env = env
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, apperr.Internal("persisting spawned session env", err)
	}

	command, cwd := spawnCommand(req.Role, project.WorkingDir)

	for _, taskID := range req.TaskIDs {
		s.publish(ctx, eventbus.TopicTaskSessionAdded, map[string]interface{}{"taskId": taskID, "sessionId": sess.ID})
	}

	payload := eventbus.ToData(sess)
	payload["command"] = command
	payload["cwd"] = cwd
	payload["envVars"] = env
	payload["manifest"] = manifest
	payload["projectId"] = req.ProjectID
	payload["taskIds"] = req.TaskIDs
	payload["_isSpawnCreated"] = true
	s.publish(ctx, eventbus.TopicSessionCreated, payload)

	return sess, nil
}

func validate(req Request) error {
	if req.ProjectID == "" {
		return apperr.Validation("projectId is required")
	}
	if len(req.TaskIDs) == 0 {
		return apperr.Validation("taskIds must not be empty")
	}
	if req.SpawnSource != SourceManual && req.SpawnSource != SourceOrchestrator {
		return apperr.Validation("spawnSource must be one of: manual, orchestrator")
	}
	if req.Role != RoleWorker && req.Role != RoleOrchestrator {
		return apperr.Validation("role must be one of: worker, orchestrator")
	}
	return nil
}

func (s *Service) buildManifest(ctx context.Context, project *domain.Project, sess *domain.Session, tasks []*domain.Task, req Request) *Manifest {
	model := req.Model
	if model == "" {
		model = defaultModel
	}
	permissionMode := req.PermissionMode
	if permissionMode == "" {
		permissionMode = defaultPermissionMode
	}

	m := &Manifest{
		ManifestVersion: manifestVersion,
		Role:            string(req.Role),
		ProjectID:       project.ID,
		WorkingDir:      project.WorkingDir,
		ParentSessionID: req.ParentSessionID,
		GeneratedAt:     time.Now().UTC(),
		Session: SessionRef{
			ID:             sess.ID,
			Model:          model,
			PermissionMode: permissionMode,
		},
	}

	if len(tasks) == 1 {
		m.Task = taskRef(tasks[0])
	} else {
		for _, t := range tasks {
			m.Tasks = append(m.Tasks, *taskRef(t))
		}
	}

	var skillIDs []string
	for _, t := range tasks {
		skillIDs = append(skillIDs, t.SkillIDs...)
	}
	m.SkillIDs = dedupeStrings(skillIDs)

	if s.templates != nil {
		if tmpl, err := s.templates.Get(ctx, project.ID, string(req.Role)); err == nil {
			m.TemplateText = tmpl.Text
		}
	}

	return m
}

func taskRef(t *domain.Task) *TaskRef {
	return &TaskRef{ID: t.ID, Title: t.Title, Description: t.Description, InitialPrompt: t.InitialPrompt}
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// spawnCommand derives the informational command/cwd pair carried in the
// spawn event payload; spec.md §4.11 requires the fields but leaves their
// content to the orchestrator's own convention.
func spawnCommand(role Role, workingDir string) (string, string) {
	return fmt.Sprintf("maestro-agent --role=%s", role), workingDir
}

func (s *Service) publish(ctx context.Context, topic string, payload interface{}) {
	data, ok := payload.(map[string]interface{})
	if !ok {
		data = eventbus.ToData(payload)
	}
	if err := s.bus.Publish(ctx, topic, eventbus.NewEvent(topic, "spawn", data)); err != nil {
		s.log.WithError(err).Warn("failed publishing event", zap.String("topic", topic))
	}
}
