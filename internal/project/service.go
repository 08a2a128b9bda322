// Package project implements the Project Service of spec.md §4.3: project
// CRUD with referential-integrity checks against Tasks and Sessions.
package project

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/eventbus"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/platform/idgen"
	"github.com/maestro-run/maestro/internal/platform/logger"
	"github.com/maestro-run/maestro/internal/storage"
)

// Service implements project CRUD and emits project:* events.
type Service struct {
	store storage.Store
	bus   eventbus.Bus
	log   *logger.Logger
}

// New constructs a Service over store, publishing lifecycle events to bus.
func New(store storage.Store, bus eventbus.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// CreateInput is the payload accepted by CreateProject.
type CreateInput struct {
	Name        string
	WorkingDir  string
	Description string
	IsMaster    bool
}

// CreateProject validates that Name is non-empty once trimmed and stores a
// new project.
func (s *Service) CreateProject(ctx context.Context, in CreateInput) (*domain.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("project name must not be empty")
	}

	now := time.Now()
	p := &domain.Project{
		ID:          idgen.Project(),
		Name:        name,
		WorkingDir:  in.WorkingDir,
		Description: in.Description,
		IsMaster:    in.IsMaster,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Projects().Create(ctx, p); err != nil {
		return nil, apperr.Internal("creating project", err)
	}

	s.publish(ctx, eventbus.TopicProjectCreated, p)
	return p, nil
}

// GetProject returns the project or a NotFound error.
func (s *Service) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	p, err := s.store.Projects().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("project", id)
	}
	return p, nil
}

// ListProjects returns every project, oldest first.
func (s *Service) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	list, err := s.store.Projects().List(ctx)
	if err != nil {
		return nil, apperr.Internal("listing projects", err)
	}
	return list, nil
}

// UpdateInput is the payload accepted by UpdateProject; a nil field is left
// unchanged.
type UpdateInput struct {
	Name        *string
	WorkingDir  *string
	Description *string
}

// UpdateProject rejects an empty Name and otherwise applies the given
// fields.
func (s *Service) UpdateProject(ctx context.Context, id string, in UpdateInput) (*domain.Project, error) {
	p, err := s.store.Projects().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("project", id)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("project name must not be empty")
		}
		p.Name = name
	}
	if in.WorkingDir != nil {
		p.WorkingDir = *in.WorkingDir
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	p.UpdatedAt = time.Now()

	if err := s.store.Projects().Update(ctx, p); err != nil {
		return nil, apperr.Internal("updating project", err)
	}

	s.publish(ctx, eventbus.TopicProjectUpdated, p)
	return p, nil
}

// SetMasterStatus toggles the project's IsMaster flag.
func (s *Service) SetMasterStatus(ctx context.Context, id string, isMaster bool) (*domain.Project, error) {
	p, err := s.store.Projects().Get(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("project", id)
	}
	p.IsMaster = isMaster
	p.UpdatedAt = time.Now()

	if err := s.store.Projects().Update(ctx, p); err != nil {
		return nil, apperr.Internal("updating project", err)
	}

	s.publish(ctx, eventbus.TopicProjectUpdated, p)
	return p, nil
}

// DeleteProject fails with BusinessRule if any Task or Session still
// references the project (spec.md §4.3).
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.store.Projects().Get(ctx, id); err != nil {
		return apperr.NotFound("project", id)
	}

	taskCount, err := s.store.Tasks().CountByProject(ctx, id)
	if err != nil {
		return apperr.Internal("counting tasks", err)
	}
	sessionCount, err := s.store.Sessions().CountByProject(ctx, id)
	if err != nil {
		return apperr.Internal("counting sessions", err)
	}
	if taskCount > 0 || sessionCount > 0 {
		return apperr.BusinessRule("project has tasks or sessions and cannot be deleted")
	}

	if err := s.store.Projects().Delete(ctx, id); err != nil {
		return apperr.Internal("deleting project", err)
	}
	if err := s.store.Orderings().DeleteByProject(ctx, id); err != nil {
		s.log.WithError(err).Warn("failed clearing orderings for deleted project", zap.String("projectId", id))
	}

	s.publish(ctx, eventbus.TopicProjectDeleted, map[string]interface{}{"id": id})
	return nil
}

func (s *Service) publish(ctx context.Context, topic string, payload interface{}) {
	data, ok := payload.(map[string]interface{})
	if !ok {
		data = eventbus.ToData(payload)
	}
	if err := s.bus.Publish(ctx, topic, eventbus.NewEvent(topic, "project", data)); err != nil {
		s.log.WithError(err).Warn("failed publishing event", zap.String("topic", topic))
	}
}
