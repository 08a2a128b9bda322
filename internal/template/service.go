// Package template implements the Template half of spec.md §4.10: a
// role-keyed text template with a built-in default that can be restored.
package template

import (
	"context"
	"time"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/storage"
)

// Service implements Template operations.
type Service struct {
	store storage.Store
}

// New constructs a Service over store.
func New(store storage.Store) *Service {
	return &Service{store: store}
}

// Get returns role's template for projectID, seeding the built-in default on
// first access if no override has been stored yet.
func (s *Service) Get(ctx context.Context, projectID, role string) (*domain.Template, error) {
	t, err := s.store.Templates().Get(ctx, projectID, role)
	if err == nil {
		return t, nil
	}

	text, ok := builtinDefaults[role]
	if !ok {
		return nil, apperr.NotFound("template", role)
	}
	seeded := &domain.Template{ProjectID: projectID, Role: role, Text: text, IsDefault: true, UpdatedAt: time.Now()}
	if err := s.store.Templates().Upsert(ctx, seeded); err != nil {
		return nil, apperr.Internal("seeding default template", err)
	}
	return seeded, nil
}

// List returns every template stored for projectID, seeding any built-in
// roles not yet overridden.
func (s *Service) List(ctx context.Context, projectID string) ([]*domain.Template, error) {
	for role := range builtinDefaults {
		if _, err := s.Get(ctx, projectID, role); err != nil {
			return nil, err
		}
	}
	list, err := s.store.Templates().List(ctx, projectID)
	if err != nil {
		return nil, apperr.Internal("listing templates", err)
	}
	return list, nil
}

// Set overwrites role's template text for projectID, marking it no longer
// the default.
func (s *Service) Set(ctx context.Context, projectID, role, text string) (*domain.Template, error) {
	if text == "" {
		return nil, apperr.Validation("template text must not be empty")
	}
	t := &domain.Template{ProjectID: projectID, Role: role, Text: text, IsDefault: false, UpdatedAt: time.Now()}
	if err := s.store.Templates().Upsert(ctx, t); err != nil {
		return nil, apperr.Internal("updating template", err)
	}
	return t, nil
}

// Reset restores role's template to the code-provided default (spec.md
// §4.10).
func (s *Service) Reset(ctx context.Context, projectID, role string) (*domain.Template, error) {
	text, ok := builtinDefaults[role]
	if !ok {
		return nil, apperr.NotFound("template", role)
	}
	t := &domain.Template{ProjectID: projectID, Role: role, Text: text, IsDefault: true, UpdatedAt: time.Now()}
	if err := s.store.Templates().Upsert(ctx, t); err != nil {
		return nil, apperr.Internal("resetting template", err)
	}
	return t, nil
}
