// Package ordering implements the Ordering component of spec.md §4.10: an
// independent per-(project, entity-type) ordered id list.
package ordering

import (
	"context"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/storage"
)

// Service implements Ordering operations.
type Service struct {
	store storage.Store
}

// New constructs a Service over store.
func New(store storage.Store) *Service {
	return &Service{store: store}
}

// Get returns the ordering for (projectID, entityType), or an empty ordering
// if none has been set yet.
func (s *Service) Get(ctx context.Context, projectID, entityType string) (*domain.Ordering, error) {
	o, err := s.store.Orderings().Get(ctx, projectID, entityType)
	if err != nil {
		return &domain.Ordering{ProjectID: projectID, EntityType: entityType, IDs: []string{}}, nil
	}
	return o, nil
}

// Set replaces the ordering for (projectID, entityType) with ids.
func (s *Service) Set(ctx context.Context, projectID, entityType string, ids []string) (*domain.Ordering, error) {
	if entityType == "" {
		return nil, apperr.Validation("entityType must not be empty")
	}
	o := &domain.Ordering{ProjectID: projectID, EntityType: entityType, IDs: ids}
	if err := s.store.Orderings().Upsert(ctx, o); err != nil {
		return nil, apperr.Internal("updating ordering", err)
	}
	return o, nil
}

// MoveToFront moves id to the front of (projectID, entityType)'s ordering,
// appending it if not already present.
func (s *Service) MoveToFront(ctx context.Context, projectID, entityType, id string) (*domain.Ordering, error) {
	o, err := s.Get(ctx, projectID, entityType)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(o.IDs)+1)
	ids = append(ids, id)
	for _, existing := range o.IDs {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	return s.Set(ctx, projectID, entityType, ids)
}
