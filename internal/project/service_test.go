package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/eventbus"
	"github.com/maestro-run/maestro/internal/platform/apperr"
	"github.com/maestro-run/maestro/internal/platform/idgen"
	"github.com/maestro-run/maestro/internal/platform/logger"
	"github.com/maestro-run/maestro/internal/storage"
)

func newTestService(t *testing.T) (*Service, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	bus := eventbus.NewMemoryBus(logger.Default())
	return New(store, bus, logger.Default()), store
}

func TestCreateThenGetYieldsEqualProject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProject(ctx, CreateInput{Name: "  demo  "})
	require.NoError(t, err)
	require.Equal(t, "demo", created.Name)

	got, err := svc.GetProject(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
}

func TestCreateProjectRejectsEmptyName(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateProject(context.Background(), CreateInput{Name: "   "})
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindValidation, appErr.Kind)
}

func TestDeleteProjectFailsWithChildren(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateInput{Name: "demo"})
	require.NoError(t, err)

	require.NoError(t, store.Tasks().Create(ctx, &domain.Task{ID: idgen.Task(), ProjectID: p.ID}))

	err = svc.DeleteProject(ctx, p.ID)
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindBusinessRule, appErr.Kind)
}

func TestDeleteProjectEmitsEvent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	bus := eventbus.NewMemoryBus(logger.Default())
	svc := New(store, bus, logger.Default())

	var gotTopic string
	_, err := bus.Subscribe(eventbus.TopicProjectDeleted, func(ctx context.Context, e *eventbus.Event) error {
		gotTopic = e.Topic
		return nil
	})
	require.NoError(t, err)

	p, err := svc.CreateProject(ctx, CreateInput{Name: "demo"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProject(ctx, p.ID))
	require.Equal(t, eventbus.TopicProjectDeleted, gotTopic)
}
