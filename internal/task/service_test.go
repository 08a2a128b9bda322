package task

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

func newTestService(t *testing.T) (*Service, storage.Store, string) {
	t.Helper()
	store := storage.NewMemoryStore()
	bus := eventbus.NewMemoryBus(logger.Default())
	svc := New(store, bus, logger.Default())

	projectID := idgen.Project()
	require.NoError(t, store.Projects().Create(context.Background(), &domain.Project{ID: projectID, Name: "demo"}))
	return svc, store, projectID
}

func TestCreateTaskRejectsUnknownProject(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateTask(context.Background(), CreateInput{ProjectID: "proj_missing", Title: "x"})
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindNotFound, appErr.Kind)
}

func TestSessionSourceUpdateOnlyTouchesSessionStatus(t *testing.T) {
	svc, store, projectID := newTestService(t)
	ctx := context.Background()

	tk, err := svc.CreateTask(ctx, CreateInput{ProjectID: projectID, Title: "t1"})
	require.NoError(t, err)
	sessionID := idgen.Session()
	require.NoError(t, store.Sessions().Create(ctx, &domain.Session{ID: sessionID, ProjectID: projectID}))
	require.NoError(t, svc.AddSessionToTask(ctx, tk.ID, sessionID))

	newTitle := "agent tried to rename this"
	updated, err := svc.UpdateTask(ctx, tk.ID, UpdateInput{
		Source:        SourceSession,
		SessionID:     sessionID,
		SessionStatus: domain.TaskSessionCompleted,
		Title:         &newTitle,
	})
	require.NoError(t, err)
	require.Equal(t, "t1", updated.Title, "session source must not change user-visible fields")
	require.Equal(t, domain.TaskSessionCompleted, updated.TaskSessionStatuses[sessionID])
}

func TestUserSourceUpdateAppliesAllFields(t *testing.T) {
	svc, _, projectID := newTestService(t)
	ctx := context.Background()

	tk, err := svc.CreateTask(ctx, CreateInput{ProjectID: projectID, Title: "t1"})
	require.NoError(t, err)

	newTitle := "renamed"
	completed := domain.TaskStatusCompleted
	updated, err := svc.UpdateTask(ctx, tk.ID, UpdateInput{Title: &newTitle, Status: &completed})
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Title)
	require.Equal(t, domain.TaskStatusCompleted, updated.Status)
}

func TestUpdateTaskEmitsCompletedNotification(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	bus := eventbus.NewMemoryBus(logger.Default())
	svc := New(store, bus, logger.Default())

	projectID := idgen.Project()
	require.NoError(t, store.Projects().Create(ctx, &domain.Project{ID: projectID, Name: "demo"}))
	tk, err := svc.CreateTask(ctx, CreateInput{ProjectID: projectID, Title: "t1"})
	require.NoError(t, err)

	var notified bool
	_, err = bus.Subscribe(eventbus.TopicNotifyTaskCompleted, func(ctx context.Context, e *eventbus.Event) error {
		notified = true
		return nil
	})
	require.NoError(t, err)

	completed := domain.TaskStatusCompleted
	_, err = svc.UpdateTask(ctx, tk.ID, UpdateInput{Status: &completed})
	require.NoError(t, err)
	require.True(t, notified)
}

func TestCascadeDeleteOrdersChildrenBeforeParents(t *testing.T) {
	svc, _, projectID := newTestService(t)
	ctx := context.Background()

	t1, err := svc.CreateTask(ctx, CreateInput{ProjectID: projectID, Title: "t1"})
	require.NoError(t, err)
	t2, err := svc.CreateTask(ctx, CreateInput{ProjectID: projectID, ParentID: t1.ID, Title: "t2"})
	require.NoError(t, err)
	t3, err := svc.CreateTask(ctx, CreateInput{ProjectID: projectID, ParentID: t1.ID, Title: "t3"})
	require.NoError(t, err)
	t4, err := svc.CreateTask(ctx, CreateInput{ProjectID: projectID, ParentID: t3.ID, Title: "t4"})
	require.NoError(t, err)

	var deletedOrder []string
	_, err = svc.bus.Subscribe(eventbus.TopicTaskDeleted, func(ctx context.Context, e *eventbus.Event) error {
		deletedOrder = append(deletedOrder, e.Data["id"].(string))
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, t1.ID))

	require.Len(t, deletedOrder, 4)
	pos := map[string]int{}
	for i, id := range deletedOrder {
		pos[id] = i
	}
	require.Less(t, pos[t2.ID], pos[t1.ID])
	require.Less(t, pos[t3.ID], pos[t1.ID])
	require.Less(t, pos[t4.ID], pos[t3.ID])

	_, err = svc.GetTask(ctx, t1.ID)
	require.Error(t, err)
}
