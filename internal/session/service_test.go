package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/eventbus"
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

func TestBidirectionalLinkingOnCreateAndDelete(t *testing.T) {
	svc, store, projectID := newTestService(t)
	ctx := context.Background()

	t1 := &domain.Task{ID: idgen.Task(), ProjectID: projectID, TaskSessionStatuses: map[string]domain.TaskSessionStatus{}}
	t2 := &domain.Task{ID: idgen.Task(), ProjectID: projectID, TaskSessionStatuses: map[string]domain.TaskSessionStatus{}}
	require.NoError(t, store.Tasks().Create(ctx, t1))
	require.NoError(t, store.Tasks().Create(ctx, t2))

	sess, err := svc.CreateSession(ctx, CreateInput{ProjectID: projectID, TaskIDs: []string{t1.ID, t2.ID}})
	require.NoError(t, err)

	got1, err := store.Tasks().Get(ctx, t1.ID)
	require.NoError(t, err)
	require.Equal(t, []string{sess.ID}, got1.SessionIDs)
	got2, err := store.Tasks().Get(ctx, t2.ID)
	require.NoError(t, err)
	require.Equal(t, []string{sess.ID}, got2.SessionIDs)

	require.NoError(t, svc.DeleteSession(ctx, sess.ID))

	got1, err = store.Tasks().Get(ctx, t1.ID)
	require.NoError(t, err)
	require.Empty(t, got1.SessionIDs)
	got2, err = store.Tasks().Get(ctx, t2.ID)
	require.NoError(t, err)
	require.Empty(t, got2.SessionIDs)
}

func TestCompletedStatusIsStickyAgainstStoppedAndFailed(t *testing.T) {
	svc, _, projectID := newTestService(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, CreateInput{ProjectID: projectID, Status: domain.SessionWorking})
	require.NoError(t, err)

	completed := domain.SessionCompleted
	updated, err := svc.UpdateSession(ctx, sess.ID, UpdateInput{Status: &completed})
	require.NoError(t, err)
	require.Equal(t, domain.SessionCompleted, updated.Status)

	stopped := domain.SessionStopped
	updated, err = svc.UpdateSession(ctx, sess.ID, UpdateInput{Status: &stopped})
	require.NoError(t, err)
	require.Equal(t, domain.SessionCompleted, updated.Status, "completed must absorb a later stopped transition")

	failed := domain.SessionFailed
	updated, err = svc.UpdateSession(ctx, sess.ID, UpdateInput{Status: &failed})
	require.NoError(t, err)
	require.Equal(t, domain.SessionCompleted, updated.Status, "completed must absorb a later failed transition too")
}

func TestNeedsInputNotificationFiresOnlyOnFalseToTrueTransition(t *testing.T) {
	svc, _, projectID := newTestService(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, CreateInput{ProjectID: projectID})
	require.NoError(t, err)

	notifyCount := 0
	_, err = svc.bus.Subscribe(eventbus.TopicNotifyNeedsInput, func(ctx context.Context, e *eventbus.Event) error {
		notifyCount++
		return nil
	})
	require.NoError(t, err)

	active := true
	_, err = svc.UpdateSession(ctx, sess.ID, UpdateInput{NeedsInputActive: &active})
	require.NoError(t, err)
	require.Equal(t, 1, notifyCount)

	_, err = svc.UpdateSession(ctx, sess.ID, UpdateInput{NeedsInputActive: &active})
	require.NoError(t, err)
	require.Equal(t, 1, notifyCount, "second activation while already active must not re-notify")
}

func TestAddTimelineEventProgressEmitsNotifyProgress(t *testing.T) {
	svc, _, projectID := newTestService(t)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, CreateInput{ProjectID: projectID})
	require.NoError(t, err)

	var got bool
	_, err = svc.bus.Subscribe(eventbus.TopicNotifyProgress, func(ctx context.Context, e *eventbus.Event) error {
		got = true
		return nil
	})
	require.NoError(t, err)

	updated, err := svc.AddTimelineEvent(ctx, sess.ID, domain.TimelineProgress, "halfway done", "", nil)
	require.NoError(t, err)
	require.True(t, got)
	require.Len(t, updated.Timeline, 1)
}
