package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/eventbus"
	"github.com/maestro-run/maestro/internal/platform/idgen"
	"github.com/maestro-run/maestro/internal/platform/logger"
	"github.com/maestro-run/maestro/internal/session"
	"github.com/maestro-run/maestro/internal/storage"
	"github.com/maestro-run/maestro/internal/task"
)

func newTestService(t *testing.T) (*Service, storage.Store, *task.Service, string, string) {
	t.Helper()
	store := storage.NewMemoryStore()
	bus := eventbus.NewMemoryBus(logger.Default())
	taskSvc := task.New(store, bus, logger.Default())
	sessSvc := session.New(store, bus, logger.Default())
	svc := New(store, taskSvc)

	ctx := context.Background()
	projectID := idgen.Project()
	require.NoError(t, store.Projects().Create(ctx, &domain.Project{ID: projectID, Name: "demo"}))

	sess, err := sessSvc.CreateSession(ctx, session.CreateInput{ProjectID: projectID})
	require.NoError(t, err)

	return svc, store, taskSvc, projectID, sess.ID
}

func seedTask(t *testing.T, ctx context.Context, taskSvc *task.Service, projectID string) string {
	t.Helper()
	tk, err := taskSvc.CreateTask(ctx, task.CreateInput{ProjectID: projectID, Title: "do it"})
	require.NoError(t, err)
	return tk.ID
}

func TestCreateQueueRejectsDuplicateInit(t *testing.T) {
	svc, _, taskSvc, projectID, sessionID := newTestService(t)
	ctx := context.Background()

	taskID := seedTask(t, ctx, taskSvc, projectID)
	_, err := svc.CreateQueue(ctx, sessionID, []string{taskID})
	require.NoError(t, err)

	_, err = svc.CreateQueue(ctx, sessionID, []string{taskID})
	require.Error(t, err)
}

func TestStartCompleteCycleAndCurrentIndexInvariant(t *testing.T) {
	svc, _, taskSvc, projectID, sessionID := newTestService(t)
	ctx := context.Background()

	t1 := seedTask(t, ctx, taskSvc, projectID)
	t2 := seedTask(t, ctx, taskSvc, projectID)
	q, err := svc.CreateQueue(ctx, sessionID, []string{t1, t2})
	require.NoError(t, err)
	require.Equal(t, -1, q.CurrentIndex)

	q, err = svc.StartItem(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, 0, q.CurrentIndex)
	require.Equal(t, domain.QueueItemProcessing, q.Items[0].Status)

	// Starting again while one is processing must fail.
	_, err = svc.StartItem(ctx, sessionID)
	require.Error(t, err)

	got1, err := taskSvc.GetTask(ctx, t1)
	require.NoError(t, err)
	require.Equal(t, domain.TaskSessionWorking, got1.TaskSessionStatuses[sessionID])

	q, err = svc.CompleteItem(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, -1, q.CurrentIndex, "currentIndex must reset to -1 once nothing is processing")
	require.Equal(t, domain.QueueItemCompleted, q.Items[0].Status)

	got1, err = taskSvc.GetTask(ctx, t1)
	require.NoError(t, err)
	require.Equal(t, domain.TaskSessionCompleted, got1.TaskSessionStatuses[sessionID])

	q, err = svc.StartItem(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, 1, q.CurrentIndex)

	q, err = svc.FailItem(ctx, sessionID, "boom")
	require.NoError(t, err)
	require.Equal(t, -1, q.CurrentIndex)
	require.Equal(t, domain.QueueItemFailed, q.Items[1].Status)
	require.Equal(t, "boom", q.Items[1].FailReason)

	got2, err := taskSvc.GetTask(ctx, t2)
	require.NoError(t, err)
	require.Equal(t, domain.TaskSessionFailed, got2.TaskSessionStatuses[sessionID])
}

func TestSkipItemPrefersProcessingThenNextQueued(t *testing.T) {
	svc, _, taskSvc, projectID, sessionID := newTestService(t)
	ctx := context.Background()

	t1 := seedTask(t, ctx, taskSvc, projectID)
	t2 := seedTask(t, ctx, taskSvc, projectID)
	_, err := svc.CreateQueue(ctx, sessionID, []string{t1, t2})
	require.NoError(t, err)

	// No item processing: skip targets the next queued item (t1).
	q, err := svc.SkipItem(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, domain.QueueItemSkipped, q.Items[0].Status)
	require.Equal(t, -1, q.CurrentIndex)

	q, err = svc.StartItem(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, 1, q.CurrentIndex)

	q, err = svc.SkipItem(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, domain.QueueItemSkipped, q.Items[1].Status)
	require.Equal(t, -1, q.CurrentIndex, "skipping the processing item must clear currentIndex")
}

func TestPushItemRejectsDuplicateTask(t *testing.T) {
	svc, _, taskSvc, projectID, sessionID := newTestService(t)
	ctx := context.Background()

	t1 := seedTask(t, ctx, taskSvc, projectID)
	_, err := svc.CreateQueue(ctx, sessionID, []string{t1})
	require.NoError(t, err)

	t2 := seedTask(t, ctx, taskSvc, projectID)
	q, err := svc.PushItem(ctx, sessionID, t2)
	require.NoError(t, err)
	require.Len(t, q.Items, 2)

	_, err = svc.PushItem(ctx, sessionID, t1)
	require.Error(t, err)
}

func TestGetStatsCountsByStatus(t *testing.T) {
	svc, _, taskSvc, projectID, sessionID := newTestService(t)
	ctx := context.Background()

	t1 := seedTask(t, ctx, taskSvc, projectID)
	t2 := seedTask(t, ctx, taskSvc, projectID)
	t3 := seedTask(t, ctx, taskSvc, projectID)
	_, err := svc.CreateQueue(ctx, sessionID, []string{t1, t2, t3})
	require.NoError(t, err)

	_, err = svc.StartItem(ctx, sessionID)
	require.NoError(t, err)
	_, err = svc.CompleteItem(ctx, sessionID)
	require.NoError(t, err)
	_, err = svc.SkipItem(ctx, sessionID)
	require.NoError(t, err)

	stats, err := svc.GetStats(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Completed)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 1, stats.Queued)
	require.Equal(t, 0, stats.Processing)
}
