package tasklist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/platform/idgen"
	"github.com/maestro-run/maestro/internal/storage"
)

func newTestService(t *testing.T) (*Service, storage.Store, string) {
	t.Helper()
	store := storage.NewMemoryStore()
	svc := New(store)

	ctx := context.Background()
	projectID := idgen.Project()
	require.NoError(t, store.Projects().Create(ctx, &domain.Project{ID: projectID, Name: "demo"}))
	return svc, store, projectID
}

func seedTask(t *testing.T, store storage.Store, projectID string) string {
	t.Helper()
	tk := &domain.Task{ID: idgen.Task(), ProjectID: projectID, TaskSessionStatuses: map[string]domain.TaskSessionStatus{}}
	require.NoError(t, store.Tasks().Create(context.Background(), tk))
	return tk.ID
}

func TestCreateTaskListRejectsDuplicateIDs(t *testing.T) {
	svc, store, projectID := newTestService(t)
	ctx := context.Background()
	t1 := seedTask(t, store, projectID)

	_, err := svc.CreateTaskList(ctx, CreateInput{ProjectID: projectID, Name: "Sprint", OrderedTaskIDs: []string{t1, t1}})
	require.Error(t, err)
}

func TestCreateTaskListRejectsTaskFromAnotherProject(t *testing.T) {
	svc, store, projectID := newTestService(t)
	ctx := context.Background()

	otherProject := idgen.Project()
	require.NoError(t, store.Projects().Create(ctx, &domain.Project{ID: otherProject, Name: "other"}))
	foreignTask := seedTask(t, store, otherProject)

	_, err := svc.CreateTaskList(ctx, CreateInput{ProjectID: projectID, Name: "Sprint", OrderedTaskIDs: []string{foreignTask}})
	require.Error(t, err)
}

func TestRemoveTaskLeavesEmptyListRatherThanDeletingIt(t *testing.T) {
	svc, store, projectID := newTestService(t)
	ctx := context.Background()
	t1 := seedTask(t, store, projectID)

	l, err := svc.CreateTaskList(ctx, CreateInput{ProjectID: projectID, Name: "Sprint", OrderedTaskIDs: []string{t1}})
	require.NoError(t, err)

	updated, err := svc.RemoveTask(ctx, l.ID, t1)
	require.NoError(t, err)
	require.Empty(t, updated.OrderedTaskIDs)

	still, err := svc.GetTaskList(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, still)
}

func TestAddTaskRejectsDuplicate(t *testing.T) {
	svc, store, projectID := newTestService(t)
	ctx := context.Background()
	t1 := seedTask(t, store, projectID)

	l, err := svc.CreateTaskList(ctx, CreateInput{ProjectID: projectID, Name: "Sprint", OrderedTaskIDs: []string{t1}})
	require.NoError(t, err)

	_, err = svc.AddTask(ctx, l.ID, t1)
	require.Error(t, err)
}
