package ordering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maestro-run/maestro/internal/storage"
)

func TestGetUnsetOrderingIsEmpty(t *testing.T) {
	svc := New(storage.NewMemoryStore())
	o, err := svc.Get(context.Background(), "proj_1", "task")
	require.NoError(t, err)
	require.Empty(t, o.IDs)
}

func TestSetThenGetRoundTrips(t *testing.T) {
	svc := New(storage.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.Set(ctx, "proj_1", "task", []string{"task_1", "task_2"})
	require.NoError(t, err)

	o, err := svc.Get(ctx, "proj_1", "task")
	require.NoError(t, err)
	require.Equal(t, []string{"task_1", "task_2"}, o.IDs)
}

func TestMoveToFrontReordersExistingID(t *testing.T) {
	svc := New(storage.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.Set(ctx, "proj_1", "task", []string{"task_1", "task_2", "task_3"})
	require.NoError(t, err)

	o, err := svc.MoveToFront(ctx, "proj_1", "task", "task_3")
	require.NoError(t, err)
	require.Equal(t, []string{"task_3", "task_1", "task_2"}, o.IDs)
}
