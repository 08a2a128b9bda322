package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maestro-run/maestro/internal/storage"
)

func TestGetSeedsBuiltinDefaultOnFirstAccess(t *testing.T) {
	svc := New(storage.NewMemoryStore())
	ctx := context.Background()

	tmpl, err := svc.Get(ctx, "proj_1", "worker")
	require.NoError(t, err)
	require.True(t, tmpl.IsDefault)
	require.Equal(t, builtinDefaults["worker"], tmpl.Text)
}

func TestSetThenResetRestoresBuiltin(t *testing.T) {
	svc := New(storage.NewMemoryStore())
	ctx := context.Background()

	custom, err := svc.Set(ctx, "proj_1", "worker", "custom instructions")
	require.NoError(t, err)
	require.False(t, custom.IsDefault)

	reset, err := svc.Reset(ctx, "proj_1", "worker")
	require.NoError(t, err)
	require.True(t, reset.IsDefault)
	require.Equal(t, builtinDefaults["worker"], reset.Text)
}

func TestGetUnknownRoleErrors(t *testing.T) {
	svc := New(storage.NewMemoryStore())
	_, err := svc.Get(context.Background(), "proj_1", "nonexistent-role")
	require.Error(t, err)
}
