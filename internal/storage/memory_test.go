package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maestro-run/maestro/internal/domain"
)

func TestProjectRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	p := &domain.Project{ID: "proj_1", Name: "demo", CreatedAt: time.Unix(0, 0)}
	require.NoError(t, s.Projects().Create(ctx, p))

	got, err := s.Projects().Get(ctx, "proj_1")
	require.NoError(t, err)
	require.Equal(t, p.Name, got.Name)

	list, err := s.Projects().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.Projects().Delete(ctx, "proj_1"))
	_, err = s.Projects().Get(ctx, "proj_1")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestTaskGetReturnsDeepCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	t1 := &domain.Task{
		ID:                  "task_1",
		ProjectID:           "proj_1",
		SessionIDs:          []string{"sess_1"},
		TaskSessionStatuses: map[string]domain.TaskSessionStatus{"sess_1": domain.TaskSessionWorking},
	}
	require.NoError(t, s.Tasks().Create(ctx, t1))

	got, err := s.Tasks().Get(ctx, "task_1")
	require.NoError(t, err)

	got.SessionIDs[0] = "mutated"
	got.TaskSessionStatuses["sess_1"] = domain.TaskSessionCompleted

	again, err := s.Tasks().Get(ctx, "task_1")
	require.NoError(t, err)
	require.Equal(t, "sess_1", again.SessionIDs[0])
	require.Equal(t, domain.TaskSessionWorking, again.TaskSessionStatuses["sess_1"])
}

func TestTaskFilterByParent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	root := &domain.Task{ID: "task_root", ProjectID: "proj_1"}
	child := &domain.Task{ID: "task_child", ProjectID: "proj_1", ParentID: "task_root"}
	require.NoError(t, s.Tasks().Create(ctx, root))
	require.NoError(t, s.Tasks().Create(ctx, child))

	children, err := s.Tasks().List(ctx, TaskFilter{ParentID: "task_root"})
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, "task_child", children[0].ID)

	noParent := false
	roots, err := s.Tasks().List(ctx, TaskFilter{ProjectID: "proj_1", HasParent: &noParent})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Equal(t, "task_root", roots[0].ID)
}

func TestQueueCreateRejectsDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	q := &domain.Queue{SessionID: "sess_1", CurrentIndex: -1}
	require.NoError(t, s.Queues().Create(ctx, q))
	require.Error(t, s.Queues().Create(ctx, q))
}

func TestMailListFiltersByInboxMembership(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	direct := &domain.Mail{ID: "mail_1", ProjectID: "proj_1", ToSessionID: "sess_2", CreatedAt: time.Unix(1, 0)}
	broadcast := &domain.Mail{ID: "mail_2", ProjectID: "proj_1", CreatedAt: time.Unix(2, 0)}
	other := &domain.Mail{ID: "mail_3", ProjectID: "proj_1", ToSessionID: "sess_3", CreatedAt: time.Unix(3, 0)}
	for _, m := range []*domain.Mail{direct, broadcast, other} {
		require.NoError(t, s.Mail().Create(ctx, m))
	}

	inbox, err := s.Mail().List(ctx, MailFilter{ProjectID: "proj_1", SessionID: "sess_2"})
	require.NoError(t, err)
	require.Len(t, inbox, 2)
}
