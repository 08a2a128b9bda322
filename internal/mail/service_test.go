package mail

import (
	"context"
	"sync"
	"testing"
	"time"

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

func TestInboxOrdersByPriorityThenCreatedAt(t *testing.T) {
	svc, store, projectID := newTestService(t)
	ctx := context.Background()

	base := time.Unix(1000, 0)
	mails := []*domain.Mail{
		{ID: "mail_a", ProjectID: projectID, ToSessionID: "s2", Priority: domain.MailPriorityNormal, CreatedAt: base.Add(100 * time.Millisecond)},
		{ID: "mail_b", ProjectID: projectID, ToSessionID: "s2", Priority: domain.MailPriorityCritical, CreatedAt: base.Add(200 * time.Millisecond)},
		{ID: "mail_c", ProjectID: projectID, ToSessionID: "s2", Priority: domain.MailPriorityHigh, CreatedAt: base.Add(150 * time.Millisecond)},
		{ID: "mail_d", ProjectID: projectID, ToSessionID: "s2", Priority: domain.MailPriorityCritical, CreatedAt: base.Add(150 * time.Millisecond)},
	}
	for _, m := range mails {
		require.NoError(t, store.Mail().Create(ctx, m))
	}

	inbox, err := svc.Inbox(ctx, projectID, "s2")
	require.NoError(t, err)
	require.Len(t, inbox, 4)

	var ids []string
	for _, m := range inbox {
		ids = append(ids, m.ID)
	}
	require.Equal(t, []string{"mail_d", "mail_b", "mail_c", "mail_a"}, ids)
}

func TestReplyInheritsThreadIDFromRoot(t *testing.T) {
	svc, _, projectID := newTestService(t)
	ctx := context.Background()

	root, err := svc.Send(ctx, SendInput{ProjectID: projectID, ToSessionID: "s2", Body: "hello"})
	require.NoError(t, err)
	require.Len(t, root, 1)
	require.Equal(t, root[0].ID, root[0].ThreadID)

	reply, err := svc.Send(ctx, SendInput{ProjectID: projectID, ToSessionID: "s1", ReplyToMailID: root[0].ID, Body: "hi back"})
	require.NoError(t, err)
	require.Len(t, reply, 1)
	require.Equal(t, root[0].ThreadID, reply[0].ThreadID)
}

func TestWaitForMailWakesOnMatchingSend(t *testing.T) {
	svc, _, projectID := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var result []*domain.Mail
	wg.Add(1)
	go func() {
		defer wg.Done()
		result, _ = svc.WaitForMail(ctx, projectID, "s2", time.Now(), time.Second)
	}()

	time.Sleep(50 * time.Millisecond)
	_, err := svc.Send(ctx, SendInput{ProjectID: projectID, ToSessionID: "s2", Body: "wake up"})
	require.NoError(t, err)

	wg.Wait()
	require.Len(t, result, 1)
	require.Equal(t, "wake up", result[0].Body)
}

func TestWaitForMailAddressedElsewhereTimesOutEmpty(t *testing.T) {
	svc, _, projectID := newTestService(t)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	var result []*domain.Mail
	wg.Add(1)
	go func() {
		defer wg.Done()
		result, _ = svc.WaitForMail(ctx, projectID, "s3", time.Now(), 100*time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := svc.Send(ctx, SendInput{ProjectID: projectID, ToSessionID: "s2", Body: "not for you"})
	require.NoError(t, err)

	wg.Wait()
	require.Empty(t, result)
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
