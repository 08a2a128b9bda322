package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maestro-run/maestro/internal/platform/logger"
)

func newTestBus(t *testing.T) *MemoryBus {
	t.Helper()
	return NewMemoryBus(logger.Default())
}

func TestPublishDeliversInSubscriptionOrderBeforeReturning(t *testing.T) {
	b := newTestBus(t)
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		_, err := b.Subscribe("task:created", func(ctx context.Context, e *Event) error {
			order = append(order, i)
			return nil
		})
		require.NoError(t, err)
	}

	err := b.Publish(context.Background(), "task:created", NewEvent("task:created", "test", nil))
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3, 4}, order, "handlers must run in subscription order, synchronously")
}

func TestFailingHandlerDoesNotBlockSubsequentHandlers(t *testing.T) {
	b := newTestBus(t)
	secondRan := false

	_, err := b.Subscribe("x", func(ctx context.Context, e *Event) error {
		return errSentinel
	})
	require.NoError(t, err)
	_, err = b.Subscribe("x", func(ctx context.Context, e *Event) error {
		secondRan = true
		return nil
	})
	require.NoError(t, err)

	err = b.Publish(context.Background(), "x", NewEvent("x", "test", nil))
	require.NoError(t, err)
	require.True(t, secondRan)
}

func TestWildcardMatching(t *testing.T) {
	b := newTestBus(t)
	var got []string

	_, err := b.Subscribe("notify:*", func(ctx context.Context, e *Event) error {
		got = append(got, e.Topic)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), "notify:task_completed", NewEvent("notify:task_completed", "t", nil)))
	require.NoError(t, b.Publish(context.Background(), "task:created", NewEvent("task:created", "t", nil)))

	require.Equal(t, []string{"notify:task_completed"}, got)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBus(t)
	calls := 0

	sub, err := b.Subscribe("x", func(ctx context.Context, e *Event) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), "x", NewEvent("x", "t", nil)))
	require.NoError(t, sub.Unsubscribe())
	require.False(t, sub.IsValid())
	require.NoError(t, b.Publish(context.Background(), "x", NewEvent("x", "t", nil)))

	require.Equal(t, 1, calls)
}

type sentinelError struct{}

func (sentinelError) Error() string { return "sentinel" }

var errSentinel = sentinelError{}
