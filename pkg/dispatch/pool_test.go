package dispatch_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/postoffice/pkg/dispatch"
)

type collector struct {
	mu    sync.Mutex
	items []string
}

func (c *collector) add(_ context.Context, s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, s)
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.items...)
}

func TestPool_RunsScheduledTasks(t *testing.T) {
	t.Parallel()

	ran := &collector{}
	pool := dispatch.NewPool(ran.add, nil)
	require.NoError(t, pool.Start(context.Background()))

	require.NoError(t, pool.Schedule(context.Background(), 10*time.Millisecond, "a"))
	require.NoError(t, pool.Schedule(context.Background(), 0, "b"))

	assert.Eventually(t, func() bool { return len(ran.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"a", "b"}, ran.snapshot())

	require.NoError(t, pool.Stop(context.Background()))
}

func TestPool_Lifecycle(t *testing.T) {
	t.Parallel()

	pool := dispatch.NewPool(func(context.Context, int) {}, nil)

	require.ErrorIs(t, pool.Schedule(context.Background(), time.Second, 1), dispatch.ErrNotStarted)
	require.ErrorIs(t, pool.Stop(context.Background()), dispatch.ErrNotStarted)

	require.NoError(t, pool.Start(context.Background()))
	require.ErrorIs(t, pool.Start(context.Background()), dispatch.ErrAlreadyStarted)
	require.NoError(t, pool.Healthcheck()(context.Background()))
	require.ErrorIs(t, pool.Schedule(context.Background(), -time.Second, 1), dispatch.ErrInvalidDelay)

	require.NoError(t, pool.Stop(context.Background()))
	require.ErrorIs(t, pool.Schedule(context.Background(), time.Second, 1), dispatch.ErrStopped)
	require.ErrorIs(t, pool.Healthcheck()(context.Background()), dispatch.ErrHealthcheckFailed)
}

func TestPool_StopWaitsForPendingTimers(t *testing.T) {
	t.Parallel()

	ran := &collector{}
	pool := dispatch.NewPool(ran.add, nil)
	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Schedule(context.Background(), 30*time.Millisecond, "late"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Stop(ctx))

	assert.Equal(t, []string{"late"}, ran.snapshot())
}

func TestPool_StopDropsTasksAtDeadline(t *testing.T) {
	t.Parallel()

	ran := &collector{}
	dropped := &collector{}
	pool := dispatch.NewPool(ran.add, dropped.add)
	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Schedule(context.Background(), time.Hour, "x"))
	require.NoError(t, pool.Schedule(context.Background(), time.Hour, "y"))
	assert.Equal(t, 2, pool.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Stop(ctx)
	require.ErrorIs(t, err, dispatch.ErrDrainTimeout)

	assert.Empty(t, ran.snapshot())
	assert.ElementsMatch(t, []string{"x", "y"}, dropped.snapshot())
	assert.Zero(t, pool.Pending())
}

func TestPool_BoundedWorkers(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	release := make(chan struct{})
	var done sync.WaitGroup
	done.Add(6)

	pool := dispatch.NewPool(func(context.Context, int) {
		defer done.Done()
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)
	}, nil, dispatch.WithWorkers(2))
	require.NoError(t, pool.Start(context.Background()))

	for i := range 6 {
		require.NoError(t, pool.Schedule(context.Background(), 0, i))
	}

	assert.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(2), peak.Load())
	require.NoError(t, pool.Stop(context.Background()))
}

func TestPool_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	ran := &collector{}
	pool := dispatch.NewPool(func(ctx context.Context, s string) {
		if s == "boom" {
			panic("boom")
		}
		ran.add(ctx, s)
	}, nil, dispatch.WithWorkers(1))
	require.NoError(t, pool.Start(context.Background()))

	require.NoError(t, pool.Schedule(context.Background(), 0, "boom"))
	require.NoError(t, pool.Schedule(context.Background(), 5*time.Millisecond, "ok"))

	assert.Eventually(t, func() bool { return len(ran.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, pool.Stop(context.Background()))
}
