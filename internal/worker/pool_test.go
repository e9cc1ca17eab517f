package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/podushkina/taskdispatch/internal/broker"
	"github.com/podushkina/taskdispatch/internal/dispatch"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResolver struct {
	addr    string
	explode bool
}

func (r testResolver) TopicCluster(topic string) (string, error) {
	if r.explode {
		panic("resolver exploded")
	}
	return "main", nil
}

func (r testResolver) ClusterOptions(cluster string) (broker.ClusterOptions, error) {
	return broker.ClusterOptions{Addr: r.addr}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTest(t *testing.T, resolver testResolver) (*Pool, *dispatch.Namespace, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	if resolver.addr == "" {
		resolver.addr = mr.Addr()
	}

	reg := dispatch.NewRegistry(resolver, dispatch.WithLogger(discardLogger()))
	t.Cleanup(func() { reg.Close() })

	ns, err := reg.CreateNamespace("billing", "orders", "orders-dlq", nil)
	require.NoError(t, err)

	pool := NewPool(2, 8, discardLogger())
	return pool, ns, mr
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
		return Result{}
	}
}

func TestPool_SendSuccess(t *testing.T) {
	pool, ns, mr := setupTest(t, testResolver{})
	defer mr.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tsk := ns.Register("charge", nil)
	pool.Start(ctx)
	defer pool.Stop()

	ch, err := pool.Submit(ctx, Invocation{Task: tsk, Args: []any{1}})
	require.NoError(t, err)

	res := waitResult(t, ch)
	require.NoError(t, res.Err)
	assert.Len(t, res.ID, 32)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	n, err := rdb.XLen(ctx, "orders").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPool_SendFailureIsReported(t *testing.T) {
	pool, ns, mr := setupTest(t, testResolver{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tsk := ns.Register("charge", nil)
	mr.Close()

	pool.Start(ctx)
	defer pool.Stop()

	ch, err := pool.Submit(ctx, Invocation{Task: tsk})
	require.NoError(t, err)

	res := waitResult(t, ch)
	assert.Error(t, res.Err)
	assert.Empty(t, res.ID)
}

func TestPool_PanicIsRecovered(t *testing.T) {
	pool, ns, mr := setupTest(t, testResolver{explode: true})
	defer mr.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tsk := ns.Register("charge", nil)
	pool.Start(ctx)
	defer pool.Stop()

	ch, err := pool.Submit(ctx, Invocation{Task: tsk})
	require.NoError(t, err)

	res := waitResult(t, ch)
	assert.ErrorIs(t, res.Err, ErrPanic)
}

func TestPool_Full(t *testing.T) {
	_, ns, mr := setupTest(t, testResolver{})
	defer mr.Close()
	ctx := context.Background()

	tsk := ns.Register("charge", nil)
	pool := NewPool(1, 1, discardLogger())

	first, err := pool.Submit(ctx, Invocation{Task: tsk})
	require.NoError(t, err)

	_, err = pool.Submit(ctx, Invocation{Task: tsk})
	assert.ErrorIs(t, err, ErrPoolFull)

	pool.Stop()

	res := waitResult(t, first)
	assert.ErrorIs(t, res.Err, ErrPoolClosed)
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool, ns, mr := setupTest(t, testResolver{})
	defer mr.Close()

	tsk := ns.Register("charge", nil)
	pool.Start(context.Background())
	pool.Stop()

	_, err := pool.Submit(context.Background(), Invocation{Task: tsk})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_NilTask(t *testing.T) {
	pool := NewPool(1, 1, discardLogger())

	_, err := pool.Submit(context.Background(), Invocation{})
	assert.ErrorIs(t, err, ErrNoTask)
}
