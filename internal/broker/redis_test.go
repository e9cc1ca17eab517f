package broker

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestProducer(t *testing.T) (Producer, *redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	p, err := NewRedisProducer(ClusterOptions{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("failed to create producer: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return p, rdb, mr
}

func TestRedisProducer_Produce(t *testing.T) {
	p, rdb, mr := setupTestProducer(t)
	defer mr.Close()
	defer p.Close()
	defer rdb.Close()
	ctx := context.Background()

	err := p.Produce(ctx, "orders", Payload{Value: []byte(`{"id":"1"}`)})
	require.NoError(t, err)

	entries, err := rdb.XRange(ctx, "orders", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, `{"id":"1"}`, entries[0].Values["value"])
	assert.NotContains(t, entries[0].Values, "key")
}

func TestRedisProducer_KeyAndHeaders(t *testing.T) {
	p, rdb, mr := setupTestProducer(t)
	defer mr.Close()
	defer p.Close()
	defer rdb.Close()
	ctx := context.Background()

	err := p.Produce(ctx, "orders", Payload{
		Key:     []byte("k1"),
		Value:   []byte("v"),
		Headers: []Header{{Key: "trace", Value: []byte("abc")}},
	})
	require.NoError(t, err)

	entries, err := rdb.XRange(ctx, "orders", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "k1", entries[0].Values["key"])
	assert.Equal(t, "abc", entries[0].Values["header:trace"])
}

func TestNewRedisProducer_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisProducer(ClusterOptions{Addr: addr})
	assert.Error(t, err)
}

func TestRedisProducer_ProduceAfterShutdown(t *testing.T) {
	p, rdb, mr := setupTestProducer(t)
	defer p.Close()
	defer rdb.Close()

	mr.Close()

	err := p.Produce(context.Background(), "orders", Payload{Value: []byte("v")})
	assert.Error(t, err)
}
