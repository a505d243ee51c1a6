package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRepositoryFromClient(client), mr
}

func TestRedisSetNX(t *testing.T) {
	repo, _ := newTestRedis(t)
	ctx := context.Background()

	won, err := repo.SetNX(ctx, "lock", []byte("a"), time.Minute)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.SetNX(ctx, "lock", []byte("b"), time.Minute)
	require.NoError(t, err)
	assert.False(t, won)

	data, err := repo.Get(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)
}

func TestRedisGetMissing(t *testing.T) {
	repo, _ := newTestRedis(t)

	_, err := repo.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisTTLExpiry(t *testing.T) {
	repo, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "short", []byte("v"), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSetNXAfterExpiry(t *testing.T) {
	repo, mr := newTestRedis(t)
	ctx := context.Background()

	won, err := repo.SetNX(ctx, "lock", []byte("a"), time.Minute)
	require.NoError(t, err)
	require.True(t, won)

	mr.FastForward(2 * time.Minute)

	won, err = repo.SetNX(ctx, "lock", []byte("b"), time.Minute)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestRedisDel(t *testing.T) {
	repo, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, repo.Del(ctx, "k"))

	_, err := repo.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, repo.Del(ctx, "k"))
}

func TestRedisPubSub(t *testing.T) {
	repo, _ := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := repo.Subscribe(ctx, "cook:session:abc")
	require.NoError(t, err)

	require.NoError(t, repo.Publish(ctx, "cook:session:abc", []byte(`{"type":"session_updated"}`)))

	select {
	case payload := <-sub:
		assert.JSONEq(t, `{"type":"session_updated"}`, string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}

	cancel()
	select {
	case _, open := <-sub:
		assert.False(t, open, "channel should close on context cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
