package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBolt(t *testing.T) *BoltKV {
	t.Helper()
	kv, err := OpenBolt(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestBoltSetGet(t *testing.T) {
	kv := newTestBolt(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), 0))
	data, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}

func TestBoltGetMissing(t *testing.T) {
	kv := newTestBolt(t)

	_, err := kv.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoltSetNX(t *testing.T) {
	kv := newTestBolt(t)
	ctx := context.Background()

	won, err := kv.SetNX(ctx, "lock", []byte("a"), time.Minute)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = kv.SetNX(ctx, "lock", []byte("b"), time.Minute)
	require.NoError(t, err)
	assert.False(t, won)

	data, err := kv.Get(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)
}

func TestBoltTTLExpiry(t *testing.T) {
	kv := newTestBolt(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "short", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := kv.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)

	// An expired key no longer blocks SetNX.
	won, err := kv.SetNX(ctx, "short", []byte("w"), time.Minute)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestBoltDel(t *testing.T) {
	kv := newTestBolt(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, kv.Del(ctx, "k"))

	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, kv.Del(ctx, "k"))
}
