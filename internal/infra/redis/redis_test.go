package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return newClient(rdb, "test"), mr
}

func TestLocker_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	locker := NewLocker(client)

	ok, err := locker.Acquire(ctx, "lock", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = locker.Acquire(ctx, "lock", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must not acquire a held lock")

	// Release with the wrong token leaves the lock in place.
	require.NoError(t, locker.Release(ctx, "lock", "owner-b"))
	ok, err = locker.Acquire(ctx, "lock", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "lock", "owner-a"))
	ok, err = locker.Acquire(ctx, "lock", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocker_ExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	locker := NewLocker(client)

	ok, err := locker.Acquire(ctx, "lock", "crashed", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(31 * time.Second)

	ok, err = locker.Acquire(ctx, "lock", "alive", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCooldownStore(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	store := NewCooldownStore(client)

	at := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, store.Set(ctx, 42, at, 5*time.Minute))

	got, ok, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(at))

	_, ok, err = store.Get(ctx, 43)
	require.NoError(t, err)
	assert.False(t, ok)

	active, err := store.Active(ctx, []uint64{41, 42, 43})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{42: true}, active)

	mr.FastForward(5*time.Minute + time.Second)

	active, err = store.Active(ctx, []uint64{42})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	pub := NewPublisher(client)

	sub := client.rdb.Subscribe(ctx, "test:block:processed")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, "block:processed", map[string]int{"blockNumber": 7}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"blockNumber":7}`, msg.Payload)
}
