package memory

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

func TestSyncStateRepo_AdvanceIsMonotonic(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncStateRepo(NewMemoryStorage())
	_, err := repo.Create(ctx, 100, 500)
	require.NoError(t, err)

	blocks := make([]uint64, 0, 200)
	for b := uint64(101); b <= 300; b++ {
		blocks = append(blocks, b)
	}
	require.NoError(t, repo.AddBackfill(ctx, blocks))
	rand.Shuffle(len(blocks), func(i, j int) { blocks[i], blocks[j] = blocks[j], blocks[i] })

	var wg sync.WaitGroup
	for _, b := range blocks {
		wg.Add(1)
		go func(b uint64) {
			defer wg.Done()
			assert.NoError(t, repo.AdvanceCursor(ctx, b))
		}(b)
	}
	wg.Wait()

	state, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), state.CursorBlock)
	assert.Empty(t, state.Backfill)

	require.NoError(t, repo.AdvanceCursor(ctx, 150))
	state, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), state.CursorBlock, "older block must not move cursor back")
}

func TestSyncStateRepo_BackfillSetOps(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncStateRepo(NewMemoryStorage())

	assert.ErrorIs(t, repo.AddBackfill(ctx, []uint64{1}), domain.ErrNotFound)

	_, err := repo.Create(ctx, 10, 50)
	require.NoError(t, err)

	require.NoError(t, repo.AddBackfill(ctx, []uint64{9, 3, 9, 70, 0}))
	require.NoError(t, repo.RemoveBackfill(ctx, []uint64{3}))
	require.NoError(t, repo.TrimBackfill(ctx, 50))
	require.NoError(t, repo.RecordFailure(ctx, 12, domain.SyncError{Message: "boom", At: time.Now()}))

	state, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{9, 12}, state.Backfill)
	require.NotNil(t, state.LastError)
	assert.Equal(t, uint64(12), state.LastError.Block)

	// The returned state is a copy.
	state.Backfill[0] = 999
	again, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{9, 12}, again.Backfill)
}

func TestBlockRepo_MissingInRange(t *testing.T) {
	ctx := context.Background()
	repo := NewBlockRepo(NewMemoryStorage())
	_, err := repo.Lowest(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, n := range []uint64{5, 6, 8} {
		require.NoError(t, repo.Upsert(ctx, &domain.BlockRecord{BlockNumber: n}))
	}

	lowest, err := repo.Lowest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), lowest)

	missing, err := repo.MissingInRange(ctx, 4, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 7, 9}, missing)

	missing, err = repo.MissingInRange(ctx, 4, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4}, missing)
}

func TestLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocker()

	ok, _ := l.Acquire(ctx, "k", "a", time.Minute)
	assert.True(t, ok)
	ok, _ = l.Acquire(ctx, "k", "b", time.Minute)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "k", "b"))
	ok, _ = l.Acquire(ctx, "k", "b", time.Minute)
	assert.False(t, ok, "release with a foreign token is a no-op")

	require.NoError(t, l.Release(ctx, "k", "a"))
	ok, _ = l.Acquire(ctx, "k", "b", time.Millisecond)
	assert.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	ok, _ = l.Acquire(ctx, "k", "c", time.Minute)
	assert.True(t, ok, "expired lock can be taken over")
}

func TestCooldownStore(t *testing.T) {
	ctx := context.Background()
	s := NewCooldownStore()

	now := time.Now()
	require.NoError(t, s.Set(ctx, 7, now, 50*time.Millisecond))

	at, ok, err := s.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(now))

	active, err := s.Active(ctx, []uint64{6, 7})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{7: true}, active)

	time.Sleep(80 * time.Millisecond)
	_, ok, err = s.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}
