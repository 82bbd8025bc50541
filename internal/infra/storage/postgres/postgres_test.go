package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// setupTestDB connects to TEST_DATABASE_URL, migrates and empties every table.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping postgres test. Set TEST_DATABASE_URL to run.")
	}

	ctx := context.Background()
	db, err := NewDB(ctx, Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))
	_, err = db.ExecContext(ctx, `TRUNCATE sync_state, blocks, transactions,
		corrupt_blocks, corrupt_transactions, address_labels`)
	require.NoError(t, err)
	return db
}

func TestPostgresSyncState(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewSyncStateRepo(db)

	_, err := repo.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	state, err := repo.Create(ctx, 1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), state.CursorBlock)
	assert.Empty(t, state.Backfill)

	// A second create must not reset the row.
	require.NoError(t, repo.AdvanceCursor(ctx, 1005))
	state, err = repo.Create(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1005), state.CursorBlock)

	require.NoError(t, repo.AdvanceCursor(ctx, 1002))
	require.NoError(t, repo.AddBackfill(ctx, []uint64{990, 980, 990, 2000}))
	require.NoError(t, repo.RemoveBackfill(ctx, []uint64{980}))
	require.NoError(t, repo.TrimBackfill(ctx, 1500))

	state, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1005), state.CursorBlock, "cursor never regresses")
	assert.Equal(t, []uint64{990}, state.Backfill)

	at := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.RecordFailure(ctx, 1006, domain.SyncError{
		Message: "rate limited", Cause: "rate_limit", At: at,
	}))
	require.NoError(t, repo.AdvanceCursor(ctx, 990))

	state, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1006}, state.Backfill)
	require.NotNil(t, state.LastError)
	assert.Equal(t, "rate_limit", state.LastError.Cause)
	assert.Equal(t, uint64(1006), state.LastError.Block)

	target := uint64(1200)
	require.NoError(t, repo.SetParityTarget(ctx, &target))
	require.NoError(t, repo.SetNetworkHeight(ctx, 1300))
	state, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.ParityTarget)
	assert.Equal(t, target, *state.ParityTarget)
	assert.Equal(t, uint64(1300), state.LastNetworkHeight)

	require.NoError(t, repo.SetParityTarget(ctx, nil))
	state, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, state.ParityTarget)
}

func TestPostgresBlocksAndTransactions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	blocks := NewBlockRepo(db)
	txs := NewTxRepo(db)

	for _, n := range []uint64{10, 11, 13} {
		require.NoError(t, blocks.Upsert(ctx, &domain.BlockRecord{
			BlockNumber: n,
			BlockID:     "id",
			Timestamp:   time.UnixMilli(1_700_000_000_000),
			Stats:       domain.BlockStats{Transfers: 1},
			ProcessedAt: time.Now(),
		}))
	}

	lowest, err := blocks.Lowest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), lowest)

	missing, err := blocks.MissingInRange(ctx, 8, 15, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{8, 9, 12, 14}, missing)

	missing, err = blocks.MissingInRange(ctx, 8, 15, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{8, 9}, missing)

	got, err := blocks.GetByNumber(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.Transfers)

	quote := decimal.RequireFromString("0.24")
	record := &domain.TransactionRecord{
		TxID:            "abc",
		BlockNumber:     10,
		Timestamp:       time.UnixMilli(1_700_000_000_000).UTC(),
		Type:            domain.ContractTransfer,
		From:            domain.Party{Address: "TFrom", Type: domain.AddressTypeAccount},
		To:              domain.Party{Address: "TTo", Type: domain.AddressTypeAccount},
		Amount:          2_000_000,
		AmountMajorUnit: decimal.NewFromInt(2),
		AmountQuote:     &quote,
	}

	// Replaying the same record is a no-op.
	require.NoError(t, txs.BulkUpsert(ctx, []*domain.TransactionRecord{record}))
	require.NoError(t, txs.BulkUpsert(ctx, []*domain.TransactionRecord{record}))

	var count int
	require.NoError(t, db.GetContext(ctx, &count, `SELECT count(*) FROM transactions`))
	assert.Equal(t, 1, count)

	stored, err := txs.GetByID(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, stored.AmountMajorUnit.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "TTo", stored.To.Address)
}

func TestPostgresLabelsAndCorrupt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	labels := NewLabelRepo(db)
	corrupt := NewCorruptRepo(db)

	_, err := labels.Get(ctx, "TUnknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, labels.Upsert(ctx, &domain.AddressLabel{Address: "TEx", Type: "exchange", Name: "Binance"}))
	label, err := labels.Get(ctx, "TEx")
	require.NoError(t, err)
	assert.Equal(t, "Binance", label.Name)

	require.NoError(t, corrupt.RecordBlock(ctx, domain.CorruptEntry{
		Timestamp: time.Now(), BlockNumber: 5, Error: "missing timestamp",
	}))
	require.NoError(t, corrupt.RecordTransaction(ctx, domain.CorruptEntry{
		Timestamp: time.Now(), BlockNumber: 5, TxID: "t1", Error: "bad", Raw: []byte(`{"x":1}`),
	}))
}
