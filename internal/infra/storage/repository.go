package storage

import (
	"context"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// BlockRepository handles block storage operations
type BlockRepository interface {
	// Upsert inserts or replaces the record keyed by block number
	Upsert(ctx context.Context, block *domain.BlockRecord) error

	// GetByNumber returns domain.ErrNotFound when the block was never processed
	GetByNumber(ctx context.Context, blockNumber uint64) (*domain.BlockRecord, error)

	// Lowest returns the smallest stored block number, domain.ErrNotFound when empty
	Lowest(ctx context.Context) (uint64, error)

	// MissingInRange returns up to limit block numbers in [from, to) with no stored record, ascending
	MissingInRange(ctx context.Context, from, to uint64, limit int) ([]uint64, error)
}

// TransactionRepository handles transaction storage operations
type TransactionRepository interface {
	// BulkUpsert writes all records keyed by tx id. Order is not significant.
	BulkUpsert(ctx context.Context, txs []*domain.TransactionRecord) error

	// GetByID retrieves a transaction by id
	GetByID(ctx context.Context, txID string) (*domain.TransactionRecord, error)
}

// SyncStateRepository persists the single SyncState row. Every mutation is an
// atomic update on the stored row, never a read-modify-write.
type SyncStateRepository interface {
	// Get returns domain.ErrNotFound before the first Create
	Get(ctx context.Context) (*domain.SyncState, error)

	// Create inserts the row if absent and returns what is stored
	Create(ctx context.Context, cursor, networkHeight uint64) (*domain.SyncState, error)

	// AdvanceCursor sets cursor to max(cursor, block) and pulls block from backfill
	AdvanceCursor(ctx context.Context, block uint64) error

	// AddBackfill adds blocks to the backfill set
	AddBackfill(ctx context.Context, blocks []uint64) error

	// RemoveBackfill pulls blocks from the backfill set
	RemoveBackfill(ctx context.Context, blocks []uint64) error

	// TrimBackfill drops entries that are zero or above maxHeight
	TrimBackfill(ctx context.Context, maxHeight uint64) error

	// RecordFailure adds block to backfill and stores the error in one update
	RecordFailure(ctx context.Context, block uint64, syncErr domain.SyncError) error

	SetNetworkHeight(ctx context.Context, height uint64) error

	// SetParityTarget sets or, with nil, clears the parity target
	SetParityTarget(ctx context.Context, target *uint64) error
}

// CorruptRepository is the append-only sink for data that failed validation.
type CorruptRepository interface {
	RecordBlock(ctx context.Context, entry domain.CorruptEntry) error
	RecordTransaction(ctx context.Context, entry domain.CorruptEntry) error
}

// AddressLabelRepository stores known address labels.
type AddressLabelRepository interface {
	// Get returns domain.ErrNotFound for unlabeled addresses
	Get(ctx context.Context, address string) (*domain.AddressLabel, error)
	Upsert(ctx context.Context, label *domain.AddressLabel) error
}
