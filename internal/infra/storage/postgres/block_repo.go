package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// BlockRepo implements storage.BlockRepository using PostgreSQL.
type BlockRepo struct {
	db *DB
}

// NewBlockRepo creates a new PostgreSQL block repository.
func NewBlockRepo(db *DB) *BlockRepo {
	return &BlockRepo{db: db}
}

type blockRow struct {
	BlockNumber      int64     `db:"block_number"`
	BlockID          string    `db:"block_id"`
	ParentHash       string    `db:"parent_hash"`
	WitnessAddress   string    `db:"witness_address"`
	Timestamp        time.Time `db:"timestamp"`
	TransactionCount int       `db:"transaction_count"`
	Size             int       `db:"size"`
	Stats            string    `db:"stats"`
	ProcessedAt      time.Time `db:"processed_at"`
}

// Upsert saves a block, replacing any earlier record with the same number.
func (r *BlockRepo) Upsert(ctx context.Context, block *domain.BlockRecord) error {
	stats, err := json.Marshal(block.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal block stats: %w", err)
	}

	query := `
		INSERT INTO blocks (block_number, block_id, parent_hash, witness_address, timestamp,
			transaction_count, size, stats, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)
		ON CONFLICT (block_number) DO UPDATE SET
			block_id = EXCLUDED.block_id,
			parent_hash = EXCLUDED.parent_hash,
			witness_address = EXCLUDED.witness_address,
			timestamp = EXCLUDED.timestamp,
			transaction_count = EXCLUDED.transaction_count,
			size = EXCLUDED.size,
			stats = EXCLUDED.stats,
			processed_at = EXCLUDED.processed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		int64(block.BlockNumber),
		block.BlockID,
		block.ParentHash,
		block.WitnessAddress,
		block.Timestamp,
		block.TransactionCount,
		block.Size,
		string(stats),
		block.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert block %d: %w", block.BlockNumber, err)
	}
	return nil
}

// GetByNumber retrieves a block by number.
func (r *BlockRepo) GetByNumber(ctx context.Context, blockNumber uint64) (*domain.BlockRecord, error) {
	var row blockRow
	err := r.db.GetContext(ctx, &row, `
		SELECT block_number, block_id, parent_hash, witness_address, timestamp,
			transaction_count, size, stats::text AS stats, processed_at
		FROM blocks WHERE block_number = $1`, int64(blockNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", blockNumber, err)
	}

	block := &domain.BlockRecord{
		BlockNumber:      uint64(row.BlockNumber),
		BlockID:          row.BlockID,
		ParentHash:       row.ParentHash,
		WitnessAddress:   row.WitnessAddress,
		Timestamp:        row.Timestamp,
		TransactionCount: row.TransactionCount,
		Size:             row.Size,
		ProcessedAt:      row.ProcessedAt,
	}
	if err := json.Unmarshal([]byte(row.Stats), &block.Stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats of block %d: %w", blockNumber, err)
	}
	return block, nil
}

// Lowest returns the smallest stored block number.
func (r *BlockRepo) Lowest(ctx context.Context) (uint64, error) {
	var lowest sql.NullInt64
	if err := r.db.GetContext(ctx, &lowest, `SELECT MIN(block_number) FROM blocks`); err != nil {
		return 0, fmt.Errorf("failed to get lowest block: %w", err)
	}
	if !lowest.Valid {
		return 0, domain.ErrNotFound
	}
	return uint64(lowest.Int64), nil
}

// MissingInRange finds block numbers in [from, to) that have no stored record.
func (r *BlockRepo) MissingInRange(
	ctx context.Context,
	from, to uint64,
	limit int,
) ([]uint64, error) {
	if to <= from || limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT gs.n
		FROM generate_series($1::bigint, $2::bigint - 1) AS gs(n)
		LEFT JOIN blocks b ON b.block_number = gs.n
		WHERE b.block_number IS NULL
		ORDER BY gs.n
		LIMIT $3
	`

	var rows []int64
	if err := r.db.SelectContext(ctx, &rows, query, int64(from), int64(to), limit); err != nil {
		return nil, fmt.Errorf("failed to scan for missing blocks: %w", err)
	}

	missing := make([]uint64, len(rows))
	for i, n := range rows {
		missing[i] = uint64(n)
	}
	return missing, nil
}
