package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// CorruptRepo is the append-only sink for blocks and transactions that failed validation.
type CorruptRepo struct {
	db *DB
}

func NewCorruptRepo(db *DB) *CorruptRepo {
	return &CorruptRepo{db: db}
}

func rawText(entry domain.CorruptEntry) sql.NullString {
	if len(entry.Raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(entry.Raw), Valid: true}
}

func (r *CorruptRepo) RecordBlock(ctx context.Context, entry domain.CorruptEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO corrupt_blocks (block_number, error, raw, recorded_at)
		VALUES ($1, $2, $3, $4)`,
		int64(entry.BlockNumber), entry.Error, rawText(entry), entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record corrupt block %d: %w", entry.BlockNumber, err)
	}
	return nil
}

func (r *CorruptRepo) RecordTransaction(ctx context.Context, entry domain.CorruptEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO corrupt_transactions (block_number, tx_id, error, raw, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`,
		int64(entry.BlockNumber), entry.TxID, entry.Error, rawText(entry), entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record corrupt transaction %s: %w", entry.TxID, err)
	}
	return nil
}
