package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// SyncStateRepo implements storage.SyncStateRepository on the single-row sync_state table.
// Set operations on the backfill array are done in SQL so concurrent writers never
// overwrite each other.
type SyncStateRepo struct {
	db *DB
}

func NewSyncStateRepo(db *DB) *SyncStateRepo {
	return &SyncStateRepo{db: db}
}

type syncStateRow struct {
	CursorBlock       int64          `db:"cursor_block"`
	Backfill          string         `db:"backfill"`
	ParityTarget      sql.NullInt64  `db:"parity_target"`
	LastNetworkHeight int64          `db:"last_network_height"`
	LastError         sql.NullString `db:"last_error"`
	LastErrorCause    sql.NullString `db:"last_error_cause"`
	LastErrorBlock    sql.NullInt64  `db:"last_error_block"`
	LastErrorAt       sql.NullTime   `db:"last_error_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (row *syncStateRow) toDomain() (*domain.SyncState, error) {
	var backfill []uint64
	if err := json.Unmarshal([]byte(row.Backfill), &backfill); err != nil {
		return nil, fmt.Errorf("failed to decode backfill: %w", err)
	}

	state := &domain.SyncState{
		CursorBlock:       uint64(row.CursorBlock),
		Backfill:          backfill,
		LastNetworkHeight: uint64(row.LastNetworkHeight),
		UpdatedAt:         row.UpdatedAt,
	}
	if row.ParityTarget.Valid {
		target := uint64(row.ParityTarget.Int64)
		state.ParityTarget = &target
	}
	if row.LastError.Valid {
		state.LastError = &domain.SyncError{
			Message: row.LastError.String,
			Cause:   row.LastErrorCause.String,
			Block:   uint64(row.LastErrorBlock.Int64),
			At:      row.LastErrorAt.Time,
		}
	}
	return state, nil
}

func toInt64s(blocks []uint64) pq.Int64Array {
	out := make(pq.Int64Array, len(blocks))
	for i, b := range blocks {
		out[i] = int64(b)
	}
	return out
}

// Get loads the sync state row.
func (r *SyncStateRepo) Get(ctx context.Context) (*domain.SyncState, error) {
	var row syncStateRow
	err := r.db.GetContext(ctx, &row, `
		SELECT cursor_block,
			COALESCE(array_to_json(backfill), '[]')::text AS backfill,
			parity_target, last_network_height, last_error, last_error_cause,
			last_error_block, last_error_at, updated_at
		FROM sync_state WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	return row.toDomain()
}

// Create inserts the row if it does not exist yet.
func (r *SyncStateRepo) Create(
	ctx context.Context,
	cursor, networkHeight uint64,
) (*domain.SyncState, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (id, cursor_block, last_network_height)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO NOTHING`, int64(cursor), int64(networkHeight))
	if err != nil {
		return nil, fmt.Errorf("failed to create sync state: %w", err)
	}
	return r.Get(ctx)
}

// AdvanceCursor max-merges the cursor and pulls block from the backfill set.
func (r *SyncStateRepo) AdvanceCursor(ctx context.Context, block uint64) error {
	return r.exec(ctx, "advance cursor", `
		UPDATE sync_state SET
			cursor_block = GREATEST(cursor_block, $1),
			backfill = array_remove(backfill, $1::bigint),
			updated_at = now()
		WHERE id = 1`, int64(block))
}

// AddBackfill merges blocks into the backfill set, keeping it sorted and distinct.
func (r *SyncStateRepo) AddBackfill(ctx context.Context, blocks []uint64) error {
	if len(blocks) == 0 {
		return nil
	}
	return r.exec(ctx, "add backfill", `
		UPDATE sync_state SET
			backfill = ARRAY(
				SELECT DISTINCT b FROM unnest(backfill || $1::bigint[]) AS b ORDER BY b
			),
			updated_at = now()
		WHERE id = 1`, toInt64s(blocks))
}

// RemoveBackfill pulls blocks from the backfill set.
func (r *SyncStateRepo) RemoveBackfill(ctx context.Context, blocks []uint64) error {
	if len(blocks) == 0 {
		return nil
	}
	return r.exec(ctx, "remove backfill", `
		UPDATE sync_state SET
			backfill = ARRAY(
				SELECT b FROM unnest(backfill) AS b WHERE b <> ALL($1::bigint[]) ORDER BY b
			),
			updated_at = now()
		WHERE id = 1`, toInt64s(blocks))
}

// TrimBackfill drops entries outside (0, maxHeight].
func (r *SyncStateRepo) TrimBackfill(ctx context.Context, maxHeight uint64) error {
	return r.exec(ctx, "trim backfill", `
		UPDATE sync_state SET
			backfill = ARRAY(
				SELECT b FROM unnest(backfill) AS b WHERE b > 0 AND b <= $1 ORDER BY b
			)
		WHERE id = 1`, int64(maxHeight))
}

// RecordFailure re-adds block to backfill and stores the error.
func (r *SyncStateRepo) RecordFailure(
	ctx context.Context,
	block uint64,
	syncErr domain.SyncError,
) error {
	return r.exec(ctx, "record failure", `
		UPDATE sync_state SET
			backfill = ARRAY(
				SELECT DISTINCT b FROM unnest(array_append(backfill, $1::bigint)) AS b ORDER BY b
			),
			last_error = $2,
			last_error_cause = $3,
			last_error_block = $1,
			last_error_at = $4,
			updated_at = now()
		WHERE id = 1`, int64(block), syncErr.Message, syncErr.Cause, syncErr.At)
}

func (r *SyncStateRepo) SetNetworkHeight(ctx context.Context, height uint64) error {
	return r.exec(ctx, "set network height", `
		UPDATE sync_state SET last_network_height = $1, updated_at = now() WHERE id = 1`,
		int64(height))
}

func (r *SyncStateRepo) SetParityTarget(ctx context.Context, target *uint64) error {
	var value sql.NullInt64
	if target != nil {
		value = sql.NullInt64{Int64: int64(*target), Valid: true}
	}
	return r.exec(ctx, "set parity target", `
		UPDATE sync_state SET parity_target = $1, updated_at = now() WHERE id = 1`, value)
}

func (r *SyncStateRepo) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to %s: %w", op, domain.ErrNotFound)
	}
	return nil
}
