package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// upsertChunk keeps a single statement well below the 65535 bind parameter limit.
const upsertChunk = 500

// TxRepo implements storage.TransactionRepository using PostgreSQL.
type TxRepo struct {
	db *DB
}

// NewTxRepo creates a new PostgreSQL transaction repository.
func NewTxRepo(db *DB) *TxRepo {
	return &TxRepo{db: db}
}

type txRow struct {
	TxID        string              `db:"tx_id"`
	BlockNumber int64               `db:"block_number"`
	Timestamp   time.Time           `db:"timestamp"`
	Type        string              `db:"type"`
	SubType     string              `db:"sub_type"`
	FromAddress string              `db:"from_address"`
	ToAddress   string              `db:"to_address"`
	Amount      int64               `db:"amount"`
	AmountMajor decimal.Decimal     `db:"amount_major"`
	AmountQuote decimal.NullDecimal `db:"amount_quote"`
	Record      string              `db:"record"`
}

func toTxRow(tx *domain.TransactionRecord) (txRow, error) {
	record, err := json.Marshal(tx)
	if err != nil {
		return txRow{}, fmt.Errorf("failed to marshal transaction %s: %w", tx.TxID, err)
	}

	row := txRow{
		TxID:        tx.TxID,
		BlockNumber: int64(tx.BlockNumber),
		Timestamp:   tx.Timestamp,
		Type:        string(tx.Type),
		SubType:     tx.SubType,
		FromAddress: tx.From.Address,
		ToAddress:   tx.To.Address,
		Amount:      tx.Amount,
		AmountMajor: tx.AmountMajorUnit,
		Record:      string(record),
	}
	if tx.AmountQuote != nil {
		row.AmountQuote = decimal.NewNullDecimal(*tx.AmountQuote)
	}
	return row, nil
}

// BulkUpsert writes all transactions in one database transaction, keyed by tx_id.
func (r *TxRepo) BulkUpsert(ctx context.Context, txs []*domain.TransactionRecord) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]txRow, 0, len(txs))
	for _, tx := range txs {
		row, err := toTxRow(tx)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	dbTx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	query := `
		INSERT INTO transactions (tx_id, block_number, timestamp, type, sub_type,
			from_address, to_address, amount, amount_major, amount_quote, record)
		VALUES (:tx_id, :block_number, :timestamp, :type, :sub_type,
			:from_address, :to_address, :amount, :amount_major, :amount_quote, CAST(:record AS jsonb))
		ON CONFLICT (tx_id) DO UPDATE SET
			block_number = EXCLUDED.block_number,
			timestamp = EXCLUDED.timestamp,
			type = EXCLUDED.type,
			sub_type = EXCLUDED.sub_type,
			from_address = EXCLUDED.from_address,
			to_address = EXCLUDED.to_address,
			amount = EXCLUDED.amount,
			amount_major = EXCLUDED.amount_major,
			amount_quote = EXCLUDED.amount_quote,
			record = EXCLUDED.record
	`

	for start := 0; start < len(rows); start += upsertChunk {
		end := min(start+upsertChunk, len(rows))
		if _, err := dbTx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("failed to upsert transactions: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by id.
func (r *TxRepo) GetByID(ctx context.Context, txID string) (*domain.TransactionRecord, error) {
	var record string
	err := r.db.GetContext(ctx, &record, `SELECT record::text FROM transactions WHERE tx_id = $1`, txID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", txID, err)
	}

	var tx domain.TransactionRecord
	if err := json.Unmarshal([]byte(record), &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction %s: %w", txID, err)
	}
	return &tx, nil
}
