// Package emitter broadcasts ingestion events to downstream consumers.
package emitter

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// Event names. Transports derive their channel from these.
const (
	EventBlockProcessed = "block:processed"
	EventTransaction    = "transaction"
	EventWhale          = "whale"
	EventWatched        = "address:activity"
)

// Broadcaster publishes an event. Delivery is fire-and-forget: callers log
// errors and carry on.
type Broadcaster interface {
	Publish(ctx context.Context, event string, payload any) error
}

// BlockProcessed is the payload of EventBlockProcessed.
type BlockProcessed struct {
	BlockNumber      uint64            `json:"blockNumber"`
	BlockID          string            `json:"blockId"`
	Timestamp        time.Time         `json:"timestamp"`
	TransactionCount int               `json:"transactionCount"`
	Stats            domain.BlockStats `json:"stats"`
	DurationMs       int64             `json:"durationMs"`
}

// Whale is the payload of EventWhale.
type Whale struct {
	TxID            string           `json:"txId"`
	BlockNumber     uint64           `json:"blockNumber"`
	From            string           `json:"from"`
	To              string           `json:"to"`
	AmountMajorUnit decimal.Decimal  `json:"amountMajorUnit"`
	AmountQuote     *decimal.Decimal `json:"amountQuote,omitempty"`
}

// Watched is the payload of EventWatched.
type Watched struct {
	Addresses   []string                  `json:"addresses"`
	Transaction *domain.TransactionRecord `json:"transaction"`
}

// LogEmitter writes events to the log. Used when no transport is configured.
type LogEmitter struct {
	logger *slog.Logger
}

func NewLogEmitter() *LogEmitter {
	return &LogEmitter{logger: slog.Default().With("component", "emitter")}
}

func (e *LogEmitter) Publish(ctx context.Context, event string, payload any) error {
	switch p := payload.(type) {
	case *BlockProcessed:
		e.logger.Info("Block processed",
			"block", p.BlockNumber,
			"txs", p.TransactionCount,
			"transfers", p.Stats.Transfers,
			"duration_ms", p.DurationMs,
		)
	case *Watched:
		e.logger.Info("Watched address activity", "tx", p.Transaction.TxID, "addresses", p.Addresses)
	case *domain.TransactionRecord:
		e.logger.Debug("Transaction", "tx", p.TxID, "block", p.BlockNumber, "type", p.Type)
	default:
		e.logger.Debug("Event", "event", event)
	}
	return nil
}

// Multi publishes to every broadcaster and returns the first error.
type Multi []Broadcaster

func (m Multi) Publish(ctx context.Context, event string, payload any) error {
	var first error
	for _, b := range m {
		if err := b.Publish(ctx, event, payload); err != nil && first == nil {
			first = err
		}
	}
	return first
}
