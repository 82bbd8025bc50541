// Package indexer runs the block pipeline: fetch, validate, normalize, persist
// and notify, one block per job.
package indexer

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/vietddude/tronwatch/internal/core/cursor"
	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/indexing/emitter"
	"github.com/vietddude/tronwatch/internal/indexing/normalizer"
	"github.com/vietddude/tronwatch/internal/indexing/recovery"
	"github.com/vietddude/tronwatch/internal/infra/chain"
	"github.com/vietddude/tronwatch/internal/infra/storage"
)

var (
	ErrMissingTimestamp = errors.New("block has no timestamp")
	ErrInvalidTimestamp = errors.New("block timestamp is not a valid instant")
)

// PriceSource supplies the TRX spot price; ok is false when unknown.
type PriceSource interface {
	SpotPrice(ctx context.Context) (decimal.Decimal, bool)
}

// AddressLookup resolves address labels in bulk.
type AddressLookup interface {
	LookupAll(ctx context.Context, addrs []string) map[string]domain.AddressInfo
}

// Throttle delays blocks close to the chain head.
type Throttle interface {
	Wait(ctx context.Context, block uint64) (bool, error)
}

// FailureHandler does the bookkeeping for a failed block.
type FailureHandler interface {
	HandleFailure(ctx context.Context, block uint64, err error) recovery.Cause
}

// Dispatcher hands records to subscribers without blocking.
type Dispatcher interface {
	Dispatch(rec *domain.TransactionRecord)
}

// Config holds the processor's collaborators. Prices, Labels, Throttle,
// Broadcaster and Observers are optional.
type Config struct {
	Fetcher      chain.Fetcher
	Normalizer   *normalizer.Normalizer
	Blocks       storage.BlockRepository
	Transactions storage.TransactionRepository
	Corrupt      storage.CorruptRepository
	Cursor       cursor.Manager
	Recovery     FailureHandler
	Throttle     Throttle
	Prices       PriceSource
	Labels       AddressLookup
	Broadcaster  emitter.Broadcaster
	Observers    Dispatcher
}
