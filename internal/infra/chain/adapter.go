package chain

import (
	"context"
	"errors"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// ErrBlockNotFound is returned when the node has no block at the requested height.
var ErrBlockNotFound = errors.New("block not found")

// Fetcher retrieves raw chain data. Implementations own their retry and backoff;
// callers issue one logical call per need.
type Fetcher interface {
	// GetChainHead returns the latest block number on the chain
	GetChainHead(ctx context.Context) (uint64, error)

	// GetBlockByNumber fetches a block with its transactions and receipts
	GetBlockByNumber(ctx context.Context, blockNumber uint64) (*domain.RawBlock, error)
}

// Codec converts chain specific encodings into display form.
type Codec interface {
	// AddressEncode converts a hex address into its base58 form
	AddressEncode(hex string) (string, bool)

	// MemoDecode decodes a hex encoded memo into text
	MemoDecode(data string) (string, bool)
}

// Client is the full fetch collaborator.
type Client interface {
	Fetcher
	Codec
}
