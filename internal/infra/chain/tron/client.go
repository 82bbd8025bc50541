// Package tron implements the fetch collaborator over the TRON full node HTTP API.
// API docs: https://developers.tron.network/reference
package tron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/infra/chain"
)

// Poster is the transport used by the client. *rpc.Client implements it.
type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Client implements chain.Client for TRON.
type Client struct {
	rpc Poster
	log *slog.Logger
}

var _ chain.Client = (*Client)(nil)

// NewClient creates a TRON client on top of a retrying transport.
func NewClient(rpc Poster) *Client {
	return &Client{
		rpc: rpc,
		log: slog.Default().With("component", "tron"),
	}
}

// GetChainHead returns the latest block number.
func (c *Client) GetChainHead(ctx context.Context) (uint64, error) {
	var resp blockResponse
	if err := decodeNumbers(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode block %d: %w", blockNumber, err)
	}
	if resp.BlockID == "" && resp.BlockHeader == nil {
		return nil, fmt.Errorf("block %d: %w", blockNumber, chain.ErrBlockNotFound)
	}

	block := &domain.RawBlock{
		BlockID:      resp.BlockID,
		Number:       blockNumber,
		Size:         len(raw),
		Raw:          raw,
		Transactions: make([]domain.RawTransaction, 0, len(resp.Txs)),
	}
	if resp.BlockHeader != nil {
		h := resp.BlockHeader.RawData
		block.Number = h.Number
		block.ParentHash = h.ParentHash
		block.Timestamp = h.Timestamp
		if addr, ok := c.AddressEncode(h.WitnessAddress); ok {
			block.WitnessAddress = addr
		}
	}

	// Each transaction keeps its original JSON for the corrupt sink
	for i, original := range resp.Txs {
		var tx txResponse
		if err := decodeNumbers(original, &tx); err != nil {
			return nil, fmt.Errorf("failed to decode transaction %d of block %d: %w", i, blockNumber, err)
		}
		rt := domain.RawTransaction{
			TxID: tx.TxID,
			Data: tx.RawData.Data,
			Raw:  original,
		}
		if len(tx.Ret) > 0 {
			rt.Result = tx.Ret[0].ContractRet
		}
		for _, ct := range tx.RawData.Contract {
			rt.Contracts = append(rt.Contracts, domain.RawContract{
				Type:  ct.Type,
				Value: ct.Parameter.Value,
			})
		}
		block.Transactions = append(block.Transactions, rt)
	}

	if len(block.Transactions) > 0 {
		if err := c.attachReceipts(ctx, block); err != nil {
			return nil, err
		}
	}

	return block, nil
}

// attachReceipts loads all receipts of the block in one call.
func (c *Client) attachReceipts(ctx context.Context, block *domain.RawBlock) error {
	var infos []txInfoResponse
	body := map[string]any{"num": block.Number}
	if err := c.rpc.Post(ctx, "wallet/gettransactioninfobyblocknum", body, &infos); err != nil {
		return fmt.Errorf("failed to get receipts of block %d: %w", block.Number, err)
	}

	byID := make(map[string]*domain.RawTxInfo, len(infos))
	for _, info := range infos {
		ri := &domain.RawTxInfo{
			Fee:              info.Fee,
			EnergyUsage:      info.Receipt.EnergyUsage,
			EnergyUsageTotal: info.Receipt.EnergyUsageTotal,
			EnergyFee:        info.Receipt.EnergyFee,
			NetUsage:         info.Receipt.NetUsage,
			NetFee:           info.Receipt.NetFee,
		}
		for _, itx := range info.InternalTransactions {
			var value int64
			for _, cv := range itx.CallValueInfo {
				value += cv.CallValue
			}
			ri.Internal = append(ri.Internal, domain.RawInternalTx{
				Hash:       itx.Hash,
				Caller:     itx.CallerAddress,
				TransferTo: itx.TransferTo,
				CallValue:  value,
				Note:       itx.Note,
				Rejected:   itx.Rejected,
			})
		}
		byID[info.ID] = ri
	}

	missing := 0
	for i := range block.Transactions {
		if info, ok := byID[block.Transactions[i].TxID]; ok {
			block.Transactions[i].Info = info
		} else {
			missing++
		}
	}
	if missing > 0 {
		c.log.Debug("Receipts missing for transactions", "block", block.Number, "missing", missing)
	}
	return nil
}

// decodeNumbers unmarshals data keeping numbers as json.Number so large
// amounts survive without float rounding.
func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
