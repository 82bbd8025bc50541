// Package normalizer converts raw TRON transactions into canonical records.
package normalizer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/infra/chain"
)

// AtomicScale is the number of decimal places between SUN and TRX.
const AtomicScale = 6

// BlockContext is the per-block input shared by every transaction of the block.
type BlockContext struct {
	Number    uint64
	Timestamp time.Time
	// SpotPrice is the quote currency price of one TRX, nil when unavailable.
	SpotPrice *decimal.Decimal
}

// Normalizer is a pure transformation; it performs no I/O.
type Normalizer struct {
	codec   chain.Codec
	cluster ClusterResolver
}

func New(codec chain.Codec, cluster ClusterResolver) *Normalizer {
	if cluster == nil {
		cluster = NoopCluster{}
	}
	return &Normalizer{codec: codec, cluster: cluster}
}

// Normalize builds the record for raw. It returns nil without an error when the
// transaction carries no contract payload. scope collects the addresses used in
// the block; call scope.Finalize once every transaction has been normalized.
func (n *Normalizer) Normalize(
	block BlockContext,
	raw domain.RawTransaction,
	scope *Scope,
) (*domain.TransactionRecord, error) {
	if len(raw.Contracts) == 0 || raw.Contracts[0].Value == nil {
		return nil, nil
	}
	if raw.TxID == "" {
		return nil, fmt.Errorf("transaction without id")
	}

	contract := decodeContract(raw.Contracts[0])

	from, err := n.address(contract.OwnerAddress())
	if err != nil {
		return nil, fmt.Errorf("owner address: %w", err)
	}

	rec := &domain.TransactionRecord{
		TxID:                 raw.TxID,
		BlockNumber:          block.Number,
		Timestamp:            block.Timestamp,
		Type:                 contract.ContractType(),
		Result:               raw.Result,
		From:                 domain.Party{Address: from, Type: domain.AddressTypeAccount},
		InternalTransactions: []domain.InternalTransaction{},
		Analysis: domain.Analysis{
			RelatedTransactions: []string{},
			RelatedAddresses:    []string{},
		},
	}

	shape, err := n.describe(contract)
	if err != nil {
		return nil, err
	}
	rec.SubType = shape.subType
	rec.To = shape.to
	rec.Amount = shape.amount
	rec.ContractDescription = shape.description

	rec.AmountMajorUnit = ToMajor(rec.Amount)
	if block.SpotPrice != nil {
		q := Quote(rec.AmountMajorUnit, *block.SpotPrice)
		rec.AmountQuote = &q
	}

	if memo, ok := n.codec.MemoDecode(raw.Data); ok {
		rec.Memo = memo
	}

	if raw.Info != nil {
		rec.Energy = energy(raw.Info)
		rec.Bandwidth = bandwidth(raw.Info)
		rec.InternalTransactions = n.internal(raw.Info.Internal)
	}

	if scope != nil {
		scope.track(rec)
	}
	return rec, nil
}

// ToMajor converts SUN to TRX.
func ToMajor(atomic int64) decimal.Decimal {
	return decimal.New(atomic, -AtomicScale)
}

// Quote converts a TRX amount to the quote currency, rounded to 2 decimal places.
func Quote(major, price decimal.Decimal) decimal.Decimal {
	return major.Mul(price).Round(2)
}

// address encodes a hex address; empty input stays empty.
func (n *Normalizer) address(hexAddr string) (string, error) {
	if hexAddr == "" {
		return "", nil
	}
	addr, ok := n.codec.AddressEncode(hexAddr)
	if !ok {
		return "", fmt.Errorf("cannot encode %q", hexAddr)
	}
	return addr, nil
}

func (n *Normalizer) internal(items []domain.RawInternalTx) []domain.InternalTransaction {
	out := make([]domain.InternalTransaction, 0, len(items))
	for _, it := range items {
		from, _ := n.codec.AddressEncode(it.Caller)
		to, _ := n.codec.AddressEncode(it.TransferTo)
		note, _ := n.codec.MemoDecode(it.Note)
		out = append(out, domain.InternalTransaction{
			Hash:     it.Hash,
			From:     from,
			To:       to,
			Amount:   it.CallValue,
			Note:     note,
			Rejected: it.Rejected,
		})
	}
	return out
}
