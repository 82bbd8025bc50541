package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RawTransaction is one transaction of a RawBlock, merged with its receipt when available.
type RawTransaction struct {
	TxID      string
	Contracts []RawContract
	// Data is the hex encoded raw_data.data field (memo).
	Data string
	// Result is ret[0].contractRet.
	Result string
	Info   *RawTxInfo
	Raw    json.RawMessage
}

// RawContract is a single entry of raw_data.contract.
type RawContract struct {
	Type  string
	Value map[string]any
}

// RawTxInfo carries the receipt fields of gettransactioninfo.
type RawTxInfo struct {
	Fee              int64
	EnergyUsage      int64
	EnergyUsageTotal int64
	EnergyFee        int64
	NetUsage         int64
	NetFee           int64
	Internal         []RawInternalTx
}

// RawInternalTx is an internal call reported in a receipt.
type RawInternalTx struct {
	Hash       string
	Caller     string
	TransferTo string
	CallValue  int64
	Note       string
	Rejected   bool
}

// Address types assigned by the normalizer. Lookups may replace them with a label type.
const (
	AddressTypeAccount  = "account"
	AddressTypeContract = "contract"
)

// Party is one side of a transaction.
type Party struct {
	Address string `json:"address"`
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
}

// Resource describes energy or bandwidth spent by a transaction.
type Resource struct {
	Consumed  int64           `json:"consumed"`
	Price     decimal.Decimal `json:"price"`
	TotalCost int64           `json:"totalCost"`
}

// ContractDescription is a structured summary of the invoked contract.
type ContractDescription struct {
	Address    string         `json:"address"`
	Method     string         `json:"method,omitempty"`
	Parameters map[string]any `json:"parameters"`
}

type InternalTransaction struct {
	Hash     string `json:"hash"`
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   int64  `json:"amount"`
	Note     string `json:"note,omitempty"`
	Rejected bool   `json:"rejected,omitempty"`
}

// Analysis holds relationship data computed within a single block.
type Analysis struct {
	RelatedTransactions []string `json:"relatedTransactions"`
	RelatedAddresses    []string `json:"relatedAddresses"`
	Patterns            []string `json:"patterns,omitempty"`
	ClusterID           *string  `json:"clusterId,omitempty"`
}

// TransactionRecord is the canonical, provider independent transaction shape.
// TxID is globally unique; persistence upserts on it.
type TransactionRecord struct {
	TxID                 string                `json:"txId"`
	BlockNumber          uint64                `json:"blockNumber"`
	Timestamp            time.Time             `json:"timestamp"`
	Type                 ContractType          `json:"type"`
	SubType              string                `json:"subType,omitempty"`
	Result               string                `json:"result,omitempty"`
	From                 Party                 `json:"from"`
	To                   Party                 `json:"to"`
	Amount               int64                 `json:"amount"`
	AmountMajorUnit      decimal.Decimal       `json:"amountMajorUnit"`
	AmountQuote          *decimal.Decimal      `json:"amountQuote,omitempty"`
	Energy               *Resource             `json:"energy,omitempty"`
	Bandwidth            *Resource             `json:"bandwidth,omitempty"`
	ContractDescription  ContractDescription   `json:"contractDescription"`
	Memo                 string                `json:"memo,omitempty"`
	InternalTransactions []InternalTransaction `json:"internalTransactions"`
	Analysis             Analysis              `json:"analysis"`
}

// Addresses returns the non-empty distinct addresses of both parties.
func (r *TransactionRecord) Addresses() []string {
	out := make([]string, 0, 2)
	if r.From.Address != "" {
		out = append(out, r.From.Address)
	}
	if r.To.Address != "" && r.To.Address != r.From.Address {
		out = append(out, r.To.Address)
	}
	return out
}
