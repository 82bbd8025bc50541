package domain

import (
	"encoding/json"
	"time"
)

// RawBlock is a block as returned by the fetch client, before validation.
type RawBlock struct {
	BlockID        string
	Number         uint64
	ParentHash     string
	WitnessAddress string
	// Timestamp is the header value as reported upstream (ms, µs or ns). Zero means absent.
	Timestamp    int64
	Size         int
	Transactions []RawTransaction
	Raw          json.RawMessage
}

// BlockStats aggregates per-block counts derived from normalized transactions.
type BlockStats struct {
	Transactions         int   `json:"transactions"`
	Transfers            int   `json:"transfers"`
	ContractCalls        int   `json:"contractCalls"`
	Delegations          int   `json:"delegations"`
	Stakes               int   `json:"stakes"`
	TokenCreations       int   `json:"tokenCreations"`
	InternalTransactions int   `json:"internalTransactions"`
	Skipped              int   `json:"skipped"`
	Corrupt              int   `json:"corrupt"`
	EnergyUsed           int64 `json:"energyUsed"`
	EnergyCost           int64 `json:"energyCost"`
	BandwidthUsed        int64 `json:"bandwidthUsed"`
	BandwidthCost        int64 `json:"bandwidthCost"`
}

// BlockRecord is the persisted form of a processed block.
type BlockRecord struct {
	BlockNumber      uint64     `json:"blockNumber"`
	BlockID          string     `json:"blockId"`
	ParentHash       string     `json:"parentHash"`
	WitnessAddress   string     `json:"witnessAddress"`
	Timestamp        time.Time  `json:"timestamp"`
	TransactionCount int        `json:"transactionCount"`
	Size             int        `json:"size"`
	Stats            BlockStats `json:"stats"`
	ProcessedAt      time.Time  `json:"processedAt"`
}
