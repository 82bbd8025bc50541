package domain

import (
	"encoding/json"
	"time"
)

// CorruptEntry is an append-only record of data that could not be processed.
type CorruptEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	BlockNumber uint64          `json:"blockNumber"`
	TxID        string          `json:"txId,omitempty"`
	Error       string          `json:"error"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}
