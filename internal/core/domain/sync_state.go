package domain

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// SyncError is the last block failure recorded on SyncState.
type SyncError struct {
	Message string    `json:"message"`
	Cause   string    `json:"cause,omitempty"`
	Block   uint64    `json:"block,omitempty"`
	At      time.Time `json:"at"`
}

// SyncState is the single process-wide ingestion position.
// CursorBlock only moves forward. Backfill entries are in (0, LastNetworkHeight].
type SyncState struct {
	CursorBlock       uint64     `json:"cursorBlock"`
	Backfill          []uint64   `json:"backfillQueue"`
	ParityTarget      *uint64    `json:"parityTarget,omitempty"`
	LastNetworkHeight uint64     `json:"lastNetworkHeight"`
	LastError         *SyncError `json:"lastError,omitempty"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Lag is the distance between the chain head and the cursor.
func (s *SyncState) Lag() uint64 {
	if s.LastNetworkHeight <= s.CursorBlock {
		return 0
	}
	return s.LastNetworkHeight - s.CursorBlock
}
