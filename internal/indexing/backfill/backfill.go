// Package backfill finds blocks below the cursor that were never stored.
//
// # Design: Minimize RPC Calls
//
// Gap detection uses the database only. RPC is only called when the scheduler
// enqueues a missing block and the pipeline fetches it.
//
// # Bounded scans
//
// Each scan looks at most MaxPerRun blocks behind the cursor and returns at
// most MaxPerRun numbers, so a large historical hole costs the same as a small
// one and is closed over several ticks as the window slides.
//
// # Usage
//
//	detector := backfill.NewDetector(blockRepo, 100)
//	missing, err := detector.Scan(ctx, state.CursorBlock)
package backfill

import (
	"fmt"
	"strconv"

	"github.com/vietddude/tronwatch/internal/infra/storage"
)

// DefaultMaxPerRun bounds the scan window and its result.
const DefaultMaxPerRun = 100

// Gap represents a range of missing blocks, both ends inclusive.
type Gap struct {
	FromBlock uint64
	ToBlock   uint64
}

func (g Gap) String() string {
	if g.FromBlock == g.ToBlock {
		return strconv.FormatUint(g.FromBlock, 10)
	}
	return fmt.Sprintf("%d-%d", g.FromBlock, g.ToBlock)
}

// NewDetector creates a new gap detector.
func NewDetector(blockRepo storage.BlockRepository, maxPerRun int) *Detector {
	if maxPerRun <= 0 {
		maxPerRun = DefaultMaxPerRun
	}
	return &Detector{
		blockRepo: blockRepo,
		maxPerRun: maxPerRun,
	}
}
