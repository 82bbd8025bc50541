// Package cursor tracks the ingestion position stored in SyncState.
//
// # Purpose
//
// The cursor is the "bookmark" of the last block processed in order. Next to
// it SyncState keeps the backfill set (blocks still owed below or around the
// cursor), an optional parity target and the last seen network height.
//
// # Key Features
//
// Max-merge Advance - Blocks complete in whatever order the job queue delivers
// them. Advance stores max(cursor, block) and pulls the block from backfill in a
// single atomic update, so concurrent completions never move the cursor back.
//
// Atomic set updates - Backfill is mutated with add/remove/trim operations on
// the stored row instead of read-modify-write.
//
// Phases - Each Load derives the ingestion phase (live, catching up,
// backfilling, parity) and reports changes to a callback.
//
// # Quick Start
//
//	manager := cursor.NewManager(syncStateRepo, cursor.DefaultLiveLag)
//
//	state, err := manager.Load(ctx)
//	if errors.Is(err, domain.ErrNotFound) {
//	    state, err = manager.Initialize(ctx, head) // start at the head, no history
//	}
//
//	manager.Advance(ctx, 1005) // cursor = max(cursor, 1005), backfill -= {1005}
//
// # Package Structure
//
//   - state.go   - Phase definitions and derivation
//   - manager.go - Manager implementation over storage.SyncStateRepository
//   - metrics.go - Throughput metrics (blocks/sec, phase history)
package cursor

import (
	"log/slog"

	"github.com/vietddude/tronwatch/internal/infra/storage"
)

// DefaultLiveLag is the largest lag, in blocks, still considered live.
const DefaultLiveLag = 20

// NewManager creates a new cursor manager with the given repository.
func NewManager(repo storage.SyncStateRepository, liveLag uint64) *DefaultManager {
	if liveLag == 0 {
		liveLag = DefaultLiveLag
	}
	return &DefaultManager{
		repo:    repo,
		liveLag: liveLag,
		phase:   PhaseInit,
		rate:    newRateTracker(100),
		logger:  slog.Default().With("component", "cursor"),
	}
}
