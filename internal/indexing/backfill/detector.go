package backfill

import (
	"context"
	"errors"
	"fmt"

	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/infra/storage"
)

// Detector finds gaps without making RPC calls.
type Detector struct {
	blockRepo storage.BlockRepository
	maxPerRun int
}

// Window returns the half-open range [from, to) scanned for cursor.
func (d *Detector) Window(cursor uint64) (from, to uint64) {
	if cursor <= 1 {
		return 1, 1
	}
	span := uint64(d.maxPerRun)
	from = 1
	if cursor > span+1 {
		from = cursor - span
	}
	return from, cursor
}

// Scan returns up to MaxPerRun block numbers in
// [max(cursor-MaxPerRun, 1), cursor) that have no stored block, ascending.
// Nothing below the lowest stored block counts as missing, so history before
// the first processed block is never scanned.
func (d *Detector) Scan(ctx context.Context, cursor uint64) ([]uint64, error) {
	from, to := d.Window(cursor)
	lowest, err := d.blockRepo.Lowest(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lowest block: %w", err)
	}
	from = max(from, lowest)
	if from >= to {
		return nil, nil
	}
	missing, err := d.blockRepo.MissingInRange(ctx, from, to, d.maxPerRun)
	if err != nil {
		return nil, fmt.Errorf("failed to scan blocks %d-%d: %w", from, to-1, err)
	}
	return missing, nil
}

// Ranges compresses sorted block numbers into contiguous gaps, for logging.
func Ranges(blocks []uint64) []Gap {
	var gaps []Gap
	for _, b := range blocks {
		if n := len(gaps); n > 0 && gaps[n-1].ToBlock+1 == b {
			gaps[n-1].ToBlock = b
			continue
		}
		gaps = append(gaps, Gap{FromBlock: b, ToBlock: b})
	}
	return gaps
}
