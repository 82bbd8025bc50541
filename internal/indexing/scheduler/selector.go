package scheduler

import (
	"slices"
)

// Source says which rule selected a target.
type Source string

const (
	SourceBackfill Source = "backfill"
	SourceForward  Source = "forward"
)

// Input is everything target selection looks at.
type Input struct {
	Cursor   uint64
	Backfill []uint64
	Parity   *uint64
	Height   uint64
	// BatchSize caps the number of targets.
	BatchSize int
	// Gaps are missing blocks found by the gap scan.
	Gaps []uint64
	// MaxParityBackfill caps how many parity blocks are added to backfill per
	// tick; 0 means no cap.
	MaxParityBackfill int
}

// Selection is the outcome of one selection pass.
type Selection struct {
	// Targets is sorted ascending and holds each block once.
	Targets []uint64
	Sources map[uint64]Source

	// FromBackfill are selected blocks to pull from the stored backfill set.
	FromBackfill []uint64
	// NewBackfill are unselected gap blocks and parity overflow to add to it.
	// The two lists are disjoint, so they can be applied in any order.
	NewBackfill []uint64
	// Remaining is the backfill set after the pass.
	Remaining []uint64

	// ClearParity is set once the cursor has reached the parity target.
	ClearParity bool
}

// Select picks up to BatchSize blocks. Backfill entries come first in
// ascending order, then sequential blocks after the cursor up to the height,
// Blocks up to min(parity, height) that do not fit are carried into the
// backfill set for later ticks. Backfill entries of zero or above the
// height are ignored.
func Select(in Input) Selection {
	sel := Selection{Sources: make(map[uint64]Source)}
	limit := max(in.BatchSize, 0)

	stored := make(map[uint64]bool, len(in.Backfill))
	known := make(map[uint64]bool, len(in.Backfill)+len(in.Gaps))
	pending := make([]uint64, 0, len(in.Backfill)+len(in.Gaps))
	for _, b := range in.Backfill {
		stored[b] = true
	}
	for _, b := range slices.Concat(in.Backfill, in.Gaps) {
		if known[b] || !valid(b, in.Height) {
			continue
		}
		known[b] = true
		pending = append(pending, b)
	}
	slices.Sort(pending)

	pick := func(b uint64, src Source) {
		sel.Targets = append(sel.Targets, b)
		sel.Sources[b] = src
	}

	for _, b := range pending {
		if len(sel.Targets) >= limit {
			break
		}
		pick(b, SourceBackfill)
		if stored[b] {
			sel.FromBackfill = append(sel.FromBackfill, b)
		}
	}

	for b := in.Cursor + 1; b <= in.Height && len(sel.Targets) < limit; b++ {
		if _, taken := sel.Sources[b]; !taken {
			pick(b, SourceForward)
		}
	}

	var overflow []uint64
	if in.Parity != nil {
		if *in.Parity <= in.Cursor {
			sel.ClearParity = true
		} else {
			overflow = parityOverflow(&sel, in, known)
		}
	}

	for _, b := range pending {
		if _, taken := sel.Sources[b]; taken {
			continue
		}
		sel.Remaining = append(sel.Remaining, b)
		if !stored[b] {
			sel.NewBackfill = append(sel.NewBackfill, b)
		}
	}
	sel.NewBackfill = append(sel.NewBackfill, overflow...)
	sel.Remaining = append(sel.Remaining, overflow...)

	slices.Sort(sel.Targets)
	slices.Sort(sel.NewBackfill)
	slices.Sort(sel.Remaining)
	return sel
}

// parityOverflow returns the blocks in cursor+1..min(parity, height) that are
// neither selected nor pending. Forward selection has already taken every
// block of that range that fits in the batch.
func parityOverflow(sel *Selection, in Input, known map[uint64]bool) []uint64 {
	end := min(*in.Parity, in.Height)
	var overflow []uint64
	for b := in.Cursor + 1; b <= end; b++ {
		if _, taken := sel.Sources[b]; taken || known[b] {
			continue
		}
		if in.MaxParityBackfill > 0 && len(overflow) >= in.MaxParityBackfill {
			break
		}
		overflow = append(overflow, b)
	}
	return overflow
}

func valid(b, height uint64) bool {
	return b > 0 && b <= height
}
