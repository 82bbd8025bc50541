package cursor

import (
	"time"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// Phase is the ingestion phase derived from SyncState.
type Phase string

const (
	PhaseInit     Phase = "init"
	PhaseLive     Phase = "live"
	PhaseCatchup  Phase = "catchup"
	PhaseBackfill Phase = "backfill"
	PhaseParity   Phase = "parity"
)

// PhaseOf derives the phase of s. A nil state means SyncState was never created.
// Lag beyond liveLag wins over pending backfill, which wins over a parity target.
func PhaseOf(s *domain.SyncState, liveLag uint64) Phase {
	switch {
	case s == nil:
		return PhaseInit
	case s.Lag() > liveLag:
		return PhaseCatchup
	case len(s.Backfill) > 0:
		return PhaseBackfill
	case s.ParityTarget != nil && *s.ParityTarget > s.CursorBlock:
		return PhaseParity
	default:
		return PhaseLive
	}
}

// Transition represents a phase change with metadata.
type Transition struct {
	From      Phase
	To        Phase
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to Phase, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// PhaseDescription returns a human-readable description of a phase.
func PhaseDescription(p Phase) string {
	switch p {
	case PhaseInit:
		return "Initializing - no sync state yet"
	case PhaseLive:
		return "Live - following the chain head"
	case PhaseCatchup:
		return "Catching up - behind chain tip, moving fast"
	case PhaseBackfill:
		return "Backfilling - processing missed or failed blocks"
	case PhaseParity:
		return "Parity - advancing toward an operator set target"
	default:
		return "Unknown phase"
	}
}
