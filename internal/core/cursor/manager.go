package cursor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/indexing/metrics"
	"github.com/vietddude/tronwatch/internal/infra/storage"
)

// Manager handles SyncState operations.
type Manager interface {
	// Load returns the stored state, domain.ErrNotFound before Initialize.
	Load(ctx context.Context) (*domain.SyncState, error)

	// Initialize creates the state with the cursor at head. Existing state is kept.
	Initialize(ctx context.Context, head uint64) (*domain.SyncState, error)

	// Advance stores max(cursor, block) and pulls block from backfill.
	Advance(ctx context.Context, block uint64) error

	// AddBackfill adds blocks to the backfill set.
	AddBackfill(ctx context.Context, blocks []uint64) error

	// RemoveBackfill pulls blocks from the backfill set.
	RemoveBackfill(ctx context.Context, blocks []uint64) error

	// TrimBackfill drops entries above height.
	TrimBackfill(ctx context.Context, height uint64) error

	// SetNetworkHeight records the latest chain head.
	SetNetworkHeight(ctx context.Context, height uint64) error

	// SetParityTarget sets or, with nil, clears the parity target.
	SetParityTarget(ctx context.Context, target *uint64) error

	// GetMetrics returns throughput metrics.
	GetMetrics() Metrics

	// SetPhaseChangeCallback registers callback for phase changes.
	SetPhaseChangeCallback(fn func(t Transition))
}

// DefaultManager implements Manager on a SyncStateRepository.
type DefaultManager struct {
	repo    storage.SyncStateRepository
	liveLag uint64
	logger  *slog.Logger

	mu            sync.Mutex
	phase         Phase
	phaseCallback func(Transition)
	rate          *rateTracker
}

func (m *DefaultManager) Load(ctx context.Context) (*domain.SyncState, error) {
	state, err := m.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	m.observe(state)
	return state, nil
}

func (m *DefaultManager) Initialize(ctx context.Context, head uint64) (*domain.SyncState, error) {
	state, err := m.repo.Create(ctx, head, head)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync state: %w", err)
	}
	m.logger.Info("Sync state initialized", "cursor", state.CursorBlock, "head", head)
	m.observe(state)
	return state, nil
}

func (m *DefaultManager) Advance(ctx context.Context, block uint64) error {
	if err := m.repo.AdvanceCursor(ctx, block); err != nil {
		return fmt.Errorf("failed to advance cursor to %d: %w", block, err)
	}
	m.mu.Lock()
	m.rate.advanced(time.Now())
	m.mu.Unlock()
	return nil
}

func (m *DefaultManager) AddBackfill(ctx context.Context, blocks []uint64) error {
	if len(blocks) == 0 {
		return nil
	}
	if err := m.repo.AddBackfill(ctx, blocks); err != nil {
		return fmt.Errorf("failed to add %d blocks to backfill: %w", len(blocks), err)
	}
	return nil
}

func (m *DefaultManager) RemoveBackfill(ctx context.Context, blocks []uint64) error {
	if len(blocks) == 0 {
		return nil
	}
	if err := m.repo.RemoveBackfill(ctx, blocks); err != nil {
		return fmt.Errorf("failed to remove %d blocks from backfill: %w", len(blocks), err)
	}
	return nil
}

func (m *DefaultManager) TrimBackfill(ctx context.Context, height uint64) error {
	if err := m.repo.TrimBackfill(ctx, height); err != nil {
		return fmt.Errorf("failed to trim backfill: %w", err)
	}
	return nil
}

func (m *DefaultManager) SetNetworkHeight(ctx context.Context, height uint64) error {
	if err := m.repo.SetNetworkHeight(ctx, height); err != nil {
		return fmt.Errorf("failed to set network height: %w", err)
	}
	metrics.ChainLatestBlock.Set(float64(height))
	return nil
}

func (m *DefaultManager) SetParityTarget(ctx context.Context, target *uint64) error {
	if err := m.repo.SetParityTarget(ctx, target); err != nil {
		return fmt.Errorf("failed to set parity target: %w", err)
	}
	return nil
}

func (m *DefaultManager) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate.snapshot()
}

func (m *DefaultManager) SetPhaseChangeCallback(fn func(t Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phaseCallback = fn
}

// Phase returns the phase seen by the last Load.
func (m *DefaultManager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// observe updates gauges and records a phase change.
func (m *DefaultManager) observe(state *domain.SyncState) {
	metrics.CursorBlock.Set(float64(state.CursorBlock))
	metrics.BackfillSize.Set(float64(len(state.Backfill)))

	next := PhaseOf(state, m.liveLag)

	m.mu.Lock()
	if next == m.phase {
		m.mu.Unlock()
		return
	}
	t := NewTransition(m.phase, next, fmt.Sprintf("lag=%d backfill=%d", state.Lag(), len(state.Backfill)))
	m.phase = next
	m.rate.changed(t)
	callback := m.phaseCallback
	m.mu.Unlock()

	m.logger.Info("Ingestion phase changed", "from", t.From, "to", t.To, "reason", t.Reason)
	if callback != nil {
		callback(t)
	}
}
