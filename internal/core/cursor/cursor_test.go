package cursor

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/infra/storage/memory"
)

func newTestManager(t *testing.T) (*DefaultManager, *memory.SyncStateRepo) {
	t.Helper()
	repo := memory.NewSyncStateRepo(memory.NewMemoryStorage())
	return NewManager(repo, DefaultLiveLag), repo
}

func u64(v uint64) *uint64 { return &v }

// =============================================================================
// Phase Tests
// =============================================================================

func TestPhaseOf(t *testing.T) {
	tests := []struct {
		name     string
		state    *domain.SyncState
		expected Phase
	}{
		{"no state", nil, PhaseInit},
		{"at head", &domain.SyncState{CursorBlock: 1000, LastNetworkHeight: 1000}, PhaseLive},
		{"small lag", &domain.SyncState{CursorBlock: 990, LastNetworkHeight: 1000}, PhaseLive},
		{"far behind", &domain.SyncState{CursorBlock: 900, LastNetworkHeight: 1000}, PhaseCatchup},
		{"far behind with backfill", &domain.SyncState{CursorBlock: 900, LastNetworkHeight: 1000, Backfill: []uint64{5}}, PhaseCatchup},
		{"backfill pending", &domain.SyncState{CursorBlock: 1000, LastNetworkHeight: 1000, Backfill: []uint64{997}}, PhaseBackfill},
		{"parity ahead", &domain.SyncState{CursorBlock: 1000, LastNetworkHeight: 1010, ParityTarget: u64(1005)}, PhaseParity},
		{"parity reached", &domain.SyncState{CursorBlock: 1000, LastNetworkHeight: 1000, ParityTarget: u64(1000)}, PhaseLive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PhaseOf(tt.state, DefaultLiveLag); got != tt.expected {
				t.Errorf("PhaseOf() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestPhaseDescription(t *testing.T) {
	for _, p := range []Phase{PhaseInit, PhaseLive, PhaseCatchup, PhaseBackfill, PhaseParity} {
		if PhaseDescription(p) == "Unknown phase" {
			t.Errorf("missing description for %s", p)
		}
	}
}

// =============================================================================
// Manager Tests
// =============================================================================

func TestManagerLoad_NotFound(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.Load(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if manager.Phase() != PhaseInit {
		t.Errorf("expected init phase, got %s", manager.Phase())
	}
}

func TestManagerInitialize_StartsAtHead(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	state, err := manager.Initialize(ctx, 1000)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if state.CursorBlock != 1000 {
		t.Errorf("expected cursor 1000, got %d", state.CursorBlock)
	}
	if len(state.Backfill) != 0 {
		t.Errorf("fresh install must not backfill history, got %v", state.Backfill)
	}

	// A second Initialize keeps what is stored
	if err := manager.Advance(ctx, 1010); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	state, err = manager.Initialize(ctx, 2000)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if state.CursorBlock != 1010 {
		t.Errorf("expected existing cursor 1010, got %d", state.CursorBlock)
	}
}

func TestManagerAdvance_MaxMergeAndPull(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	_, _ = manager.Initialize(ctx, 500)
	_ = manager.AddBackfill(ctx, []uint64{497, 499})

	// A backfill block below the cursor leaves the cursor alone
	if err := manager.Advance(ctx, 497); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	state, _ := manager.Load(ctx)
	if state.CursorBlock != 500 {
		t.Errorf("expected cursor 500, got %d", state.CursorBlock)
	}
	if len(state.Backfill) != 1 || state.Backfill[0] != 499 {
		t.Errorf("expected backfill [499], got %v", state.Backfill)
	}

	if err := manager.Advance(ctx, 503); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	state, _ = manager.Load(ctx)
	if state.CursorBlock != 503 {
		t.Errorf("expected cursor 503, got %d", state.CursorBlock)
	}
}

func TestManagerAdvance_MonotonicUnderConcurrency(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	_, _ = manager.Initialize(ctx, 100)

	blocks := make([]uint64, 0, 50)
	for b := uint64(101); b <= 150; b++ {
		blocks = append(blocks, b)
	}
	rand.New(rand.NewSource(7)).Shuffle(len(blocks), func(i, j int) {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	})

	var wg sync.WaitGroup
	for _, b := range blocks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := manager.Advance(ctx, b); err != nil {
				t.Errorf("Advance(%d) failed: %v", b, err)
			}
		}()
	}
	wg.Wait()

	state, _ := manager.Load(ctx)
	if state.CursorBlock != 150 {
		t.Errorf("expected cursor 150 regardless of completion order, got %d", state.CursorBlock)
	}
}

func TestManagerBackfillOperations(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	_, _ = manager.Initialize(ctx, 600)

	_ = manager.AddBackfill(ctx, []uint64{610, 497, 499, 499})
	_ = manager.RemoveBackfill(ctx, []uint64{497})
	_ = manager.TrimBackfill(ctx, 600)

	state, _ := manager.Load(ctx)
	if len(state.Backfill) != 1 || state.Backfill[0] != 499 {
		t.Errorf("expected backfill [499], got %v", state.Backfill)
	}

	// empty input is a no-op even before the state exists
	empty, _ := newTestManager(t)
	if err := empty.AddBackfill(ctx, nil); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestManagerParityAndHeight(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	_, _ = manager.Initialize(ctx, 1000)

	_ = manager.SetNetworkHeight(ctx, 1200)
	_ = manager.SetParityTarget(ctx, u64(1100))

	state, _ := manager.Load(ctx)
	if state.LastNetworkHeight != 1200 {
		t.Errorf("expected height 1200, got %d", state.LastNetworkHeight)
	}
	if state.ParityTarget == nil || *state.ParityTarget != 1100 {
		t.Errorf("expected parity 1100, got %v", state.ParityTarget)
	}

	_ = manager.SetParityTarget(ctx, nil)
	state, _ = manager.Load(ctx)
	if state.ParityTarget != nil {
		t.Errorf("expected parity cleared, got %d", *state.ParityTarget)
	}
}

func TestManagerPhaseCallback(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	var transitions []Transition
	manager.SetPhaseChangeCallback(func(t Transition) {
		transitions = append(transitions, t)
	})

	_, _ = manager.Initialize(ctx, 1000)
	_ = manager.SetNetworkHeight(ctx, 1500)
	_, _ = manager.Load(ctx)
	_, _ = manager.Load(ctx)

	if len(transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(transitions))
	}
	if transitions[0].From != PhaseInit || transitions[0].To != PhaseLive {
		t.Errorf("unexpected first transition %s -> %s", transitions[0].From, transitions[0].To)
	}
	if transitions[1].To != PhaseCatchup {
		t.Errorf("expected catchup, got %s", transitions[1].To)
	}
	if len(manager.GetMetrics().PhaseHistory) != 2 {
		t.Errorf("expected phase history of 2")
	}
}

// =============================================================================
// Metrics Tests
// =============================================================================

func TestRateTracker(t *testing.T) {
	r := newRateTracker(10)

	now := time.Now()
	for i := 0; i < 5; i++ {
		r.advanced(now.Add(time.Duration(i) * time.Second))
	}

	metrics := r.snapshot()

	if metrics.BlocksPerSecond < 0.5 || metrics.BlocksPerSecond > 2.0 {
		t.Errorf("expected ~1 block/sec, got %f", metrics.BlocksPerSecond)
	}
	if metrics.AverageBlockTime != time.Second {
		t.Errorf("expected 1s average, got %v", metrics.AverageBlockTime)
	}
}

func TestRateTracker_SingleAdvance(t *testing.T) {
	r := newRateTracker(10)
	r.advanced(time.Now())
	if m := r.snapshot(); m.BlocksPerSecond != 0 || m.AverageBlockTime != 0 {
		t.Errorf("expected no rate from one advance, got %+v", m)
	}
}

func TestRateTracker_WindowWraps(t *testing.T) {
	r := newRateTracker(3)
	now := time.Now()

	// Slow start, then a fast tail that fills the window
	r.advanced(now)
	r.advanced(now.Add(time.Minute))
	for i := 1; i <= 3; i++ {
		r.advanced(now.Add(time.Minute + time.Duration(i)*500*time.Millisecond))
	}

	m := r.snapshot()
	if m.AverageBlockTime != 500*time.Millisecond {
		t.Errorf("expected only the last 3 advances to count, got %v", m.AverageBlockTime)
	}
	if m.BlocksPerSecond != 2 {
		t.Errorf("expected 2 blocks/sec, got %f", m.BlocksPerSecond)
	}
}

func TestRateTracker_PhaseHistory(t *testing.T) {
	r := newRateTracker(10)

	if m := r.snapshot(); m.LastPhaseChange != nil {
		t.Error("expected no phase change yet")
	}

	for i := 0; i < maxPhaseHistory+2; i++ {
		r.changed(NewTransition(PhaseLive, PhaseCatchup, "lag"))
	}
	last := NewTransition(PhaseCatchup, PhaseLive, "caught up")
	r.changed(last)

	metrics := r.snapshot()
	if len(metrics.PhaseHistory) != maxPhaseHistory {
		t.Errorf("expected %d transitions, got %d", maxPhaseHistory, len(metrics.PhaseHistory))
	}
	if metrics.PhaseHistory[maxPhaseHistory-1].To != PhaseLive {
		t.Error("expected the newest transition last")
	}
	if metrics.LastPhaseChange == nil || !metrics.LastPhaseChange.Equal(last.Timestamp) {
		t.Error("expected LastPhaseChange to be the newest transition")
	}
}
