// Package scheduler decides which blocks to process next and submits them to
// the job queue. One instance at a time schedules, guarded by a distributed lock.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/tronwatch/internal/core/cursor"
	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/indexing/backfill"
	"github.com/vietddude/tronwatch/internal/indexing/metrics"
	"github.com/vietddude/tronwatch/internal/infra/queue"
)

// Locker is the coordination lock.
type Locker interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// CooldownChecker reports which blocks failed recently.
type CooldownChecker interface {
	Active(ctx context.Context, blocks []uint64) (map[uint64]bool, error)
}

// HeadSource returns the latest block number of the chain.
type HeadSource interface {
	GetChainHead(ctx context.Context) (uint64, error)
}

// GapScanner finds missing blocks below the cursor.
type GapScanner interface {
	Scan(ctx context.Context, cursor uint64) ([]uint64, error)
}

// Config holds scheduler settings.
type Config struct {
	Interval          time.Duration
	BatchSize         int
	MaxParityBackfill int
	LockKey           string
	LockTTL           time.Duration
}

// DefaultConfig returns the defaults used when a field is zero.
func DefaultConfig() Config {
	return Config{
		Interval:          3 * time.Second,
		BatchSize:         20,
		MaxParityBackfill: 1000,
		LockKey:           "tronwatch:scheduler:lock",
		LockTTL:           30 * time.Second,
	}
}

// TickResult summarizes one tick.
type TickResult struct {
	TickID      string
	Skipped     bool
	Initialized bool
	Head        uint64
	Cursor      uint64
	Gaps        int
	Targets     []uint64
	Enqueued    []uint64
	Duplicates  []uint64
	CooledDown  []uint64
	Failed      []uint64
	Remaining   []uint64
}

// Scheduler runs target selection on a timer.
type Scheduler struct {
	cfg      Config
	locker   Locker
	cursor   cursor.Manager
	head     HeadSource
	gaps     GapScanner
	cooldown CooldownChecker
	queue    queue.Enqueuer
	onHead   func(uint64)
	logger   *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithHeadObserver is called with every chain head the scheduler fetches.
func WithHeadObserver(fn func(uint64)) Option {
	return func(s *Scheduler) { s.onHead = fn }
}

func New(
	cfg Config,
	locker Locker,
	cursorMgr cursor.Manager,
	head HeadSource,
	gaps GapScanner,
	cooldown CooldownChecker,
	enqueuer queue.Enqueuer,
	opts ...Option,
) *Scheduler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.LockKey == "" {
		cfg.LockKey = def.LockKey
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = def.LockTTL
	}
	s := &Scheduler{
		cfg:      cfg,
		locker:   locker,
		cursor:   cursorMgr,
		head:     head,
		gaps:     gaps,
		cooldown: cooldown,
		queue:    enqueuer,
		logger:   slog.Default().With("component", "scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks immediately and then every Interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started", "interval", s.cfg.Interval, "batch_size", s.cfg.BatchSize)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Scheduler tick failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one scheduling pass. Lock contention is not an error: the result
// is marked Skipped.
func (s *Scheduler) Tick(ctx context.Context) (*TickResult, error) {
	res := &TickResult{TickID: uuid.NewString()}

	ok, err := s.locker.Acquire(ctx, s.cfg.LockKey, res.TickID, s.cfg.LockTTL)
	if err != nil {
		metrics.SchedulerTicks.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to acquire scheduler lock: %w", err)
	}
	if !ok {
		metrics.SchedulerTicks.WithLabelValues("contended").Inc()
		s.logger.Debug("Scheduler lock held elsewhere, skipping tick")
		res.Skipped = true
		return res, nil
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, s.cfg.LockKey, res.TickID); err != nil {
			s.logger.Warn("Failed to release scheduler lock", "error", err)
		}
	}()

	if err := s.schedule(ctx, res); err != nil {
		metrics.SchedulerTicks.WithLabelValues("error").Inc()
		return res, err
	}
	metrics.SchedulerTicks.WithLabelValues("ok").Inc()
	return res, nil
}

func (s *Scheduler) schedule(ctx context.Context, res *TickResult) error {
	head, err := s.head.GetChainHead(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain head: %w", err)
	}
	res.Head = head
	if s.onHead != nil {
		s.onHead(head)
	}

	state, err := s.cursor.Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		state, err = s.cursor.Initialize(ctx, head)
		res.Initialized = true
	}
	if err != nil {
		return fmt.Errorf("failed to load sync state: %w", err)
	}
	res.Cursor = state.CursorBlock

	if err := s.cursor.SetNetworkHeight(ctx, head); err != nil {
		return err
	}

	gaps, err := s.gaps.Scan(ctx, state.CursorBlock)
	if err != nil {
		s.logger.Warn("Gap scan failed, continuing without it", "error", err)
	}
	res.Gaps = len(gaps)
	if len(gaps) > 0 {
		s.logger.Debug("Gaps detected", "ranges", backfill.Ranges(gaps))
	}

	sel := Select(Input{
		Cursor:            state.CursorBlock,
		Backfill:          state.Backfill,
		Parity:            state.ParityTarget,
		Height:            head,
		BatchSize:         s.cfg.BatchSize,
		Gaps:              gaps,
		MaxParityBackfill: s.cfg.MaxParityBackfill,
	})
	res.Targets = sel.Targets
	res.Remaining = sel.Remaining

	if err := s.persist(ctx, sel, head); err != nil {
		return err
	}

	targets := s.withoutCooldown(ctx, sel.Targets, res)
	for _, b := range targets {
		err := s.queue.Enqueue(ctx, b)
		switch {
		case err == nil:
			res.Enqueued = append(res.Enqueued, b)
			metrics.TargetsEnqueued.WithLabelValues(string(sel.Sources[b])).Inc()
		case errors.Is(err, queue.ErrDuplicateTask):
			res.Duplicates = append(res.Duplicates, b)
		default:
			s.logger.Warn("Failed to enqueue block", "block", b, "error", err)
			res.Failed = append(res.Failed, b)
		}
	}

	// Blocks not handed to the queue go back to backfill so they are not lost
	// once the cursor moves past them.
	if err := s.cursor.AddBackfill(ctx, slices.Concat(res.CooledDown, res.Failed)); err != nil {
		return err
	}

	if len(res.Enqueued) > 0 || len(res.Failed) > 0 {
		s.logger.Info("Blocks scheduled",
			"head", head,
			"cursor", state.CursorBlock,
			"enqueued", len(res.Enqueued),
			"cooldown", len(res.CooledDown),
			"failed", len(res.Failed),
			"backfill", len(sel.Remaining),
		)
	}
	return nil
}

// persist applies the selection to the stored backfill set and parity target.
func (s *Scheduler) persist(ctx context.Context, sel Selection, head uint64) error {
	if err := s.cursor.AddBackfill(ctx, sel.NewBackfill); err != nil {
		return err
	}
	if err := s.cursor.RemoveBackfill(ctx, sel.FromBackfill); err != nil {
		return err
	}
	if err := s.cursor.TrimBackfill(ctx, head); err != nil {
		return err
	}
	if sel.ClearParity {
		if err := s.cursor.SetParityTarget(ctx, nil); err != nil {
			return err
		}
		s.logger.Info("Parity target reached, cleared")
	}
	return nil
}

// withoutCooldown drops blocks that failed recently. A failing cooldown store
// filters nothing.
func (s *Scheduler) withoutCooldown(ctx context.Context, targets []uint64, res *TickResult) []uint64 {
	if len(targets) == 0 {
		return nil
	}
	active, err := s.cooldown.Active(ctx, targets)
	if err != nil {
		s.logger.Warn("Cooldown lookup failed", "error", err)
		return targets
	}
	out := make([]uint64, 0, len(targets))
	for _, b := range targets {
		if active[b] {
			res.CooledDown = append(res.CooledDown, b)
			continue
		}
		out = append(out, b)
	}
	return out
}
