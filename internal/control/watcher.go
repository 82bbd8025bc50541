package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/tronwatch/internal/core/config"
	"github.com/vietddude/tronwatch/internal/core/cursor"
	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/indexing/backfill"
	"github.com/vietddude/tronwatch/internal/indexing/emitter"
	"github.com/vietddude/tronwatch/internal/indexing/filter"
	"github.com/vietddude/tronwatch/internal/indexing/health"
	"github.com/vietddude/tronwatch/internal/indexing/indexer"
	"github.com/vietddude/tronwatch/internal/indexing/normalizer"
	"github.com/vietddude/tronwatch/internal/indexing/observer"
	"github.com/vietddude/tronwatch/internal/indexing/recovery"
	"github.com/vietddude/tronwatch/internal/indexing/scheduler"
	"github.com/vietddude/tronwatch/internal/indexing/throttle"
	"github.com/vietddude/tronwatch/internal/infra/chain/tron"
	"github.com/vietddude/tronwatch/internal/infra/insight"
	"github.com/vietddude/tronwatch/internal/infra/queue"
	redisclient "github.com/vietddude/tronwatch/internal/infra/redis"
	"github.com/vietddude/tronwatch/internal/infra/rpc"
	"github.com/vietddude/tronwatch/internal/infra/storage/memory"
)

// Coordinator is the lock and cooldown backend shared by scheduler and pipeline.
type Coordinator interface {
	scheduler.Locker
	scheduler.CooldownChecker
	recovery.CooldownWriter
}

type cooldowns interface {
	scheduler.CooldownChecker
	recovery.CooldownWriter
}

type coordination struct {
	scheduler.Locker
	cooldowns
}

// Watcher is the main application struct that manages the ingestion lifecycle.
type Watcher struct {
	cfg *config.AppConfig

	stores     *Stores
	redis      *redisclient.Client
	rpc        *rpc.Client
	prices     *insight.PriceService
	queue      queue.Queue
	cursor     *cursor.DefaultManager
	processor  *indexer.Processor
	scheduler  *scheduler.Scheduler
	dispatcher *observer.Dispatcher
	memCool    *memory.CooldownStore

	healthMon    *health.Monitor
	healthServer *health.Server
	log          *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
	done   chan struct{}
	runErr error
}

// NewWatcher wires every component from cfg. Without a Redis URL the lock,
// cooldown store and job queue live in process memory.
func NewWatcher(ctx context.Context, cfg *config.AppConfig) (*Watcher, error) {
	log := slog.Default().With("component", "watcher")

	// 1. Storage
	stores, err := OpenStores(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	w := &Watcher{cfg: cfg, stores: stores, log: log}

	w.cursor = cursor.NewManager(stores.State, cursor.DefaultLiveLag)
	w.cursor.SetPhaseChangeCallback(func(t cursor.Transition) {
		if t.To == cursor.PhaseLive && t.From != cursor.PhaseInit {
			log.Info("Caught up with chain head")
		}
	})

	// 2. Coordination and job queue
	var coord Coordinator
	if cfg.Redis.URL != "" {
		w.redis, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			w.Close()
			return nil, err
		}
		coord = coordination{
			Locker:    redisclient.NewLocker(w.redis),
			cooldowns: redisclient.NewCooldownStore(w.redis),
		}
		aq, err := queue.NewAsynqQueue(cfg.Redis.URL, cfg.Redis.Password, cfg.Queue.Name)
		if err != nil {
			w.Close()
			return nil, err
		}
		w.queue = aq
		log.Info("Using Redis coordination", "queue", cfg.Queue.Name)
	} else {
		w.memCool = memory.NewCooldownStore()
		coord = coordination{Locker: memory.NewLocker(), cooldowns: w.memCool}
		// Blocks still queued at shutdown go back to the backfill set
		w.queue = queue.NewLocalQueue(0, queue.WithRequeue(w.cursor.AddBackfill))
		log.Info("Using in-process coordination")
	}

	// 3. Fetch client
	providers := make([]*rpc.HTTPProvider, 0, len(cfg.Chain.Providers))
	for _, p := range cfg.Chain.Providers {
		providers = append(providers, rpc.NewHTTPProvider(p.Name, p.URL, p.APIKey, cfg.Chain.Timeout))
	}
	w.rpc = rpc.NewClient(providers, cfg.Chain.RateLimit, cfg.Chain.Burst, rpc.RetryConfig{
		MaxAttempts:     cfg.Chain.Retry.MaxAttempts,
		InitialDelay:    cfg.Chain.Retry.InitialDelay,
		MaxDelay:        cfg.Chain.Retry.MaxDelay,
		BackoffMultiple: rpc.DefaultRetryConfig.BackoffMultiple,
	})
	client := tron.NewClient(w.rpc)
	head := throttle.NewHeadCache(client, cfg.Pipeline.HeadCacheTTL)

	// 4. Broadcast and observers
	var broadcaster emitter.Broadcaster = emitter.NewLogEmitter()
	if w.redis != nil {
		broadcaster = redisclient.NewPublisher(w.redis)
	}
	w.dispatcher = observer.NewDispatcher(cfg.Observers.QueueSize)
	w.dispatcher.Register(observer.NewBroadcastObserver(broadcaster))
	w.dispatcher.Register(observer.NewWhaleObserver(broadcaster, cfg.Observers.WhaleThreshold))
	if watched := filter.NewMemoryFilter(cfg.Observers.WatchAddresses...); watched.Size() > 0 {
		w.dispatcher.Register(observer.NewWatchObserver(broadcaster, watched))
		log.Info("Watching addresses", "count", watched.Size())
	}

	// 5. Pipeline
	w.prices = insight.NewPriceService(cfg.Insight.PriceURL, cfg.Insight.PriceTTL)
	w.processor = indexer.NewProcessor(indexer.Config{
		Fetcher:      client,
		Normalizer:   normalizer.New(client, nil),
		Blocks:       stores.Blocks,
		Transactions: stores.Transactions,
		Corrupt:      stores.Corrupt,
		Cursor:       w.cursor,
		Recovery:     recovery.NewHandler(stores.State, coord, cfg.Pipeline.Cooldown),
		Throttle: throttle.NewController(head, throttle.Config{
			Window:       cfg.Pipeline.ThrottleWindow,
			Interval:     cfg.Pipeline.ThrottleInterval,
			HeadCacheTTL: cfg.Pipeline.HeadCacheTTL,
		}),
		Prices:      w.prices,
		Labels:      insight.NewAddressBook(stores.Labels, cfg.Insight.LabelTTL),
		Broadcaster: broadcaster,
		Observers:   w.dispatcher,
	})

	// 6. Scheduler
	w.scheduler = scheduler.New(
		scheduler.Config{
			Interval:          cfg.Scheduler.Interval,
			BatchSize:         cfg.Scheduler.BatchSize,
			MaxParityBackfill: cfg.Scheduler.MaxParityBackfill,
			LockKey:           cfg.Scheduler.LockKey,
			LockTTL:           cfg.Scheduler.LockTTL,
		},
		coord,
		w.cursor,
		client,
		backfill.NewDetector(stores.Blocks, cfg.Scheduler.MaxBackfillPerRun),
		coord,
		w.queue,
		scheduler.WithHeadObserver(head.Observe),
	)

	// 7. Health
	w.healthMon = health.NewMonitor(stores.State, w.dispatcher, w.rpc).WithThroughput(w.cursor)
	w.healthServer = health.NewServer(w.healthMon, cfg.Server.Port)

	return w, nil
}

// Start launches every background component and returns immediately.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.group != nil {
		return errors.New("watcher already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	w.cancel, w.group, w.done = cancel, g, make(chan struct{})

	g.Go(func() error { return w.dispatcher.Run(gctx) })
	g.Go(func() error { return w.queue.Run(gctx, w.processor.ProcessBlock) })
	g.Go(func() error { return w.scheduler.Run(gctx) })
	g.Go(w.healthServer.Start)

	if w.memCool != nil {
		g.Go(func() error {
			w.memCool.Start(gctx)
			return nil
		})
	}
	if w.stores.db != nil {
		w.stores.db.StartMetricsCollector(gctx)
	}

	// runErr is the first component error and is set before done closes
	go func(done chan struct{}) {
		w.runErr = g.Wait()
		close(done)
	}(w.done)

	w.log.Info("Watcher started", "port", w.cfg.Server.Port)
	return nil
}

// Stop shuts components down and waits for the running block job to finish.
func (w *Watcher) Stop(ctx context.Context) error {
	w.log.Info("Stopping Watcher...")

	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	var errs []error
	if err := w.healthServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("health server: %w", err))
	}
	if cancel != nil {
		cancel()
		select {
		case <-done:
			if w.runErr != nil {
				errs = append(errs, w.runErr)
			}
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("shutdown timed out: %w", ctx.Err()))
		}
	}
	errs = append(errs, w.Close())
	return errors.Join(errs...)
}

// Close releases connections without waiting for background work.
func (w *Watcher) Close() error {
	var errs []error
	if w.queue != nil {
		errs = append(errs, w.queue.Close())
	}
	if w.rpc != nil {
		errs = append(errs, w.rpc.Close())
	}
	if w.prices != nil {
		w.prices.Close()
	}
	if w.redis != nil {
		if err := w.redis.Close(); err != nil {
			w.log.Warn("Failed to close Redis", "error", err)
		}
	}
	errs = append(errs, w.stores.Close())
	return errors.Join(errs...)
}

// Tick runs a single scheduling pass.
func (w *Watcher) Tick(ctx context.Context) (*scheduler.TickResult, error) {
	return w.scheduler.Tick(ctx)
}

// ProcessBlock runs the pipeline for one block in the calling goroutine.
func (w *Watcher) ProcessBlock(ctx context.Context, block uint64) error {
	return w.processor.ProcessBlock(ctx, block)
}

// State returns the stored sync state.
func (w *Watcher) State(ctx context.Context) (*domain.SyncState, error) {
	return w.cursor.Load(ctx)
}

// Health returns the current health report.
func (w *Watcher) Health(ctx context.Context) health.Report {
	return w.healthMon.Check(ctx)
}

// Observers returns the dispatch queue statistics.
func (w *Watcher) Observers() []observer.Stats {
	return w.dispatcher.Stats()
}

// shutdownTimeout bounds Stop when called from the CLI.
const shutdownTimeout = 15 * time.Second

// Run starts the watcher and blocks until ctx is done or a component fails,
// then stops it. A component failure is part of the returned error.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}

	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	select {
	case <-ctx.Done():
	case <-done:
		w.log.Error("Component failed, shutting down", "error", w.runErr)
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return w.Stop(stopCtx)
}
