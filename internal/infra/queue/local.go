package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// requeueTimeout bounds handing undrained jobs back on shutdown.
const requeueTimeout = 5 * time.Second

// RequeueFunc takes back blocks that were queued but never handled.
type RequeueFunc func(ctx context.Context, blocks []uint64) error

// LocalOption configures a LocalQueue.
type LocalOption func(*LocalQueue)

// WithRequeue hands jobs still waiting at shutdown to fn, typically the
// cursor's backfill set, so they are scheduled again on the next start.
func WithRequeue(fn RequeueFunc) LocalOption {
	return func(q *LocalQueue) { q.requeueFn = fn }
}

// LocalQueue is an in-process queue for single-instance deployments. Jobs
// live only in memory: without WithRequeue they are lost on shutdown, and
// with it they are lost only if the process dies without shutting down.
type LocalQueue struct {
	jobs      chan uint64
	logger    *slog.Logger
	requeueFn RequeueFunc

	mu      sync.Mutex
	pending map[uint64]bool
}

// NewLocalQueue creates a queue buffering up to size jobs.
func NewLocalQueue(size int, opts ...LocalOption) *LocalQueue {
	if size <= 0 {
		size = 1024
	}
	q := &LocalQueue{
		jobs:    make(chan uint64, size),
		logger:  slog.Default().With("component", "queue"),
		pending: make(map[uint64]bool),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *LocalQueue) Enqueue(ctx context.Context, block uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending[block] {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, TaskID(block))
	}
	select {
	case q.jobs <- block:
		q.pending[block] = true
		return nil
	default:
		return ErrQueueFull
	}
}

// Run handles jobs one at a time until ctx is done, then requeues what is
// left.
func (q *LocalQueue) Run(ctx context.Context, handler Handler) error {
	defer q.requeue()
	for {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case block := <-q.jobs:
			if err := handler(ctx, block); err != nil {
				q.logger.Debug("Block job failed", "block", block, "error", err)
			}
			q.mu.Lock()
			delete(q.pending, block)
			q.mu.Unlock()
		}
	}
}

// requeue drains waiting jobs and hands them to the requeue func.
func (q *LocalQueue) requeue() {
	q.mu.Lock()
	var blocks []uint64
drain:
	for {
		select {
		case block := <-q.jobs:
			delete(q.pending, block)
			blocks = append(blocks, block)
		default:
			break drain
		}
	}
	q.mu.Unlock()

	if len(blocks) == 0 {
		return
	}
	if q.requeueFn == nil {
		q.logger.Warn("Dropping queued blocks", "count", len(blocks))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requeueTimeout)
	defer cancel()
	if err := q.requeueFn(ctx, blocks); err != nil {
		q.logger.Warn("Failed to requeue blocks", "count", len(blocks), "error", err)
		return
	}
	q.logger.Info("Requeued blocks", "count", len(blocks))
}

// Len returns the number of waiting jobs.
func (q *LocalQueue) Len() int {
	return len(q.jobs)
}

// Close requeues jobs that no Run loop took.
func (q *LocalQueue) Close() error {
	q.requeue()
	return nil
}
