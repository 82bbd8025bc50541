// Package observer delivers normalized transactions to subscribers through
// bounded per-subscriber queues.
package observer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/indexing/metrics"
)

// MaxQueueSize is the default number of batches a subscriber may have waiting.
const MaxQueueSize = 100

// Batch is a set of records keyed by transaction id. Handlers must not modify it;
// the same batch is shared by every subscriber.
type Batch map[string]*domain.TransactionRecord

// Observer is a subscriber.
type Observer interface {
	Name() string
	Handle(ctx context.Context, batch Batch) error
}

type funcObserver struct {
	name string
	fn   func(ctx context.Context, batch Batch) error
}

func (f funcObserver) Name() string { return f.name }

func (f funcObserver) Handle(ctx context.Context, batch Batch) error { return f.fn(ctx, batch) }

// Func adapts a function into an Observer.
func Func(name string, fn func(ctx context.Context, batch Batch) error) Observer {
	return funcObserver{name: name, fn: fn}
}

// Stats is a snapshot of a queue's counters.
type Stats struct {
	Observer         string        `json:"observer"`
	TotalProcessed   int64         `json:"totalProcessed"`
	TotalErrors      int64         `json:"totalErrors"`
	TotalDropped     int64         `json:"totalDropped"`
	DroppedBatches   int64         `json:"droppedBatches"`
	BatchesProcessed int64         `json:"batchesProcessed"`
	MinDuration      time.Duration `json:"minDuration"`
	AvgDuration      time.Duration `json:"avgDuration"`
	MaxDuration      time.Duration `json:"maxDuration"`
	LastProcessedAt  time.Time     `json:"lastProcessedAt"`
	LastErrorAt      time.Time     `json:"lastErrorAt"`
	QueueLength      int           `json:"queueLength"`
	Processing       bool          `json:"processing"`
	ErrorRate        float64       `json:"errorRate"`
}

// Queue is the bounded FIFO of one subscriber. Enqueue never blocks: when the
// queue is full the incoming batch is dropped and the queued ones are kept.
// A single worker started by Run handles one batch at a time.
type Queue struct {
	observer Observer
	batches  chan Batch
	logger   *slog.Logger

	mu            sync.Mutex
	stats         Stats
	totalDuration time.Duration
}

// NewQueue creates a queue for obs holding up to size batches (MaxQueueSize if size <= 0).
func NewQueue(obs Observer, size int) *Queue {
	if size <= 0 {
		size = MaxQueueSize
	}
	return &Queue{
		observer: obs,
		batches:  make(chan Batch, size),
		logger:   slog.Default().With("component", "observer", "observer", obs.Name()),
		stats:    Stats{Observer: obs.Name()},
	}
}

func (q *Queue) Name() string { return q.observer.Name() }

// Enqueue appends batch, or drops it when the queue is at capacity.
// It reports whether the batch was accepted.
func (q *Queue) Enqueue(batch Batch) bool {
	if len(batch) == 0 {
		return true
	}
	select {
	case q.batches <- batch:
		metrics.ObserverQueueLength.WithLabelValues(q.Name()).Set(float64(len(q.batches)))
		return true
	default:
	}

	q.mu.Lock()
	q.stats.TotalDropped += int64(len(batch))
	q.stats.DroppedBatches++
	q.mu.Unlock()

	metrics.ObserverDropped.WithLabelValues(q.Name()).Add(float64(len(batch)))
	q.logger.Warn("Observer queue full, dropping batch", "batch_size", len(batch), "capacity", cap(q.batches))
	return false
}

// EnqueueOne wraps a single record into a one-key batch.
func (q *Queue) EnqueueOne(rec *domain.TransactionRecord) bool {
	if rec == nil {
		return true
	}
	return q.Enqueue(Batch{rec.TxID: rec})
}

// Run drains the queue until ctx is done. Handler errors and panics are
// counted and logged; the worker always moves on to the next batch.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-q.batches:
			metrics.ObserverQueueLength.WithLabelValues(q.Name()).Set(float64(len(q.batches)))
			q.process(ctx, batch)
		}
	}
}

func (q *Queue) process(ctx context.Context, batch Batch) {
	q.mu.Lock()
	q.stats.Processing = true
	q.mu.Unlock()

	start := time.Now()
	err := q.handle(ctx, batch)
	elapsed := time.Since(start)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.stats.Processing = false
	q.stats.BatchesProcessed++
	q.totalDuration += elapsed
	if q.stats.BatchesProcessed == 1 || elapsed < q.stats.MinDuration {
		q.stats.MinDuration = elapsed
	}
	if elapsed > q.stats.MaxDuration {
		q.stats.MaxDuration = elapsed
	}
	q.stats.AvgDuration = q.totalDuration / time.Duration(q.stats.BatchesProcessed)

	if err != nil {
		q.stats.TotalErrors++
		q.stats.LastErrorAt = time.Now()
		metrics.ObserverErrors.WithLabelValues(q.Name()).Inc()
		q.logger.Error("Observer failed", "batch_size", len(batch), "duration", elapsed, "error", err)
		return
	}
	q.stats.TotalProcessed += int64(len(batch))
	q.stats.LastProcessedAt = time.Now()
}

func (q *Queue) handle(ctx context.Context, batch Batch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panic: %v", r)
		}
	}()
	return q.observer.Handle(ctx, batch)
}

// Stats returns a snapshot of the counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := q.stats
	s.QueueLength = len(q.batches)
	if s.BatchesProcessed > 0 {
		s.ErrorRate = float64(s.TotalErrors) / float64(s.BatchesProcessed)
	}
	return s
}
