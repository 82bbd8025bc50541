package observer

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// Dispatcher fans records out to one Queue per registered observer.
type Dispatcher struct {
	size int

	mu     sync.RWMutex
	queues []*Queue
}

// NewDispatcher creates a dispatcher whose queues hold up to size batches.
func NewDispatcher(size int) *Dispatcher {
	return &Dispatcher{size: size}
}

// Register adds obs. Observers must be registered before Run.
func (d *Dispatcher) Register(obs Observer) *Queue {
	q := NewQueue(obs, d.size)
	d.mu.Lock()
	d.queues = append(d.queues, q)
	d.mu.Unlock()
	return q
}

// Dispatch hands one record to every observer.
func (d *Dispatcher) Dispatch(rec *domain.TransactionRecord) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, q := range d.queues {
		q.EnqueueOne(rec)
	}
}

// DispatchBatch hands a batch to every observer.
func (d *Dispatcher) DispatchBatch(batch Batch) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, q := range d.queues {
		q.Enqueue(batch)
	}
}

// Run starts one worker per queue and blocks until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.mu.RLock()
	queues := append([]*Queue(nil), d.queues...)
	d.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, q := range queues {
		g.Go(func() error {
			q.Run(ctx)
			return nil
		})
	}
	return g.Wait()
}

// Stats returns a snapshot per observer in registration order.
func (d *Dispatcher) Stats() []Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Stats, 0, len(d.queues))
	for _, q := range d.queues {
		out = append(out, q.Stats())
	}
	return out
}
