// Package queue runs block jobs, one at a time, keyed by block number.
package queue

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTask means the block is already queued or running.
	ErrDuplicateTask = errors.New("block already queued")

	// ErrQueueFull is returned by LocalQueue when its buffer is exhausted.
	ErrQueueFull = errors.New("job queue full")
)

// TaskTypeProcessBlock is the job type of a block job.
const TaskTypeProcessBlock = "block:process"

// Handler processes one block. A returned error marks the job failed; there
// is no automatic retry.
type Handler func(ctx context.Context, block uint64) error

// Enqueuer submits block jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, block uint64) error
}

// Worker executes queued jobs until ctx is done.
type Worker interface {
	Run(ctx context.Context, handler Handler) error
}

// Queue is both sides of a job queue.
type Queue interface {
	Enqueuer
	Worker
	Close() error
}

// TaskID is the job identity of block; one job per block can exist at a time.
func TaskID(block uint64) string {
	return fmt.Sprintf("block:%d", block)
}
