package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

type blockPayload struct {
	Block uint64 `json:"block"`
}

// AsynqQueue shares block jobs between instances through Redis. Every instance
// may run a worker; each worker handles one job at a time.
type AsynqQueue struct {
	redis     asynq.RedisConnOpt
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
	logger    *slog.Logger
}

// NewAsynqQueue connects to the Redis at url. password overrides the one in the URL.
func NewAsynqQueue(url, password, queueName string) (*AsynqQueue, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if password != "" {
		if o, ok := opt.(asynq.RedisClientOpt); ok {
			o.Password = password
			opt = o
		}
	}
	return newAsynqQueue(opt, queueName), nil
}

func newAsynqQueue(opt asynq.RedisConnOpt, queueName string) *AsynqQueue {
	if queueName == "" {
		queueName = "blocks"
	}
	return &AsynqQueue{
		redis:     opt,
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     queueName,
		logger:    slog.Default().With("component", "queue"),
	}
}

// Enqueue submits a job for block. A job that failed earlier is archived under
// the same id; it is deleted and the block submitted again. Pending or running
// jobs yield ErrDuplicateTask.
func (q *AsynqQueue) Enqueue(ctx context.Context, block uint64) error {
	payload, err := json.Marshal(blockPayload{Block: block})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskTypeProcessBlock, payload)
	id := TaskID(block)

	err = q.enqueue(ctx, task, id)
	if !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}

	info, ierr := q.inspector.GetTaskInfo(q.queue, id)
	if ierr != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, id)
	}
	if info.State != asynq.TaskStateArchived && info.State != asynq.TaskStateCompleted {
		return fmt.Errorf("%w: %s is %s", ErrDuplicateTask, id, info.State)
	}
	if err := q.inspector.DeleteTask(q.queue, id); err != nil {
		return fmt.Errorf("failed to delete archived task %s: %w", id, err)
	}
	q.logger.Debug("Re-enqueueing archived block", "block", block)
	return q.enqueue(ctx, task, id)
}

func (q *AsynqQueue) enqueue(ctx context.Context, task *asynq.Task, id string) error {
	_, err := q.client.EnqueueContext(ctx, task,
		asynq.TaskID(id),
		asynq.Queue(q.queue),
		asynq.MaxRetry(0),
	)
	return err
}

// Run starts a worker with concurrency one and blocks until ctx is done.
func (q *AsynqQueue) Run(ctx context.Context, handler Handler) error {
	srv := asynq.NewServer(q.redis, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{q.queue: 1},
		Logger:      asynqLogger{q.logger},
		LogLevel:    asynq.WarnLevel,
		// the block handler already did its own failure bookkeeping
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			q.logger.Debug("Block job failed", "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeProcessBlock, func(ctx context.Context, t *asynq.Task) error {
		var p blockPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		return handler(ctx, p.Block)
	})

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("failed to start queue worker: %w", err)
	}
	<-ctx.Done()
	srv.Shutdown()
	return nil
}

func (q *AsynqQueue) Close() error {
	return errors.Join(q.client.Close(), q.inspector.Close())
}

// asynqLogger routes asynq's logs into slog.
type asynqLogger struct {
	l *slog.Logger
}

func (a asynqLogger) Debug(args ...any) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...any)  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...any) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...any) { a.l.Error(fmt.Sprint(args...)) }
