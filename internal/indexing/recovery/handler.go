package recovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/indexing/metrics"
	"github.com/vietddude/tronwatch/internal/infra/storage"
)

// DefaultCooldown is how long a failed block is excluded from scheduling.
const DefaultCooldown = 5 * time.Minute

// bookkeepingTimeout bounds the writes made after a failure, which run even
// when the job context is already cancelled.
const bookkeepingTimeout = 5 * time.Second

// CooldownWriter records when a block last failed.
type CooldownWriter interface {
	Set(ctx context.Context, block uint64, at time.Time, ttl time.Duration) error
}

// Handler records block failures: cooldown entry, backfill re-add and lastError.
type Handler struct {
	state    storage.SyncStateRepository
	cooldown CooldownWriter
	window   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a failure handler. window <= 0 uses DefaultCooldown.
func NewHandler(state storage.SyncStateRepository, cooldown CooldownWriter, window time.Duration) *Handler {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &Handler{
		state:    state,
		cooldown: cooldown,
		window:   window,
		logger:   slog.Default().With("component", "recovery"),
		now:      time.Now,
	}
}

// HandleFailure classifies err and writes the failure bookkeeping for block.
// Bookkeeping errors are logged and never replace the original failure.
func (h *Handler) HandleFailure(ctx context.Context, block uint64, err error) Cause {
	cause := Classify(err)
	at := h.now()
	metrics.BlockFailures.WithLabelValues(string(cause.Tag)).Inc()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	if cerr := h.cooldown.Set(ctx, block, at, h.window); cerr != nil {
		h.logger.Error("Failed to set cooldown", "block", block, "error", cerr)
	}

	syncErr := domain.SyncError{
		Message: cause.Message,
		Cause:   string(cause.Tag),
		Block:   block,
		At:      at,
	}
	if rerr := h.state.RecordFailure(ctx, block, syncErr); rerr != nil {
		h.logger.Error("Failed to record block failure", "block", block, "error", rerr)
	}

	h.logger.Error("Block processing failed",
		"block", block,
		"cause", cause.Tag,
		"error", cause.Message,
		"cooldown", h.window,
	)
	return cause
}
