package throttle

import (
	"context"
	"log/slog"
	"time"
)

// Controller paces block processing once the pipeline has caught up with the
// chain head, turning catch-up bursts into a steady cadence.
type Controller struct {
	head   HeadSource
	config Config
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewController creates a controller reading the head from head, usually a *HeadCache.
func NewController(head HeadSource, config Config) *Controller {
	return &Controller{
		head:   head,
		config: config,
		logger: slog.Default().With("component", "throttle"),
		sleep:  sleepContext,
	}
}

// Near reports whether block is within the throttle window of head.
func (c *Controller) Near(block, head uint64) bool {
	return block+c.config.Window >= head
}

// Wait sleeps for the configured interval when block is near the chain head.
// Blocks far behind return immediately. A failed head lookup skips the delay.
// The only error is a cancelled context.
func (c *Controller) Wait(ctx context.Context, block uint64) (bool, error) {
	if c.config.Interval <= 0 {
		return false, nil
	}
	head, err := c.head.GetChainHead(ctx)
	if err != nil {
		c.logger.Debug("Head lookup failed, not throttling", "block", block, "error", err)
		return false, nil
	}
	if !c.Near(block, head) {
		return false, nil
	}

	c.logger.Debug("Throttling near head", "block", block, "head", head, "interval", c.config.Interval)
	if err := c.sleep(ctx, c.config.Interval); err != nil {
		return true, err
	}
	return true, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
