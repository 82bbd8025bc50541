package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietddude/tronwatch/internal/indexing/metrics"
)

var ErrNoProviders = errors.New("no providers configured")

// Client calls the configured providers with rate limiting, retry and failover.
type Client struct {
	providers []*HTTPProvider
	limiter   *rate.Limiter
	retry     RetryConfig
	log       *slog.Logger
}

// NewClient creates a client. ratePerSecond <= 0 disables limiting.
func NewClient(providers []*HTTPProvider, ratePerSecond float64, burst int, retry RetryConfig) *Client {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Client{
		providers: providers,
		limiter:   rate.NewLimiter(limit, max(burst, 1)),
		retry:     retry,
		log:       slog.Default().With("component", "rpc"),
	}
}

// Post calls path on the healthiest provider first and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	if len(c.providers) == 0 {
		return ErrNoProviders
	}

	var lastErr error
	for _, p := range c.ordered() {
		var raw json.RawMessage
		start := time.Now()
		err := callWithRetry(ctx, c.retry, func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
			metrics.RPCCallsTotal.WithLabelValues(p.GetName(), path).Inc()
			var err error
			raw, err = p.Post(ctx, path, body)
			if err != nil {
				metrics.RPCErrorsTotal.WithLabelValues(p.GetName(), ClassifyError(err).String()).Inc()
			}
			return err
		})
		metrics.RPCLatency.WithLabelValues(p.GetName(), path).Observe(time.Since(start).Seconds())

		if err == nil {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("decode %s response: %w", path, err)
			}
			return nil
		}

		lastErr = err
		if ClassifyError(err) == ActionFatal || ctx.Err() != nil {
			return fmt.Errorf("provider %s: %w", p.GetName(), err)
		}
		c.log.Warn("Provider failed, trying next", "provider", p.GetName(), "path", path, "error", err)
	}

	return fmt.Errorf("all providers failed: %w", lastErr)
}

// Health returns the health of every provider keyed by name.
func (c *Client) Health() map[string]HealthStatus {
	out := make(map[string]HealthStatus, len(c.providers))
	for _, p := range c.providers {
		out[p.GetName()] = p.GetHealth()
	}
	return out
}

// Close releases idle connections of all providers.
func (c *Client) Close() error {
	for _, p := range c.providers {
		_ = p.Close()
	}
	return nil
}

// ordered returns available providers first, keeping configuration order otherwise.
func (c *Client) ordered() []*HTTPProvider {
	out := make([]*HTTPProvider, len(c.providers))
	copy(out, c.providers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsAvailable() && !out[j].IsAvailable()
	})
	return out
}
