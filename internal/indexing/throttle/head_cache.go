package throttle

import (
	"context"
	"sync"
	"time"
)

// HeadSource returns the latest block number of the chain.
type HeadSource interface {
	GetChainHead(ctx context.Context) (uint64, error)
}

// HeadCache caches the result of GetChainHead to reduce redundant API calls.
// The pipeline consults the head once per block, which at the head of the chain
// would otherwise double the request rate.
type HeadCache struct {
	source HeadSource
	ttl    time.Duration

	mu       sync.RWMutex
	cached   uint64
	cachedAt time.Time
}

// NewHeadCache creates a new head cache with the given TTL.
func NewHeadCache(source HeadSource, ttl time.Duration) *HeadCache {
	return &HeadCache{
		source: source,
		ttl:    ttl,
	}
}

// GetChainHead returns the cached chain head if within TTL, otherwise fetches fresh.
func (c *HeadCache) GetChainHead(ctx context.Context) (uint64, error) {
	c.mu.RLock()
	if time.Since(c.cachedAt) < c.ttl && c.cached > 0 {
		cached := c.cached
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	head, err := c.source.GetChainHead(ctx)
	if err != nil {
		return 0, err
	}

	c.Observe(head)
	return head, nil
}

// Observe stores a head learned elsewhere, e.g. by the scheduler tick.
func (c *HeadCache) Observe(head uint64) {
	c.mu.Lock()
	if head >= c.cached || time.Since(c.cachedAt) >= c.ttl {
		c.cached = head
		c.cachedAt = time.Now()
	}
	c.mu.Unlock()
}

// Invalidate clears the cache, forcing the next call to fetch fresh data.
func (c *HeadCache) Invalidate() {
	c.mu.Lock()
	c.cachedAt = time.Time{}
	c.mu.Unlock()
}
