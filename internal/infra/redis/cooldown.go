package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore keeps per-block failure markers that expire on their own.
type CooldownStore struct {
	client *Client
}

func NewCooldownStore(client *Client) *CooldownStore {
	return &CooldownStore{client: client}
}

// Set marks block as failed at the given time for ttl.
func (s *CooldownStore) Set(ctx context.Context, block uint64, at time.Time, ttl time.Duration) error {
	key := s.client.cooldownKey(block)
	if err := s.client.rdb.Set(ctx, key, at.UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("set cooldown failed: %w", err)
	}
	return nil
}

// Get returns the failure time of block if it is still cooling down.
func (s *CooldownStore) Get(ctx context.Context, block uint64) (time.Time, bool, error) {
	val, err := s.client.rdb.Get(ctx, s.client.cooldownKey(block)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get cooldown failed: %w", err)
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid cooldown value %q: %w", val, err)
	}
	return time.UnixMilli(ms), true, nil
}

// Active reports which of blocks are currently cooling down, in one round trip.
func (s *CooldownStore) Active(ctx context.Context, blocks []uint64) (map[uint64]bool, error) {
	active := make(map[uint64]bool)
	if len(blocks) == 0 {
		return active, nil
	}

	keys := make([]string, len(blocks))
	for i, b := range blocks {
		keys[i] = s.client.cooldownKey(b)
	}

	vals, err := s.client.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget cooldown failed: %w", err)
	}
	for i, v := range vals {
		if v != nil {
			active[blocks[i]] = true
		}
	}
	return active, nil
}
