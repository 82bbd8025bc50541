package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Locker is the single-process stand-in for the Redis lock.
type Locker struct {
	mu    sync.Mutex
	locks map[string]heldLock
}

type heldLock struct {
	token   string
	expires time.Time
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]heldLock)}
}

func (l *Locker) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.locks[key]; ok && time.Now().Before(held.expires) {
		return false, nil
	}
	l.locks[key] = heldLock{token: token, expires: time.Now().Add(ttl)}
	return true, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.locks[key]; ok && held.token == token {
		delete(l.locks, key)
	}
	return nil
}

// CooldownStore keeps failure markers in a ttlcache.
type CooldownStore struct {
	cache *ttlcache.Cache[uint64, time.Time]
}

func NewCooldownStore() *CooldownStore {
	return &CooldownStore{
		cache: ttlcache.New[uint64, time.Time](
			ttlcache.WithDisableTouchOnHit[uint64, time.Time](),
		),
	}
}

// Start runs the expiry loop until ctx is done.
func (s *CooldownStore) Start(ctx context.Context) {
	go s.cache.Start()
	<-ctx.Done()
	s.cache.Stop()
}

func (s *CooldownStore) Set(ctx context.Context, block uint64, at time.Time, ttl time.Duration) error {
	s.cache.Set(block, at, ttl)
	return nil
}

func (s *CooldownStore) Get(ctx context.Context, block uint64) (time.Time, bool, error) {
	item := s.cache.Get(block)
	if item == nil || item.IsExpired() {
		return time.Time{}, false, nil
	}
	return item.Value(), true, nil
}

func (s *CooldownStore) Active(ctx context.Context, blocks []uint64) (map[uint64]bool, error) {
	active := make(map[uint64]bool)
	for _, b := range blocks {
		if _, ok, _ := s.Get(ctx, b); ok {
			active[b] = true
		}
	}
	return active, nil
}
