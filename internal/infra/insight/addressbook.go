package insight

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/infra/storage"
)

// lookupConcurrency bounds parallel label queries per block.
const lookupConcurrency = 8

// AddressBook resolves address labels from the label store. Results, including
// unlabeled addresses, are cached for ttl.
type AddressBook struct {
	repo   storage.AddressLabelRepository
	cache  *ttlcache.Cache[string, domain.AddressInfo]
	logger *slog.Logger
}

func NewAddressBook(repo storage.AddressLabelRepository, ttl time.Duration) *AddressBook {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AddressBook{
		repo: repo,
		cache: ttlcache.New[string, domain.AddressInfo](
			ttlcache.WithTTL[string, domain.AddressInfo](ttl),
			ttlcache.WithCapacity[string, domain.AddressInfo](100_000),
		),
		logger: slog.Default().With("component", "addressbook"),
	}
}

// Lookup returns the label of addr. Store failures yield an empty result.
func (b *AddressBook) Lookup(ctx context.Context, addr string) domain.AddressInfo {
	if item := b.cache.Get(addr); item != nil && !item.IsExpired() {
		return item.Value()
	}

	var info domain.AddressInfo
	label, err := b.repo.Get(ctx, addr)
	switch {
	case err == nil:
		info = domain.AddressInfo{Type: label.Type, Name: label.Name}
	case errors.Is(err, domain.ErrNotFound):
	default:
		b.logger.Warn("Address label lookup failed", "address", addr, "error", err)
		return info
	}
	b.cache.Set(addr, info, ttlcache.DefaultTTL)
	return info
}

// LookupAll resolves every distinct address concurrently.
func (b *AddressBook) LookupAll(ctx context.Context, addrs []string) map[string]domain.AddressInfo {
	var (
		mu  sync.Mutex
		out = make(map[string]domain.AddressInfo, len(addrs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)

	seen := make(map[string]bool, len(addrs))
	for _, addr := range addrs {
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		g.Go(func() error {
			info := b.Lookup(gctx, addr)
			mu.Lock()
			out[addr] = info
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
