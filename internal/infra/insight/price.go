// Package insight resolves block-level enrichment data: the TRX spot price and
// address labels. Lookups never fail the caller; unavailable data is omitted.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/shopspring/decimal"
)

// DefaultPriceURL is the CoinGecko simple price endpoint for TRX in USD.
const DefaultPriceURL = "https://api.coingecko.com/api/v3/simple/price?ids=tron&vs_currencies=usd"

const priceKey = "tron"

// PriceService fetches the TRX spot price and caches it for ttl.
type PriceService struct {
	url    string
	client *http.Client
	cache  *ttlcache.Cache[string, decimal.Decimal]
	logger *slog.Logger
}

func NewPriceService(url string, ttl time.Duration) *PriceService {
	if url == "" {
		url = DefaultPriceURL
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PriceService{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		cache: ttlcache.New[string, decimal.Decimal](
			ttlcache.WithTTL[string, decimal.Decimal](ttl),
			ttlcache.WithDisableTouchOnHit[string, decimal.Decimal](),
		),
		logger: slog.Default().With("component", "price"),
	}
}

// SpotPrice returns the USD price of one TRX. ok is false when the price is
// unknown; the failure is logged and not cached.
func (s *PriceService) SpotPrice(ctx context.Context) (decimal.Decimal, bool) {
	if item := s.cache.Get(priceKey); item != nil && !item.IsExpired() {
		return item.Value(), true
	}

	price, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn("Spot price unavailable", "error", err)
		return decimal.Zero, false
	}
	s.cache.Set(priceKey, price, ttlcache.DefaultTTL)
	return price, true
}

func (s *PriceService) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return decimal.Zero, fmt.Errorf("http %d: %s", resp.StatusCode, body)
	}

	var quotes map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return decimal.Zero, fmt.Errorf("decode price: %w", err)
	}
	raw, ok := quotes[priceKey]["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("price missing from response")
	}
	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid price %s", price)
	}
	return price, nil
}

// Close releases idle connections.
func (s *PriceService) Close() {
	s.client.CloseIdleConnections()
}
