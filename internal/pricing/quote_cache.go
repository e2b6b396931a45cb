package pricing

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultQuoteTTL is how long a cached quote price stays fresh.
const DefaultQuoteTTL = 60 * time.Second

// QuoteSource fetches the current quote-asset price in fiat from an
// external oracle. Staleness is tolerated; the cache smooths failures.
type QuoteSource interface {
	QuotePriceFiat(ctx context.Context) (float64, error)
}

// QuoteCache holds the last known quote-asset fiat price with a TTL.
// On a stale read it attempts one refresh; if the refresh fails, the
// last good value is returned (or the cold-start fallback). Refresh
// failures are logged, never propagated.
type QuoteCache struct {
	source   QuoteSource
	ttl      time.Duration
	fallback float64
	logger   *log.Logger

	mu        sync.Mutex
	price     float64
	fetchedAt time.Time
}

// NewQuoteCache creates a quote cache. fallback is returned before the
// first successful refresh.
func NewQuoteCache(source QuoteSource, ttl time.Duration, fallback float64, logger *log.Logger) *QuoteCache {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	if logger == nil {
		logger = log.Default()
	}
	return &QuoteCache{
		source:   source,
		ttl:      ttl,
		fallback: fallback,
		logger:   logger,
	}
}

// Get returns the cached fiat price, refreshing it first if stale.
// Never returns an error and never blocks beyond one refresh attempt.
func (c *QuoteCache) Get(ctx context.Context) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.ttl {
		return c.price
	}

	price, err := c.source.QuotePriceFiat(ctx)
	if err != nil || price <= 0 {
		if err != nil {
			c.logger.Printf("quote refresh failed, serving last value: %v", err)
		}
		if c.fetchedAt.IsZero() {
			return c.fallback
		}
		return c.price
	}

	c.price = price
	c.fetchedAt = time.Now()
	return c.price
}

// Refresh forces a refresh attempt regardless of TTL. Used by the
// decision loop at the top of each tick.
func (c *QuoteCache) Refresh(ctx context.Context) {
	c.mu.Lock()
	stale := c.fetchedAt.IsZero() || time.Since(c.fetchedAt) >= c.ttl
	c.mu.Unlock()
	if stale {
		c.Get(ctx)
	}
}
