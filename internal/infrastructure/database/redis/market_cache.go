package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/propsignal/propsignal/internal/domain/market"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
)

// MarketCache is a read-through decorator over the market snapshot
// repository.  Snapshots are append-only and change at most daily, so reads
// cache aggressively; Insert writes through and drops the city's entries.
type MarketCache struct {
	delegate market.Repository
	cache    *Cache
	logger   logging.Logger
	ttl      time.Duration
}

// NewMarketCache wraps a market repository with cached reads.  A zero ttl
// uses the cache default.
func NewMarketCache(delegate market.Repository, cache *Cache, logger logging.Logger, ttl time.Duration) *MarketCache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MarketCache{
		delegate: delegate,
		cache:    cache,
		logger:   logger.Named("market_cache"),
		ttl:      ttl,
	}
}

func marketKey(city string) string {
	return "market:" + strings.ToLower(strings.TrimSpace(city))
}

// Latest returns the most recent snapshot, serving repeat reads from Redis.
func (m *MarketCache) Latest(ctx context.Context, city, zip string) (*market.Snapshot, error) {
	var s market.Snapshot
	key := fmt.Sprintf("%s:latest:%s", marketKey(city), zip)
	err := m.cache.GetOrSet(ctx, key, &s, m.ttl, func(ctx context.Context) (interface{}, error) {
		return m.delegate.Latest(ctx, city, zip)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// History lists captures newest first, cached per (city, limit).
func (m *MarketCache) History(ctx context.Context, city string, limit int) ([]*market.Snapshot, error) {
	var out []*market.Snapshot
	key := fmt.Sprintf("%s:history:%d", marketKey(city), limit)
	err := m.cache.GetOrSet(ctx, key, &out, m.ttl, func(ctx context.Context) (interface{}, error) {
		return m.delegate.History(ctx, city, limit)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Insert writes through to the repository and invalidates the city's cached
// reads.  Invalidation failures are logged, not returned: the entries expire
// on their own.
func (m *MarketCache) Insert(ctx context.Context, s *market.Snapshot) error {
	if err := m.delegate.Insert(ctx, s); err != nil {
		return err
	}
	if _, err := m.cache.DeleteByPrefix(ctx, marketKey(s.City)); err != nil {
		m.logger.Warn("market cache invalidation failed",
			logging.String("city", s.City),
			logging.Err(err),
		)
	}
	return nil
}
