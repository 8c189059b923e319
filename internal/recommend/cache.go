package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how stale a cached recommendation list may get.
// Recommendations are recomputed from source tables on every miss, so a
// short TTL keeps them fresh without hammering the store.
const DefaultCacheTTL = 5 * time.Minute

// Recommender produces the blended recommendation list for a viewer.
type Recommender interface {
	NicheRecommendations(ctx context.Context, targetID int64) ([]Recommendation, error)
}

// CachedRecommender wraps a Recommender with a Redis result cache.
// Redis failures degrade to direct computation; the cache is never
// load-bearing for correctness.
type CachedRecommender struct {
	inner  Recommender
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRecommender creates a caching wrapper. A zero ttl selects
// DefaultCacheTTL.
func NewCachedRecommender(inner Recommender, client *redis.Client, ttl time.Duration,
	logger *slog.Logger) *CachedRecommender {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRecommender{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// cacheKey builds the per-viewer cache key.
func cacheKey(targetID int64) string {
	return fmt.Sprintf("reco:niche:%d", targetID)
}

// NicheRecommendations serves from cache when possible and falls through to
// the wrapped recommender otherwise.
func (c *CachedRecommender) NicheRecommendations(ctx context.Context, targetID int64) ([]Recommendation, error) {
	key := cacheKey(targetID)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached []Recommendation
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warn("discarding undecodable cached recommendations",
			"key", key,
			"error", err)
	} else if err != redis.Nil {
		c.logger.Warn("recommendation cache read failed",
			"key", key,
			"error", err)
	}

	result, err := c.inner.NicheRecommendations(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(result); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("recommendation cache write failed",
				"key", key,
				"error", err)
		}
	}
	return result, nil
}

// Invalidate drops the cached list for one viewer, e.g. after new activity.
func (c *CachedRecommender) Invalidate(ctx context.Context, targetID int64) error {
	return c.client.Del(ctx, cacheKey(targetID)).Err()
}
