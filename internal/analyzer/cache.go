package analyzer

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedAnalyzer memoizes successful analyses per URL for the configured TTL.
// Only the single-page path goes through it; multi-page orchestration calls
// the underlying analyzer directly so a domain comparison never mixes cached
// and fresh scores.
type CachedAnalyzer struct {
	inner PageAnalyzer
	cache *gocache.Cache
}

// NewCachedAnalyzer wraps inner with a TTL cache (default 24h).
func NewCachedAnalyzer(inner PageAnalyzer, ttl time.Duration) *CachedAnalyzer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedAnalyzer{
		inner: inner,
		cache: gocache.New(ttl, ttl/4),
	}
}

// Analyze returns a cached record when one exists, otherwise delegates and
// caches the result. Failures are never cached.
func (c *CachedAnalyzer) Analyze(ctx context.Context, url string) (ScoreRecord, error) {
	if v, ok := c.cache.Get(url); ok {
		return v.(ScoreRecord), nil
	}
	rec, err := c.inner.Analyze(ctx, url)
	if err != nil {
		return ScoreRecord{}, err
	}
	c.cache.SetDefault(url, rec)
	return rec, nil
}

// Cached reports whether url currently has a cached record.
func (c *CachedAnalyzer) Cached(url string) bool {
	_, ok := c.cache.Get(url)
	return ok
}
