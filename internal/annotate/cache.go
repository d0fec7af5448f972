package annotate

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/vusplatform/varspace/internal/domain/variant"
)

// CachedProvider memoizes successful scores across apply runs with a TTL.
// The apply engine's own in-run cache already collapses duplicate keys inside
// one run; this layer spares repeated runs over overlapping tables from
// re-invoking an expensive provider. Failures are never cached.
type CachedProvider struct {
	inner Provider
	cache *ttlcache.Cache[string, float64]
}

// NewCachedProvider wraps a provider with a score cache.
func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, float64](ttl),
		ttlcache.WithDisableTouchOnHit[string, float64](),
	)
	go cache.Start()
	return &CachedProvider{inner: inner, cache: cache}
}

// Name implements Provider.
func (p *CachedProvider) Name() string { return p.inner.Name() }

// Score implements Provider.
func (p *CachedProvider) Score(ctx context.Context, key variant.Key, transcript string) (float64, error) {
	cacheKey := key.String()
	if transcript != "" {
		cacheKey += "|" + transcript
	}
	if item := p.cache.Get(cacheKey); item != nil {
		return item.Value(), nil
	}
	score, err := p.inner.Score(ctx, key, transcript)
	if err != nil {
		return 0, err
	}
	p.cache.Set(cacheKey, score, ttlcache.DefaultTTL)
	return score, nil
}

// Stop halts the cache's expiry loop.
func (p *CachedProvider) Stop() { p.cache.Stop() }
