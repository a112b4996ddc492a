package provider

import (
	"context"
	"sync"
	"time"

	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// EndpointTTLs holds a cache TTL per endpoint. A non-positive TTL disables
// caching for that endpoint.
type EndpointTTLs struct {
	ChannelStats time.Duration `mapstructure:"channel_stats" yaml:"channel_stats" json:"channelStats"`
	VideoStats   time.Duration `mapstructure:"video_stats" yaml:"video_stats" json:"videoStats"`
	RecentVideos time.Duration `mapstructure:"recent_videos" yaml:"recent_videos" json:"recentVideos"`
}

// For returns the TTL of endpoint
func (t EndpointTTLs) For(endpoint Endpoint) time.Duration {
	switch endpoint {
	case EndpointChannelStats:
		return t.ChannelStats
	case EndpointVideoStats:
		return t.VideoStats
	case EndpointRecentVideos:
		return t.RecentVideos
	default:
		return 0
	}
}

// CacheOptions configures NewCachedProvider
type CacheOptions struct {
	TTLs     EndpointTTLs
	Now      Clock
	Observer Observer
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// CachedProvider memoizes successful responses of an inner provider per
// endpoint and query. Failures are never stored.
type CachedProvider struct {
	inner    Provider
	ttls     EndpointTTLs
	now      Clock
	observer Observer

	mu      sync.Mutex
	entries map[string]cacheEntry
	flight  singleflight.Group
}

// NewCachedProvider wraps inner
func NewCachedProvider(inner Provider, opts CacheOptions) *CachedProvider {
	return &CachedProvider{
		inner:    inner,
		ttls:     opts.TTLs,
		now:      opts.Now.orDefault(),
		observer: observerOrNop(opts.Observer),
		entries:  make(map[string]cacheEntry),
	}
}

func (c *CachedProvider) Name() string       { return c.inner.Name() + ":cached" }
func (c *CachedProvider) Configured() bool   { return c.inner.Configured() }
func (c *CachedProvider) RequiresAuth() bool { return c.inner.RequiresAuth() }

func (c *CachedProvider) GetChannelStats(ctx context.Context, q ChannelStatsQuery) (model.ChannelSnapshot, error) {
	return cachedCall(ctx, c, EndpointChannelStats, q, func(ctx context.Context) (model.ChannelSnapshot, error) {
		return c.inner.GetChannelStats(ctx, q)
	}, cloneChannel)
}

func (c *CachedProvider) GetVideoStats(ctx context.Context, q VideoStatsQuery) ([]model.VideoStat, error) {
	return cachedCall(ctx, c, EndpointVideoStats, q, func(ctx context.Context) ([]model.VideoStat, error) {
		return c.inner.GetVideoStats(ctx, q)
	}, cloneVideos)
}

func (c *CachedProvider) GetRecentVideos(ctx context.Context, q RecentVideosQuery) ([]model.VideoStat, error) {
	return cachedCall(ctx, c, EndpointRecentVideos, q, func(ctx context.Context) ([]model.VideoStat, error) {
		return c.inner.GetRecentVideos(ctx, q)
	}, cloneVideos)
}

// Invalidate drops every cached entry
func (c *CachedProvider) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of live entries
func (c *CachedProvider) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	return len(c.entries)
}

func (c *CachedProvider) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *CachedProvider) store(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
}

// cachedCall serves key from the cache or runs fetch. Concurrent misses for
// the same key share one fetch. The shared fetch ignores the cancellation of
// whichever caller started it; each caller stops waiting when its own ctx is
// done.
func cachedCall[T any](ctx context.Context, c *CachedProvider, endpoint Endpoint, q any, fetch func(context.Context) (T, error), clone func(T) T) (T, error) {
	var zero T
	ttl := c.ttls.For(endpoint)
	if ttl <= 0 {
		return fetch(ctx)
	}

	key := queryKey(endpoint, q)
	if v, ok := c.lookup(key); ok {
		c.observer.CacheHit(c.inner.Name(), endpoint)
		log.Debug().Str("provider", c.Name()).Str("endpoint", string(endpoint)).Msg("Cache hit")
		return clone(v.(T)), nil
	}
	c.observer.CacheMiss(c.inner.Name(), endpoint)

	shared := ctx
	if ctx.Done() != nil {
		shared = context.WithoutCancel(ctx)
	}
	results := c.flight.DoChan(key, func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		value, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		stored := clone(value)
		c.store(key, stored, ttl)
		return stored, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return zero, res.Err
		}
		return clone(res.Val.(T)), nil
	}
}
