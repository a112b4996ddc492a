package provider

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/rs/zerolog/log"
)

// BucketConfig sizes a token bucket
type BucketConfig struct {
	Capacity        float64 `mapstructure:"capacity" yaml:"capacity" json:"capacity"`
	TokensPerSecond float64 `mapstructure:"tokens_per_second" yaml:"tokens_per_second" json:"tokensPerSecond"`
}

// DefaultBucket applies to endpoints without an explicit capacity
var DefaultBucket = BucketConfig{Capacity: 20, TokensPerSecond: 1}

// EndpointLimits holds a bucket per endpoint. A bucket with a non-positive
// capacity is unset and falls back to DefaultBucket.
type EndpointLimits struct {
	ChannelStats BucketConfig `mapstructure:"channel_stats" yaml:"channel_stats" json:"channelStats"`
	VideoStats   BucketConfig `mapstructure:"video_stats" yaml:"video_stats" json:"videoStats"`
	RecentVideos BucketConfig `mapstructure:"recent_videos" yaml:"recent_videos" json:"recentVideos"`
}

// For returns the effective bucket of endpoint
func (l EndpointLimits) For(endpoint Endpoint) BucketConfig {
	var cfg BucketConfig
	switch endpoint {
	case EndpointChannelStats:
		cfg = l.ChannelStats
	case EndpointVideoStats:
		cfg = l.VideoStats
	case EndpointRecentVideos:
		cfg = l.RecentVideos
	}
	if cfg.Capacity <= 0 {
		return DefaultBucket
	}
	if cfg.TokensPerSecond < 0 {
		cfg.TokensPerSecond = 0
	}
	return cfg
}

// RateLimitOptions configures NewRateLimitedProvider
type RateLimitOptions struct {
	Limits   EndpointLimits
	Now      Clock
	Observer Observer
}

type tokenBucket struct {
	capacity        float64
	tokensPerSecond float64
	tokens          float64
	lastRefillAt    time.Time
}

// refill adds the tokens earned since the last refill, capped at capacity.
// Fractions are kept.
func (b *tokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefillAt).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.tokensPerSecond)
	}
	b.lastRefillAt = now
}

// retryAfter estimates the wait until one token is available
func (b *tokenBucket) retryAfter() (time.Duration, bool) {
	if b.tokensPerSecond <= 0 {
		return 0, false
	}
	missing := 1 - b.tokens
	return time.Duration(math.Ceil(missing / b.tokensPerSecond * float64(time.Second))), true
}

// RateLimitedProvider throttles each endpoint of an inner provider with its
// own token bucket
type RateLimitedProvider struct {
	inner    Provider
	limits   EndpointLimits
	now      Clock
	observer Observer

	mu      sync.Mutex
	buckets map[Endpoint]*tokenBucket
}

// NewRateLimitedProvider wraps inner
func NewRateLimitedProvider(inner Provider, opts RateLimitOptions) *RateLimitedProvider {
	return &RateLimitedProvider{
		inner:    inner,
		limits:   opts.Limits,
		now:      opts.Now.orDefault(),
		observer: observerOrNop(opts.Observer),
		buckets:  make(map[Endpoint]*tokenBucket),
	}
}

func (p *RateLimitedProvider) Name() string       { return p.inner.Name() + ":rate-limited" }
func (p *RateLimitedProvider) Configured() bool   { return p.inner.Configured() }
func (p *RateLimitedProvider) RequiresAuth() bool { return p.inner.RequiresAuth() }

func (p *RateLimitedProvider) GetChannelStats(ctx context.Context, q ChannelStatsQuery) (model.ChannelSnapshot, error) {
	if err := p.take(EndpointChannelStats, q); err != nil {
		return model.ChannelSnapshot{}, err
	}
	return p.inner.GetChannelStats(ctx, q)
}

func (p *RateLimitedProvider) GetVideoStats(ctx context.Context, q VideoStatsQuery) ([]model.VideoStat, error) {
	if err := p.take(EndpointVideoStats, q); err != nil {
		return nil, err
	}
	return p.inner.GetVideoStats(ctx, q)
}

func (p *RateLimitedProvider) GetRecentVideos(ctx context.Context, q RecentVideosQuery) ([]model.VideoStat, error) {
	if err := p.take(EndpointRecentVideos, q); err != nil {
		return nil, err
	}
	return p.inner.GetRecentVideos(ctx, q)
}

// Tokens returns the tokens currently available to endpoint after a refill
func (p *RateLimitedProvider) Tokens(endpoint Endpoint) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	b := p.bucketLocked(endpoint, now)
	b.refill(now)
	return b.tokens
}

func (p *RateLimitedProvider) bucketLocked(endpoint Endpoint, now time.Time) *tokenBucket {
	b, ok := p.buckets[endpoint]
	if !ok {
		cfg := p.limits.For(endpoint)
		b = &tokenBucket{
			capacity:        cfg.Capacity,
			tokensPerSecond: cfg.TokensPerSecond,
			tokens:          cfg.Capacity,
			lastRefillAt:    now,
		}
		p.buckets[endpoint] = b
	}
	return b
}

// take consumes one token of endpoint or fails without touching the inner
// provider
func (p *RateLimitedProvider) take(endpoint Endpoint, q any) error {
	p.mu.Lock()
	now := p.now()
	b := p.bucketLocked(endpoint, now)
	b.refill(now)

	if b.tokens >= 1 {
		b.tokens--
		p.mu.Unlock()
		return nil
	}

	ctx := map[string]any{
		"endpoint":        string(endpoint),
		"query":           serializeQuery(q),
		"capacity":        b.capacity,
		"tokensPerSecond": b.tokensPerSecond,
	}
	if wait, ok := b.retryAfter(); ok {
		ctx["retryAfterMs"] = wait.Milliseconds()
	}
	p.mu.Unlock()

	p.observer.RateLimited(p.inner.Name(), endpoint)
	log.Warn().
		Str("provider", p.Name()).
		Str("endpoint", string(endpoint)).
		Msg("Rate limit exceeded")

	return apperror.New(apperror.CodeRateLimitExceeded,
		"rate limit exceeded", apperror.SeverityWarning, ctx)
}
