package metrics

import (
	"context"
	"time"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/researchaccelerator-hub/channel-analytics/provider"
)

// Observer feeds cache and rate-limit decisions into the collectors
type Observer struct{}

var _ provider.Observer = Observer{}

func (Observer) CacheHit(name string, endpoint provider.Endpoint) {
	CacheHits.WithLabelValues(name, string(endpoint)).Inc()
}

func (Observer) CacheMiss(name string, endpoint provider.Endpoint) {
	CacheMisses.WithLabelValues(name, string(endpoint)).Inc()
}

func (Observer) RateLimited(name string, endpoint provider.Endpoint) {
	RateLimited.WithLabelValues(name, string(endpoint)).Inc()
}

// InstrumentedProvider counts and times the calls of an inner provider. It
// keeps the inner name and metadata and returns results unchanged.
type InstrumentedProvider struct {
	inner provider.Provider
}

// NewInstrumentedProvider wraps inner
func NewInstrumentedProvider(inner provider.Provider) *InstrumentedProvider {
	return &InstrumentedProvider{inner: inner}
}

func (p *InstrumentedProvider) Name() string       { return p.inner.Name() }
func (p *InstrumentedProvider) Configured() bool   { return p.inner.Configured() }
func (p *InstrumentedProvider) RequiresAuth() bool { return p.inner.RequiresAuth() }

func (p *InstrumentedProvider) GetChannelStats(ctx context.Context, q provider.ChannelStatsQuery) (model.ChannelSnapshot, error) {
	defer p.observe(provider.EndpointChannelStats, time.Now())()
	snapshot, err := p.inner.GetChannelStats(ctx, q)
	p.record(provider.EndpointChannelStats, err)
	return snapshot, err
}

func (p *InstrumentedProvider) GetVideoStats(ctx context.Context, q provider.VideoStatsQuery) ([]model.VideoStat, error) {
	defer p.observe(provider.EndpointVideoStats, time.Now())()
	videos, err := p.inner.GetVideoStats(ctx, q)
	p.record(provider.EndpointVideoStats, err)
	return videos, err
}

func (p *InstrumentedProvider) GetRecentVideos(ctx context.Context, q provider.RecentVideosQuery) ([]model.VideoStat, error) {
	defer p.observe(provider.EndpointRecentVideos, time.Now())()
	videos, err := p.inner.GetRecentVideos(ctx, q)
	p.record(provider.EndpointRecentVideos, err)
	return videos, err
}

func (p *InstrumentedProvider) observe(endpoint provider.Endpoint, start time.Time) func() {
	return func() {
		ProviderCallDuration.WithLabelValues(p.inner.Name(), string(endpoint)).
			Observe(time.Since(start).Seconds())
	}
}

func (p *InstrumentedProvider) record(endpoint provider.Endpoint, err error) {
	name := p.inner.Name()
	if err != nil {
		ProviderCalls.WithLabelValues(name, string(endpoint), OutcomeError).Inc()
		ProviderErrors.WithLabelValues(name, string(endpoint), apperror.CodeOf(err)).Inc()
		return
	}
	ProviderCalls.WithLabelValues(name, string(endpoint), OutcomeSuccess).Inc()
}
