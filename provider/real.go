package provider

import (
	"context"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/model"
)

// Default names of a RealProvider, by construction path
const (
	RealAdapterProviderName      = "real-adapter-provider"
	RealFixtureProviderName      = "real-fixture-provider"
	RealUnconfiguredProviderName = "real-provider-unconfigured"
)

// RealOptions configures NewRealProvider. With neither Adapter nor
// FixturePath the provider is an unconfigured stub.
type RealOptions struct {
	// Adapter serves the queries; it wins over FixturePath
	Adapter Adapter

	// FixturePath backs the provider with a fixture for dev and tests
	FixturePath string

	// Name overrides the default name
	Name string

	// RequiresAuth overrides the default; nil keeps it
	RequiresAuth *bool
}

// RealProvider serves analytics from a live adapter
type RealProvider struct {
	adapter      Adapter
	name         string
	configured   bool
	requiresAuth bool
}

// NewRealProvider builds the live provider. It only fails when a fixture
// path is given and the fixture cannot be loaded.
func NewRealProvider(opts RealOptions) (*RealProvider, error) {
	p := &RealProvider{}

	switch {
	case opts.Adapter != nil:
		p.adapter = opts.Adapter
		p.name = RealAdapterProviderName
		p.configured = true
		p.requiresAuth = true
	case opts.FixturePath != "":
		fixture, err := NewFixtureProvider(opts.FixturePath)
		if err != nil {
			return nil, err
		}
		p.adapter = fixture
		p.name = RealFixtureProviderName
		p.configured = true
		p.requiresAuth = false
	default:
		p.name = RealUnconfiguredProviderName
		p.configured = false
		p.requiresAuth = true
	}

	if opts.Name != "" {
		p.name = opts.Name
	}
	if opts.RequiresAuth != nil {
		p.requiresAuth = *opts.RequiresAuth
	}

	return p, nil
}

func (p *RealProvider) Name() string       { return p.name }
func (p *RealProvider) Configured() bool   { return p.configured }
func (p *RealProvider) RequiresAuth() bool { return p.requiresAuth }

func (p *RealProvider) GetChannelStats(ctx context.Context, q ChannelStatsQuery) (model.ChannelSnapshot, error) {
	if p.adapter == nil {
		return model.ChannelSnapshot{}, p.notConfigured(EndpointChannelStats)
	}
	return p.adapter.GetChannelStats(ctx, q)
}

func (p *RealProvider) GetVideoStats(ctx context.Context, q VideoStatsQuery) ([]model.VideoStat, error) {
	if p.adapter == nil {
		return nil, p.notConfigured(EndpointVideoStats)
	}
	return p.adapter.GetVideoStats(ctx, q)
}

func (p *RealProvider) GetRecentVideos(ctx context.Context, q RecentVideosQuery) ([]model.VideoStat, error) {
	if p.adapter == nil {
		return nil, p.notConfigured(EndpointRecentVideos)
	}
	return p.adapter.GetRecentVideos(ctx, q)
}

func (p *RealProvider) notConfigured(endpoint Endpoint) error {
	return apperror.New(apperror.CodeRealProviderNotConfigured,
		"real data provider is not configured", apperror.SeverityError,
		map[string]any{"provider": p.name, "endpoint": string(endpoint)})
}
