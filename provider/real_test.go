package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRealProvider_Unconfigured(t *testing.T) {
	p, err := NewRealProvider(RealOptions{})
	require.NoError(t, err)

	assert.Equal(t, RealUnconfiguredProviderName, p.Name())
	assert.False(t, p.Configured())
	assert.True(t, p.RequiresAuth())

	ctx := context.Background()
	tests := []struct {
		name     string
		endpoint Endpoint
		call     func() error
	}{
		{
			name:     "channel stats",
			endpoint: EndpointChannelStats,
			call: func() error {
				_, err := p.GetChannelStats(ctx, ChannelStatsQuery{ChannelID: "UC-001"})
				return err
			},
		},
		{
			name:     "video stats",
			endpoint: EndpointVideoStats,
			call: func() error {
				_, err := p.GetVideoStats(ctx, VideoStatsQuery{VideoIDs: []string{"VID-001"}})
				return err
			},
		},
		{
			name:     "recent videos",
			endpoint: EndpointRecentVideos,
			call: func() error {
				_, err := p.GetRecentVideos(ctx, RecentVideosQuery{ChannelID: "UC-001", Limit: 5})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)

			appErr, ok := apperror.As(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeRealProviderNotConfigured, appErr.Code)
			assert.Equal(t, apperror.SeverityError, appErr.Severity)
			assert.Equal(t, RealUnconfiguredProviderName, appErr.Context["provider"])
			assert.Equal(t, string(tt.endpoint), appErr.Context["endpoint"])
		})
	}
}

func TestRealProvider_FixtureBacked(t *testing.T) {
	p, err := NewRealProvider(RealOptions{FixturePath: seedFixturePath})
	require.NoError(t, err)

	assert.Equal(t, RealFixtureProviderName, p.Name())
	assert.True(t, p.Configured())
	assert.False(t, p.RequiresAuth())

	ch, err := p.GetChannelStats(context.Background(), ChannelStatsQuery{ChannelID: "UC-SEED-PL-001"})
	require.NoError(t, err)
	assert.Equal(t, "Seed Channel", ch.Name)
}

func TestRealProvider_FixtureLoadFailure(t *testing.T) {
	p, err := NewRealProvider(RealOptions{FixturePath: "testdata/malformed.json"})
	assert.Nil(t, p)
	assert.Equal(t, apperror.CodeFakeDataLoadFailed, apperror.CodeOf(err))
}

func TestRealProvider_Overrides(t *testing.T) {
	auth := true
	p, err := NewRealProvider(RealOptions{
		FixturePath:  seedFixturePath,
		Name:         "custom-real-provider",
		RequiresAuth: &auth,
	})
	require.NoError(t, err)

	assert.Equal(t, "custom-real-provider", p.Name())
	assert.True(t, p.RequiresAuth())
}

func TestRealProvider_Adapter(t *testing.T) {
	ctx := context.Background()
	adapter := newMockProvider("adapter")
	adapter.On("GetChannelStats", ctx, ChannelStatsQuery{ChannelID: "UC-API-001"}).
		Return(testChannel("UC-API-001"), nil).Once()
	adapter.On("GetVideoStats", ctx, VideoStatsQuery{VideoIDs: []string{"VID-API-001"}}).
		Return([]model.VideoStat{{VideoID: "VID-API-001"}}, nil).Once()

	p, err := NewRealProvider(RealOptions{Adapter: adapter, FixturePath: seedFixturePath})
	require.NoError(t, err)

	assert.Equal(t, RealAdapterProviderName, p.Name())
	assert.True(t, p.Configured())
	assert.True(t, p.RequiresAuth())

	ch, err := p.GetChannelStats(ctx, ChannelStatsQuery{ChannelID: "UC-API-001"})
	require.NoError(t, err)
	assert.Equal(t, "UC-API-001", ch.ChannelID)

	videos, err := p.GetVideoStats(ctx, VideoStatsQuery{VideoIDs: []string{"VID-API-001"}})
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "VID-API-001", videos[0].VideoID)

	adapter.AssertExpectations(t)
}

func TestRealProvider_AdapterErrorPassesThrough(t *testing.T) {
	ctx := context.Background()
	upstream := apperror.New(apperror.CodeYouTubeQuotaExceeded, "quota exhausted", apperror.SeverityCritical, nil)

	adapter := newMockProvider("adapter")
	adapter.On("GetRecentVideos", ctx, mock.Anything).Return(nil, upstream)

	p, err := NewRealProvider(RealOptions{Adapter: adapter})
	require.NoError(t, err)

	_, err = p.GetRecentVideos(ctx, RecentVideosQuery{ChannelID: "UC-001", Limit: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, upstream))
}
