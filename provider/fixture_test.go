package provider

import (
	"context"
	"testing"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFixtureProvider(t *testing.T) {
	p, err := NewFixtureProvider(seedFixturePath)
	require.NoError(t, err)

	assert.Equal(t, FixtureProviderName, p.Name())
	assert.True(t, p.Configured())
	assert.False(t, p.RequiresAuth())
	assert.Len(t, p.Dataset().ChannelDailyMetrics, 3)
	require.NotNil(t, p.Dataset().Profile)
	assert.Equal(t, "profile-seed-001", p.Dataset().Profile.ID)
}

func TestNewFixtureProviderLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: "/non/existent/path.json"},
		{name: "malformed json", path: "testdata/malformed.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewFixtureProvider(tt.path)
			assert.Nil(t, p)
			require.Error(t, err)
			assert.Equal(t, apperror.CodeFakeDataLoadFailed, apperror.CodeOf(err))
		})
	}
}

func TestNewFixtureProviderYAML(t *testing.T) {
	p, err := NewFixtureProvider("testdata/seed-data.yaml")
	require.NoError(t, err)

	ch, err := p.GetChannelStats(context.Background(), ChannelStatsQuery{ChannelID: "UC-SEED-YAML-001"})
	require.NoError(t, err)
	assert.Equal(t, "YAML Channel", ch.Name)
	assert.Nil(t, ch.ThumbnailURL)

	videos, err := p.GetVideoStats(context.Background(), VideoStatsQuery{VideoIDs: []string{"VID-Y-001"}})
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, int64(90), videos[0].DurationSeconds)
}

func TestFixtureProvider_GetChannelStats(t *testing.T) {
	p, err := NewFixtureProvider(seedFixturePath)
	require.NoError(t, err)
	ctx := context.Background()

	ch, err := p.GetChannelStats(ctx, ChannelStatsQuery{ChannelID: "UC-SEED-PL-001"})
	require.NoError(t, err)
	assert.Equal(t, "UC-SEED-PL-001", ch.ChannelID)
	assert.NotEmpty(t, ch.Name)

	_, err = p.GetChannelStats(ctx, ChannelStatsQuery{ChannelID: "UC-NONEXISTENT"})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeFakeDataNotFound, apperror.CodeOf(err))
}

func TestFixtureProvider_GetVideoStats(t *testing.T) {
	p, err := NewFixtureProvider(seedFixturePath)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name     string
		ids      []string
		wantIDs  []string
		wantCode string
	}{
		{name: "existing ids", ids: []string{"VID-001", "VID-002"}, wantIDs: []string{"VID-001", "VID-002"}},
		{name: "unknown ids dropped", ids: []string{"VID-001", "VID-NONEXISTENT", "VID-002"}, wantIDs: []string{"VID-001", "VID-002"}},
		{name: "duplicates preserved", ids: []string{"VID-001", "VID-001", "VID-002", "VID-002"}, wantIDs: []string{"VID-001", "VID-001", "VID-002", "VID-002"}},
		{name: "no matches", ids: []string{"VID-NONEXISTENT1", "VID-NONEXISTENT2"}, wantCode: apperror.CodeFakeDataNotFound},
		{name: "empty request", ids: nil, wantCode: apperror.CodeFakeDataNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			videos, err := p.GetVideoStats(ctx, VideoStatsQuery{VideoIDs: tt.ids})
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperror.CodeOf(err))
				return
			}
			require.NoError(t, err)
			got := make([]string, 0, len(videos))
			for _, v := range videos {
				got = append(got, v.VideoID)
			}
			assert.Equal(t, tt.wantIDs, got)
		})
	}
}

func TestFixtureProvider_GetRecentVideos(t *testing.T) {
	p, err := NewFixtureProvider(seedFixturePath)
	require.NoError(t, err)
	ctx := context.Background()

	videos, err := p.GetRecentVideos(ctx, RecentVideosQuery{ChannelID: "UC-SEED-PL-001", Limit: 3})
	require.NoError(t, err)
	require.Len(t, videos, 3)
	assert.Equal(t, "VID-003", videos[0].VideoID)
	for i := 1; i < len(videos); i++ {
		assert.False(t, videos[i].PublishedAt.After(videos[i-1].PublishedAt), "videos must be newest first")
	}
	for _, v := range videos {
		assert.Equal(t, "UC-SEED-PL-001", v.ChannelID)
	}

	limited, err := p.GetRecentVideos(ctx, RecentVideosQuery{ChannelID: "UC-SEED-PL-001", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	all, err := p.GetRecentVideos(ctx, RecentVideosQuery{ChannelID: "UC-SEED-PL-001"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = p.GetRecentVideos(ctx, RecentVideosQuery{ChannelID: "UC-NONEXISTENT", Limit: 5})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeFakeDataNotFound, apperror.CodeOf(err))
}

func TestFixtureProvider_ResultsAreCopies(t *testing.T) {
	p, err := NewFixtureProvider(seedFixturePath)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := p.GetRecentVideos(ctx, RecentVideosQuery{ChannelID: "UC-SEED-PL-001", Limit: 1})
	require.NoError(t, err)
	first[0].Title = "mutated"

	second, err := p.GetRecentVideos(ctx, RecentVideosQuery{ChannelID: "UC-SEED-PL-001", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, "Latest upload", second[0].Title)
}
