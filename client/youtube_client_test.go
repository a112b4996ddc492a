package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeYouTube serves a tiny subset of the YouTube Data API v3
type fakeYouTube struct {
	mu         sync.Mutex
	requests   map[string]int
	videoIDs   [][]string
	failStatus int
	failReason string
	playlist   []string
	pageSize   int
}

func newFakeYouTube() *fakeYouTube {
	return &fakeYouTube{
		requests: make(map[string]int),
		playlist: []string{"VID-A", "VID-B", "VID-C"},
		pageSize: 2,
	}
}

func (f *fakeYouTube) count(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[resource]
}

func (f *fakeYouTube) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	f.mu.Lock()
	f.requests[resource]++
	f.mu.Unlock()

	if f.failStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.failStatus)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    f.failStatus,
				"message": "failure",
				"errors":  []map[string]any{{"reason": f.failReason, "message": "failure"}},
			},
		})
		return
	}

	q := r.URL.Query()
	var body any
	switch resource {
	case "channels":
		body = f.channels(q.Get("id"))
	case "playlistItems":
		body = f.playlistItems(q.Get("pageToken"))
	case "videos":
		var ids []string
		for _, v := range q["id"] {
			ids = append(ids, strings.Split(v, ",")...)
		}
		f.mu.Lock()
		f.videoIDs = append(f.videoIDs, ids)
		f.mu.Unlock()
		body = videosResponse(ids)
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeYouTube) channels(id string) any {
	if id != "UC-API-001" {
		return map[string]any{"items": []any{}}
	}
	return map[string]any{
		"items": []any{map[string]any{
			"id": "UC-API-001",
			"snippet": map[string]any{
				"title":       "API Channel",
				"description": "Channel served by the fake API",
				"publishedAt": "2019-03-04T05:06:07Z",
				"thumbnails": map[string]any{
					"default": map[string]any{"url": "https://example.com/default.jpg"},
					"high":    map[string]any{"url": "https://example.com/high.jpg"},
				},
			},
			"statistics": map[string]any{
				"subscriberCount": "1500",
				"videoCount":      "3",
				"viewCount":       "90000",
			},
			"contentDetails": map[string]any{
				"relatedPlaylists": map[string]any{"uploads": "UU-API-001"},
			},
		}},
	}
}

func (f *fakeYouTube) playlistItems(pageToken string) any {
	start := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "page-%d", &start)
	}
	end := min(start+f.pageSize, len(f.playlist))

	items := make([]any, 0, end-start)
	for _, id := range f.playlist[start:end] {
		items = append(items, map[string]any{"contentDetails": map[string]any{"videoId": id}})
	}
	resp := map[string]any{"items": items}
	if end < len(f.playlist) {
		resp["nextPageToken"] = fmt.Sprintf("page-%d", end)
	}
	return resp
}

func videosResponse(ids []string) any {
	published := map[string]string{
		"VID-A": "2025-03-01T00:00:00Z",
		"VID-B": "2025-01-01T00:00:00Z",
		"VID-C": "2025-02-01T00:00:00Z",
	}
	items := make([]any, 0, len(ids))
	for _, id := range ids {
		if strings.HasPrefix(id, "MISSING") {
			continue
		}
		at, ok := published[id]
		if !ok {
			at = "2024-01-01T00:00:00Z"
		}
		items = append(items, map[string]any{
			"id": id,
			"snippet": map[string]any{
				"channelId":   "UC-API-001",
				"title":       "Video " + id,
				"description": "",
				"publishedAt": at,
			},
			"contentDetails": map[string]any{"duration": "PT1M30S"},
			"statistics": map[string]any{
				"viewCount":    "100",
				"likeCount":    "10",
				"commentCount": "1",
			},
		})
	}
	return map[string]any{"items": items}
}

func newTestAdapter(t *testing.T, fake *fakeYouTube) *YouTubeAdapter {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	adapter, err := NewYouTubeAdapter(context.Background(), YouTubeOptions{
		APIKey:     "test-api-key",
		Endpoint:   server.URL + "/",
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	return adapter
}

func TestNewYouTubeAdapter(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{name: "valid API key", apiKey: "test-api-key-12345"},
		{name: "empty API key", apiKey: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := NewYouTubeAdapter(context.Background(), YouTubeOptions{APIKey: tt.apiKey, Timeout: time.Second})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, adapter)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, adapter.service)
		})
	}
}

func TestYouTubeAdapter_GetChannelStats(t *testing.T) {
	adapter := newTestAdapter(t, newFakeYouTube())

	ch, err := adapter.GetChannelStats(context.Background(), provider.ChannelStatsQuery{ChannelID: "UC-API-001"})
	require.NoError(t, err)

	assert.Equal(t, "UC-API-001", ch.ChannelID)
	assert.Equal(t, "API Channel", ch.Name)
	assert.Equal(t, int64(1500), ch.SubscriberCount)
	assert.Equal(t, int64(3), ch.VideoCount)
	assert.Equal(t, int64(90000), ch.ViewCount)
	assert.Equal(t, time.Date(2019, 3, 4, 5, 6, 7, 0, time.UTC), ch.CreatedAt)
	require.NotNil(t, ch.ThumbnailURL)
	assert.Equal(t, "https://example.com/high.jpg", *ch.ThumbnailURL)
	assert.Nil(t, ch.LastSyncAt)
}

func TestYouTubeAdapter_GetChannelStatsNotFound(t *testing.T) {
	adapter := newTestAdapter(t, newFakeYouTube())

	_, err := adapter.GetChannelStats(context.Background(), provider.ChannelStatsQuery{ChannelID: "UC-UNKNOWN"})
	assert.Equal(t, apperror.CodeYouTubeNotFound, apperror.CodeOf(err))
}

func TestYouTubeAdapter_GetVideoStatsBatches(t *testing.T) {
	fake := newFakeYouTube()
	adapter := newTestAdapter(t, fake)

	ids := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		ids = append(ids, fmt.Sprintf("VID-%03d", i))
	}
	ids[5] = "MISSING-1"

	videos, err := adapter.GetVideoStats(context.Background(), provider.VideoStatsQuery{VideoIDs: ids})
	require.NoError(t, err)

	assert.Len(t, videos, 119)
	assert.Equal(t, 3, fake.count("videos"))
	require.Len(t, fake.videoIDs, 3)
	assert.Len(t, fake.videoIDs[0], 50)
	assert.Len(t, fake.videoIDs[1], 50)
	assert.Len(t, fake.videoIDs[2], 20)

	assert.Equal(t, int64(90), videos[0].DurationSeconds)
	assert.Equal(t, int64(100), videos[0].ViewCount)
	assert.Equal(t, "UC-API-001", videos[0].ChannelID)
}

func TestYouTubeAdapter_GetVideoStatsEmpty(t *testing.T) {
	fake := newFakeYouTube()
	adapter := newTestAdapter(t, fake)

	videos, err := adapter.GetVideoStats(context.Background(), provider.VideoStatsQuery{})
	require.NoError(t, err)
	assert.Empty(t, videos)
	assert.Zero(t, fake.count("videos"))
}

func TestYouTubeAdapter_GetRecentVideos(t *testing.T) {
	fake := newFakeYouTube()
	adapter := newTestAdapter(t, fake)

	videos, err := adapter.GetRecentVideos(context.Background(), provider.RecentVideosQuery{ChannelID: "UC-API-001", Limit: 3})
	require.NoError(t, err)

	require.Len(t, videos, 3)
	assert.Equal(t, []string{"VID-A", "VID-C", "VID-B"}, []string{videos[0].VideoID, videos[1].VideoID, videos[2].VideoID})
	assert.Equal(t, 2, fake.count("playlistItems"))

	limited, err := adapter.GetRecentVideos(context.Background(), provider.RecentVideosQuery{ChannelID: "UC-API-001", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestYouTubeAdapter_GetRecentVideosUnknownChannel(t *testing.T) {
	adapter := newTestAdapter(t, newFakeYouTube())

	_, err := adapter.GetRecentVideos(context.Background(), provider.RecentVideosQuery{ChannelID: "UC-UNKNOWN", Limit: 3})
	assert.Equal(t, apperror.CodeYouTubeNotFound, apperror.CodeOf(err))
}

func TestYouTubeAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		reason   string
		wantCode string
	}{
		{name: "quota", status: http.StatusForbidden, reason: "quotaExceeded", wantCode: apperror.CodeYouTubeQuotaExceeded},
		{name: "forbidden", status: http.StatusForbidden, reason: "forbidden", wantCode: apperror.CodeYouTubeUnauthorized},
		{name: "unauthorized", status: http.StatusUnauthorized, reason: "authError", wantCode: apperror.CodeYouTubeUnauthorized},
		{name: "not found", status: http.StatusNotFound, reason: "notFound", wantCode: apperror.CodeYouTubeNotFound},
		{name: "bad request", status: http.StatusBadRequest, reason: "badRequest", wantCode: apperror.CodeYouTubeRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeYouTube()
			fake.failStatus = tt.status
			fake.failReason = tt.reason
			adapter := newTestAdapter(t, fake)

			_, err := adapter.GetChannelStats(context.Background(), provider.ChannelStatsQuery{ChannelID: "UC-API-001"})
			appErr, ok := apperror.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.status, appErr.Context["status"])
			assert.Equal(t, string(provider.EndpointChannelStats), appErr.Context["endpoint"])
		})
	}
}

func TestYouTubeAdapter_BacksRealProvider(t *testing.T) {
	adapter := newTestAdapter(t, newFakeYouTube())

	live, err := provider.NewRealProvider(provider.RealOptions{Adapter: adapter})
	require.NoError(t, err)
	assert.Equal(t, provider.RealAdapterProviderName, live.Name())
	assert.True(t, live.RequiresAuth())

	ch, err := live.GetChannelStats(context.Background(), provider.ChannelStatsQuery{ChannelID: "UC-API-001"})
	require.NoError(t, err)
	assert.Equal(t, "API Channel", ch.Name)
}
