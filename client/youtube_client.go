package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/researchaccelerator-hub/channel-analytics/provider"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

const (
	// maxIDsPerRequest is the YouTube Data API limit for id lists and page sizes
	maxIDsPerRequest = 50

	defaultTimeout = 30 * time.Second
)

// YouTubeOptions configures NewYouTubeAdapter
type YouTubeOptions struct {
	APIKey  string
	Timeout time.Duration

	// Endpoint overrides the API base URL
	Endpoint string

	// HTTPClient replaces the default client; Timeout is then ignored
	HTTPClient *http.Client
}

// YouTubeAdapter serves channel and video analytics from the YouTube Data API
type YouTubeAdapter struct {
	service *ytapi.Service
}

var _ provider.Adapter = (*YouTubeAdapter)(nil)

// NewYouTubeAdapter creates the API service. An API key is required.
func NewYouTubeAdapter(ctx context.Context, opts YouTubeOptions) (*YouTubeAdapter, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey), option.WithHTTPClient(httpClient)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	service, err := ytapi.NewService(ctx, clientOpts...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create YouTube service")
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	log.Info().Msg("YouTube adapter ready")
	return &YouTubeAdapter{service: service}, nil
}

// channelsCall selects a channel by id, or by handle when it starts with @
func (a *YouTubeAdapter) channelsCall(part []string, channelID string) *ytapi.ChannelsListCall {
	call := a.service.Channels.List(part)
	if strings.HasPrefix(channelID, "@") {
		return call.ForHandle(channelID)
	}
	return call.Id(channelID)
}

func (a *YouTubeAdapter) GetChannelStats(ctx context.Context, q provider.ChannelStatsQuery) (model.ChannelSnapshot, error) {
	log.Debug().Str("channel_id", q.ChannelID).Msg("Fetching YouTube channel stats")

	response, err := a.channelsCall([]string{"snippet", "statistics"}, q.ChannelID).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		log.Error().Err(err).Str("channel_id", q.ChannelID).Msg("Failed to get channel from YouTube API")
		return model.ChannelSnapshot{}, mapAPIError(err, provider.EndpointChannelStats, q)
	}
	if len(response.Items) == 0 {
		return model.ChannelSnapshot{}, notFound(provider.EndpointChannelStats, q, "channel not found on YouTube")
	}

	item := response.Items[0]
	snapshot := model.ChannelSnapshot{ChannelID: item.Id}
	if item.Snippet != nil {
		snapshot.Name = item.Snippet.Title
		snapshot.Description = item.Snippet.Description
		snapshot.ThumbnailURL = bestThumbnail(item.Snippet.Thumbnails)
		snapshot.CreatedAt = parseTimestamp(item.Snippet.PublishedAt)
	}
	if item.Statistics != nil {
		snapshot.SubscriberCount = int64(item.Statistics.SubscriberCount)
		snapshot.VideoCount = int64(item.Statistics.VideoCount)
		snapshot.ViewCount = int64(item.Statistics.ViewCount)
	}

	log.Info().
		Str("channel_id", snapshot.ChannelID).
		Str("title", snapshot.Name).
		Int64("subscribers", snapshot.SubscriberCount).
		Int64("view_count", snapshot.ViewCount).
		Int64("video_count", snapshot.VideoCount).
		Msg("YouTube channel stats retrieved")

	return snapshot, nil
}

// GetVideoStats looks the ids up in batches. Ids YouTube does not know are
// dropped; the result follows the API's order within each batch.
func (a *YouTubeAdapter) GetVideoStats(ctx context.Context, q provider.VideoStatsQuery) ([]model.VideoStat, error) {
	videos := make([]model.VideoStat, 0, len(q.VideoIDs))
	for start := 0; start < len(q.VideoIDs); start += maxIDsPerRequest {
		end := min(start+maxIDsPerRequest, len(q.VideoIDs))
		batch := q.VideoIDs[start:end]

		response, err := a.service.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
			Id(batch...).
			Context(ctx).
			Do()
		if err != nil {
			log.Error().Err(err).Strs("video_ids", batch).Msg("Failed to get video statistics")
			return nil, mapAPIError(err, provider.EndpointVideoStats, q)
		}

		for _, item := range response.Items {
			videos = append(videos, convertVideo(item))
		}
	}

	log.Debug().
		Int("requested", len(q.VideoIDs)).
		Int("returned", len(videos)).
		Msg("YouTube video stats retrieved")

	return videos, nil
}

// GetRecentVideos walks the channel's uploads playlist until limit ids are
// collected, then fetches their statistics. A non-positive limit reads a
// single page.
func (a *YouTubeAdapter) GetRecentVideos(ctx context.Context, q provider.RecentVideosQuery) ([]model.VideoStat, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = maxIDsPerRequest
	}

	response, err := a.channelsCall([]string{"contentDetails"}, q.ChannelID).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		log.Error().Err(err).Str("channel_id", q.ChannelID).Msg("Failed to get channel from YouTube API")
		return nil, mapAPIError(err, provider.EndpointRecentVideos, q)
	}
	if len(response.Items) == 0 || response.Items[0].ContentDetails == nil ||
		response.Items[0].ContentDetails.RelatedPlaylists == nil {
		return nil, notFound(provider.EndpointRecentVideos, q, "channel not found on YouTube")
	}
	uploadsPlaylistID := response.Items[0].ContentDetails.RelatedPlaylists.Uploads

	videoIDs := make([]string, 0, limit)
	var nextPageToken string
	for len(videoIDs) < limit {
		playlistCall := a.service.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(uploadsPlaylistID).
			MaxResults(int64(min(maxIDsPerRequest, limit-len(videoIDs)))).
			Context(ctx)
		if nextPageToken != "" {
			playlistCall = playlistCall.PageToken(nextPageToken)
		}

		playlistResponse, err := playlistCall.Do()
		if err != nil {
			log.Error().Err(err).Str("playlist_id", uploadsPlaylistID).Msg("Failed to get videos from playlist")
			return nil, mapAPIError(err, provider.EndpointRecentVideos, q)
		}

		for _, item := range playlistResponse.Items {
			if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
				videoIDs = append(videoIDs, item.ContentDetails.VideoId)
			}
		}

		if len(playlistResponse.Items) == 0 || playlistResponse.NextPageToken == "" {
			break
		}
		nextPageToken = playlistResponse.NextPageToken
	}

	if len(videoIDs) == 0 {
		return []model.VideoStat{}, nil
	}
	if len(videoIDs) > limit {
		videoIDs = videoIDs[:limit]
	}

	videos, err := a.GetVideoStats(ctx, provider.VideoStatsQuery{VideoIDs: videoIDs})
	if err != nil {
		return nil, err
	}
	model.SortVideosByPublishedDesc(videos)

	log.Info().
		Str("channel_id", q.ChannelID).
		Int("video_count", len(videos)).
		Msg("Retrieved recent videos from YouTube channel")

	return videos, nil
}

func convertVideo(item *ytapi.Video) model.VideoStat {
	video := model.VideoStat{VideoID: item.Id}
	if item.Snippet != nil {
		video.ChannelID = item.Snippet.ChannelId
		video.Title = item.Snippet.Title
		video.Description = item.Snippet.Description
		video.ThumbnailURL = bestThumbnail(item.Snippet.Thumbnails)
		video.PublishedAt = parseTimestamp(item.Snippet.PublishedAt)
	}
	if item.ContentDetails != nil {
		seconds, err := ParseISODuration(item.ContentDetails.Duration)
		if err != nil {
			log.Warn().Err(err).Str("video_id", item.Id).Msg("Failed to parse video duration")
		}
		video.DurationSeconds = seconds
	}
	if item.Statistics != nil {
		video.ViewCount = int64(item.Statistics.ViewCount)
		video.LikeCount = int64(item.Statistics.LikeCount)
		video.CommentCount = int64(item.Statistics.CommentCount)
	}
	return video
}

// bestThumbnail returns the largest available thumbnail url
func bestThumbnail(t *ytapi.ThumbnailDetails) *string {
	if t == nil {
		return nil
	}
	for _, thumb := range []*ytapi.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			url := thumb.Url
			return &url
		}
	}
	return nil
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		log.Warn().Err(err).Str("date", s).Msg("Failed to parse published date")
		return time.Time{}
	}
	return t.UTC()
}

func notFound(endpoint provider.Endpoint, q any, msg string) error {
	return apperror.New(apperror.CodeYouTubeNotFound, msg, apperror.SeverityError, map[string]any{
		"endpoint": string(endpoint),
		"query":    fmt.Sprintf("%+v", q),
	})
}
