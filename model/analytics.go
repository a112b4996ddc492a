package model

import (
	"slices"
	"time"
)

// ChannelSnapshot is the point-in-time state of a channel
type ChannelSnapshot struct {
	ChannelID       string     `json:"channelId" yaml:"channelId"`
	Name            string     `json:"name" yaml:"name"`
	Description     string     `json:"description" yaml:"description"`
	ThumbnailURL    *string    `json:"thumbnailUrl" yaml:"thumbnailUrl"`
	SubscriberCount int64      `json:"subscriberCount" yaml:"subscriberCount"`
	VideoCount      int64      `json:"videoCount" yaml:"videoCount"`
	ViewCount       int64      `json:"viewCount" yaml:"viewCount"`
	CreatedAt       time.Time  `json:"createdAt" yaml:"createdAt"`
	LastSyncAt      *time.Time `json:"lastSyncAt" yaml:"lastSyncAt"`
}

// VideoStat holds the metadata and counters of a single video
type VideoStat struct {
	VideoID         string    `json:"videoId" yaml:"videoId"`
	ChannelID       string    `json:"channelId" yaml:"channelId"`
	Title           string    `json:"title" yaml:"title"`
	Description     string    `json:"description" yaml:"description"`
	ThumbnailURL    *string   `json:"thumbnailUrl" yaml:"thumbnailUrl"`
	PublishedAt     time.Time `json:"publishedAt" yaml:"publishedAt"`
	DurationSeconds int64     `json:"durationSeconds" yaml:"durationSeconds"`
	ViewCount       int64     `json:"viewCount" yaml:"viewCount"`
	LikeCount       int64     `json:"likeCount" yaml:"likeCount"`
	CommentCount    int64     `json:"commentCount" yaml:"commentCount"`
}

// Profile is the local analytics profile a fixture belongs to
type Profile struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// ChannelDailyMetric is one per-day row of channel metrics
type ChannelDailyMetric struct {
	Date             string `json:"date" yaml:"date"` // YYYY-MM-DD
	Subscribers      int64  `json:"subscribers" yaml:"subscribers"`
	Views            int64  `json:"views" yaml:"views"`
	Videos           int64  `json:"videos" yaml:"videos"`
	Likes            int64  `json:"likes" yaml:"likes"`
	Comments         int64  `json:"comments" yaml:"comments"`
	WatchTimeMinutes int64  `json:"watchTimeMinutes" yaml:"watchTimeMinutes"`
}

// Dataset is the content of a fixture file. Recording files decode into it
// as well; their generatedAt is kept and profile/metrics stay empty.
type Dataset struct {
	Profile             *Profile             `json:"profile,omitempty" yaml:"profile,omitempty"`
	Channel             ChannelSnapshot      `json:"channel" yaml:"channel"`
	ChannelDailyMetrics []ChannelDailyMetric `json:"channelDailyMetrics,omitempty" yaml:"channelDailyMetrics,omitempty"`
	Videos              []VideoStat          `json:"videos" yaml:"videos"`
	GeneratedAt         string               `json:"generatedAt,omitempty" yaml:"generatedAt,omitempty"`
}

// Recording is the file written by the recording provider
type Recording struct {
	Channel     ChannelSnapshot `json:"channel"`
	Videos      []VideoStat     `json:"videos"`
	GeneratedAt string          `json:"generatedAt"`
}

// SortVideosByPublishedDesc sorts newest first, keeping input order for equal
// timestamps
func SortVideosByPublishedDesc(videos []VideoStat) {
	slices.SortStableFunc(videos, func(a, b VideoStat) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
}

// MergeVideos merges incoming into existing by video id. Incoming entries
// replace existing ones with the same id. The result has unique ids and is
// sorted newest first.
func MergeVideos(existing, incoming []VideoStat) []VideoStat {
	byID := make(map[string]int, len(existing)+len(incoming))
	merged := make([]VideoStat, 0, len(existing)+len(incoming))

	for _, batch := range [][]VideoStat{existing, incoming} {
		for _, v := range batch {
			if idx, ok := byID[v.VideoID]; ok {
				merged[idx] = v
				continue
			}
			byID[v.VideoID] = len(merged)
			merged = append(merged, v)
		}
	}

	SortVideosByPublishedDesc(merged)
	return merged
}

// Clone returns a copy that shares no pointers with c
func (c ChannelSnapshot) Clone() ChannelSnapshot {
	c.ThumbnailURL = clonePtr(c.ThumbnailURL)
	c.LastSyncAt = clonePtr(c.LastSyncAt)
	return c
}

// Clone returns a copy that shares no pointers with v
func (v VideoStat) Clone() VideoStat {
	v.ThumbnailURL = clonePtr(v.ThumbnailURL)
	return v
}

// CloneVideos deep copies videos. Nil stays nil.
func CloneVideos(videos []VideoStat) []VideoStat {
	if videos == nil {
		return nil
	}
	out := make([]VideoStat, len(videos))
	for i, v := range videos {
		out[i] = v.Clone()
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
