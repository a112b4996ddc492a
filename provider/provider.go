// Package provider defines the data-provider contract for channel and video
// analytics, its fixture and live implementations, and the decorators
// (recording, cache, rate limit) that wrap any provider.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/researchaccelerator-hub/channel-analytics/model"
)

// Endpoint names one of the three query operations
type Endpoint string

const (
	EndpointChannelStats Endpoint = "getChannelStats"
	EndpointVideoStats   Endpoint = "getVideoStats"
	EndpointRecentVideos Endpoint = "getRecentVideos"
)

// Endpoints lists every endpoint in declaration order
var Endpoints = []Endpoint{EndpointChannelStats, EndpointVideoStats, EndpointRecentVideos}

// ChannelStatsQuery selects a single channel
type ChannelStatsQuery struct {
	ChannelID string `json:"channelId"`
}

// VideoStatsQuery selects videos by id. Order and duplicates are meaningful.
type VideoStatsQuery struct {
	VideoIDs []string `json:"videoIds"`
}

// RecentVideosQuery selects the newest videos of a channel
type RecentVideosQuery struct {
	ChannelID string `json:"channelId"`
	Limit     int    `json:"limit"`
}

// Adapter is the set of query operations. Live network clients implement it
// and are handed to NewRealProvider.
type Adapter interface {
	// GetChannelStats returns the current snapshot of a channel
	GetChannelStats(ctx context.Context, q ChannelStatsQuery) (model.ChannelSnapshot, error)

	// GetVideoStats returns stats for the requested video ids
	GetVideoStats(ctx context.Context, q VideoStatsQuery) ([]model.VideoStat, error)

	// GetRecentVideos returns a channel's videos, newest first, at most q.Limit
	GetRecentVideos(ctx context.Context, q RecentVideosQuery) ([]model.VideoStat, error)
}

// Provider is the only interface consumers of analytics data depend on.
// Every failure returned by its operations is an *apperror.Error.
type Provider interface {
	Adapter

	// Name identifies the provider; decorators append a ":tag"
	Name() string

	// Configured reports whether the provider can serve requests
	Configured() bool

	// RequiresAuth reports whether the provider needs credentials
	RequiresAuth() bool
}

// Recorder is a provider that persists what it serves
type Recorder interface {
	Provider

	// LastRecordPath returns the output path once a write has succeeded
	LastRecordPath() (string, bool)
}

// Clock returns the current time. Decorators take one so tests control time.
type Clock func() time.Time

func (c Clock) orDefault() Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// serializeQuery returns a canonical string form of a query struct
func serializeQuery(q any) string {
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Sprintf("%+v", q)
	}
	return string(b)
}

func queryKey(endpoint Endpoint, q any) string {
	return string(endpoint) + ":" + serializeQuery(q)
}

func cloneChannel(c model.ChannelSnapshot) model.ChannelSnapshot { return c.Clone() }

func cloneVideos(videos []model.VideoStat) []model.VideoStat { return model.CloneVideos(videos) }
