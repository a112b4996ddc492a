package datamode

import (
	"context"
	"encoding/json"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/provider"
	"github.com/rs/zerolog/log"
)

// Probe defaults
const (
	DefaultProbeVideoID     = "VID-001"
	DefaultProbeRecentLimit = 5
)

// ProbeInput selects what Probe asks the active provider for. Nil VideoIDs
// and a nil RecentLimit take the defaults. A set RecentLimit must be at
// least 1.
type ProbeInput struct {
	ChannelID   string   `json:"channelId"`
	VideoIDs    []string `json:"videoIds,omitempty"`
	RecentLimit *int     `json:"recentLimit,omitempty"`
}

// probeRequest is a ProbeInput with the defaults applied
type probeRequest struct {
	channelID   string
	videoIDs    []string
	recentLimit int
}

// ProbeResult summarizes one probe of the active provider
type ProbeResult struct {
	Mode              Mode
	ProviderName      string
	ChannelID         string
	RecentVideos      int
	VideoStats        int
	Errors            map[provider.Endpoint]string
	RecordFilePath    string
	HasRecordFilePath bool
}

// MarshalJSON emits recordFilePath only in record mode, as null until the
// recorder has written
func (r ProbeResult) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"mode":         r.Mode,
		"providerName": r.ProviderName,
		"channelId":    r.ChannelID,
		"recentVideos": r.RecentVideos,
		"videoStats":   r.VideoStats,
	}
	if len(r.Errors) > 0 {
		errs := make(map[string]string, len(r.Errors))
		for endpoint, code := range r.Errors {
			errs[string(endpoint)] = code
		}
		out["errors"] = errs
	}
	if r.Mode == ModeRecord {
		if r.HasRecordFilePath {
			out["recordFilePath"] = r.RecordFilePath
		} else {
			out["recordFilePath"] = nil
		}
	}
	return json.Marshal(out)
}

func (in ProbeInput) normalize() (probeRequest, error) {
	invalid := func(msg string) error {
		ctx := map[string]any{
			"channelId":   in.ChannelID,
			"videoIds":    in.VideoIDs,
			"recentLimit": nil,
		}
		if in.RecentLimit != nil {
			ctx["recentLimit"] = *in.RecentLimit
		}
		return apperror.New(apperror.CodeProbeInvalidInput, msg, apperror.SeverityError, ctx)
	}

	if in.ChannelID == "" {
		return probeRequest{}, invalid("channelId must not be empty")
	}
	if in.RecentLimit != nil && *in.RecentLimit < 1 {
		return probeRequest{}, invalid("recentLimit must be a positive integer")
	}
	for _, id := range in.VideoIDs {
		if id == "" {
			return probeRequest{}, invalid("videoIds must not contain empty ids")
		}
	}

	out := probeRequest{
		channelID:   in.ChannelID,
		videoIDs:    in.VideoIDs,
		recentLimit: DefaultProbeRecentLimit,
	}
	if len(out.videoIDs) == 0 {
		out.videoIDs = []string{DefaultProbeVideoID}
	}
	if in.RecentLimit != nil {
		out.recentLimit = *in.RecentLimit
	}
	return out, nil
}

// Probe calls the three operations of the active provider. Invalid input
// fails before any provider is touched. Operation failures are recorded in
// the result by endpoint and do not fail the probe.
func (m *Manager) Probe(ctx context.Context, input ProbeInput) (ProbeResult, error) {
	in, err := input.normalize()
	if err != nil {
		return ProbeResult{}, err
	}

	active := m.ActiveProvider()
	result := ProbeResult{
		Mode:         active.Mode,
		ProviderName: active.Provider.Name(),
		ChannelID:    in.channelID,
		Errors:       make(map[provider.Endpoint]string),
	}

	if _, err := active.Provider.GetChannelStats(ctx, provider.ChannelStatsQuery{ChannelID: in.channelID}); err != nil {
		result.Errors[provider.EndpointChannelStats] = apperror.CodeOf(err)
	}

	recent, err := active.Provider.GetRecentVideos(ctx, provider.RecentVideosQuery{
		ChannelID: in.channelID,
		Limit:     in.recentLimit,
	})
	if err != nil {
		result.Errors[provider.EndpointRecentVideos] = apperror.CodeOf(err)
	}
	result.RecentVideos = len(recent)

	stats, err := active.Provider.GetVideoStats(ctx, provider.VideoStatsQuery{VideoIDs: in.videoIDs})
	if err != nil {
		result.Errors[provider.EndpointVideoStats] = apperror.CodeOf(err)
	}
	result.VideoStats = len(stats)

	if active.Mode == ModeRecord {
		result.RecordFilePath, result.HasRecordFilePath = m.RecordPath()
	}

	log.Info().
		Str("mode", string(result.Mode)).
		Str("provider", result.ProviderName).
		Str("channel_id", result.ChannelID).
		Int("recent_videos", result.RecentVideos).
		Int("video_stats", result.VideoStats).
		Int("failed_calls", len(result.Errors)).
		Msg("Probe completed")

	return result, nil
}
