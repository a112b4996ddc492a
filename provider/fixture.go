package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// FixtureProviderName is the name of a provider built by NewFixtureProvider
const FixtureProviderName = "fake-data-provider"

// LoadDataset reads a fixture or recording file. Files ending in .yaml or
// .yml are decoded as YAML, anything else as JSON.
func LoadDataset(path string) (model.Dataset, error) {
	var dataset model.Dataset

	data, err := os.ReadFile(path)
	if err != nil {
		return dataset, apperror.Wrap(err, apperror.CodeFakeDataLoadFailed,
			"failed to read fixture file", apperror.SeverityError,
			map[string]any{"fixturePath": path})
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &dataset)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(&dataset)
	}
	if err != nil {
		return dataset, apperror.Wrap(err, apperror.CodeFakeDataLoadFailed,
			"fixture file is malformed", apperror.SeverityError,
			map[string]any{"fixturePath": path})
	}

	if dataset.Channel.ChannelID == "" {
		return dataset, apperror.New(apperror.CodeFakeDataLoadFailed,
			"fixture file has no channel", apperror.SeverityError,
			map[string]any{"fixturePath": path})
	}

	for i, v := range dataset.Videos {
		if v.VideoID == "" {
			return dataset, apperror.New(apperror.CodeFakeDataLoadFailed,
				"fixture video has no id", apperror.SeverityError,
				map[string]any{"fixturePath": path, "index": i})
		}
	}

	return dataset, nil
}

// FixtureProvider serves a fixed dataset loaded once at construction
type FixtureProvider struct {
	name    string
	path    string
	dataset model.Dataset
	byID    map[string]model.VideoStat
}

// NewFixtureProvider loads the fixture at path
func NewFixtureProvider(path string) (*FixtureProvider, error) {
	dataset, err := LoadDataset(path)
	if err != nil {
		log.Error().Err(err).Str("fixture_path", path).Msg("Failed to load fixture")
		return nil, err
	}

	p := NewFixtureProviderFromDataset(dataset)
	p.path = path

	log.Debug().
		Str("fixture_path", path).
		Str("channel_id", dataset.Channel.ChannelID).
		Int("video_count", len(dataset.Videos)).
		Msg("Fixture loaded")

	return p, nil
}

// NewFixtureProviderFromDataset serves an already decoded dataset
func NewFixtureProviderFromDataset(dataset model.Dataset) *FixtureProvider {
	byID := make(map[string]model.VideoStat, len(dataset.Videos))
	for _, v := range dataset.Videos {
		if _, seen := byID[v.VideoID]; !seen {
			byID[v.VideoID] = v
		}
	}
	return &FixtureProvider{
		name:    FixtureProviderName,
		dataset: dataset,
		byID:    byID,
	}
}

func (p *FixtureProvider) Name() string       { return p.name }
func (p *FixtureProvider) Configured() bool   { return true }
func (p *FixtureProvider) RequiresAuth() bool { return false }

// Dataset returns a copy of the loaded fixture
func (p *FixtureProvider) Dataset() model.Dataset {
	d := p.dataset
	d.Channel = d.Channel.Clone()
	d.Videos = model.CloneVideos(d.Videos)
	d.ChannelDailyMetrics = append([]model.ChannelDailyMetric(nil), d.ChannelDailyMetrics...)
	return d
}

func (p *FixtureProvider) GetChannelStats(_ context.Context, q ChannelStatsQuery) (model.ChannelSnapshot, error) {
	if q.ChannelID != p.dataset.Channel.ChannelID {
		return model.ChannelSnapshot{}, p.notFound(EndpointChannelStats, q, "channel not found in fixture")
	}
	return p.dataset.Channel.Clone(), nil
}

// GetVideoStats returns the requested videos present in the fixture, in
// request order. Unknown ids are dropped; repeated ids repeat in the result.
func (p *FixtureProvider) GetVideoStats(_ context.Context, q VideoStatsQuery) ([]model.VideoStat, error) {
	out := make([]model.VideoStat, 0, len(q.VideoIDs))
	for _, id := range q.VideoIDs {
		if v, ok := p.byID[id]; ok {
			out = append(out, v.Clone())
		}
	}
	if len(out) == 0 {
		return nil, p.notFound(EndpointVideoStats, q, "none of the requested videos exist in fixture")
	}
	return out, nil
}

// GetRecentVideos returns the fixture channel's videos newest first. A
// non-positive limit returns all of them.
func (p *FixtureProvider) GetRecentVideos(_ context.Context, q RecentVideosQuery) ([]model.VideoStat, error) {
	if q.ChannelID != p.dataset.Channel.ChannelID {
		return nil, p.notFound(EndpointRecentVideos, q, "channel not found in fixture")
	}

	out := make([]model.VideoStat, 0, len(p.dataset.Videos))
	for _, v := range p.dataset.Videos {
		if v.ChannelID == q.ChannelID {
			out = append(out, v.Clone())
		}
	}
	model.SortVideosByPublishedDesc(out)

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (p *FixtureProvider) notFound(endpoint Endpoint, q any, msg string) error {
	return apperror.New(apperror.CodeFakeDataNotFound, msg, apperror.SeverityError, map[string]any{
		"endpoint":    string(endpoint),
		"query":       serializeQuery(q),
		"fixturePath": p.path,
	})
}
