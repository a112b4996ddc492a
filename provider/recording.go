package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/rs/zerolog/log"
)

// RecordingTimeLayout formats the generatedAt field of a recording
const RecordingTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// RecordingOptions configures NewRecordingProvider
type RecordingOptions struct {
	OutputPath string
	Now        Clock
}

// RecordingProvider forwards calls to an inner provider and writes every
// successful response into a replayable recording file
type RecordingProvider struct {
	inner      Provider
	outputPath string
	now        Clock

	mu         sync.Mutex
	channel    *model.ChannelSnapshot
	videos     []model.VideoStat
	lastRecord string
}

var _ Recorder = (*RecordingProvider)(nil)

// NewRecordingProvider wraps inner
func NewRecordingProvider(inner Provider, opts RecordingOptions) *RecordingProvider {
	return &RecordingProvider{
		inner:      inner,
		outputPath: opts.OutputPath,
		now:        opts.Now.orDefault(),
	}
}

func (p *RecordingProvider) Name() string { return p.inner.Name() + ":recording" }

// Configured requires both a configured inner provider and an output path
func (p *RecordingProvider) Configured() bool {
	return p.inner.Configured() && p.outputPath != ""
}

func (p *RecordingProvider) RequiresAuth() bool { return p.inner.RequiresAuth() }

// OutputPath returns the configured recording file path
func (p *RecordingProvider) OutputPath() string { return p.outputPath }

func (p *RecordingProvider) LastRecordPath() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRecord, p.lastRecord != ""
}

func (p *RecordingProvider) GetChannelStats(ctx context.Context, q ChannelStatsQuery) (model.ChannelSnapshot, error) {
	snapshot, err := p.inner.GetChannelStats(ctx, q)
	if err != nil {
		return model.ChannelSnapshot{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	stored := snapshot.Clone()
	p.channel = &stored
	if err := p.persistLocked(); err != nil {
		return model.ChannelSnapshot{}, err
	}
	return snapshot, nil
}

func (p *RecordingProvider) GetVideoStats(ctx context.Context, q VideoStatsQuery) ([]model.VideoStat, error) {
	videos, err := p.inner.GetVideoStats(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := p.mergeVideos(videos); err != nil {
		return nil, err
	}
	return videos, nil
}

func (p *RecordingProvider) GetRecentVideos(ctx context.Context, q RecentVideosQuery) ([]model.VideoStat, error) {
	videos, err := p.inner.GetRecentVideos(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := p.mergeVideos(videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// Snapshot returns a copy of the accumulated recording
func (p *RecordingProvider) Snapshot() (model.Recording, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return model.Recording{Videos: cloneVideos(p.videos)}, false
	}
	return model.Recording{Channel: p.channel.Clone(), Videos: cloneVideos(p.videos)}, true
}

func (p *RecordingProvider) mergeVideos(videos []model.VideoStat) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.videos = model.MergeVideos(p.videos, model.CloneVideos(videos))
	return p.persistLocked()
}

// persistLocked writes the accumulator. Nothing is written before a channel
// snapshot exists. The in-memory state is kept when the write fails.
func (p *RecordingProvider) persistLocked() error {
	if p.channel == nil {
		return nil
	}

	videos := p.videos
	if videos == nil {
		videos = []model.VideoStat{}
	}
	recording := model.Recording{
		Channel:     *p.channel,
		Videos:      videos,
		GeneratedAt: p.now().UTC().Format(RecordingTimeLayout),
	}

	if err := writeJSONFile(p.outputPath, recording); err != nil {
		log.Warn().Err(err).
			Str("provider", p.Name()).
			Str("output_path", p.outputPath).
			Msg("Failed to save recording")
		return apperror.Wrap(err, apperror.CodeRecordSaveFailed,
			"failed to save recording", apperror.SeverityError,
			map[string]any{"outputFilePath": p.outputPath})
	}

	p.lastRecord = p.outputPath
	log.Debug().
		Str("output_path", p.outputPath).
		Int("video_count", len(videos)).
		Msg("Recording saved")
	return nil
}

// writeJSONFile replaces path atomically with the indented JSON of v
func writeJSONFile(path string, v any) error {
	if path == "" {
		return fmt.Errorf("output path is empty")
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recording: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create recording directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move recording into place: %w", err)
	}
	return nil
}
