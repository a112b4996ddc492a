package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned by the read helpers for unknown keys
var ErrNotFound = errors.New("not found")

// MemoryStore keeps synced analytics in maps guarded by a RWMutex
type MemoryStore struct {
	mutex sync.RWMutex

	channels map[string]model.ChannelSnapshot

	// channel ID -> video ID -> video
	videos map[string]map[string]model.VideoStat

	runs map[string]model.SyncRun

	// channel ID -> run IDs in creation order
	runOrder map[string][]string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		channels: make(map[string]model.ChannelSnapshot),
		videos:   make(map[string]map[string]model.VideoStat),
		runs:     make(map[string]model.SyncRun),
		runOrder: make(map[string][]string),
	}
}

// UpsertChannel replaces the stored snapshot of the channel
func (m *MemoryStore) UpsertChannel(_ context.Context, channel model.ChannelSnapshot) error {
	if channel.ChannelID == "" {
		return fmt.Errorf("channel ID is required")
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.channels[channel.ChannelID] = channel
	return nil
}

// UpsertVideos merges videos into the channel's stored videos by ID
func (m *MemoryStore) UpsertVideos(_ context.Context, channelID string, videos []model.VideoStat) error {
	for _, v := range videos {
		if v.VideoID == "" {
			return fmt.Errorf("video ID is required")
		}
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	byID, exists := m.videos[channelID]
	if !exists {
		byID = make(map[string]model.VideoStat)
		m.videos[channelID] = byID
	}
	for _, v := range videos {
		byID[v.VideoID] = v
	}
	log.Debug().Str("channel_id", channelID).Int("count", len(videos)).Msg("Upserted videos")
	return nil
}

// CreateSyncRun stores a new run
func (m *MemoryStore) CreateSyncRun(_ context.Context, run model.SyncRun) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.runs[run.ID]; exists {
		return fmt.Errorf("sync run %s already exists", run.ID)
	}
	m.runs[run.ID] = run
	m.runOrder[run.ChannelID] = append(m.runOrder[run.ChannelID], run.ID)
	return nil
}

// FinishSyncRun replaces a stored run with its final state
func (m *MemoryStore) FinishSyncRun(_ context.Context, run model.SyncRun) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.runs[run.ID]; !exists {
		return fmt.Errorf("sync run %s: %w", run.ID, ErrNotFound)
	}
	m.runs[run.ID] = run
	return nil
}

// GetChannel retrieves a channel snapshot by ID
func (m *MemoryStore) GetChannel(channelID string) (model.ChannelSnapshot, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	channel, exists := m.channels[channelID]
	if !exists {
		return model.ChannelSnapshot{}, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	return channel, nil
}

// ListVideos returns the channel's videos, newest first
func (m *MemoryStore) ListVideos(channelID string) []model.VideoStat {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]model.VideoStat, 0, len(m.videos[channelID]))
	for _, v := range m.videos[channelID] {
		out = append(out, v)
	}
	model.SortVideosByPublishedDesc(out)
	return out
}

// GetSyncRun retrieves a run by ID
func (m *MemoryStore) GetSyncRun(runID string) (model.SyncRun, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	run, exists := m.runs[runID]
	if !exists {
		return model.SyncRun{}, fmt.Errorf("sync run %s: %w", runID, ErrNotFound)
	}
	return run, nil
}

// LatestSyncRun returns the most recently created run of a channel
func (m *MemoryStore) LatestSyncRun(channelID string) (model.SyncRun, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	order := m.runOrder[channelID]
	if len(order) == 0 {
		return model.SyncRun{}, false
	}
	return m.runs[order[len(order)-1]], true
}
