package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/rs/zerolog/log"
)

// Snapshot is the serialised content of a MemoryStore
type Snapshot struct {
	Channels []model.ChannelSnapshot      `json:"channels"`
	Videos   map[string][]model.VideoStat `json:"videos"`
	Runs     []model.SyncRun              `json:"runs"`
}

// Snapshot copies the store content. Runs keep their creation order per
// channel.
func (m *MemoryStore) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Channels: make([]model.ChannelSnapshot, 0, len(m.channels)),
		Videos:   make(map[string][]model.VideoStat, len(m.videos)),
		Runs:     make([]model.SyncRun, 0, len(m.runs)),
	}
	for _, ch := range m.channels {
		snap.Channels = append(snap.Channels, ch)
	}
	for channelID, byID := range m.videos {
		videos := make([]model.VideoStat, 0, len(byID))
		for _, v := range byID {
			videos = append(videos, v)
		}
		model.SortVideosByPublishedDesc(videos)
		snap.Videos[channelID] = videos
	}
	for _, ids := range m.runOrder {
		for _, id := range ids {
			snap.Runs = append(snap.Runs, m.runs[id])
		}
	}
	return snap
}

// Restore replaces the store content with snap
func (m *MemoryStore) Restore(snap Snapshot) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.channels = make(map[string]model.ChannelSnapshot, len(snap.Channels))
	m.videos = make(map[string]map[string]model.VideoStat, len(snap.Videos))
	m.runs = make(map[string]model.SyncRun, len(snap.Runs))
	m.runOrder = make(map[string][]string)

	for _, ch := range snap.Channels {
		m.channels[ch.ChannelID] = ch
	}
	for channelID, videos := range snap.Videos {
		byID := make(map[string]model.VideoStat, len(videos))
		for _, v := range videos {
			byID[v.VideoID] = v
		}
		m.videos[channelID] = byID
	}
	for _, run := range snap.Runs {
		m.runs[run.ID] = run
		m.runOrder[run.ChannelID] = append(m.runOrder[run.ChannelID], run.ID)
	}
}

// SaveToFile writes the store as JSON to path
func (m *MemoryStore) SaveToFile(path string) error {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	log.Debug().Str("path", path).Msg("State saved")
	return nil
}

// LoadFromFile restores the store from path. A missing file leaves the
// store empty.
func (m *MemoryStore) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("No state file, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}
	m.Restore(snap)
	log.Debug().Str("path", path).Int("channels", len(snap.Channels)).Msg("State loaded")
	return nil
}
