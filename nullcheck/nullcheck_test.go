package nullcheck

import (
	"testing"
	"time"

	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func completeVideo(id string) model.VideoStat {
	return model.VideoStat{
		VideoID:         id,
		ChannelID:       "UC-001",
		Title:           "Title",
		Description:     "Description",
		ThumbnailURL:    strPtr("https://example.com/thumb.jpg"),
		PublishedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DurationSeconds: 60,
		ViewCount:       10,
		LikeCount:       2,
		CommentCount:    1,
	}
}

func TestValidateVideo_Complete(t *testing.T) {
	result := NewValidator().ValidateVideo(completeVideo("VID-001"))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.Events)
}

func TestValidateVideo_Behaviors(t *testing.T) {
	video := completeVideo("VID-001")
	video.PublishedAt = time.Time{}
	video.ThumbnailURL = nil
	video.LikeCount = 0
	video.Description = ""

	result := NewValidator().ValidateVideo(video)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"PublishedAt is required"}, result.Errors)
	assert.Equal(t, []string{"ThumbnailURL is empty"}, result.Warnings)
	assert.Equal(t, []string{"VideoStat.LikeCount"}, result.Unavailable)
	require.Len(t, result.Events, 4)

	for _, e := range result.Events {
		assert.Equal(t, DataTypeVideo, e.DataType)
		if e.FieldName == "VideoStat.LikeCount" {
			assert.True(t, e.IsPlatformLimit)
		}
	}
}

func TestValidateChannel(t *testing.T) {
	tests := []struct {
		name    string
		channel model.ChannelSnapshot
		valid   bool
	}{
		{"missing id", model.ChannelSnapshot{Name: "Channel"}, false},
		{"missing name", model.ChannelSnapshot{ChannelID: "UC-001"}, false},
		{"sparse but valid", model.ChannelSnapshot{ChannelID: "UC-001", Name: "Channel"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, NewValidator().ValidateChannel(tt.channel).Valid)
		})
	}
}

func TestFilterVideos(t *testing.T) {
	broken := completeVideo("")
	videos := []model.VideoStat{completeVideo("VID-001"), broken, completeVideo("VID-002")}

	kept, dropped := NewValidator().FilterVideos(videos)
	assert.Equal(t, 1, dropped)
	require.Len(t, kept, 2)
	assert.Equal(t, "VID-001", kept[0].VideoID)
	assert.Equal(t, "VID-002", kept[1].VideoID)
}

func TestMergeRules(t *testing.T) {
	rules := MergeRules(map[string]Rule{
		"VideoStat.Title": {Behavior: BehaviorCritical, Message: "Title is now required"},
	})
	assert.Equal(t, BehaviorCritical, rules["VideoStat.Title"].Behavior)
	assert.Equal(t, BehaviorCritical, rules["VideoStat.VideoID"].Behavior)

	video := completeVideo("VID-001")
	video.Title = ""
	result := NewValidatorWithRules(rules).ValidateVideo(video)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"Title is now required"}, result.Errors)
}

func TestLoadRulesFromJSON(t *testing.T) {
	rules, err := LoadRulesFromJSON([]byte(`{"ChannelSnapshot.Name": {"behavior": "optional", "message": "Name may be empty"}}`))
	require.NoError(t, err)
	assert.Equal(t, BehaviorOptional, rules["ChannelSnapshot.Name"].Behavior)

	result := NewValidatorWithRules(rules).ValidateChannel(model.ChannelSnapshot{ChannelID: "UC-001"})
	assert.True(t, result.Valid)

	_, err = LoadRulesFromJSON([]byte("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse rules JSON")
}
