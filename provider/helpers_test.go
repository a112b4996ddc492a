package provider

import (
	"context"
	"time"

	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/stretchr/testify/mock"
)

const seedFixturePath = "testdata/seed-data.json"

// MockProvider is a testify mock of Provider
type MockProvider struct {
	mock.Mock
	name         string
	configured   bool
	requiresAuth bool
}

func newMockProvider(name string) *MockProvider {
	return &MockProvider{name: name, configured: true}
}

func (m *MockProvider) Name() string       { return m.name }
func (m *MockProvider) Configured() bool   { return m.configured }
func (m *MockProvider) RequiresAuth() bool { return m.requiresAuth }

func (m *MockProvider) GetChannelStats(ctx context.Context, q ChannelStatsQuery) (model.ChannelSnapshot, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(model.ChannelSnapshot), args.Error(1)
}

func (m *MockProvider) GetVideoStats(ctx context.Context, q VideoStatsQuery) ([]model.VideoStat, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.VideoStat), args.Error(1)
}

func (m *MockProvider) GetRecentVideos(ctx context.Context, q RecentVideosQuery) ([]model.VideoStat, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.VideoStat), args.Error(1)
}

// fakeClock is a manually advanced Clock
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testChannel(id string) model.ChannelSnapshot {
	return model.ChannelSnapshot{
		ChannelID:       id,
		Name:            "Test",
		Description:     "Test",
		SubscriberCount: 100,
		VideoCount:      10,
		ViewCount:       1000,
		CreatedAt:       time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testVideo(id string, published time.Time) model.VideoStat {
	return model.VideoStat{
		VideoID:         id,
		ChannelID:       "UC-REC-001",
		Title:           "Video " + id,
		PublishedAt:     published,
		DurationSeconds: 300,
		ViewCount:       250,
		LikeCount:       15,
		CommentCount:    3,
	}
}
