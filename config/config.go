// Package config holds the runtime configuration of channel-analytics
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/datamode"
	"github.com/researchaccelerator-hub/channel-analytics/provider"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// CHANNEL_ANALYTICS_YOUTUBE_API_KEY
const EnvPrefix = "CHANNEL_ANALYTICS"

// Config is the full runtime configuration
type Config struct {
	Mode      ModeConfig              `mapstructure:"mode" yaml:"mode" json:"mode"`
	Fixture   FixtureConfig           `mapstructure:"fixture" yaml:"fixture" json:"fixture"`
	Real      RealConfig              `mapstructure:"real" yaml:"real" json:"real"`
	Record    RecordConfig            `mapstructure:"record" yaml:"record" json:"record"`
	YouTube   YouTubeConfig           `mapstructure:"youtube" yaml:"youtube" json:"youtube"`
	Cache     provider.EndpointTTLs   `mapstructure:"cache" yaml:"cache" json:"cache"`
	RateLimit provider.EndpointLimits `mapstructure:"rate_limit" yaml:"rate_limit" json:"rateLimit"`
	Log       LogConfig               `mapstructure:"log" yaml:"log" json:"log"`
	Sync      SyncConfig              `mapstructure:"sync" yaml:"sync" json:"sync"`
}

// ModeConfig configures the mode manager
type ModeConfig struct {
	Initial string `mapstructure:"initial" yaml:"initial" json:"initial"` // "fake", "real" or "record"
	Source  string `mapstructure:"source" yaml:"source" json:"source"`
}

// FixtureConfig locates the dataset served in fake mode
type FixtureConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// RealConfig backs the real provider with a fixture when no API key is set
type RealConfig struct {
	FixturePath string `mapstructure:"fixture_path" yaml:"fixture_path" json:"fixturePath,omitempty"`
}

// RecordConfig locates the recording written in record mode
type RecordConfig struct {
	OutputPath string `mapstructure:"output_path" yaml:"output_path" json:"outputPath"`
}

// YouTubeConfig configures the live adapter
type YouTubeConfig struct {
	APIKey   string        `mapstructure:"api_key" yaml:"api_key" json:"-"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint,omitempty"`
}

// LogConfig configures zerolog
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "console" or "json"
}

// SyncConfig configures the sync pipeline
type SyncConfig struct {
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
	RecentLimit int    `mapstructure:"recent_limit" yaml:"recent_limit" json:"recentLimit"`
	StateFile   string `mapstructure:"state_file" yaml:"state_file" json:"stateFile,omitempty"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Mode: ModeConfig{
			Initial: string(datamode.ModeFake),
			Source:  datamode.DefaultSource,
		},
		Fixture: FixtureConfig{Path: "fixtures/seed-data.json"},
		Record:  RecordConfig{OutputPath: "recordings/recording.json"},
		YouTube: YouTubeConfig{Timeout: 30 * time.Second},
		Cache: provider.EndpointTTLs{
			ChannelStats: 5 * time.Minute,
			VideoStats:   5 * time.Minute,
			RecentVideos: 2 * time.Minute,
		},
		RateLimit: provider.EndpointLimits{
			ChannelStats: provider.DefaultBucket,
			VideoStats:   provider.DefaultBucket,
			RecentVideos: provider.DefaultBucket,
		},
		Log: LogConfig{Level: "info", Format: "console"},
		Sync: SyncConfig{
			Concurrency: 4,
			RecentLimit: 20,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := datamode.ParseMode(c.Mode.Initial); err != nil {
		return invalid("mode.initial", "invalid mode '%s', must be one of: fake, real, record", c.Mode.Initial)
	}

	if c.YouTube.Timeout < 0 {
		return invalid("youtube.timeout", "youtube.timeout cannot be negative")
	}

	ttls := map[string]time.Duration{
		"cache.channel_stats": c.Cache.ChannelStats,
		"cache.video_stats":   c.Cache.VideoStats,
		"cache.recent_videos": c.Cache.RecentVideos,
	}
	for field, ttl := range ttls {
		if ttl < 0 {
			return invalid(field, "%s cannot be negative", field)
		}
	}

	buckets := map[string]provider.BucketConfig{
		"rate_limit.channel_stats": c.RateLimit.ChannelStats,
		"rate_limit.video_stats":   c.RateLimit.VideoStats,
		"rate_limit.recent_videos": c.RateLimit.RecentVideos,
	}
	for field, b := range buckets {
		if b.Capacity < 0 {
			return invalid(field, "%s.capacity cannot be negative", field)
		}
		// zero leaves the endpoint on the default bucket
		if b.Capacity > 0 && b.Capacity < 1 {
			return invalid(field, "%s.capacity must be 0 or at least 1", field)
		}
		if b.TokensPerSecond < 0 {
			return invalid(field, "%s.tokens_per_second cannot be negative", field)
		}
	}

	if c.Sync.Concurrency < 1 {
		return invalid("sync.concurrency", "sync.concurrency must be at least 1")
	}
	if c.Sync.RecentLimit < 1 {
		return invalid("sync.recent_limit", "sync.recent_limit must be at least 1")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "invalid log level '%s'", c.Log.Level)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return invalid("log.format", "invalid log format '%s', must be one of: console, json", c.Log.Format)
	}

	return nil
}

func invalid(field, format string, args ...any) error {
	return apperror.New(apperror.CodeConfigInvalid, fmt.Sprintf(format, args...),
		apperror.SeverityCritical, map[string]any{"field": field})
}

// Load reads the configuration from path, or from channel-analytics.yaml in
// the working directory when path is empty, then applies CHANNEL_ANALYTICS_*
// environment overrides and any flags already bound to v. A nil v uses a
// fresh viper instance.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("channel-analytics")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("mode.initial", d.Mode.Initial)
	v.SetDefault("mode.source", d.Mode.Source)
	v.SetDefault("fixture.path", d.Fixture.Path)
	v.SetDefault("real.fixture_path", d.Real.FixturePath)
	v.SetDefault("record.output_path", d.Record.OutputPath)
	v.SetDefault("youtube.api_key", d.YouTube.APIKey)
	v.SetDefault("youtube.timeout", d.YouTube.Timeout)
	v.SetDefault("youtube.endpoint", d.YouTube.Endpoint)

	v.SetDefault("cache.channel_stats", d.Cache.ChannelStats)
	v.SetDefault("cache.video_stats", d.Cache.VideoStats)
	v.SetDefault("cache.recent_videos", d.Cache.RecentVideos)

	for key, b := range map[string]provider.BucketConfig{
		"rate_limit.channel_stats": d.RateLimit.ChannelStats,
		"rate_limit.video_stats":   d.RateLimit.VideoStats,
		"rate_limit.recent_videos": d.RateLimit.RecentVideos,
	} {
		v.SetDefault(key+".capacity", b.Capacity)
		v.SetDefault(key+".tokens_per_second", b.TokensPerSecond)
	}

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("sync.concurrency", d.Sync.Concurrency)
	v.SetDefault("sync.recent_limit", d.Sync.RecentLimit)
	v.SetDefault("sync.state_file", d.Sync.StateFile)
}
