package client

import (
	"context"
	"fmt"
	"time"

	"github.com/researchaccelerator-hub/channel-analytics/provider"
)

// PlatformYouTube selects the YouTube Data API adapter
const PlatformYouTube = "youtube"

// NewAdapter creates the live adapter for platform from loosely typed
// settings, as decoded from a config file
func NewAdapter(ctx context.Context, platform string, settings map[string]interface{}) (provider.Adapter, error) {
	switch platform {
	case PlatformYouTube:
		apiKey := getConfigString(settings, "api_key", "")
		if apiKey == "" {
			return nil, fmt.Errorf("youtube adapter requires api_key in config")
		}
		return NewYouTubeAdapter(ctx, YouTubeOptions{
			APIKey:   apiKey,
			Timeout:  getConfigDuration(settings, "timeout", defaultTimeout),
			Endpoint: getConfigString(settings, "endpoint", ""),
		})
	default:
		return nil, fmt.Errorf("unsupported platform type: %s", platform)
	}
}

func getConfigString(config map[string]interface{}, key, defaultValue string) string {
	if val, ok := config[key].(string); ok {
		return val
	}
	return defaultValue
}

func getConfigDuration(config map[string]interface{}, key string, defaultValue time.Duration) time.Duration {
	switch val := config[key].(type) {
	case time.Duration:
		return val
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case int:
		return time.Duration(val) * time.Millisecond
	}
	return defaultValue
}
