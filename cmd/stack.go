package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/client"
	"github.com/researchaccelerator-hub/channel-analytics/config"
	"github.com/researchaccelerator-hub/channel-analytics/datamode"
	"github.com/researchaccelerator-hub/channel-analytics/metrics"
	"github.com/researchaccelerator-hub/channel-analytics/provider"
	"github.com/rs/zerolog/log"
)

// stack is the provider graph behind one command run
type stack struct {
	cfg     *config.Config
	manager *datamode.Manager
}

// buildStack wires the fixture, live and recording providers into a mode
// manager, then applies the --mode switch
func buildStack(ctx context.Context, cfg *config.Config, switchTo string) (*stack, error) {
	fake, err := provider.NewFixtureProvider(cfg.Fixture.Path)
	if err != nil {
		return nil, err
	}

	live, err := newRealProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	recorder := provider.NewRecordingProvider(live, provider.RecordingOptions{
		OutputPath: cfg.Record.OutputPath,
	})

	manager, err := datamode.NewManager(datamode.Options{
		InitialMode: datamode.Mode(cfg.Mode.Initial),
		Fake:        fake,
		Real:        live,
		Record:      recorder,
		Guard:       recordPathGuard(cfg.Record.OutputPath),
		Source:      cfg.Mode.Source,
		OnChange: func(mode datamode.Mode) {
			metrics.SetActiveMode(string(mode))
		},
	})
	if err != nil {
		return nil, err
	}

	if switchTo != "" {
		if _, err := manager.SetMode(ctx, datamode.Mode(switchTo)); err != nil {
			return nil, err
		}
	}

	return &stack{cfg: cfg, manager: manager}, nil
}

// newRealProvider prefers the YouTube adapter, then a dev fixture, then the
// unconfigured stub
func newRealProvider(ctx context.Context, cfg *config.Config) (*provider.RealProvider, error) {
	if cfg.YouTube.APIKey == "" {
		if cfg.Real.FixturePath == "" {
			log.Info().Msg("No YouTube API key configured, real mode unavailable")
		}
		return provider.NewRealProvider(provider.RealOptions{FixturePath: cfg.Real.FixturePath})
	}

	adapter, err := client.NewAdapter(ctx, client.PlatformYouTube, map[string]interface{}{
		"api_key":  cfg.YouTube.APIKey,
		"timeout":  cfg.YouTube.Timeout,
		"endpoint": cfg.YouTube.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube adapter: %w", err)
	}
	return provider.NewRealProvider(provider.RealOptions{Adapter: adapter})
}

// recordPathGuard refuses record mode when the recording directory cannot
// be created
func recordPathGuard(outputPath string) datamode.Guard {
	return datamode.GuardFunc(func(_ context.Context, mode datamode.Mode) error {
		if mode != datamode.ModeRecord {
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return apperror.Wrap(err, apperror.CodeRecordPathUnwritable,
				"record output directory cannot be created", apperror.SeverityError,
				map[string]any{"outputFilePath": outputPath})
		}
		return nil
	})
}

// serving returns the active provider wrapped for sync: rate limited, then
// cached, then instrumented
func (s *stack) serving() provider.Provider {
	active := s.manager.ActiveProvider().Provider
	observer := metrics.Observer{}

	instrumented := metrics.NewInstrumentedProvider(active)
	cached := provider.NewCachedProvider(instrumented, provider.CacheOptions{
		TTLs:     s.cfg.Cache,
		Observer: observer,
	})
	return provider.NewRateLimitedProvider(cached, provider.RateLimitOptions{
		Limits:   s.cfg.RateLimit,
		Observer: observer,
	})
}
