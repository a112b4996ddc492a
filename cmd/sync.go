package cmd

import (
	"fmt"
	"os"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/common"
	"github.com/researchaccelerator-hub/channel-analytics/datamode"
	"github.com/researchaccelerator-hub/channel-analytics/metrics"
	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/researchaccelerator-hub/channel-analytics/pipeline"
	"github.com/researchaccelerator-hub/channel-analytics/state"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// syncReport is the value printed by the sync command
type syncReport struct {
	Mode     datamode.Mode   `json:"mode"`
	Provider string          `json:"provider"`
	Runs     []model.SyncRun `json:"runs"`
	Failed   int             `json:"failed"`
}

type syncFlags struct {
	channelIDs      []string
	channelsFile    string
	channelsURL     string
	metricsTextfile string
}

func newSyncCmd(a *app) *cobra.Command {
	var f syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync channel and video stats from the active provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.runSync(cmd, f)
			if err != nil {
				return emit(cmd, syncReport{}, err)
			}
			if err := emit(cmd, report, nil); err != nil {
				return err
			}
			if report.Failed > 0 {
				return &reportedError{err: fmt.Errorf("%d of %d channels failed to sync", report.Failed, len(report.Runs))}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&f.channelIDs, "channel-id", nil, "channel to sync (repeatable)")
	flags.StringVar(&f.channelsFile, "channels-file", "", "file with one channel ID per line")
	flags.StringVar(&f.channelsURL, "channels-url", "", "URL of a file with one channel ID per line")
	flags.StringVar(&f.metricsTextfile, "metrics-textfile", "", "write prometheus metrics to this file after the sync")
	flags.String("state-file", "", "load and save synced analytics from this JSON file")
	flags.Int("concurrency", 0, "channels synced in parallel")
	flags.Int("recent-limit", 0, "recent videos fetched per channel")
	_ = a.v.BindPFlag("sync.state_file", flags.Lookup("state-file"))
	_ = a.v.BindPFlag("sync.concurrency", flags.Lookup("concurrency"))
	_ = a.v.BindPFlag("sync.recent_limit", flags.Lookup("recent-limit"))

	return cmd
}

func (a *app) runSync(cmd *cobra.Command, f syncFlags) (syncReport, error) {
	ctx := cmd.Context()

	channelIDs, err := collectChannelIDs(cmd, f)
	if err != nil {
		return syncReport{}, err
	}

	s, err := buildStack(ctx, a.cfg, a.mode)
	if err != nil {
		return syncReport{}, err
	}

	repo := state.NewMemoryStore()
	if a.cfg.Sync.StateFile != "" {
		if err := repo.LoadFromFile(a.cfg.Sync.StateFile); err != nil {
			return syncReport{}, err
		}
	}

	active := s.manager.ActiveProvider()
	p := s.serving()
	runner := pipeline.NewRunner(p, repo, pipeline.Options{
		RecentLimit: a.cfg.Sync.RecentLimit,
		Concurrency: a.cfg.Sync.Concurrency,
	})

	log.Info().
		Str("mode", string(active.Mode)).
		Str("provider", p.Name()).
		Int("channels", len(channelIDs)).
		Msg("Starting sync")

	results := runner.RunAll(ctx, channelIDs)

	report := syncReport{
		Mode:     active.Mode,
		Provider: p.Name(),
		Runs:     make([]model.SyncRun, 0, len(results)),
	}
	for _, res := range results {
		report.Runs = append(report.Runs, res.Run)
		if res.Err != nil {
			report.Failed++
		}
	}

	if a.cfg.Sync.StateFile != "" {
		if err := repo.SaveToFile(a.cfg.Sync.StateFile); err != nil {
			return syncReport{}, err
		}
	}
	if f.metricsTextfile != "" {
		if err := metrics.WriteTextfile(f.metricsTextfile); err != nil {
			return syncReport{}, err
		}
	}

	return report, nil
}

// collectChannelIDs merges the channels given by flag, file and URL
func collectChannelIDs(cmd *cobra.Command, f syncFlags) ([]string, error) {
	ids := append([]string(nil), f.channelIDs...)

	if f.channelsURL != "" {
		path, err := common.DownloadChannelsFile(cmd.Context(), f.channelsURL)
		if err != nil {
			return nil, err
		}
		defer os.Remove(path)
		fromURL, err := common.ReadChannelIDsFromFile(path)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromURL...)
	}

	if f.channelsFile != "" {
		fromFile, err := common.ReadChannelIDsFromFile(f.channelsFile)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromFile...)
	}

	ids = common.NormalizeChannelIDs(ids)
	if len(ids) == 0 {
		return nil, apperror.New(apperror.CodeConfigInvalid,
			"no channels to sync, use --channel-id, --channels-file or --channels-url",
			apperror.SeverityError, nil)
	}
	return ids, nil
}
