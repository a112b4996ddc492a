package cmd

import (
	"github.com/researchaccelerator-hub/channel-analytics/datamode"
	"github.com/spf13/cobra"
)

func newProbeCmd(a *app) *cobra.Command {
	var (
		input       datamode.ProbeInput
		recentLimit int
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Query the active provider once per endpoint and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildStack(cmd.Context(), a.cfg, a.mode)
			if err != nil {
				return emit(cmd, datamode.ProbeResult{}, err)
			}
			if cmd.Flags().Changed("recent-limit") {
				input.RecentLimit = &recentLimit
			}
			result, err := s.manager.Probe(cmd.Context(), input)
			return emit(cmd, result, err)
		},
	}

	cmd.Flags().StringVar(&input.ChannelID, "channel-id", "", "channel to probe")
	cmd.Flags().StringSliceVar(&input.VideoIDs, "video-id", nil, "videos to fetch stats for (repeatable)")
	cmd.Flags().IntVar(&recentLimit, "recent-limit", datamode.DefaultProbeRecentLimit, "number of recent videos to fetch")
	_ = cmd.MarkFlagRequired("channel-id")
	return cmd
}
