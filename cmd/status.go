package cmd

import (
	"github.com/researchaccelerator-hub/channel-analytics/datamode"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the active data mode and the modes that can be activated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildStack(cmd.Context(), a.cfg, a.mode)
			if err != nil {
				return emit(cmd, datamode.Status{}, err)
			}
			return emit(cmd, s.manager.Status(), nil)
		},
	}
}
