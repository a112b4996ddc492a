// Package cmd implements the channel-analytics command line
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/researchaccelerator-hub/channel-analytics/config"
	"github.com/researchaccelerator-hub/channel-analytics/datamode"
	"github.com/researchaccelerator-hub/channel-analytics/envelope"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by every subcommand
type app struct {
	v       *viper.Viper
	cfgFile string
	mode    string
	cfg     *config.Config
}

// NewRootCmd builds the command tree with its own viper instance
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "channel-analytics",
		Short:         "Collect channel analytics from fake, live or recorded data providers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./channel-analytics.yaml)")
	flags.StringVar(&a.mode, "mode", "", "switch to this data mode before running: fake, real or record")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "log format (console or json)")
	flags.String("fixture-path", "", "fixture served in fake mode")
	flags.String("record-output", "", "recording written in record mode")
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = a.v.BindPFlag("fixture.path", flags.Lookup("fixture-path"))
	_ = a.v.BindPFlag("record.output_path", flags.Lookup("record-output"))

	root.AddCommand(
		newStatusCmd(a),
		newProbeCmd(a),
		newSyncCmd(a),
	)
	return root
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			_ = envelope.Fail[any](err).Write(root.OutOrStdout())
		}
		log.Error().Err(err).Msg("Command failed")
		return 1
	}
	return 0
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	setupLogging(cfg.Log)

	if a.mode != "" {
		if _, err := datamode.ParseMode(a.mode); err != nil {
			return err
		}
	}
	log.Debug().Str("command", cmd.Name()).Str("config", a.v.ConfigFileUsed()).Msg("Configuration loaded")
	return nil
}

// setupLogging configures the global zerolog logger. Config validation has
// already checked the level.
func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// reportedError marks a failure whose envelope has already been printed
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// emit prints the envelope of a call result and returns err marked as
// reported
func emit[T any](cmd *cobra.Command, value T, err error) error {
	if writeErr := envelope.From(value, err).Write(cmd.OutOrStdout()); writeErr != nil {
		return writeErr
	}
	if err != nil {
		return &reportedError{err: err}
	}
	return nil
}
