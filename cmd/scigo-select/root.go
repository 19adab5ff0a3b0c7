package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-select/config"
	"github.com/YuminosukeSato/scigo-select/pkg/log"
)

// app carries the flags shared by every subcommand and the settings
// resolved from them.
type app struct {
	settingsFile string
	envFile      string
	debug        bool
	jsonLogs     bool

	settings *config.Settings
	logger   log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "scigo-select",
		Short:         "Train, compare and serve regression models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.settingsFile, "settings", "", "settings file (yaml, json or toml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the settings")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&a.jsonLogs, "json-logs", false, "write logs as JSON instead of console text")

	root.AddCommand(
		newIngestCmd(a),
		newTrainCmd(a),
		newHistoryCmd(a),
		newPredictCmd(a),
		newServeCmd(a),
	)
	return root
}

// init loads the environment and the settings, sets up logging and creates
// the artifact directories.
func (a *app) init() error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}
	s, err := config.Load(a.settingsFile)
	if err != nil {
		return err
	}
	if a.debug {
		s.Debug = true
		s.LogLevel = "debug"
	}
	if err := log.SetupLogger(s.LogLevel, !a.jsonLogs); err != nil {
		return err
	}
	if err := s.EnsureDirectories(); err != nil {
		return err
	}

	a.settings = s
	a.logger = log.GetLoggerWithName("cli")
	a.logger.Debug("settings loaded", log.PathKey, s.BaseDir, log.ConfigPathKey, s.ConfigPath)
	return nil
}
