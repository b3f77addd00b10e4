// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the sim-agent CLI.
// The CLI runs literature analyses for simulation studies and reads back the
// stored results: run, inspect, export and runs.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/internal/secrets"
	"github.com/pdiddy/sim-agent/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	exitOK       = 0
	exitFailure  = 1
	exitNotFound = 2
)

var errNoCommand = errors.New("no command given")

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets secrets.Set

	// logger is the diagnostics logger; it writes to stderr.
	logger = zap.NewNop()
)

// rootCmd is the base command for the sim-agent CLI.
var rootCmd = &cobra.Command{
	Use:   "sim-agent",
	Short: "Find and analyze simulation studies in the scientific literature",
	Long: `sim-agent searches bibliographic APIs for papers on a research topic, selects
the most relevant simulation studies, reads their open-access full text when it
is available, and extracts a structured record of each simulation setup.

Each run is stored under <output-dir>/runs/<run-id>/ with one record per paper,
a manifest, Markdown and HTML reports, and an audit of the candidate titles.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = cmd.Help()
		return errNoCommand
	},
}

// persistentPreRun sets up logging and secrets before every command. It is
// attached in init because newLogger reads rootCmd's flags.
func persistentPreRun(cmd *cobra.Command, args []string) error {
	l, err := newLogger()
	if err != nil {
		return err
	}
	logger = l

	s, err := secrets.Load(".secrets/", logger)
	if err != nil {
		return err
	}
	loadedSecrets = s
	if len(s) > 0 {
		logger.Debug("loaded secrets", zap.Strings("keys", s.Names()))
	}
	return nil
}

func init() {
	rootCmd.PersistentPreRunE = persistentPreRun
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./sim-agent.yaml or ~/.config/sim-agent/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func initConfig() {
	// Values already in the environment win over .env.
	if err := gotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sim-agent")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sim-agent"))
		}
	}

	viper.SetEnvPrefix("SIM_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	if verbose || strings.EqualFold(viper.GetString("log_level"), "debug") {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, store.ErrNotFound):
		return exitNotFound
	default:
		return exitFailure
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errNoCommand) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}
