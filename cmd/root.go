// Package cmd contains CLI command definitions
package cmd

import (
	"fmt"
	"os"

	"github.com/ethpandaops/allure-runtime/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Logger is the shared logger instance for all commands
	Logger *logrus.Logger

	verbose    bool
	resultsDir string
	configFile string

	rootCmd = &cobra.Command{
		Use:   "allure-runtime",
		Short: "Allure reporter runtime",
		Long: `allure-runtime turns test lifecycle events into Allure results.

It replays operation journals written by any test framework, collects runtime
messages published by parallel workers, and summarises, validates or exports
the results directory.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			InitLogger()
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	Logger = newLogger(false)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results-dir", "", "Results directory (overrides ALLURE_RESULTS_DIR)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Project file (overrides ALLURE_CONFIG)")
}

// InitLogger sets the shared logger level from LOG_LEVEL or the verbose flag.
func InitLogger() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		// Can't use Logger here since it might not be set up yet
		fmt.Printf("Invalid LOG_LEVEL '%s', defaulting to 'info'\n", logLevel)
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	Logger.SetLevel(level)
}

// loadConfig loads the configuration and applies the command line overrides.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := os.Setenv("ALLURE_CONFIG", configFile); err != nil {
			return nil, fmt.Errorf("failed to set ALLURE_CONFIG: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if resultsDir != "" {
		cfg.ResultsDir = resultsDir
	}

	return cfg, nil
}
