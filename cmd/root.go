// Package cmd implements the CLI commands for recipepipe using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/gaurav-prasanna/recipepipe/config"
	"github.com/gaurav-prasanna/recipepipe/logger"
	"github.com/spf13/cobra"
)

// Flag variables shared by every command.
var (
	flagConfig   string
	flagLogLevel string
)

// Resolved once in PersistentPreRunE.
var (
	cfg *config.Config
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "recipepipe",
	Short: "Turn recipe pages, text and photos into Cooklang",
	Long: `recipepipe extracts recipes from web pages, plain text or photos and
converts them to Cooklang markup with a chain of language-model providers.

Usage:
  recipepipe import <url> [flags]
  recipepipe import --text "..." [flags]
  recipepipe import --image photo.jpg [--image page2.jpg] [flags]
  recipepipe history`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// setup resolves configuration and the logger before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(flagConfig, cmd.Flags())
	if err != nil {
		return err
	}

	l, err := logger.New(loaded.Logger)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	cfg, log = loaded, l
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
