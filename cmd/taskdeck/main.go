// Package main is the taskdeck command-line host: it stands in for the
// rendering collaborator, pulling the aggregated tree and printing it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/taskdeck/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

var (
	// Global flags.
	flagRoots   []string
	flagConfig  string
	flagState   string
	flagVerbose bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "taskdeck",
	Short: "Discover and run the tasks defined across a project",
	Long: `taskdeck scans project roots for debug configurations, package
scripts, Makefile targets, and IDE run configurations, and aggregates
them into one catalog of runnable tasks.`,
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if flagVerbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVar(&flagRoots, "root", nil,
		"project root to scan (repeatable; defaults to the working directory)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"path to a "+config.DefaultFileName+" settings file")
	rootCmd.PersistentFlags().StringVar(&flagState, "state", "",
		"path to the persisted state file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
