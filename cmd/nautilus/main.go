// Package main implements the nautilus CLI: importance-weighted memory
// retrieval for a long-lived agent. This file is the entry point and
// global-flag/command registration hub; each subcommand lives in its own
// cmd_*.go file.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nautilus"
	"nautilus/internal/config"
	"nautilus/internal/errs"
)

var (
	flagWorkspace string
	flagStateDir  string
	flagConfig    string
	flagJSON      bool
	flagVerbose   bool

	cfg    *config.Config
	engine *nautilus.Engine
	zlog   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nautilus",
	Short: "Importance-weighted, context-aware memory retrieval",
	Long: `nautilus is a memory retrieval engine for a long-lived agent.

It ranks search results by gravity (access frequency, explicit importance,
and recency), filters them by conversational context, prefers fresher
material among near-ties, and resolves raw/summary/lesson mirrors of the
same event.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if flagVerbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		zlog, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		loaded, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagWorkspace != "" {
			abs, err := filepath.Abs(flagWorkspace)
			if err != nil {
				return err
			}
			loaded.WorkspaceDir = abs
		}
		if flagStateDir != "" {
			loaded.StateDir = flagStateDir
		}
		if flagVerbose {
			loaded.DebugMode = true
		}
		cfg = loaded

		e, err := nautilus.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		engine = e
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if engine != nil {
			_ = engine.Close()
		}
		if zlog != nil {
			_ = zlog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", "", "Override the state directory holding the database")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a nautilus config YAML file")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		searchCmd,
		statusCmd,
		maintainCmd,
		vacuumCmd,
		gravityCmd,
		chambersCmd,
		doorsCmd,
		mirrorsCmd,
	)
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "nautilus:", err)
		if kind, ok := errs.Of(err); ok {
			os.Exit(kind.ExitCode())
		}
		os.Exit(1)
	}
}
