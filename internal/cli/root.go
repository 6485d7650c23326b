package cli

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	flagRoot    string
	flagProject string
	flagVerbose bool
)

// NewRootCommand creates the latticed command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "latticed",
		Short:        "Watches project source trees and syncs function summaries into a knowledge graph",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagRoot, "root", ".", "project root directory")
	root.PersistentFlags().StringVar(&flagProject, "project", "", "project identifier (defaults to the root directory name)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newWatchCommand())
	root.AddCommand(newSyncCommand())
	root.AddCommand(newStatsCommand())
	return root
}

// Execute runs the CLI and returns an exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		return 1
	}
	return 0
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func projectID() string {
	if flagProject != "" {
		return flagProject
	}
	abs, err := filepath.Abs(flagRoot)
	if err != nil {
		return flagRoot
	}
	return filepath.Base(abs)
}
