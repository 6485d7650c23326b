package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/halcyon-tools/lattice/internal/clock"
	"github.com/halcyon-tools/lattice/internal/config"
	"github.com/halcyon-tools/lattice/internal/pipeline"
	"github.com/halcyon-tools/lattice/internal/watcher"
)

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the project tree and sync changes into the graph incrementally",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.NewLoader(flagRoot).Load()
			if err != nil {
				return err
			}

			client, closeStore, err := openGraphStore(cfg, flagRoot)
			if err != nil {
				return err
			}
			defer closeStore()

			p, err := pipeline.New(cfg, newFS(), newExtractor(cfg), client, logger)
			if err != nil {
				return err
			}
			p.AddProject(projectID(), flagRoot)

			w, err := watcher.New(cfg.Paths.Ignore, logger)
			if err != nil {
				return err
			}
			defer w.Stop()
			if err := w.AddProject(projectID(), flagRoot); err != nil {
				return err
			}

			debounce := time.Duration(cfg.DebounceMs) * time.Millisecond
			coordinator := pipeline.NewCoordinator(p, debounce, clock.System(), logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("watching project", "project", projectID(), "root", flagRoot,
				"debounce_ms", cfg.DebounceMs)
			if err := coordinator.Run(ctx, w.Events()); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
