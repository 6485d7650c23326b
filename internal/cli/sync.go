package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/halcyon-tools/lattice/internal/config"
	"github.com/halcyon-tools/lattice/internal/pipeline"
)

func newSyncCommand() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a one-time full sync of the project tree into the graph",
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

			var bar *progressbar.ProgressBar
			progress := func(processed, total int) {
				if quiet {
					return
				}
				if bar == nil {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetDescription("Syncing files"),
						progressbar.OptionSetWidth(40),
						progressbar.OptionShowCount(),
						progressbar.OptionShowIts(),
						progressbar.OptionSetItsString("files/s"),
					)
				}
				bar.Set(processed)
			}

			report, err := p.InitialSync(cmd.Context(), projectID(), progress)
			if err != nil {
				return err
			}
			if bar != nil {
				bar.Finish()
				fmt.Println()
			}

			fmt.Printf("Synced %d files (%d functions), %d errors\n",
				report.FilesProcessed, report.FunctionsSynced, len(report.Errors))
			for _, syncErr := range report.Errors {
				logger.Warn("sync error", "error", syncErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the progress bar")
	return cmd
}
