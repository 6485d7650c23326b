package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/halcyon-tools/lattice/internal/astcache"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print a summary of the persisted index state for the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			cachePath := filepath.Join(flagRoot, ".lattice", "astcache.json")

			cache, err := astcache.Load(cachePath)
			if err != nil {
				return fmt.Errorf("read index state: %w", err)
			}

			functions := 0
			for _, path := range cache.Paths() {
				if rec, ok := cache.Get(path); ok {
					functions += len(rec.Functions)
				}
			}

			fmt.Printf("Project:   %s\n", projectID())
			fmt.Printf("Files:     %d\n", cache.Len())
			fmt.Printf("Functions: %d\n", functions)
			return nil
		},
	}
}
