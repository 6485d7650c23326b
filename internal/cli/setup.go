package cli

import (
	"fmt"
	"path/filepath"

	"github.com/halcyon-tools/lattice/internal/config"
	"github.com/halcyon-tools/lattice/internal/extract"
	"github.com/halcyon-tools/lattice/internal/fsys"
	"github.com/halcyon-tools/lattice/internal/graph"
)

// openGraphStore builds the configured graph client. A disabled graph
// yields a nil client; the pipeline treats cycles as no-ops then.
func openGraphStore(cfg *config.Config, rootDir string) (graph.Client, func() error, error) {
	if !cfg.Graph.Enabled {
		return nil, func() error { return nil }, nil
	}

	switch cfg.Graph.Driver {
	case "memory":
		return graph.NewMemoryStore(), func() error { return nil }, nil
	case "sqlite":
		path := cfg.Graph.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(rootDir, path)
		}
		store, err := graph.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported graph driver %q", cfg.Graph.Driver)
	}
}

// newExtractor picks the extractor implementation for the configuration.
func newExtractor(cfg *config.Config) extract.Extractor {
	if !cfg.ASTEnabled {
		return extract.Disabled()
	}
	return extract.NewGo()
}

// newFS returns the filesystem adapter used by all commands.
func newFS() fsys.FS {
	return fsys.OS()
}
