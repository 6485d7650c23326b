package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/halcyon-tools/lattice/internal/graph"
)

// SyncReport summarizes an initial full-project sync.
type SyncReport struct {
	FilesProcessed  int
	FunctionsSynced int
	Errors          []error
}

// SyncProgress receives per-file notifications during a bulk sync, for
// progress display. A nil progress function is fine.
type SyncProgress func(processed, total int)

// InitialSync walks a project's whole tree and feeds every eligible file
// through the same filter → parse → diff → upsert path as incremental
// changes, bounded by the configured concurrency and rate limits. It is a
// no-op with zero counts when graph integration or AST extraction is
// disabled, or when the tree yields no eligible files.
func (p *Pipeline) InitialSync(ctx context.Context, projectID string, progress SyncProgress) (*SyncReport, error) {
	proj, err := p.project(projectID)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{}
	if p.client == nil || !p.cfg.Graph.Enabled || !p.cfg.ASTEnabled {
		return report, nil
	}

	logger := p.logger.With("project", projectID)

	eligible, err := p.discover(proj)
	if err != nil {
		return nil, fmt.Errorf("discover files for %s: %w", projectID, err)
	}
	if len(eligible) == 0 {
		return report, nil
	}

	// Cycles and the bulk walk share the per-project serialization.
	proj.cycleMu.Lock()
	defer proj.cycleMu.Unlock()

	limiter := rate.NewLimiter(rate.Limit(p.cfg.Sync.RateLimit), 1)

	var mu sync.Mutex
	var entities []graph.Entity
	outcomes := make(map[string]fileOutcome, len(eligible))
	processed := 0

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.cfg.Sync.Concurrency)

	for _, relPath := range eligible {
		relPath := relPath
		group.Go(func() error {
			if err := limiter.Wait(groupCtx); err != nil {
				return err
			}

			outcome := p.processFile(groupCtx, proj, relPath, logger)

			mu.Lock()
			defer mu.Unlock()
			processed++
			if progress != nil {
				progress(processed, len(eligible))
			}

			switch outcome.kind {
			case outcomeUnchanged:
				p.stats.addSkipped()
			case outcomeParseFailed:
				p.stats.addParseFailure()
				report.Errors = append(report.Errors, fmt.Errorf("%s: %w", relPath, outcome.err))
			case outcomeIndexable:
				if outcome.parsed {
					p.stats.addParseSuccess()
				}
				outcomes[relPath] = outcome
				entities = append(entities, graph.Entity{
					ProjectID: projectID,
					Path:      relPath,
					Hash:      outcome.hash,
					Functions: outcome.functions,
				})
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return report, err
	}

	if len(entities) > 0 {
		synced, err := p.client.SyncFilesWithFunctions(ctx, graph.SyncOptions{
			ProjectID: projectID,
			Entities:  entities,
			BatchSize: p.cfg.BatchSize,
		})
		if err != nil {
			return report, fmt.Errorf("bulk sync for %s: %w", projectID, err)
		}
		report.Errors = append(report.Errors, synced.Errors...)

		for relPath, outcome := range outcomes {
			proj.cache.Put(relPath, outcome.hash, outcome.functions)
			p.hashes.Seed(projectID, relPath, outcome.hash)
			p.stats.addChange()
			p.stats.addFunctionsSynced(outcome.syncedFunctions())
			report.FilesProcessed++
			report.FunctionsSynced += outcome.syncedFunctions()
		}
	}

	// Reconcile the graph against the tree: anything indexed earlier but no
	// longer present goes away.
	pruned, err := p.client.PruneDeletedFiles(ctx, projectID, eligible)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("prune deleted files: %w", err))
	} else if pruned > 0 {
		logger.Info("pruned entities for deleted files", "count", pruned)
	}

	p.saveCache(proj, logger)
	logger.Info("initial sync complete",
		"files", report.FilesProcessed,
		"functions", report.FunctionsSynced,
		"errors", len(report.Errors))
	return report, nil
}

// discover walks the project tree through the filesystem adapter and
// returns eligible relative paths. Unreadable subtrees are skipped rather
// than failing the walk; only an unreadable root is fatal.
func (p *Pipeline) discover(proj *project) ([]string, error) {
	var eligible []string

	var walk func(relDir string) error
	walk = func(relDir string) error {
		entries, err := p.fs.ReadDir(filepath.Join(proj.rootDir, relDir))
		if err != nil {
			if relDir == "" {
				return err
			}
			return nil
		}

		for _, entry := range entries {
			relPath := filepath.Join(relDir, entry.Name())
			if entry.IsDir() {
				if p.filter.AllowDir(relPath) {
					if err := walk(relPath); err != nil {
						return err
					}
				}
				continue
			}
			if p.filter.AllowPath(relPath) {
				eligible = append(eligible, relPath)
			}
		}
		return nil
	}

	if err := walk(""); err != nil {
		return nil, err
	}
	return eligible, nil
}
