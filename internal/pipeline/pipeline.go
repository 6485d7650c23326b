package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/halcyon-tools/lattice/internal/astcache"
	"github.com/halcyon-tools/lattice/internal/config"
	"github.com/halcyon-tools/lattice/internal/extract"
	"github.com/halcyon-tools/lattice/internal/fsys"
	"github.com/halcyon-tools/lattice/internal/graph"
)

// ChangeSource is where the pipeline takes pending work from. The scheduler
// implements it; tests substitute their own.
type ChangeSource interface {
	// Drain atomically returns and clears the pending paths for a project.
	Drain(projectID string) []string

	// Requeue returns paths to the pending set after a deferred cycle.
	Requeue(projectID string, paths []string)

	// InBurstMode reports the advisory burst signal for a project.
	InBurstMode(projectID string) bool
}

// CycleResult summarizes one processing cycle.
type CycleResult struct {
	Drained          int
	Indexed          int
	SkippedUnchanged int
	SkippedFiltered  int
	SkippedOversize  int
	Deleted          int
	ParseFailures    int
	EdgeFailures     int
	Deferred         bool
}

// Pipeline converts drained batches of changed paths into graph mutations,
// with strict entities-before-edges ordering and per-file fault isolation.
// It is the only writer of the delta cache and the stats counters.
type Pipeline struct {
	cfg       *config.Config
	fs        fsys.FS
	extractor extract.Extractor
	client    graph.Client
	source    ChangeSource
	hashes    *ContentHashCache
	stats     *Stats
	filter    *FileFilter
	logger    *slog.Logger

	mu       sync.Mutex
	projects map[string]*project
}

// project is the per-project state the pipeline owns. The cycle mutex makes
// cycles strictly sequential per project while projects run concurrently.
type project struct {
	id        string
	rootDir   string
	cachePath string
	cache     *astcache.Cache

	cycleMu sync.Mutex
}

// New creates a pipeline. The change source is attached separately because
// the scheduler that implements it needs the pipeline's cycle entry point.
func New(cfg *config.Config, fs fsys.FS, extractor extract.Extractor, client graph.Client, logger *slog.Logger) (*Pipeline, error) {
	filter, err := NewFileFilter(cfg.Paths.Extensions, cfg.Paths.Ignore, cfg.MaxFileSizeBytes())
	if err != nil {
		return nil, fmt.Errorf("compile file filter: %w", err)
	}
	hashes, err := NewContentHashCache()
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg,
		fs:        fs,
		extractor: extractor,
		client:    client,
		hashes:    hashes,
		stats:     &Stats{},
		filter:    filter,
		logger:    logger,
		projects:  make(map[string]*project),
	}, nil
}

// AttachSource wires the pending-change source. Must be called before the
// first cycle.
func (p *Pipeline) AttachSource(source ChangeSource) {
	p.source = source
}

// AddProject registers a project root and loads its persisted delta cache.
// Corrupt persisted state resets to an empty cache and is logged, never
// fatal.
func (p *Pipeline) AddProject(projectID, rootDir string) {
	cachePath := filepath.Join(rootDir, ".lattice", "astcache.json")
	cache, reset := astcache.LoadOrEmpty(cachePath)
	if reset {
		p.logger.Warn("persisted AST cache unreadable, starting empty",
			"project", projectID, "path", cachePath)
	}

	// Seed fingerprints from the persisted records so unchanged files are
	// skipped on the first cycle after a restart.
	for _, path := range cache.Paths() {
		if rec, ok := cache.Get(path); ok {
			p.hashes.Seed(projectID, path, rec.Hash)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.projects[projectID] = &project{
		id:        projectID,
		rootDir:   rootDir,
		cachePath: cachePath,
		cache:     cache,
	}
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() StatsSnapshot {
	return p.stats.Snapshot()
}

// Cache returns the delta cache for a project, for inspection.
func (p *Pipeline) Cache(projectID string) *astcache.Cache {
	p.mu.Lock()
	defer p.mu.Unlock()
	if proj, ok := p.projects[projectID]; ok {
		return proj.cache
	}
	return nil
}

func (p *Pipeline) project(projectID string) (*project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proj, ok := p.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("unknown project %q", projectID)
	}
	return proj, nil
}

// ProcessCycle runs one full processing cycle for a project: drain, health
// check, filter/hash/diff, entity batch, containment edges, cache update.
// An unhealthy graph client defers the whole drained batch; nothing is lost.
func (p *Pipeline) ProcessCycle(ctx context.Context, projectID string) (*CycleResult, error) {
	proj, err := p.project(projectID)
	if err != nil {
		return nil, err
	}

	proj.cycleMu.Lock()
	defer proj.cycleMu.Unlock()

	logger := p.logger.With("project", projectID)

	paths := p.source.Drain(projectID)
	result := &CycleResult{Drained: len(paths)}
	if len(paths) == 0 {
		return result, nil
	}

	if p.client == nil || !p.cfg.Graph.Enabled || !p.cfg.ASTEnabled {
		// Graph integration or AST extraction disabled: the cycle clears
		// what it read and does nothing else.
		return result, nil
	}

	if !p.client.HealthCheck(ctx) {
		// Defer the whole batch before any filtering; the requeue re-arms
		// the debounce timer so the retry needs no new events.
		p.source.Requeue(projectID, paths)
		logger.Warn("graph service unhealthy, deferring sync", "pending", len(paths))
		result.Deferred = true
		return result, nil
	}

	if p.source.InBurstMode(projectID) {
		logger.Info("processing cycle during burst", "drained", len(paths))
	}

	var entities []graph.Entity
	pending := make(map[string]fileOutcome, len(paths))

	for _, relPath := range paths {
		outcome := p.processFile(ctx, proj, relPath, logger)
		switch outcome.kind {
		case outcomeFiltered:
			result.SkippedFiltered++
		case outcomeOversize:
			result.SkippedOversize++
		case outcomeUnchanged:
			result.SkippedUnchanged++
			p.stats.addSkipped()
		case outcomeDeleted:
			result.Deleted++
			if err := p.deleteFile(ctx, proj, relPath, logger); err != nil {
				logger.Warn("failed to propagate file deletion", "file", relPath, "error", err)
			}
		case outcomeParseFailed:
			result.ParseFailures++
			p.stats.addParseFailure()
			logger.Warn("AST extraction failed, skipping file", "file", relPath, "error", outcome.err)
		case outcomeIndexable:
			if outcome.parsed {
				p.stats.addParseSuccess()
			}
			pending[relPath] = outcome
			entities = append(entities, graph.Entity{
				ProjectID: projectID,
				Path:      relPath,
				Hash:      outcome.hash,
				Functions: outcome.functions,
			})
		}
	}

	if len(entities) == 0 {
		p.saveCache(proj, logger)
		return result, nil
	}

	// Phase one: entities. A hard client error propagates and leaves the
	// cycle's files unrecorded, so they re-attempt on the next enqueue.
	upserted, err := p.client.UpsertEntities(ctx, entities, p.cfg.BatchSize)
	if err != nil {
		return result, fmt.Errorf("entity upsert for %s: %w", projectID, err)
	}
	if upserted.Failed > 0 {
		logger.Warn("some entity upserts failed", "failed", upserted.Failed)
	}

	// Phase two: containment edges, only for entities confirmed written.
	if len(upserted.Succeeded) > 0 {
		edges, err := p.client.CreateContainmentEdges(ctx, projectID, upserted.Succeeded, p.cfg.BatchSize)
		switch {
		case err != nil:
			result.EdgeFailures = len(upserted.Succeeded)
			logger.Warn("Some edges failed to create", "failed", result.EdgeFailures, "error", err)
		case edges.Failed > 0:
			result.EdgeFailures = edges.Failed
			logger.Warn("Some edges failed to create", "failed", edges.Failed)
		}
	}

	// Record only what the entity phase confirmed.
	for _, relPath := range upserted.Succeeded {
		outcome, ok := pending[relPath]
		if !ok {
			continue
		}
		proj.cache.Put(relPath, outcome.hash, outcome.functions)
		p.hashes.Seed(projectID, relPath, outcome.hash)
		p.stats.addChange()
		p.stats.addFunctionsSynced(outcome.syncedFunctions())
		result.Indexed++
	}

	p.saveCache(proj, logger)
	return result, nil
}

type outcomeKind int

const (
	outcomeFiltered outcomeKind = iota
	outcomeOversize
	outcomeUnchanged
	outcomeDeleted
	outcomeParseFailed
	outcomeIndexable
)

type fileOutcome struct {
	kind      outcomeKind
	hash      string
	functions []extract.FunctionSignature
	delta     *astcache.Delta
	parsed    bool // whether the extractor actually ran
	err       error
}

func (o fileOutcome) syncedFunctions() int {
	if o.delta == nil {
		return 0
	}
	return len(o.delta.Added) + len(o.delta.Modified)
}

// processFile runs the filter → hash → parse → diff sequence for one path.
// Failures here never abort the cycle; they classify the file.
func (p *Pipeline) processFile(ctx context.Context, proj *project, relPath string, logger *slog.Logger) fileOutcome {
	if !p.filter.AllowPath(relPath) {
		return fileOutcome{kind: outcomeFiltered}
	}

	absPath := filepath.Join(proj.rootDir, relPath)
	info, err := p.fs.Stat(absPath)
	if err != nil {
		if errors.Is(err, fsys.ErrNotExist) {
			return fileOutcome{kind: outcomeDeleted}
		}
		return fileOutcome{kind: outcomeParseFailed, err: err}
	}
	if !p.filter.AllowSize(info.Size) {
		logger.Debug("skipping oversized file", "file", relPath, "size", info.Size)
		return fileOutcome{kind: outcomeOversize}
	}

	content, err := p.fs.ReadFile(absPath)
	if err != nil {
		if errors.Is(err, fsys.ErrNotExist) {
			return fileOutcome{kind: outcomeDeleted}
		}
		return fileOutcome{kind: outcomeParseFailed, err: err}
	}

	hash := astcache.ComputeHash(content)
	if !p.fingerprintChanged(proj, relPath, hash) {
		return fileOutcome{kind: outcomeUnchanged}
	}

	var functions []extract.FunctionSignature
	parsed := false
	if p.extractor.Supports(relPath) {
		functions, err = p.extractor.Parse(ctx, absPath, content)
		if err != nil {
			return fileOutcome{kind: outcomeParseFailed, err: err}
		}
		parsed = true
	}

	return fileOutcome{
		kind:      outcomeIndexable,
		hash:      hash,
		functions: functions,
		parsed:    parsed,
		delta:     proj.cache.Diff(relPath, functions),
	}
}

// fingerprintChanged compares against both the in-memory fingerprint cache
// and the persisted delta cache, without recording anything. Hashes are
// recorded only after a confirmed write.
func (p *Pipeline) fingerprintChanged(proj *project, relPath, hash string) bool {
	if last, ok := p.hashes.Get(proj.id, relPath); ok && last == hash {
		return false
	}
	if proj.cache.Hash(relPath) == hash {
		p.hashes.Seed(proj.id, relPath, hash)
		return false
	}
	return true
}

// deleteFile propagates a filesystem deletion: drop the cached record, the
// fingerprint, and the file's functions in the graph. The entity itself is
// reconciled by the next prune pass.
func (p *Pipeline) deleteFile(ctx context.Context, proj *project, relPath string, logger *slog.Logger) error {
	rec, ok := proj.cache.Get(relPath)
	proj.cache.Remove(relPath)
	p.hashes.Forget(proj.id, relPath)

	if !ok || len(rec.Functions) == 0 {
		return nil
	}

	names := make([]string, len(rec.Functions))
	for i, fn := range rec.Functions {
		names[i] = fn.Name
	}
	logger.Debug("removing functions for deleted file", "file", relPath, "functions", len(names))
	return p.client.DeleteFunctions(ctx, proj.id, relPath, names)
}

// saveCache persists the delta cache; failure is logged, not fatal, because
// the worst case is re-indexing after a restart.
func (p *Pipeline) saveCache(proj *project, logger *slog.Logger) {
	if err := proj.cache.Save(proj.cachePath); err != nil {
		logger.Warn("failed to persist AST cache", "path", proj.cachePath, "error", err)
	}
}
