package graph

import (
	"context"
	"fmt"

	"github.com/halcyon-tools/lattice/internal/extract"
)

// Entity is the graph-side representation of one indexed file: its identity
// within a project plus the function inventory extracted from it.
type Entity struct {
	ProjectID string
	Path      string
	Hash      string
	Functions []extract.FunctionSignature
}

// ID returns the deterministic entity identifier for a project-scoped path.
func (e Entity) ID() string {
	return EntityID(e.ProjectID, e.Path)
}

// EntityID builds the identifier used for graph nodes: "{project}::{path}".
func EntityID(projectID, path string) string {
	return fmt.Sprintf("%s::%s", projectID, path)
}

// BatchResult reports the outcome of a batch write. Succeeded carries the
// file paths confirmed written, so the caller can restrict follow-up edge
// writes to exactly that set.
type BatchResult struct {
	Succeeded []string
	Failed    int
	Errors    []error
}

// SyncOptions parameterizes a bulk write of files with their functions.
type SyncOptions struct {
	ProjectID string
	Entities  []Entity
	BatchSize int
}

// SyncResult summarizes a bulk write.
type SyncResult struct {
	Files    int
	Entities int
	Edges    int
	Errors   []error
}

// Client is the semantic graph service the pipeline writes to. The store
// has no foreign-key enforcement, so callers must uphold the
// entities-before-edges ordering themselves.
type Client interface {
	// HealthCheck reports whether the graph service can accept writes.
	HealthCheck(ctx context.Context) bool

	// UpsertEntities writes file entities in chunks of batchSize. Failures
	// are isolated per chunk; the result names every path that was
	// confirmed written.
	UpsertEntities(ctx context.Context, entities []Entity, batchSize int) (*BatchResult, error)

	// CreateContainmentEdges links the project node to each file entity in
	// chunks of batchSize. Edges are idempotent; recreating an existing
	// edge is not an error.
	CreateContainmentEdges(ctx context.Context, projectID string, paths []string, batchSize int) (*BatchResult, error)

	// PruneDeletedFiles removes every entity of the project whose path is
	// not in activePaths, along with its functions and edges. Returns the
	// number of entities removed.
	PruneDeletedFiles(ctx context.Context, projectID string, activePaths []string) (int, error)

	// DeleteFunctions removes the named functions of one file.
	DeleteFunctions(ctx context.Context, projectID, path string, names []string) error

	// SyncFilesWithFunctions performs a bulk write of entities followed by
	// containment edges for the confirmed subset.
	SyncFilesWithFunctions(ctx context.Context, opts SyncOptions) (*SyncResult, error)
}

// chunkEntities splits a batch into chunks of at most size entries.
func chunkEntities(entities []Entity, size int) [][]Entity {
	if size <= 0 {
		size = len(entities)
	}
	var chunks [][]Entity
	for start := 0; start < len(entities); start += size {
		end := start + size
		if end > len(entities) {
			end = len(entities)
		}
		chunks = append(chunks, entities[start:end])
	}
	return chunks
}

// chunkStrings splits a path list into chunks of at most size entries.
func chunkStrings(paths []string, size int) [][]string {
	if size <= 0 {
		size = len(paths)
	}
	var chunks [][]string
	for start := 0; start < len(paths); start += size {
		end := start + size
		if end > len(paths) {
			end = len(paths)
		}
		chunks = append(chunks, paths[start:end])
	}
	return chunks
}

// syncViaBatches implements SyncFilesWithFunctions on top of the two batch
// primitives, shared by both stores.
func syncViaBatches(ctx context.Context, c Client, opts SyncOptions) (*SyncResult, error) {
	result := &SyncResult{Files: len(opts.Entities)}
	if len(opts.Entities) == 0 {
		return result, nil
	}

	upserted, err := c.UpsertEntities(ctx, opts.Entities, opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("upsert entities: %w", err)
	}
	result.Entities = len(upserted.Succeeded)
	result.Errors = append(result.Errors, upserted.Errors...)

	if len(upserted.Succeeded) == 0 {
		return result, nil
	}

	edges, err := c.CreateContainmentEdges(ctx, opts.ProjectID, upserted.Succeeded, opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("create edges: %w", err)
	}
	result.Edges = len(edges.Succeeded)
	result.Errors = append(result.Errors, edges.Errors...)

	return result, nil
}
