package graph

import (
	"context"
	"errors"
	"sync"

	dgraph "github.com/dominikbraun/graph"

	"github.com/halcyon-tools/lattice/internal/extract"
)

// MemoryStore is an in-process Client for local mode and tests, backed by a
// directed graph of entity IDs. A health toggle makes downstream-outage
// behavior exercisable without a real service.
type MemoryStore struct {
	mu        sync.Mutex
	graph     dgraph.Graph[string, string]
	entities  map[string]Entity
	functions map[string][]extract.FunctionSignature // keyed by entity ID
	healthy   bool
}

// NewMemoryStore creates an empty, healthy in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		graph:     dgraph.New(dgraph.StringHash, dgraph.Directed()),
		entities:  make(map[string]Entity),
		functions: make(map[string][]extract.FunctionSignature),
		healthy:   true,
	}
}

// SetHealthy toggles the health check result.
func (m *MemoryStore) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
}

func (m *MemoryStore) HealthCheck(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

func (m *MemoryStore) UpsertEntities(ctx context.Context, entities []Entity, batchSize int) (*BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &BatchResult{}
	for _, chunk := range chunkEntities(entities, batchSize) {
		for _, entity := range chunk {
			id := entity.ID()
			if err := m.graph.AddVertex(id); err != nil && !errors.Is(err, dgraph.ErrVertexAlreadyExists) {
				result.Failed++
				result.Errors = append(result.Errors, err)
				continue
			}
			m.entities[id] = entity
			m.functions[id] = append([]extract.FunctionSignature(nil), entity.Functions...)
			result.Succeeded = append(result.Succeeded, entity.Path)
		}
	}
	return result, nil
}

func (m *MemoryStore) CreateContainmentEdges(ctx context.Context, projectID string, paths []string, batchSize int) (*BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.graph.AddVertex(projectID); err != nil && !errors.Is(err, dgraph.ErrVertexAlreadyExists) {
		return nil, err
	}

	result := &BatchResult{}
	for _, chunk := range chunkStrings(paths, batchSize) {
		for _, path := range chunk {
			err := m.graph.AddEdge(projectID, EntityID(projectID, path))
			if err != nil && !errors.Is(err, dgraph.ErrEdgeAlreadyExists) {
				result.Failed++
				result.Errors = append(result.Errors, err)
				continue
			}
			result.Succeeded = append(result.Succeeded, path)
		}
	}
	return result, nil
}

func (m *MemoryStore) PruneDeletedFiles(ctx context.Context, projectID string, activePaths []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make(map[string]bool, len(activePaths))
	for _, path := range activePaths {
		active[path] = true
	}

	pruned := 0
	for id, entity := range m.entities {
		if entity.ProjectID != projectID || active[entity.Path] {
			continue
		}
		if err := m.graph.RemoveEdge(projectID, id); err != nil && !errors.Is(err, dgraph.ErrEdgeNotFound) {
			return pruned, err
		}
		if err := m.graph.RemoveVertex(id); err != nil && !errors.Is(err, dgraph.ErrVertexNotFound) {
			return pruned, err
		}
		delete(m.entities, id)
		delete(m.functions, id)
		pruned++
	}
	return pruned, nil
}

func (m *MemoryStore) DeleteFunctions(ctx context.Context, projectID, path string, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := EntityID(projectID, path)
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}

	kept := m.functions[id][:0]
	for _, fn := range m.functions[id] {
		if !drop[fn.Name] {
			kept = append(kept, fn)
		}
	}
	m.functions[id] = kept
	return nil
}

func (m *MemoryStore) SyncFilesWithFunctions(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	return syncViaBatches(ctx, m, opts)
}

// Entity returns the stored entity for a project-scoped path, if present.
func (m *MemoryStore) Entity(projectID, path string) (Entity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity, ok := m.entities[EntityID(projectID, path)]
	return entity, ok
}

// HasContainmentEdge reports whether the project node links to the file.
func (m *MemoryStore) HasContainmentEdge(projectID, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.graph.Edge(projectID, EntityID(projectID, path))
	return err == nil
}

// Functions returns the stored inventory for a project-scoped path.
func (m *MemoryStore) Functions(projectID, path string) []extract.FunctionSignature {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]extract.FunctionSignature(nil), m.functions[EntityID(projectID, path)]...)
}
