package astcache

import (
	"sync"

	"github.com/halcyon-tools/lattice/internal/extract"
)

// FileRecord is what was last indexed for a single file: the content hash
// at the time of indexing and the function inventory extracted from it.
type FileRecord struct {
	Path      string                      `json:"path"`
	Hash      string                      `json:"hash"`
	Functions []extract.FunctionSignature `json:"functions"`
}

// Delta is the result of comparing a file's previous function inventory to
// its current one. Functions are matched by name; every current or previous
// name lands in exactly one bucket.
type Delta struct {
	Added     []extract.FunctionSignature
	Removed   []extract.FunctionSignature
	Modified  []extract.FunctionSignature
	Unchanged []extract.FunctionSignature
}

// HasChanges reports whether the delta requires a graph write.
func (d *Delta) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0
}

// Cache is the durable per-project record of last-indexed file state.
// It is safe for concurrent use, though the pipeline serializes writes
// per project.
type Cache struct {
	mu      sync.RWMutex
	records map[string]FileRecord
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{records: make(map[string]FileRecord)}
}

// Get returns the record for path, if one exists.
func (c *Cache) Get(path string) (FileRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[path]
	return rec, ok
}

// Hash returns the last recorded content hash for path, or "" if the path
// has never been indexed.
func (c *Cache) Hash(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records[path].Hash
}

// Put replaces the record for a file wholesale after a successful index.
func (c *Cache) Put(path, hash string, functions []extract.FunctionSignature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[path] = FileRecord{Path: path, Hash: hash, Functions: functions}
}

// Remove drops the record for a deleted or pruned file.
func (c *Cache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, path)
}

// Paths returns every tracked file path.
func (c *Cache) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, 0, len(c.records))
	for p := range c.records {
		paths = append(paths, p)
	}
	return paths
}

// Len returns the number of tracked files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Diff compares the current function inventory for path against the cached
// one. An uncached path reports every current function as added.
func (c *Cache) Diff(path string, current []extract.FunctionSignature) *Delta {
	c.mu.RLock()
	previous, ok := c.records[path]
	c.mu.RUnlock()

	delta := &Delta{}
	if !ok {
		delta.Added = append(delta.Added, current...)
		return delta
	}

	prevByName := make(map[string]extract.FunctionSignature, len(previous.Functions))
	for _, fn := range previous.Functions {
		prevByName[fn.Name] = fn
	}

	seen := make(map[string]bool, len(current))
	for _, fn := range current {
		seen[fn.Name] = true
		prev, existed := prevByName[fn.Name]
		switch {
		case !existed:
			delta.Added = append(delta.Added, fn)
		case prev.Signature != fn.Signature || prev.StartLine != fn.StartLine || prev.EndLine != fn.EndLine:
			delta.Modified = append(delta.Modified, fn)
		default:
			delta.Unchanged = append(delta.Unchanged, fn)
		}
	}

	for _, fn := range previous.Functions {
		if !seen[fn.Name] {
			delta.Removed = append(delta.Removed, fn)
		}
	}

	return delta
}
