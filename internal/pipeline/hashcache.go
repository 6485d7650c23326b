package pipeline

import (
	"fmt"

	"github.com/maypok86/otter"
)

// hashCacheCapacity bounds the number of tracked fingerprints. Eviction is
// harmless here: a missing entry only costs one redundant re-index.
const hashCacheCapacity = 100_000

// ContentHashCache remembers the last-seen content fingerprint per
// project-scoped path, so byte-identical re-saves are detected before any
// parsing happens.
type ContentHashCache struct {
	cache otter.Cache[string, string]
}

// NewContentHashCache creates the bounded fingerprint cache.
func NewContentHashCache() (*ContentHashCache, error) {
	cache, err := otter.MustBuilder[string, string](hashCacheCapacity).Build()
	if err != nil {
		return nil, fmt.Errorf("build hash cache: %w", err)
	}
	return &ContentHashCache{cache: cache}, nil
}

func hashKey(projectID, path string) string {
	return projectID + "::" + path
}

// Get returns the last-seen fingerprint for a project-scoped path.
func (c *ContentHashCache) Get(projectID, path string) (string, bool) {
	return c.cache.Get(hashKey(projectID, path))
}

// Forget drops the fingerprint for a deleted file so a later re-creation
// with identical content is still indexed.
func (c *ContentHashCache) Forget(projectID, path string) {
	c.cache.Delete(hashKey(projectID, path))
}

// Seed records a fingerprint without comparing, used when restoring from
// the persisted delta cache.
func (c *ContentHashCache) Seed(projectID, path, hash string) {
	c.cache.Set(hashKey(projectID, path), hash)
}
