package astcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrCorrupt reports that persisted cache state could not be decoded.
// Callers substitute an empty cache rather than failing startup.
var ErrCorrupt = errors.New("corrupt cache state")

const snapshotVersion = 1

// snapshot is the on-disk shape of the cache: one structured file per
// project, rewritten in full on every save.
type snapshot struct {
	Version int          `json:"version"`
	SavedAt time.Time    `json:"saved_at"`
	Files   []FileRecord `json:"files"`
}

// Load reads a persisted cache from path. A missing file yields an empty
// cache. Malformed or unreadable state returns an error wrapping ErrCorrupt;
// use LoadOrEmpty when the caller just wants a usable cache.
func Load(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, snap.Version)
	}

	cache := New()
	for _, rec := range snap.Files {
		cache.records[rec.Path] = rec
	}
	return cache, nil
}

// LoadOrEmpty loads a persisted cache, substituting an empty cache for
// corrupt state. The returned error is nil in the corrupt case; the boolean
// reports whether a reset happened so the caller can log it.
func LoadOrEmpty(path string) (*Cache, bool) {
	cache, err := Load(path)
	if err != nil {
		return New(), true
	}
	return cache, false
}

// Save writes the full current state to path atomically (tmp then rename)
// so a crash mid-save never corrupts the previous snapshot.
func (c *Cache) Save(path string) error {
	c.mu.RLock()
	snap := snapshot{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Files:   make([]FileRecord, 0, len(c.records)),
	}
	for _, rec := range c.records {
		snap.Files = append(snap.Files, rec)
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}
