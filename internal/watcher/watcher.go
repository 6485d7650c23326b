package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Kind classifies a raw filesystem event.
type Kind string

const (
	KindAdd    Kind = "add"
	KindChange Kind = "change"
	KindUnlink Kind = "unlink"
)

// Event is one raw change notice for a project-relative path. Delivery is
// at-least-once; the OS may coalesce native events.
type Event struct {
	ProjectID string
	Path      string // relative to the project root
	Kind      Kind
}

// Watcher turns fsnotify callbacks into a channel of typed events, one
// channel for all watched projects. Ignore patterns are applied here so
// vendor trees never reach the pipeline.
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger *slog.Logger
	ignore []glob.Glob
	events chan Event

	mu       sync.Mutex
	roots    map[string]string // projectID -> absolute root
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a watcher with the given ignore glob patterns.
func New(ignorePatterns []string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ignore := make([]glob.Glob, 0, len(ignorePatterns))
	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			fsw.Close()
			return nil, err
		}
		ignore = append(ignore, g)
	}

	w := &Watcher{
		fsw:    fsw,
		logger: logger,
		ignore: ignore,
		events: make(chan Event, 256),
		roots:  make(map[string]string),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// AddProject watches a project root recursively.
func (w *Watcher) AddProject(projectID, rootDir string) error {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.roots[projectID] = absRoot
	w.mu.Unlock()

	return w.addDirectoriesRecursively(absRoot)
}

// Events returns the stream of raw change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop shuts the watcher down and closes the event channel.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.fsw.Close()
		<-w.doneCh
	})
}

// run is the dispatch loop: classify, filter, resolve to a project, emit.
func (w *Watcher) run() {
	defer close(w.doneCh)
	defer close(w.events)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	kind, ok := classify(event.Op)
	if !ok {
		return
	}

	projectID, relPath, ok := w.resolve(event.Name)
	if !ok || w.ignored(relPath) {
		return
	}

	// New directories join the watch set so events keep flowing under them.
	if kind == KindAdd {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addDirectoriesRecursively(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
			}
			return
		}
	}

	select {
	case w.events <- Event{ProjectID: projectID, Path: relPath, Kind: kind}:
	case <-w.stopCh:
	}
}

// resolve maps an absolute event path to its owning project.
func (w *Watcher) resolve(absPath string) (projectID, relPath string, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, root := range w.roots {
		rel, err := filepath.Rel(root, absPath)
		if err != nil || !filepath.IsLocal(rel) {
			continue
		}
		return id, rel, true
	}
	return "", "", false
}

func (w *Watcher) ignored(relPath string) bool {
	slashed := filepath.ToSlash(relPath)
	for _, g := range w.ignore {
		if g.Match(slashed) || g.Match(slashed+"/**") {
			return true
		}
	}
	return false
}

func classify(op fsnotify.Op) (Kind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return KindAdd, true
	case op&fsnotify.Write != 0:
		return KindChange, true
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return KindUnlink, true
	default:
		return "", false
	}
}

// addDirectoriesRecursively adds all directories in the tree to the
// watcher. Unreadable subdirectories are logged and skipped rather than
// failing the whole watch.
func (w *Watcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			w.logger.Warn("error accessing directory", "dir", path, "error", err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}

		if rel, relErr := filepath.Rel(rootPath, path); relErr == nil && rel != "." && w.ignored(rel) {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "dir", path, "error", err)
		}
		return nil
	})
}
