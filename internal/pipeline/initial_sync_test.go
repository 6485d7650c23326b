package pipeline

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-tools/lattice/internal/config"
	"github.com/halcyon-tools/lattice/internal/extract"
	"github.com/halcyon-tools/lattice/internal/fsys"
)

// TEST PLAN: initial full-project sync
//
// 1. The walk indexes every eligible file, skipping ignored subtrees, and
//    reconciles the graph with a prune pass over the discovered set
// 2. A second sync over an unchanged tree writes nothing
// 3. Parse failures are collected per file, never aborting the sync
// 4. Disabled graph or AST extraction short-circuits to a zero report
// 5. Progress callbacks walk monotonically to the eligible total
// 6. Files the extractor never parses do not count as parse attempts
// 7. The tree walk goes through the filesystem adapter

func TestInitialSync_IndexesWholeTree(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.writeFile(t, "a.go", goSource("Alpha"))
	f.writeFile(t, "internal/b.go", goSource("Beta"))
	f.writeFile(t, "node_modules/dep/skip.go", goSource("Skipped"))
	f.writeFile(t, "README.md", "# docs")

	var lastProcessed, lastTotal int
	report, err := f.pipeline.InitialSync(context.Background(), "proj", func(processed, total int) {
		assert.Greater(t, processed, lastProcessed)
		lastProcessed, lastTotal = processed, total
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesProcessed)
	assert.Equal(t, 2, report.FunctionsSynced)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 2, lastProcessed)
	assert.Equal(t, 2, lastTotal)

	require.Len(t, f.client.upsertCalls, 1)
	require.Len(t, f.client.edgeCalls, 1)
	assert.Len(t, f.client.upsertCalls[0], 2)

	require.Len(t, f.client.pruneCalls, 1)
	assert.ElementsMatch(t, []string{"a.go", "internal/b.go"}, f.client.pruneCalls[0])

	_, ok := f.pipeline.Cache("proj").Get("node_modules/dep/skip.go")
	assert.False(t, ok)
}

func TestInitialSync_SecondPassWritesNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.writeFile(t, "a.go", goSource("Alpha"))
	_, err := f.pipeline.InitialSync(context.Background(), "proj", nil)
	require.NoError(t, err)
	require.Len(t, f.client.upsertCalls, 1)

	report, err := f.pipeline.InitialSync(context.Background(), "proj", nil)
	require.NoError(t, err)

	assert.Zero(t, report.FilesProcessed)
	assert.Len(t, f.client.upsertCalls, 1)
	assert.Equal(t, int64(1), f.pipeline.Stats().SkippedUnchanged)
}

func TestInitialSync_UnparsedFilesAreNotParseAttempts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Paths.Extensions = []string{".md", ".go"}
	})

	f.writeFile(t, "notes.md", "# design notes")
	f.writeFile(t, "a.go", goSource("Alpha"))

	report, err := f.pipeline.InitialSync(context.Background(), "proj", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesProcessed)
	snap := f.pipeline.Stats()
	assert.Equal(t, int64(1), snap.ASTParseSuccess)
	assert.Zero(t, snap.ASTParseFailure)
	assert.Equal(t, float64(100), snap.ASTSuccessRate)
}

// countingFS wraps another FS and counts directory listings, proving the
// bulk walk goes through the adapter rather than the OS directly.
type countingFS struct {
	fsys.FS
	mu       sync.Mutex
	readDirs int
}

func (c *countingFS) ReadDir(path string) ([]fs.DirEntry, error) {
	c.mu.Lock()
	c.readDirs++
	c.mu.Unlock()
	return c.FS.ReadDir(path)
}

func TestInitialSync_WalksThroughTheAdapter(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Paths.Extensions = []string{".go"}

	counting := &countingFS{FS: fsys.OS()}
	client := newMockClient()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := New(cfg, counting, extract.NewGo(), client, logger)
	require.NoError(t, err)
	p.AttachSource(newStubSource())

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "internal"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "internal", "a.go"), []byte(goSource("Alpha")), 0o644))
	p.AddProject("proj", root)

	report, err := p.InitialSync(context.Background(), "proj", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.FilesProcessed)
	counting.mu.Lock()
	defer counting.mu.Unlock()
	assert.GreaterOrEqual(t, counting.readDirs, 2) // root plus internal/
}

func TestInitialSync_ParseFailuresCollected(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.writeFile(t, "good.go", goSource("Good"))
	f.writeFile(t, "broken.go", "package broken\n\nfunc oops( {\n")

	report, err := f.pipeline.InitialSync(context.Background(), "proj", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.FilesProcessed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Error(), "broken.go")
}

func TestInitialSync_DisabledIsNoOp(t *testing.T) {
	t.Parallel()

	for name, mutate := range map[string]func(*config.Config){
		"graph disabled": func(cfg *config.Config) { cfg.Graph.Enabled = false },
		"ast disabled":   func(cfg *config.Config) { cfg.ASTEnabled = false },
	} {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, mutate)
			f.writeFile(t, "a.go", goSource("Alpha"))

			report, err := f.pipeline.InitialSync(context.Background(), "proj", nil)
			require.NoError(t, err)
			assert.Zero(t, report.FilesProcessed)
			assert.Empty(t, f.client.upsertCalls)
			assert.Empty(t, f.client.pruneCalls)
		})
	}
}

func TestInitialSync_EmptyTree(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	report, err := f.pipeline.InitialSync(context.Background(), "proj", nil)
	require.NoError(t, err)
	assert.Zero(t, report.FilesProcessed)
	assert.Empty(t, f.client.upsertCalls)
}

func TestInitialSync_UnknownProject(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	_, err := f.pipeline.InitialSync(context.Background(), "ghost", nil)
	assert.Error(t, err)
}
