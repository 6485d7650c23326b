package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TEST PLAN: file filter
//
// 1. Extension allow-list gates everything else
// 2. Ignore globs match slash-normalized relative paths
// 3. AllowDir prunes whole subtrees for ignore patterns of the dir/** form
// 4. Size ceiling is inclusive

func newTestFilter(t *testing.T) *FileFilter {
	t.Helper()
	f, err := NewFileFilter(
		[]string{".go", ".ts"},
		[]string{"node_modules/**", "vendor/**", ".lattice/**", "**/*_generated.go"},
		1024,
	)
	require.NoError(t, err)
	return f
}

func TestFileFilter_Extensions(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	assert.True(t, f.AllowPath("internal/server.go"))
	assert.True(t, f.AllowPath("web/app.ts"))
	assert.False(t, f.AllowPath("README.md"))
	assert.False(t, f.AllowPath("Makefile"))
}

func TestFileFilter_IgnoreGlobs(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	assert.False(t, f.AllowPath("node_modules/left-pad/index.ts"))
	assert.False(t, f.AllowPath("vendor/github.com/pkg/errors/errors.go"))
	assert.False(t, f.AllowPath(".lattice/astcache.json"))
	assert.False(t, f.AllowPath("internal/api_generated.go"))
	assert.True(t, f.AllowPath("internal/api.go"))
}

func TestFileFilter_AllowDirPrunesSubtrees(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	assert.False(t, f.AllowDir("node_modules"))
	assert.False(t, f.AllowDir("vendor"))
	assert.False(t, f.AllowDir(".lattice"))
	assert.True(t, f.AllowDir("internal"))
	assert.True(t, f.AllowDir("internal/server"))
}

func TestFileFilter_SizeCeiling(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	assert.True(t, f.AllowSize(0))
	assert.True(t, f.AllowSize(1024))
	assert.False(t, f.AllowSize(1025))
}

func TestFileFilter_BadPatternErrors(t *testing.T) {
	t.Parallel()

	_, err := NewFileFilter([]string{".go"}, []string{"[unclosed"}, 1024)
	assert.Error(t, err)
}
