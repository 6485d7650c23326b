package pipeline

import (
	"path/filepath"

	"github.com/gobwas/glob"
)

// FileFilter rejects irrelevant or oversized files before any expensive
// work: extension allow-list, ignore globs, then a size ceiling checked via
// stat.
type FileFilter struct {
	extensions map[string]bool
	ignore     []glob.Glob
	maxBytes   int64
}

// NewFileFilter compiles the ignore patterns and builds the allow-list.
func NewFileFilter(extensions []string, ignorePatterns []string, maxBytes int64) (*FileFilter, error) {
	extMap := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extMap[ext] = true
	}

	ignore := make([]glob.Glob, 0, len(ignorePatterns))
	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		ignore = append(ignore, g)
	}

	return &FileFilter{
		extensions: extMap,
		ignore:     ignore,
		maxBytes:   maxBytes,
	}, nil
}

// AllowPath reports whether a relative path is eligible by extension and
// ignore rules. Size is checked separately because it needs a stat call.
func (f *FileFilter) AllowPath(relPath string) bool {
	if !f.extensions[filepath.Ext(relPath)] {
		return false
	}

	slashed := filepath.ToSlash(relPath)
	for _, g := range f.ignore {
		if g.Match(slashed) {
			return false
		}
	}
	return true
}

// AllowDir reports whether a directory should be descended into. A
// directory is rejected when it matches an ignore pattern directly or via
// the "dir/**" form.
func (f *FileFilter) AllowDir(relDir string) bool {
	slashed := filepath.ToSlash(relDir)
	for _, g := range f.ignore {
		if g.Match(slashed) || g.Match(slashed+"/**") {
			return false
		}
	}
	return true
}

// AllowSize reports whether a file of the given size is under the ceiling.
func (f *FileFilter) AllowSize(size int64) bool {
	return size <= f.maxBytes
}
