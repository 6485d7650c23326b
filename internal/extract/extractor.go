package extract

import "context"

// Extractor turns source text into a function-level summary.
// Implementations may fail per file; the caller decides how to isolate
// those failures.
type Extractor interface {
	// Parse extracts function signatures from content. The path is used
	// for language detection and error reporting only.
	Parse(ctx context.Context, path string, content []byte) ([]FunctionSignature, error)

	// Supports reports whether the extractor can handle the given path.
	Supports(path string) bool
}

// Disabled returns an extractor that produces empty results for every file.
// Used when AST extraction is turned off in configuration.
func Disabled() Extractor {
	return disabledExtractor{}
}

type disabledExtractor struct{}

func (disabledExtractor) Parse(ctx context.Context, path string, content []byte) ([]FunctionSignature, error) {
	return nil, nil
}

func (disabledExtractor) Supports(path string) bool {
	return false
}
