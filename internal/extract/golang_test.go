package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TEST PLAN: Go source extraction
//
// 1. Top-level functions and methods are extracted with line ranges
// 2. Method names are qualified by receiver so they never collide
// 3. Multi-line headers collapse to a whitespace-stable signature
// 4. Syntax errors surface as parse errors, not partial results
// 5. Supports gates on the file extension

const sampleSource = `package sample

import "context"

// Add sums two ints.
func Add(a, b int) int {
	return a + b
}

type Server struct{}

func (s *Server) Start(ctx context.Context) error {
	return nil
}

func (s Server) Name() string { return "sample" }

func Fetch(
	ctx context.Context,
	url string,
) ([]byte, error) {
	return nil, nil
}
`

func TestGoExtractor_ExtractsFunctionsAndMethods(t *testing.T) {
	t.Parallel()

	fns, err := NewGo().Parse(context.Background(), "sample.go", []byte(sampleSource))
	require.NoError(t, err)
	require.Len(t, fns, 4)

	byName := make(map[string]FunctionSignature, len(fns))
	for _, fn := range fns {
		byName[fn.Name] = fn
	}

	add, ok := byName["Add"]
	require.True(t, ok)
	assert.Equal(t, "func Add(a, b int) int", add.Signature)
	assert.Equal(t, 6, add.StartLine)
	assert.Equal(t, 8, add.EndLine)

	start, ok := byName["(*Server).Start"]
	require.True(t, ok)
	assert.Equal(t, "func (s *Server) Start(ctx context.Context) error", start.Signature)

	name, ok := byName["(Server).Name"]
	require.True(t, ok)
	assert.Equal(t, "func (s Server) Name() string", name.Signature)
}

func TestGoExtractor_MultiLineHeaderCollapses(t *testing.T) {
	t.Parallel()

	fns, err := NewGo().Parse(context.Background(), "sample.go", []byte(sampleSource))
	require.NoError(t, err)

	var fetch FunctionSignature
	for _, fn := range fns {
		if fn.Name == "Fetch" {
			fetch = fn
		}
	}
	assert.Equal(t, "func Fetch( ctx context.Context, url string, ) ([]byte, error)", fetch.Signature)
	assert.Equal(t, 18, fetch.StartLine)
	assert.Equal(t, 23, fetch.EndLine)
}

func TestGoExtractor_SyntaxErrorFails(t *testing.T) {
	t.Parallel()

	_, err := NewGo().Parse(context.Background(), "broken.go", []byte("package broken\n\nfunc oops( {\n"))
	assert.Error(t, err)
}

func TestGoExtractor_GenericReceiver(t *testing.T) {
	t.Parallel()

	src := `package sample

type Map[K comparable, V any] struct{}

func (m *Map[K, V]) Get(key K) (V, bool) {
	var zero V
	return zero, false
}
`
	fns, err := NewGo().Parse(context.Background(), "map.go", []byte(src))
	require.NoError(t, err)
	require.Len(t, fns, 1)
	assert.Equal(t, "(*Map).Get", fns[0].Name)
}

func TestGoExtractor_NoFunctions(t *testing.T) {
	t.Parallel()

	fns, err := NewGo().Parse(context.Background(), "types.go", []byte("package sample\n\ntype T struct{}\n"))
	require.NoError(t, err)
	assert.Empty(t, fns)
}

func TestGoExtractor_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGo().Parse(ctx, "sample.go", []byte(sampleSource))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGoExtractor_Supports(t *testing.T) {
	t.Parallel()

	e := NewGo()
	assert.True(t, e.Supports("pkg/server.go"))
	assert.False(t, e.Supports("README.md"))
	assert.False(t, e.Supports("script.py"))
}
