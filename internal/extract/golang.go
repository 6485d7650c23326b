package extract

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
)

// goExtractor extracts function signatures from Go source using go/ast.
type goExtractor struct{}

// NewGo creates an extractor for Go source files.
func NewGo() Extractor {
	return &goExtractor{}
}

func (e *goExtractor) Supports(path string) bool {
	return filepath.Ext(path) == ".go"
}

// Parse extracts top-level functions and methods. Method names are
// qualified with their receiver type ("(*Server).Start") so they never
// collide with plain functions of the same name.
func (e *goExtractor) Parse(ctx context.Context, path string, content []byte) ([]FunctionSignature, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var functions []FunctionSignature
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}

		name := fn.Name.Name
		if fn.Recv != nil && len(fn.Recv.List) > 0 {
			name = fmt.Sprintf("(%s).%s", receiverType(fn.Recv.List[0].Type), name)
		}

		functions = append(functions, FunctionSignature{
			Name:      name,
			Signature: signatureText(fset, fn, content),
			StartLine: fset.Position(fn.Pos()).Line,
			EndLine:   fset.Position(fn.End()).Line,
		})
	}

	return functions, nil
}

// signatureText slices the declaration header out of the original source,
// from the func keyword through the end of the type (params and results).
func signatureText(fset *token.FileSet, fn *ast.FuncDecl, content []byte) string {
	start := fset.Position(fn.Pos()).Offset
	end := fset.Position(fn.Type.End()).Offset
	if start < 0 || end > len(content) || start >= end {
		return ""
	}
	sig := string(content[start:end])
	// Collapse multi-line headers so signature comparison is whitespace-stable.
	fields := strings.Fields(sig)
	return strings.Join(fields, " ")
}

// receiverType renders a method receiver type ("Server", "*Server",
// "*Map[K, V]") from its AST expression.
func receiverType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + receiverType(t.X)
	case *ast.IndexExpr:
		return receiverType(t.X)
	case *ast.IndexListExpr:
		return receiverType(t.X)
	default:
		return fmt.Sprintf("%T", expr)
	}
}
