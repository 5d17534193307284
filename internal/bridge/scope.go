package bridge

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/format"

	"github.com/roach88/docforge/internal/fault"
	"github.com/roach88/docforge/internal/tvt"
)

// Named is a value bound to an identifier in the template scope.
type Named struct {
	Name  string
	Value tvt.Value
}

// ScopeDecls converts every binding and returns one field declaration per
// name, in order. Conversion stops at the first failure; no partial scope
// is returned.
func (b *Bridge) ScopeDecls(bindings []Named) ([]ast.Decl, error) {
	decls := make([]ast.Decl, 0, len(bindings))
	for _, nb := range bindings {
		x, err := b.Expr(nb.Value)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", nb.Name, err)
		}
		decls = append(decls, &ast.Field{Label: ast.NewIdent(nb.Name), Value: x})
	}
	return decls, nil
}

// Scope builds the struct value whose fields resolve the template's free
// identifiers.
func (b *Bridge) Scope(bindings []Named) (cue.Value, error) {
	decls, err := b.ScopeDecls(bindings)
	if err != nil {
		return cue.Value{}, err
	}
	return b.BuildScope(decls)
}

// BuildScope evaluates declarations produced by ScopeDecls.
func (b *Bridge) BuildScope(decls []ast.Decl) (cue.Value, error) {
	scope := b.ctx.BuildExpr(&ast.StructLit{Elts: decls})
	if err := scope.Err(); err != nil {
		return cue.Value{}, fault.Wrap(fault.KindUnrepresentable, err, "compiler rejected binding scope")
	}
	return scope, nil
}

// Preamble renders scope declarations as formatted CUE source, one
// top-level field per binding.
func Preamble(decls []ast.Decl) ([]byte, error) {
	if len(decls) == 0 {
		return []byte{}, nil
	}
	return format.Node(&ast.File{Decls: decls}, format.Simplify())
}
