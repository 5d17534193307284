package compiler

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"

	"github.com/roach88/docforge/internal/bridge"
)

// SourceName is the virtual filename of the template body.
const SourceName = "template.cue"

// Source is one in-memory source unit.
type Source struct {
	Name string
	Text string
}

// Environment is everything a single compilation may see. There is no
// filesystem: Source is the only source unit and Scope holds the injected
// bindings.
type Environment struct {
	Source   Source
	Context  *cue.Context
	Scope    cue.Value
	Names    []string
	Render   RenderOptions
	MaxDepth int

	decls []ast.Decl
}

// Preamble renders the injected bindings as CUE declarations, one per
// binding in bind order.
func (e *Environment) Preamble() ([]byte, error) {
	return bridge.Preamble(e.decls)
}
