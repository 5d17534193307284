package compiler

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/parser"
)

// Engine runs exactly one compilation of a prepared environment.
//
// An engine sees only what the environment holds: the template source and
// the injected scope. It reports failure as diagnostics, never as a Go
// error; a nil diagnostic slice means the returned bytes are the artifact.
type Engine interface {
	Compile(env *Environment) ([]byte, []Diagnostic)
}

// CUEEngine evaluates the template with the CUE evaluator.
type CUEEngine struct{}

// NewCUEEngine returns the default engine.
func NewCUEEngine() *CUEEngine {
	return &CUEEngine{}
}

// Compile parses the template, enforces the import sandbox, evaluates the
// file against the injected scope and renders the result.
func (CUEEngine) Compile(env *Environment) ([]byte, []Diagnostic) {
	f, err := parser.ParseFile(env.Source.Name, env.Source.Text, parser.AllErrors)
	if err != nil {
		return nil, diagnose(DiagSyntax, err)
	}
	if diags := checkImports(f); len(diags) > 0 {
		return nil, diags
	}

	v := env.Context.BuildFile(f, cue.Scope(env.Scope))
	if err := v.Err(); err != nil {
		// Err stops at the first bottom; Validate walks every field.
		return nil, mergeDiagnostics(diagnose(DiagEvaluation, err), diagnose(DiagEvaluation, v.Validate()))
	}

	if expr := env.Render.Expression; expr != "" {
		path := cue.ParsePath(expr)
		if err := path.Err(); err != nil {
			return nil, diagnose(DiagExpressionNotFound, err)
		}
		v = v.LookupPath(path)
		if !v.Exists() {
			return nil, []Diagnostic{{
				Code:    DiagExpressionNotFound,
				Message: "expression " + expr + " selects no value",
				File:    env.Source.Name,
			}}
		}
		if err := v.Err(); err != nil {
			return nil, diagnose(DiagEvaluation, err)
		}
	}

	if err := v.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, diagnose(DiagValidation, err)
	}

	out, err := render(v, env.Render.Format, env.MaxDepth)
	if err != nil {
		return nil, []Diagnostic{{
			Code:    DiagRender,
			Message: err.Error(),
			File:    env.Source.Name,
		}}
	}
	return out, nil
}
