package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/docforge/internal/fault"
)

// Diagnostic codes (E200-E299)
const (
	DiagSyntax             = "E201" // template does not parse
	DiagImportDenied       = "E202" // import outside the sandbox
	DiagEvaluation         = "E203" // unresolved reference or failed evaluation
	DiagExpressionNotFound = "E204" // output expression selects nothing
	DiagValidation         = "E205" // conflicting or non-concrete result
	DiagRender             = "E206" // result cannot be rendered in the chosen format
)

// Diagnostic is one compiler-reported problem.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Path    string `json:"path,omitempty"`
}

// String renders the diagnostic as "file:line:col: path: message".
func (d Diagnostic) String() string {
	var b strings.Builder
	if d.File != "" {
		b.WriteString(d.File)
		if d.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", d.Line, d.Column)
		}
		b.WriteString(": ")
	}
	if d.Path != "" {
		b.WriteString(d.Path)
		b.WriteString(": ")
	}
	b.WriteString(d.Message)
	return b.String()
}

// CompileError carries every diagnostic of a failed compilation, in the
// order the compiler reported them.
type CompileError struct {
	Diagnostics []Diagnostic
}

// Error joins the diagnostics with newlines.
func (e *CompileError) Error() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// Kind classifies the error as COMPILE_FAILED.
func (e *CompileError) Kind() fault.Kind {
	return fault.KindCompileFailed
}

// Is matches fault.ErrCompileFailed.
func (e *CompileError) Is(target error) bool {
	return target == fault.ErrCompileFailed
}

// diagnose expands a CUE error into one diagnostic per underlying error.
// Order is preserved and nothing is deduplicated.
func diagnose(code string, err error) []Diagnostic {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	out := make([]Diagnostic, 0, len(errs))
	for _, e := range errs {
		format, args := e.Msg()
		d := Diagnostic{
			Code:    code,
			Message: fmt.Sprintf(format, args...),
			Path:    strings.Join(e.Path(), "."),
		}
		if d.Message == "" {
			d.Message = e.Error()
		}
		pos := e.Position()
		if !pos.IsValid() {
			if inputs := e.InputPositions(); len(inputs) > 0 {
				pos = inputs[0]
			}
		}
		locate(&d, pos)
		out = append(out, d)
	}
	return out
}

// mergeDiagnostics appends the entries of more that base does not already
// hold, keeping first-seen order. Entries match on message and position; a
// match fills in a path the first entry lacked.
func mergeDiagnostics(base, more []Diagnostic) []Diagnostic {
	type key struct {
		msg, file    string
		line, column int
	}
	index := make(map[key]int, len(base)+len(more))
	out := make([]Diagnostic, 0, len(base)+len(more))
	for _, list := range [][]Diagnostic{base, more} {
		for _, d := range list {
			k := key{d.Message, d.File, d.Line, d.Column}
			if i, ok := index[k]; ok {
				if out[i].Path == "" {
					out[i].Path = d.Path
				}
				continue
			}
			index[k] = len(out)
			out = append(out, d)
		}
	}
	return out
}

func locate(d *Diagnostic, pos token.Pos) {
	if !pos.IsValid() {
		return
	}
	d.File = pos.Filename()
	d.Line = pos.Line()
	d.Column = pos.Column()
}
