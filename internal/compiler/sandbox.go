package compiler

import (
	"strconv"
	"strings"

	"cuelang.org/go/cue/ast"
)

// checkImports reports every import the sandbox refuses. Only the CUE
// standard library is reachable: module paths (first element containing
// a dot) and the side-effecting tool packages are denied. It does not stop
// at the first denial.
func checkImports(f *ast.File) []Diagnostic {
	var diags []Diagnostic
	for _, spec := range f.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			path = spec.Path.Value
		}
		// Strip a ":qualifier" suffix.
		if i := strings.IndexByte(path, ':'); i >= 0 {
			path = path[:i]
		}

		first, _, _ := strings.Cut(path, "/")
		var reason string
		switch {
		case path == "":
			reason = "empty import path"
		case strings.Contains(first, "."):
			reason = "module imports are not available"
		case first == "tool":
			reason = "tool packages are not available"
		}
		if reason == "" {
			continue
		}

		d := Diagnostic{
			Code:    DiagImportDenied,
			Message: "import " + strconv.Quote(path) + " denied: " + reason,
		}
		locate(&d, spec.Pos())
		diags = append(diags, d)
	}
	return diags
}
