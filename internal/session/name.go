package session

import (
	"strings"

	"cuelang.org/go/cue/ast"

	"github.com/roach88/docforge/internal/fault"
)

var keywords = map[string]bool{
	"package": true,
	"import":  true,
	"for":     true,
	"in":      true,
	"if":      true,
	"let":     true,
	"true":    true,
	"false":   true,
	"null":    true,
}

// Injected bindings resolve before predeclared identifiers, so binding
// one of these would hide a builtin from the template.
var predeclared = map[string]bool{
	"bool":    true,
	"bytes":   true,
	"float":   true,
	"int":     true,
	"number":  true,
	"string":  true,
	"len":     true,
	"close":   true,
	"matchIf": true,
	"matchN":  true,
	"and":     true,
	"or":      true,
	"div":     true,
	"mod":     true,
	"quo":     true,
	"rem":     true,
}

// ValidateName reports whether name can be bound: it must be a regular
// identifier, not hidden (_x), not a definition (#X), and neither a
// keyword nor a predeclared identifier.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fault.New(fault.KindInvalidName, "binding name is empty")
	case strings.HasPrefix(name, "_"), strings.HasPrefix(name, "#"):
		return fault.New(fault.KindInvalidName, "binding name %q must not start with _ or #", name)
	case !ast.IsValidIdent(name):
		return fault.New(fault.KindInvalidName, "binding name %q is not an identifier", name)
	case keywords[name]:
		return fault.New(fault.KindInvalidName, "binding name %q is a keyword", name)
	case predeclared[name]:
		return fault.New(fault.KindInvalidName, "binding name %q shadows a predeclared identifier", name)
	}
	return nil
}
