package tvt

import (
	"unicode/utf8"

	"github.com/roach88/docforge/internal/fault"
)

// Validate checks that v can be handed to the bridge: every node is a known
// variant, text is valid UTF-8, floats are finite and container nesting does
// not exceed maxDepth. A maxDepth <= 0 selects DefaultMaxDepth.
//
// Depth counts containers: a scalar has depth 0, [1] has depth 1, [[1]]
// has depth 2. Self-referencing sequences or maps fail with DepthExceeded
// instead of recursing forever.
func Validate(v Value, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return validate(v, "$", 0, maxDepth)
}

func validate(v Value, path string, depth, maxDepth int) error {
	switch val := v.(type) {
	case nil:
		return fault.At(fault.KindUnsupportedHostType, path, "nil value")
	case Null, Bool, Int:
		return nil
	case Float:
		if !IsFinite(float64(val)) {
			return fault.At(fault.KindUnrepresentable, path, "non-finite float %s", FormatFloat(float64(val)))
		}
		return nil
	case Str:
		if !utf8.ValidString(string(val)) {
			return fault.At(fault.KindInvalidUTF8, path, "string is not valid UTF-8")
		}
		return nil
	case Seq:
		if depth+1 > maxDepth {
			return fault.At(fault.KindDepthExceeded, path, "nesting exceeds %d levels", maxDepth)
		}
		for i, e := range val {
			if err := validate(e, fault.IndexPath(path, i), depth+1, maxDepth); err != nil {
				return err
			}
		}
		return nil
	case *Map:
		if depth+1 > maxDepth {
			return fault.At(fault.KindDepthExceeded, path, "nesting exceeds %d levels", maxDepth)
		}
		for k, e := range val.All() {
			if !utf8.ValidString(k) {
				return fault.At(fault.KindInvalidUTF8, path, "mapping key is not valid UTF-8")
			}
			if err := validate(e, fault.JoinPath(path, k), depth+1, maxDepth); err != nil {
				return err
			}
		}
		return nil
	default:
		return fault.At(fault.KindUnsupportedHostType, path, "unknown value type %T", v)
	}
}
